package session

import (
	"time"

	"github.com/classpoll/backend/internal/models"
)

// Ledger holds the recorded answers for a single poll, keyed by
// participant identity. Entries are insert-once: a participant's first
// answer stands. The ledger is created empty when its poll starts and
// frozen when the poll closes.
type Ledger struct {
	pollID  string
	entries map[string]models.Answer
}

// NewLedger creates an empty ledger bound to a poll id.
func NewLedger(pollID string) *Ledger {
	return &Ledger{pollID: pollID, entries: make(map[string]models.Answer)}
}

// PollID returns the id of the poll this ledger belongs to.
func (l *Ledger) PollID() string {
	return l.pollID
}

// Record inserts an answer for the identity. It returns false without
// modifying the ledger if the identity already answered.
func (l *Ledger) Record(identity string, optionIndex int, at time.Time) bool {
	if _, ok := l.entries[identity]; ok {
		return false
	}
	l.entries[identity] = models.Answer{OptionIndex: optionIndex, SubmittedAt: at}
	return true
}

// Has reports whether the identity already has an entry.
func (l *Ledger) Has(identity string) bool {
	_, ok := l.entries[identity]
	return ok
}

// Remove deletes the identity's entry if present and reports whether
// anything was removed. Used when a participant is kicked mid-poll.
func (l *Ledger) Remove(identity string) bool {
	if _, ok := l.entries[identity]; !ok {
		return false
	}
	delete(l.entries, identity)
	return true
}

// Size returns the number of recorded answers.
func (l *Ledger) Size() int {
	return len(l.entries)
}

// Counts tallies answers per option index over numOptions options.
// Out-of-range entries are impossible by construction (submissions are
// validated against the poll before recording).
func (l *Ledger) Counts(numOptions int) []int {
	counts := make([]int, numOptions)
	for _, a := range l.entries {
		if a.OptionIndex >= 0 && a.OptionIndex < numOptions {
			counts[a.OptionIndex]++
		}
	}
	return counts
}
