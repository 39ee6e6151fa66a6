package models

import "time"

// Poll represents one multiple-choice question being voted on.
// At most one poll is active at any time; a closed poll is never
// mutated again except for the Active flag flip at closure.
type Poll struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	Options          []string  `json:"options"`
	CorrectIndices   []int     `json:"correctIndices"`
	TimeLimitSeconds int       `json:"timeLimitSeconds"`
	CreatedAt        time.Time `json:"createdAt"`
	Active           bool      `json:"active"`
}

// IsCorrect reports whether the given option index is one of the
// poll's correct answers.
func (p *Poll) IsCorrect(optionIndex int) bool {
	for _, i := range p.CorrectIndices {
		if i == optionIndex {
			return true
		}
	}
	return false
}

// Remaining returns the whole seconds left on the poll's countdown at
// the given instant, clamped at zero. It is zero for inactive polls.
func (p *Poll) Remaining(now time.Time) int {
	if !p.Active {
		return 0
	}
	elapsed := int(now.Sub(p.CreatedAt) / time.Second)
	remaining := p.TimeLimitSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Answer is one recorded submission in a poll's response ledger.
type Answer struct {
	OptionIndex int       `json:"optionIndex"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// OptionResult is the tally for a single option of a poll.
type OptionResult struct {
	Option     string `json:"option"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
	IsCorrect  bool   `json:"isCorrect"`
}

// PollResult is the computed aggregate for a poll. It is derived on
// demand and never stored independently of its poll.
type PollResult struct {
	Poll           *Poll          `json:"poll"`
	PerOption      []OptionResult `json:"results"`
	TotalResponses int            `json:"totalResponses"`
}

// ArchivedPoll is a completed poll with its frozen final result.
type ArchivedPoll struct {
	Poll        *Poll      `json:"poll"`
	FinalResult PollResult `json:"finalResult"`
	EndedAt     time.Time  `json:"endedAt"`
}
