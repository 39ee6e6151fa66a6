package session

import "github.com/classpoll/backend/internal/models"

// Archive is the bounded history of completed polls. Entries are
// immutable once appended; when the cap is exceeded the oldest entry is
// evicted first.
type Archive struct {
	cap     int
	entries []models.ArchivedPoll
}

// NewArchive creates an archive that retains at most cap entries.
func NewArchive(cap int) *Archive {
	return &Archive{cap: cap}
}

// Append adds a completed poll, evicting the oldest entry if the cap
// would be exceeded.
func (a *Archive) Append(entry models.ArchivedPoll) {
	a.entries = append(a.entries, entry)
	if len(a.entries) > a.cap {
		a.entries = a.entries[len(a.entries)-a.cap:]
	}
}

// List returns the archived polls oldest first, newest last. The
// returned slice is a copy.
func (a *Archive) List() []models.ArchivedPoll {
	out := make([]models.ArchivedPoll, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of archived polls.
func (a *Archive) Len() int {
	return len(a.entries)
}
