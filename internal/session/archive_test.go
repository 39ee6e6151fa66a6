package session_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpoll/backend/internal/models"
	"github.com/classpoll/backend/internal/session"
)

func archivedPoll(id string) models.ArchivedPoll {
	poll := &models.Poll{ID: id, Question: "q" + id, Options: []string{"a", "b"}}
	return models.ArchivedPoll{
		Poll:        poll,
		FinalResult: session.Aggregate(poll, session.NewLedger(id)),
		EndedAt:     time.Now(),
	}
}

func TestArchiveEvictsOldestBeyondCap(t *testing.T) {
	a := session.NewArchive(50)
	for i := 1; i <= 51; i++ {
		a.Append(archivedPoll(fmt.Sprintf("%d", i)))
	}

	assert.Equal(t, 50, a.Len())
	entries := a.List()
	require.Len(t, entries, 50)
	// the very first poll is gone, order is oldest first
	assert.Equal(t, "2", entries[0].Poll.ID)
	assert.Equal(t, "51", entries[49].Poll.ID)
}

func TestArchiveListIsACopy(t *testing.T) {
	a := session.NewArchive(10)
	a.Append(archivedPoll("1"))

	entries := a.List()
	entries[0] = archivedPoll("tampered")
	assert.Equal(t, "1", a.List()[0].Poll.ID)
}

func TestChatLogEvictsOldestBeyondCap(t *testing.T) {
	c := session.NewChatLog(100)
	for i := 1; i <= 105; i++ {
		c.Append(models.ChatMessage{ID: fmt.Sprintf("%d", i), Body: "m", Timestamp: time.Now()})
	}

	assert.Equal(t, 100, c.Len())
	msgs := c.List()
	assert.Equal(t, "6", msgs[0].ID)
	assert.Equal(t, "105", msgs[99].ID)
}
