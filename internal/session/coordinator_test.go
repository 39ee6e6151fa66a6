package session_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpoll/backend/internal/models"
	"github.com/classpoll/backend/internal/session"
)

// fakeBroadcaster records everything the coordinator publishes.
type fakeBroadcaster struct {
	mu           sync.Mutex
	broadcasts   []recordedEvent
	direct       map[string][]recordedEvent
	disconnected []string
}

type recordedEvent struct {
	Event   string
	Payload interface{}
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{direct: make(map[string][]recordedEvent)}
}

func (f *fakeBroadcaster) Broadcast(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, recordedEvent{event, payload})
}

func (f *fakeBroadcaster) SendTo(identity, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct[identity] = append(f.direct[identity], recordedEvent{event, payload})
}

func (f *fakeBroadcaster) Disconnect(identity string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, identity)
}

func (f *fakeBroadcaster) lastBroadcast(event string) (recordedEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.broadcasts) - 1; i >= 0; i-- {
		if f.broadcasts[i].Event == event {
			return f.broadcasts[i], true
		}
	}
	return recordedEvent{}, false
}

func (f *fakeBroadcaster) broadcastCount(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.broadcasts {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (f *fakeBroadcaster) directEvents(identity, event string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.direct[identity] {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func newTestCoordinator(t *testing.T) (*session.Coordinator, *fakeBroadcaster) {
	t.Helper()
	b := newFakeBroadcaster()
	return session.NewCoordinator(session.DefaultConfig(), b, zap.NewNop()), b
}

func mustJoin(t *testing.T, c *session.Coordinator, identity, name string, role models.Role) *models.Participant {
	t.Helper()
	p, err := c.Join(identity, name, role)
	require.NoError(t, err)
	return p
}

func validCreate(timeLimit int) session.CreatePollRequest {
	return session.CreatePollRequest{
		Question:         "2+2?",
		Options:          []string{"3", "4", "5"},
		CorrectIndices:   []int{1},
		TimeLimitSeconds: timeLimit,
	}
}

func TestJoinSendsSnapshot(t *testing.T) {
	c, b := newTestCoordinator(t)

	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)

	require.Len(t, b.directEvents("s1", session.EventJoined), 1)
	require.Len(t, b.directEvents("s1", session.EventChatHistory), 1)
	// students never receive the archive unsolicited, teachers do
	assert.Empty(t, b.directEvents("s1", session.EventHistory))
	assert.Len(t, b.directEvents("t1", session.EventHistory), 1)

	count, ok := b.lastBroadcast(session.EventParticipantCount)
	require.True(t, ok)
	assert.Equal(t, 1, count.Payload)

	list, ok := b.lastBroadcast(session.EventParticipantList)
	require.True(t, ok)
	students := list.Payload.([]*models.Participant)
	require.Len(t, students, 1)
	assert.Equal(t, "Ada", students[0].DisplayName)
}

func TestJoinDuringActivePollIncludesPollState(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)

	_, err := c.CreatePoll("t1", validCreate(60))
	require.NoError(t, err)
	_, err = c.SubmitAnswer("s1", 1)
	require.NoError(t, err)

	mustJoin(t, c, "s2", "Grace", models.RoleStudent)

	polls := b.directEvents("s2", session.EventCurrentPoll)
	require.Len(t, polls, 1)
	snap := polls[0].Payload.(session.PollSnapshot)
	assert.True(t, snap.Active)
	assert.False(t, snap.HasAnswered)

	require.NotEmpty(t, b.directEvents("s2", session.EventTimeRemaining))

	// the student who already answered sees hasAnswered on a rejoin
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)
	polls = b.directEvents("s1", session.EventCurrentPoll)
	require.NotEmpty(t, polls)
	snap = polls[len(polls)-1].Payload.(session.PollSnapshot)
	assert.True(t, snap.HasAnswered)
}

func TestJoinValidation(t *testing.T) {
	c, _ := newTestCoordinator(t)

	_, err := c.Join("x", "Ada", models.Role("admin"))
	assert.True(t, session.IsValidation(err))

	_, err = c.Join("x", "   ", models.RoleStudent)
	assert.True(t, session.IsValidation(err))
}

func TestCreatePollValidation(t *testing.T) {
	tests := []struct {
		name string
		req  session.CreatePollRequest
	}{
		{"empty question", session.CreatePollRequest{Options: []string{"a", "b"}, TimeLimitSeconds: 60}},
		{"one option", session.CreatePollRequest{Question: "q", Options: []string{"a"}, TimeLimitSeconds: 60}},
		{"seven options", session.CreatePollRequest{Question: "q", Options: []string{"a", "b", "c", "d", "e", "f", "g"}, TimeLimitSeconds: 60}},
		{"blank option", session.CreatePollRequest{Question: "q", Options: []string{"a", " "}, TimeLimitSeconds: 60}},
		{"zero time limit", session.CreatePollRequest{Question: "q", Options: []string{"a", "b"}}},
		{"correct index out of range", session.CreatePollRequest{Question: "q", Options: []string{"a", "b"}, CorrectIndices: []int{2}, TimeLimitSeconds: 60}},
		{"negative correct index", session.CreatePollRequest{Question: "q", Options: []string{"a", "b"}, CorrectIndices: []int{-1}, TimeLimitSeconds: 60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, b := newTestCoordinator(t)
			mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)

			_, err := c.CreatePoll("t1", tt.req)
			assert.True(t, session.IsValidation(err), "want ValidationError, got %v", err)
			assert.Equal(t, 0, b.broadcastCount(session.EventPollStarted))

			// invalid attempt left no state behind: a valid create still works
			_, err = c.CreatePoll("t1", validCreate(60))
			assert.NoError(t, err)
		})
	}
}

func TestCreatePollRequiresTeacher(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)

	_, err := c.CreatePoll("s1", validCreate(60))
	assert.ErrorIs(t, err, session.ErrNotTeacher)

	_, err = c.CreatePoll("ghost", validCreate(60))
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestCreatePollConflictWhileActive(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)

	_, err := c.CreatePoll("t1", validCreate(60))
	require.NoError(t, err)

	_, err = c.CreatePoll("t1", validCreate(60))
	assert.ErrorIs(t, err, session.ErrPollActive)
	assert.Equal(t, 1, b.broadcastCount(session.EventPollStarted))
}

func TestSingleActivePollUnderRacingCreates(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)

	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.CreatePoll("t1", validCreate(60))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, session.ErrPollActive)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, b.broadcastCount(session.EventPollStarted))
}

func TestSubmitAnswerFlow(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)
	mustJoin(t, c, "s2", "Grace", models.RoleStudent)

	_, err := c.CreatePoll("t1", validCreate(60))
	require.NoError(t, err)

	receipt, err := c.SubmitAnswer("s1", 1)
	require.NoError(t, err)
	assert.True(t, receipt.IsCorrect)
	assert.Equal(t, 1, receipt.SelectedOption)
	assert.Equal(t, []int{1}, receipt.CorrectIndices)

	receipt, err = c.SubmitAnswer("s2", 0)
	require.NoError(t, err)
	assert.False(t, receipt.IsCorrect)

	// one answer each on options 0 and 1: 50% / 50%, correctness on index 1 only
	last, ok := b.lastBroadcast(session.EventResultsUpdated)
	require.True(t, ok)
	result := last.Payload.(models.PollResult)
	assert.Equal(t, 2, result.TotalResponses)
	assert.Equal(t, 1, result.PerOption[0].Count)
	assert.Equal(t, 50, result.PerOption[0].Percentage)
	assert.False(t, result.PerOption[0].IsCorrect)
	assert.Equal(t, 1, result.PerOption[1].Count)
	assert.Equal(t, 50, result.PerOption[1].Percentage)
	assert.True(t, result.PerOption[1].IsCorrect)
	assert.Equal(t, 0, result.PerOption[2].Count)

	require.Len(t, b.directEvents("s1", session.EventAnswerSubmitted), 1)
}

func TestSubmitAnswerRejections(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)

	_, err := c.SubmitAnswer("s1", 0)
	assert.ErrorIs(t, err, session.ErrNoActivePoll)

	_, err = c.CreatePoll("t1", validCreate(60))
	require.NoError(t, err)

	_, err = c.SubmitAnswer("ghost", 0)
	assert.ErrorIs(t, err, session.ErrNotFound)

	_, err = c.SubmitAnswer("s1", 3)
	assert.True(t, session.IsValidation(err))
	_, err = c.SubmitAnswer("s1", -1)
	assert.True(t, session.IsValidation(err))
}

func TestDuplicateAnswerKeepsFirstChoice(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)

	_, err := c.CreatePoll("t1", validCreate(60))
	require.NoError(t, err)

	_, err = c.SubmitAnswer("s1", 1)
	require.NoError(t, err)
	_, err = c.SubmitAnswer("s1", 0)
	assert.ErrorIs(t, err, session.ErrAlreadyAnswered)

	last, ok := b.lastBroadcast(session.EventResultsUpdated)
	require.True(t, ok)
	result := last.Payload.(models.PollResult)
	assert.Equal(t, 1, result.TotalResponses)
	assert.Equal(t, 0, result.PerOption[0].Count)
	assert.Equal(t, 1, result.PerOption[1].Count)
}

func TestPollEndsByTimerWithNoAnswers(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)

	_, err := c.CreatePoll("t1", validCreate(1))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return b.broadcastCount(session.EventPollEnded) == 1
	}, 3*time.Second, 50*time.Millisecond)

	ended, _ := b.lastBroadcast(session.EventPollEnded)
	final := ended.Payload.(models.PollResult)
	assert.Equal(t, 0, final.TotalResponses)
	for _, opt := range final.PerOption {
		assert.Equal(t, 0, opt.Count)
		assert.Equal(t, 0, opt.Percentage)
	}

	// final countdown broadcast is zero
	tick, ok := b.lastBroadcast(session.EventTimeRemaining)
	require.True(t, ok)
	assert.Equal(t, 0, tick.Payload)

	// the closed poll is archived
	history := c.History()
	require.Len(t, history, 1)
	assert.False(t, history[0].Poll.Active)
	assert.Equal(t, final.TotalResponses, history[0].FinalResult.TotalResponses)
}

func TestSubmitAfterTimerExpiryFails(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)

	_, err := c.CreatePoll("t1", validCreate(1))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return b.broadcastCount(session.EventPollEnded) == 1
	}, 3*time.Second, 50*time.Millisecond)

	_, err = c.SubmitAnswer("s1", 0)
	assert.ErrorIs(t, err, session.ErrNoActivePoll)

	// closure fires exactly once even as stray ticks drain
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, 1, b.broadcastCount(session.EventPollEnded))
}

func TestAnswersNeverClosePoll(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)

	_, err := c.CreatePoll("t1", validCreate(60))
	require.NoError(t, err)
	_, err = c.SubmitAnswer("s1", 0)
	require.NoError(t, err)

	// the only participant has answered, yet the poll stays open for
	// late joiners until the timer fires
	assert.Equal(t, 0, b.broadcastCount(session.EventPollEnded))
	mustJoin(t, c, "s2", "Grace", models.RoleStudent)
	_, err = c.SubmitAnswer("s2", 1)
	assert.NoError(t, err)
}

func TestKickRemovesVoteAndNotifiesTarget(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)
	mustJoin(t, c, "s2", "Grace", models.RoleStudent)

	_, err := c.CreatePoll("t1", validCreate(60))
	require.NoError(t, err)
	_, err = c.SubmitAnswer("s1", 1)
	require.NoError(t, err)
	_, err = c.SubmitAnswer("s2", 0)
	require.NoError(t, err)

	require.NoError(t, c.Kick("t1", "s1"))

	last, ok := b.lastBroadcast(session.EventResultsUpdated)
	require.True(t, ok)
	result := last.Payload.(models.PollResult)
	assert.Equal(t, 1, result.TotalResponses)
	assert.Equal(t, 0, result.PerOption[1].Count)
	assert.Equal(t, 1, result.PerOption[0].Count)
	assert.Equal(t, 100, result.PerOption[0].Percentage)

	require.Len(t, b.directEvents("s1", session.EventKicked), 1)
	assert.Equal(t, []string{"s1"}, b.disconnected)

	count, _ := b.lastBroadcast(session.EventParticipantCount)
	assert.Equal(t, 1, count.Payload)
}

func TestKickAuthorization(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)
	mustJoin(t, c, "s2", "Grace", models.RoleStudent)

	assert.ErrorIs(t, c.Kick("s1", "s2"), session.ErrNotTeacher)
	assert.ErrorIs(t, c.Kick("t1", "ghost"), session.ErrNotFound)
	assert.ErrorIs(t, c.Kick("ghost", "s1"), session.ErrNotFound)
}

func TestLeaveNeverTouchesPollState(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)

	_, err := c.CreatePoll("t1", validCreate(60))
	require.NoError(t, err)

	c.Leave("s1")
	assert.Equal(t, 0, b.broadcastCount(session.EventPollEnded))

	count, _ := b.lastBroadcast(session.EventParticipantCount)
	assert.Equal(t, 0, count.Payload)

	// leaving with an unknown identity is a no-op
	before := b.broadcastCount(session.EventParticipantCount)
	c.Leave("ghost")
	assert.Equal(t, before, b.broadcastCount(session.EventParticipantCount))
}

func TestChatRelayAndValidation(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)

	msg, err := c.PostMessage("s1", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Body)
	assert.Equal(t, "Ada", msg.SenderName)
	assert.False(t, msg.SenderIsTeacher)

	tmsg, err := c.PostMessage("t1", "welcome")
	require.NoError(t, err)
	assert.True(t, tmsg.SenderIsTeacher)

	assert.Equal(t, 2, b.broadcastCount(session.EventChatMessage))

	_, err = c.PostMessage("s1", "   ")
	assert.True(t, session.IsValidation(err))
	_, err = c.PostMessage("ghost", "hi")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestChatBacklogDeliveredOnJoin(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "t1", "Teacher", models.RoleTeacher)
	for i := 0; i < 3; i++ {
		_, err := c.PostMessage("t1", fmt.Sprintf("note %d", i))
		require.NoError(t, err)
	}

	mustJoin(t, c, "s1", "Ada", models.RoleStudent)
	backlogs := b.directEvents("s1", session.EventChatHistory)
	require.Len(t, backlogs, 1)
	backlog := backlogs[0].Payload.([]models.ChatMessage)
	require.Len(t, backlog, 3)
	assert.Equal(t, "note 0", backlog[0].Body)
}

func TestSendHistoryTargetsRequester(t *testing.T) {
	c, b := newTestCoordinator(t)
	mustJoin(t, c, "s1", "Ada", models.RoleStudent)

	c.SendHistory("s1")
	require.Len(t, b.directEvents("s1", session.EventHistory), 1)
}
