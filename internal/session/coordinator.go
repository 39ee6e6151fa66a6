package session

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpoll/backend/internal/models"
)

// Config holds the session policy knobs.
type Config struct {
	MinOptions           int
	MaxOptions           int
	MaxQuestionLen       int
	MinTimeLimitSeconds  int
	MaxTimeLimitSeconds  int
	ArchiveCap           int
	ChatCap              int
}

// DefaultConfig returns the stock policy: 2-6 options, questions up to
// 100 characters, archive of 50 polls, chat backlog of 100 messages.
func DefaultConfig() Config {
	return Config{
		MinOptions:          2,
		MaxOptions:          6,
		MaxQuestionLen:      100,
		MinTimeLimitSeconds: 1,
		MaxTimeLimitSeconds: 600,
		ArchiveCap:          50,
		ChatCap:             100,
	}
}

// CreatePollRequest is the input for starting a new poll.
type CreatePollRequest struct {
	Question         string
	Options          []string
	CorrectIndices   []int
	TimeLimitSeconds int
}

// AnswerReceipt confirms a recorded answer to its submitter.
type AnswerReceipt struct {
	IsCorrect      bool  `json:"isCorrect"`
	SelectedOption int   `json:"selectedOption"`
	CorrectIndices []int `json:"correctIndices"`
}

// PollSnapshot is the current poll as seen by one identity.
type PollSnapshot struct {
	models.Poll
	HasAnswered bool `json:"hasAnswered"`
}

// Coordinator owns the entire session state: participant registry,
// current poll and its ledger, archive, and chat backlog. Every
// mutating operation runs under one coarse lock so cross-field
// invariants are never observed half-applied, and every broadcast is
// issued while that lock is held so delivery order matches the order of
// state changes.
type Coordinator struct {
	mu       sync.Mutex
	cfg      Config
	registry *Registry
	current  *models.Poll
	ledger   *Ledger
	archive  *Archive
	chat     *ChatLog
	bcast    Broadcaster
	logger   *zap.Logger
	now      func() time.Time
}

// NewCoordinator creates a session coordinator publishing through the
// given broadcaster.
func NewCoordinator(cfg Config, bcast Broadcaster, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		registry: NewRegistry(),
		archive:  NewArchive(cfg.ArchiveCap),
		chat:     NewChatLog(cfg.ChatCap),
		bcast:    bcast,
		logger:   logger,
		now:      time.Now,
	}
}

// Join registers a participant and sends it the full session snapshot:
// its own record, the current poll (with whether it already answered)
// and time remaining, live results and archive for teachers, and the
// chat backlog. Everyone then receives fresh participant counts.
func (c *Coordinator) Join(identity, displayName string, role models.Role) (*models.Participant, error) {
	if !role.Valid() {
		return nil, validationf("role must be %q or %q", models.RoleStudent, models.RoleTeacher)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, validationf("display name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.registry.Register(identity, displayName, role, c.now())
	c.bcast.SendTo(identity, EventJoined, p)

	if c.current != nil {
		c.bcast.SendTo(identity, EventCurrentPoll, PollSnapshot{
			Poll:        *c.current,
			HasAnswered: c.ledger.Has(identity),
		})
		if c.current.Active {
			c.bcast.SendTo(identity, EventTimeRemaining, c.current.Remaining(c.now()))
		}
		if p.IsTeacher() {
			c.bcast.SendTo(identity, EventResultsUpdated, Aggregate(c.current, c.ledger))
		}
	}
	c.bcast.SendTo(identity, EventChatHistory, c.chat.List())
	if p.IsTeacher() {
		c.bcast.SendTo(identity, EventHistory, c.archive.List())
	}
	c.broadcastRoster()

	c.logger.Info("participant joined",
		zap.String("identity", identity),
		zap.String("name", displayName),
		zap.String("role", string(role)),
	)
	return p, nil
}

// Leave removes a disconnected participant and broadcasts fresh counts.
// Departure never touches the poll state machine: polls close only by
// timer. Leaving with an unregistered identity is a no-op.
func (c *Coordinator) Leave(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.registry.Remove(identity)
	if p == nil {
		return
	}
	c.broadcastRoster()
	c.logger.Info("participant left",
		zap.String("identity", identity),
		zap.String("name", p.DisplayName),
	)
}

// CreatePoll starts a new poll. It fails with ErrPollActive while a
// prior poll's countdown is still running, and with a ValidationError
// for malformed input; neither changes any state. On success the poll
// is broadcast along with its initial empty aggregate and full time
// limit, and the countdown begins.
func (c *Coordinator) CreatePoll(identity string, req CreatePollRequest) (*models.Poll, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	requester := c.registry.Get(identity)
	if requester == nil {
		return nil, ErrNotFound
	}
	if !requester.IsTeacher() {
		return nil, ErrNotTeacher
	}
	if c.current != nil && c.current.Active {
		return nil, ErrPollActive
	}
	if err := c.validateCreate(req); err != nil {
		return nil, err
	}

	now := c.now()
	poll := &models.Poll{
		ID:               strconv.FormatInt(now.UnixMilli(), 10),
		Question:         strings.TrimSpace(req.Question),
		Options:          req.Options,
		CorrectIndices:   req.CorrectIndices,
		TimeLimitSeconds: req.TimeLimitSeconds,
		CreatedAt:        now,
		Active:           true,
	}
	if poll.CorrectIndices == nil {
		poll.CorrectIndices = []int{}
	}
	c.current = poll
	c.ledger = NewLedger(poll.ID)

	c.bcast.Broadcast(EventPollStarted, poll)
	c.bcast.Broadcast(EventResultsUpdated, Aggregate(poll, c.ledger))
	c.bcast.Broadcast(EventTimeRemaining, poll.TimeLimitSeconds)
	go c.runCountdown(poll.ID, poll.TimeLimitSeconds)

	c.logger.Info("poll started",
		zap.String("poll_id", poll.ID),
		zap.String("question", poll.Question),
		zap.Int("options", len(poll.Options)),
		zap.Int("time_limit_sec", poll.TimeLimitSeconds),
	)
	return poll, nil
}

func (c *Coordinator) validateCreate(req CreatePollRequest) error {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return validationf("question is required")
	}
	if len(question) > c.cfg.MaxQuestionLen {
		return validationf("question must be at most %d characters", c.cfg.MaxQuestionLen)
	}
	if len(req.Options) < c.cfg.MinOptions || len(req.Options) > c.cfg.MaxOptions {
		return validationf("polls need between %d and %d options", c.cfg.MinOptions, c.cfg.MaxOptions)
	}
	for i, opt := range req.Options {
		if strings.TrimSpace(opt) == "" {
			return validationf("option %d is empty", i+1)
		}
	}
	if req.TimeLimitSeconds < c.cfg.MinTimeLimitSeconds || req.TimeLimitSeconds > c.cfg.MaxTimeLimitSeconds {
		return validationf("time limit must be between %d and %d seconds",
			c.cfg.MinTimeLimitSeconds, c.cfg.MaxTimeLimitSeconds)
	}
	for _, idx := range req.CorrectIndices {
		if idx < 0 || idx >= len(req.Options) {
			return validationf("correct answer index %d is out of range", idx)
		}
	}
	return nil
}

// SubmitAnswer records a participant's single answer for the active
// poll, confirms correctness to the submitter, and broadcasts the
// updated aggregate. Submissions never close the poll, even when every
// participant has answered: only the timer does, which tolerates late
// joiners and avoids races with near-simultaneous submissions.
func (c *Coordinator) SubmitAnswer(identity string, optionIndex int) (*AnswerReceipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || !c.current.Active {
		return nil, ErrNoActivePoll
	}
	if c.registry.Get(identity) == nil {
		return nil, ErrNotFound
	}
	if c.ledger.Has(identity) {
		return nil, ErrAlreadyAnswered
	}
	if optionIndex < 0 || optionIndex >= len(c.current.Options) {
		return nil, validationf("option index %d is out of range", optionIndex)
	}

	c.ledger.Record(identity, optionIndex, c.now())
	receipt := &AnswerReceipt{
		IsCorrect:      c.current.IsCorrect(optionIndex),
		SelectedOption: optionIndex,
		CorrectIndices: c.current.CorrectIndices,
	}
	c.bcast.SendTo(identity, EventAnswerSubmitted, receipt)
	c.bcast.Broadcast(EventResultsUpdated, Aggregate(c.current, c.ledger))

	c.logger.Debug("answer recorded",
		zap.String("poll_id", c.current.ID),
		zap.String("identity", identity),
		zap.Int("option", optionIndex),
		zap.Int("responses", c.ledger.Size()),
	)
	return receipt, nil
}

// PostMessage relays a chat message from a registered participant to
// everyone, tagging the sender's role, and retains it in the bounded
// backlog.
func (c *Coordinator) PostMessage(identity, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationf("message body is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sender := c.registry.Get(identity)
	if sender == nil {
		return nil, ErrNotFound
	}
	msg := models.ChatMessage{
		ID:              uuid.NewString(),
		SenderName:      sender.DisplayName,
		Body:            body,
		Timestamp:       c.now(),
		SenderIsTeacher: sender.IsTeacher(),
	}
	c.chat.Append(msg)
	c.bcast.Broadcast(EventChatMessage, msg)
	return &msg, nil
}

// Kick removes a participant at the teacher's request. Any answer the
// target holds for the current poll is withdrawn (with a re-broadcast
// of the updated aggregate), the target receives a terminal "kicked"
// notification, and its connection is closed.
func (c *Coordinator) Kick(requester, target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := c.registry.Get(requester)
	if req == nil {
		return ErrNotFound
	}
	if !req.IsTeacher() {
		return ErrNotTeacher
	}
	p := c.registry.Remove(target)
	if p == nil {
		return ErrNotFound
	}

	if c.current != nil && c.ledger.Remove(target) {
		c.bcast.Broadcast(EventResultsUpdated, Aggregate(c.current, c.ledger))
	}
	c.bcast.SendTo(target, EventKicked, "you have been removed by the teacher")
	c.broadcastRoster()
	c.bcast.Disconnect(target)

	c.logger.Info("participant kicked",
		zap.String("identity", target),
		zap.String("name", p.DisplayName),
	)
	return nil
}

// History returns the archived polls, oldest first.
func (c *Coordinator) History() []models.ArchivedPoll {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.archive.List()
}

// SendHistory delivers the archive to a single identity.
func (c *Coordinator) SendHistory(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bcast.SendTo(identity, EventHistory, c.archive.List())
}

// Students returns the connected students in join order plus their count.
func (c *Coordinator) Students() ([]*models.Participant, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.registry.ListByRole(models.RoleStudent)
	return list, len(list)
}

// broadcastRoster pushes fresh student counts and the student list to
// everyone. Caller must hold c.mu.
func (c *Coordinator) broadcastRoster() {
	c.bcast.Broadcast(EventParticipantCount, c.registry.Count(models.RoleStudent))
	c.bcast.Broadcast(EventParticipantList, c.registry.ListByRole(models.RoleStudent))
}

// runCountdown drives one poll's clock: a time-remaining broadcast
// every second and a single closure action at expiry. Both re-validate the
// live poll id before acting so a tick scheduled for a superseded or
// closed poll is a no-op, and both timers are released exactly once.
func (c *Coordinator) runCountdown(pollID string, seconds int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	expiry := time.NewTimer(time.Duration(seconds) * time.Second)
	defer expiry.Stop()

	remaining := seconds
	for {
		select {
		case <-ticker.C:
			remaining--
			if !c.announceTick(pollID, remaining) {
				return
			}
		case <-expiry.C:
			c.closePoll(pollID)
			return
		}
	}
}

// announceTick broadcasts the remaining seconds for the poll if it is
// still the live active poll. It returns false when the countdown
// goroutine should stop.
func (c *Coordinator) announceTick(pollID string, remaining int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.ID != pollID || !c.current.Active {
		return false
	}
	if remaining > 0 {
		c.bcast.Broadcast(EventTimeRemaining, remaining)
	}
	return true
}

// closePoll moves the poll to its terminal state: flips Active off,
// freezes the ledger, archives the final aggregate, and broadcasts the
// zeroed countdown followed by the final results. A stale expiry for a
// poll that is no longer live is dropped.
func (c *Coordinator) closePoll(pollID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.ID != pollID || !c.current.Active {
		return
	}
	c.current.Active = false
	final := Aggregate(c.current, c.ledger)
	c.archive.Append(models.ArchivedPoll{
		Poll:        c.current,
		FinalResult: final,
		EndedAt:     c.now(),
	})

	c.bcast.Broadcast(EventTimeRemaining, 0)
	c.bcast.Broadcast(EventPollEnded, final)

	c.logger.Info("poll ended",
		zap.String("poll_id", pollID),
		zap.Int("responses", final.TotalResponses),
	)
}
