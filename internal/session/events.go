package session

// Inbound event names (client -> core). The gateway decodes the payload
// for each of these and calls into the Coordinator.
const (
	EventJoin         = "join"
	EventCreatePoll   = "create-poll"
	EventSubmitAnswer = "submit-answer"
	EventSendMessage  = "send-message"
	EventKick         = "kick"
	EventGetHistory   = "get-history"
)

// Outbound event names (core -> clients).
const (
	EventJoined           = "joined"
	EventCurrentPoll      = "current-poll"
	EventPollStarted      = "poll-started"
	EventResultsUpdated   = "results-updated"
	EventPollEnded        = "poll-ended"
	EventTimeRemaining    = "time-remaining"
	EventParticipantCount = "participant-count"
	EventParticipantList  = "participant-list"
	EventChatHistory      = "chat-history"
	EventChatMessage      = "chat-message"
	EventHistory          = "history"
	EventAnswerSubmitted  = "answer-submitted"
	EventKicked           = "kicked"
	EventError            = "error"
)

// Broadcaster is the outbound side of the gateway as seen by the
// Coordinator: fire-and-forget fan-out plus targeted delivery. The
// Coordinator invokes it while holding the session lock, so a single
// implementation chokepoint preserves the causal order of state changes.
type Broadcaster interface {
	// Broadcast delivers an event to every connected participant.
	Broadcast(event string, payload interface{})
	// SendTo delivers an event to a single identity; unknown identities
	// are ignored.
	SendTo(identity, event string, payload interface{})
	// Disconnect flushes pending messages to the identity and closes its
	// connection. Used after a terminal "kicked" notification.
	Disconnect(identity string)
}
