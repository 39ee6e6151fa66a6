package realtime

// Typed inbound payloads, one per event name. Required-field validation
// happens here at the boundary so malformed requests never reach the
// Coordinator.

// JoinPayload is the body of a "join" event.
type JoinPayload struct {
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// CreatePollPayload is the body of a "create-poll" event.
type CreatePollPayload struct {
	Question         string   `json:"question"`
	Options          []string `json:"options"`
	CorrectIndices   []int    `json:"correctIndices"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
}

// SubmitAnswerPayload is the body of a "submit-answer" event. The
// pointer distinguishes a missing optionIndex from a literal zero.
type SubmitAnswerPayload struct {
	OptionIndex *int `json:"optionIndex"`
}

// SendMessagePayload is the body of a "send-message" event.
type SendMessagePayload struct {
	Body string `json:"body"`
}

// KickPayload is the body of a "kick" event.
type KickPayload struct {
	TargetIdentity string `json:"targetIdentity"`
}
