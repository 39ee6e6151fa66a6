package session

import "github.com/classpoll/backend/internal/models"

// ChatLog is the bounded backlog of relayed chat messages, oldest
// evicted first when the cap is exceeded.
type ChatLog struct {
	cap      int
	messages []models.ChatMessage
}

// NewChatLog creates a chat log that retains at most cap messages.
func NewChatLog(cap int) *ChatLog {
	return &ChatLog{cap: cap}
}

// Append adds a message, evicting the oldest if over the cap.
func (c *ChatLog) Append(msg models.ChatMessage) {
	c.messages = append(c.messages, msg)
	if len(c.messages) > c.cap {
		c.messages = c.messages[len(c.messages)-c.cap:]
	}
}

// List returns the backlog oldest first. The returned slice is a copy.
func (c *ChatLog) List() []models.ChatMessage {
	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of retained messages.
func (c *ChatLog) Len() int {
	return len(c.messages)
}
