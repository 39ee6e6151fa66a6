package models

import "time"

// ChatMessage is one relayed chat message, tagged with the sender's role.
type ChatMessage struct {
	ID              string    `json:"id"`
	SenderName      string    `json:"senderName"`
	Body            string    `json:"body"`
	Timestamp       time.Time `json:"timestamp"`
	SenderIsTeacher bool      `json:"senderIsTeacher"`
}
