package models

import "time"

// ChatMessage is a chat line broadcast to a room. Timestamp is server-issued.
type ChatMessage struct {
	ID        int       `json:"id,omitempty"`
	User      string    `json:"user"`
	Content   string    `json:"message_content"`
	Timestamp time.Time `json:"timestamp"`
}
