package domain

import "time"

// Sender identifies who authored a conversational turn.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Valid reports whether s is one of the two known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Message is one conversational turn. Messages are never mutated after
// they are appended to a history.
type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// IsUser reports whether the message was written by the user.
func (m Message) IsUser() bool { return m.Sender == SenderUser }
