package domain

import "time"

// Exchange is one request/response pair handled by the assistant endpoint.
type Exchange struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"requestId,omitempty"`
	Message     string    `json:"message"`
	ChatHistory string    `json:"chatHistory"`
	Response    string    `json:"response"`
	Status      int       `json:"status"`
	DurationMs  int64     `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}
