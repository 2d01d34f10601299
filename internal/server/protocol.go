package server

import (
	"encoding/json"
	"fmt"
)

// FrameTypeEvent is the only frame type on the operator feed.
const FrameTypeEvent = "event"

// Feed event names.
const (
	EventHello    = "hello"
	EventExchange = "exchange"
)

// Frame is the envelope for every message sent on the feed.
type Frame struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HelloPayload is sent once when an operator connects.
type HelloPayload struct {
	Server    string `json:"server"`
	Version   string `json:"version"`
	ConnID    string `json:"connId"`
	Assistant string `json:"assistant"`
}

// NewEvent creates an event frame with the payload marshalled to JSON.
func NewEvent(event string, payload any, seq int64) (Frame, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Frame{}, fmt.Errorf("marshalling %s payload: %w", event, err)
		}
		raw = b
	}
	return Frame{Type: FrameTypeEvent, Event: event, Seq: seq, Payload: raw}, nil
}

// Decode unmarshals the frame payload into target.
func (f Frame) Decode(target any) error {
	if len(f.Payload) == 0 {
		return fmt.Errorf("frame %q has no payload", f.Event)
	}
	return json.Unmarshal(f.Payload, target)
}

// mustEvent is NewEvent for payload types that always marshal.
func mustEvent(event string, payload any) Frame {
	f, err := NewEvent(event, payload, 0)
	if err != nil {
		panic(err)
	}
	return f
}
