// Package assistant talks to the remote assistant endpoint: one JSON POST
// per user message, carrying the message and the flattened chat transcript.
package assistant

import (
	"context"
	"errors"
	"fmt"
)

// Request is the outbound payload for a single send.
type Request struct {
	Message     string `json:"message"`
	ChatHistory string `json:"chatHistory"`
}

// Reply is the interpreted success response.
type Reply struct {
	Text      string
	Field     string // key the text was read from; empty when neither key was present
	Status    int
	RequestID string
}

// Found reports whether the reply carried text under one of the accepted keys.
func (r Reply) Found() bool { return r.Field != "" }

// Client is the interface implemented by assistant transports.
type Client interface {
	// Send issues one request and returns the interpreted reply.
	Send(ctx context.Context, req Request) (*Reply, error)
}

// ErrorKind classifies why a request failed.
type ErrorKind string

const (
	KindNetwork       ErrorKind = "network_failure"
	KindBadStatus     ErrorKind = "bad_status"
	KindMalformedBody ErrorKind = "malformed_body"
)

// Error is returned for every failed request.
type Error struct {
	Kind    ErrorKind
	Status  int // HTTP status, zero when no response was received
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("assistant %s (%d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("assistant %s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the ErrorKind carried by err, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
