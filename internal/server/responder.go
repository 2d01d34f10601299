package server

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/vchat/internal/assistant"
)

// Responder produces the assistant's reply text for a request.
type Responder interface {
	Reply(ctx context.Context, req assistant.Request) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, req assistant.Request) (string, error)

func (f ResponderFunc) Reply(ctx context.Context, req assistant.Request) (string, error) {
	return f(ctx, req)
}

// SimulatedReply returns the canned text used by the development endpoint.
func SimulatedReply(assistantName string) string {
	return fmt.Sprintf("I understand your message. This is a simulated response from %s. "+
		"In a real implementation, this would connect to the %s API to provide intelligent responses.",
		assistantName, assistantName)
}

// Simulated replies with fixed text after a delay.
type Simulated struct {
	Text  string
	Delay time.Duration
}

// Reply waits out the delay, then returns the canned text. It returns the
// context error if ctx ends first.
func (s Simulated) Reply(ctx context.Context, _ assistant.Request) (string, error) {
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.Text, nil
}
