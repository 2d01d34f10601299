// Package hooks fans chat session and server lifecycle events out to
// registered handlers.
package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soyeahso/vchat/internal/logging"
)

// Lifecycle events. Session events carry the session ID.
const (
	EventSessionStart     = "session_start"     // data: displayName
	EventMessageSending   = "message_sending"   // data: messageId, text
	EventResponseReceived = "response_received" // data: messageId, text, field
	EventSendFailed       = "send_failed"       // data: kind, error
	EventSessionCleared   = "session_cleared"
	EventFileSelected     = "file_selected" // data: name
	EventServerStart      = "server_start"  // data: addr
	EventServerStop       = "server_stop"
)

// AllEvents lists every event in lifecycle order.
var AllEvents = []string{
	EventSessionStart,
	EventMessageSending,
	EventResponseReceived,
	EventSendFailed,
	EventSessionCleared,
	EventFileSelected,
	EventServerStart,
	EventServerStop,
}

// Payload is what a handler receives.
type Payload struct {
	Event     string         `json:"event"`
	SessionID string         `json:"sessionId,omitempty"`
	Time      time.Time      `json:"time"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler reacts to one event. A returned error is logged only.
type Handler func(ctx context.Context, p Payload) error

type registration struct {
	name string
	fn   Handler
}

// Manager holds handler registrations. A nil *Manager emits nothing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]registration
	now      func() time.Time
	log      *logging.Logger
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]registration),
		now:      time.Now,
		log:      log.Sub("hooks"),
	}
}

// On registers handler for event under name. A second registration with
// the same name replaces the first in place.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	regs := m.handlers[event]
	for i := range regs {
		if regs[i].name == name {
			regs[i].fn = handler
			return
		}
	}
	m.handlers[event] = append(regs, registration{name: name, fn: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// Off removes the handler registered as name for event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(event, name)
}

// OffAll removes the handler registered as name from every event.
func (m *Manager) OffAll(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for event := range m.handlers {
		m.removeLocked(event, name)
	}
}

func (m *Manager) removeLocked(event, name string) {
	regs := m.handlers[event]
	kept := regs[:0:0]
	for _, r := range regs {
		if r.name != name {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		delete(m.handlers, event)
		return
	}
	m.handlers[event] = kept
}

// Emit calls the handlers for event in registration order on the caller's
// goroutine. A failing or panicking handler is logged and the rest still run.
func (m *Manager) Emit(ctx context.Context, event, sessionID string, data map[string]any) {
	if m == nil {
		return
	}
	m.mu.RLock()
	regs := append([]registration(nil), m.handlers[event]...)
	m.mu.RUnlock()
	if len(regs) == 0 {
		return
	}

	p := Payload{Event: event, SessionID: sessionID, Time: m.now(), Data: data}
	for _, r := range regs {
		if err := m.call(ctx, r, p); err != nil {
			m.log.Warn().
				Err(err).
				Str("event", event).
				Str("handler", r.name).
				Msg("hook handler error")
		}
	}
}

func (m *Manager) call(ctx context.Context, r registration, p Payload) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("handler panicked: %v", v)
		}
	}()
	return r.fn(ctx, p)
}

// Count returns the number of handlers registered for event.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}
