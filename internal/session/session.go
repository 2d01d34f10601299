// Package session owns the state of one conversation: the append-only
// message history, the user's draft, and the awaiting-reply flag. The
// Manager drives the send pipeline against an assistant.Client.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/vchat/internal/domain"
)

var (
	// ErrAwaiting is returned when a submission arrives while a reply is pending.
	ErrAwaiting = errors.New("session: a reply is already pending")

	// ErrDuplicateMessageID is returned when an append would reuse an existing id.
	ErrDuplicateMessageID = errors.New("session: duplicate message id")
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Greeting returns the assistant's opening message for a user.
func Greeting(displayName, assistantName string) string {
	return fmt.Sprintf("Hello %s! I'm %s, an AI assistant. How can I help you today?", displayName, assistantName)
}

// State is a point-in-time copy of a Session for rendering.
type State struct {
	ID            string
	DisplayName   string
	AssistantName string
	History       []domain.Message
	PendingInput  string
	Awaiting      bool
}

// Session is a single conversation. All methods are safe for concurrent use;
// the reply continuation settles from whichever goroutine awaited it.
type Session struct {
	mu sync.Mutex

	id            string
	displayName   string
	assistantName string
	history       []domain.Message
	pendingInput  string
	awaiting      bool

	// epoch advances on every clear so late replies can be recognised.
	epoch  uint64
	lastID int64
	now    Clock
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the clock used for message ids and timestamps.
func WithClock(c Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.now = c
		}
	}
}

// New creates a session seeded with the assistant's greeting.
func New(displayName, assistantName string, opts ...Option) *Session {
	s := &Session{
		id:            uuid.New().String(),
		displayName:   displayName,
		assistantName: assistantName,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = []domain.Message{s.newMessage(Greeting(displayName, assistantName), domain.SenderAssistant)}
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// AssistantName returns the label used for assistant turns.
func (s *Session) AssistantName() string { return s.assistantName }

// DisplayName returns the user's current display name.
func (s *Session) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayName
}

// SetDisplayName changes the name used by the next greeting.
func (s *Session) SetDisplayName(name string) {
	s.mu.Lock()
	s.displayName = name
	s.mu.Unlock()
}

// SetPendingInput replaces the draft text. No validation is applied.
func (s *Session) SetPendingInput(text string) {
	s.mu.Lock()
	s.pendingInput = text
	s.mu.Unlock()
}

// PendingInput returns the current draft text.
func (s *Session) PendingInput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingInput
}

// SetAwaiting sets the awaiting-reply flag.
func (s *Session) SetAwaiting(v bool) {
	s.mu.Lock()
	s.awaiting = v
	s.mu.Unlock()
}

// Awaiting reports whether a reply is pending.
func (s *Session) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

// History returns a copy of the message history.
func (s *Session) History() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneHistory(s.history)
}

// Snapshot returns a copy of the full session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:            s.id,
		DisplayName:   s.displayName,
		AssistantName: s.assistantName,
		History:       cloneHistory(s.history),
		PendingInput:  s.pendingInput,
		Awaiting:      s.awaiting,
	}
}

// newMessage builds a message with the next id. Callers hold s.mu, except
// during construction.
func (s *Session) newMessage(text string, sender domain.Sender) domain.Message {
	now := s.now()
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return domain.Message{ID: id, Text: text, Sender: sender, Timestamp: now}
}

// appendLocked appends msg to the history. Callers hold s.mu.
func (s *Session) appendLocked(msg domain.Message) error {
	history, err := AppendMessage(s.history, msg)
	if err != nil {
		return err
	}
	s.history = history
	return nil
}

// reset replaces the history with a fresh greeting and returns the new epoch.
func (s *Session) reset() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.history = []domain.Message{s.newMessage(Greeting(s.displayName, s.assistantName), domain.SenderAssistant)}
	s.pendingInput = ""
	s.awaiting = false
	return s.epoch
}

func cloneHistory(h []domain.Message) []domain.Message {
	out := make([]domain.Message, len(h))
	copy(out, h)
	return out
}
