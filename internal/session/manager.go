package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/soyeahso/vchat/internal/assistant"
	"github.com/soyeahso/vchat/internal/domain"
	"github.com/soyeahso/vchat/internal/hooks"
	"github.com/soyeahso/vchat/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ErrorReply is shown in place of any failed reply.
	ErrorReply = "Sorry, I encountered an error while processing your message. Please try again."

	// PlaceholderReply is shown when a successful reply carries no text.
	PlaceholderReply = "No response received"

	instrumentation = "github.com/soyeahso/vchat/internal/session"
)

// FileAcknowledgment returns the notice shown after a file is picked.
func FileAcknowledgment(name string) string {
	return fmt.Sprintf("File %q selected. File upload functionality would be implemented here.", name)
}

// Manager runs the send pipeline for sessions.
type Manager struct {
	client        assistant.Client
	assistantName string
	hooks         *hooks.Manager
	log           *logging.Logger

	tracer    trace.Tracer
	exchanges metric.Int64Counter
	latency   metric.Float64Histogram

	mu       sync.Mutex
	inflight map[*Exchange]struct{}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHooks attaches a hook manager for lifecycle events.
func WithHooks(h *hooks.Manager) ManagerOption {
	return func(m *Manager) { m.hooks = h }
}

// WithAssistantName sets the assistant label used by sessions from Open.
func WithAssistantName(name string) ManagerOption {
	return func(m *Manager) {
		if name != "" {
			m.assistantName = name
		}
	}
}

// NewManager creates a Manager that sends through client.
func NewManager(client assistant.Client, log *logging.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:        client,
		assistantName: "V",
		log:           log.Sub("session"),
		tracer:        otel.Tracer(instrumentation),
		inflight:      make(map[*Exchange]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	meter := otel.Meter(instrumentation)
	var err error
	if m.exchanges, err = meter.Int64Counter("vchat.exchanges",
		metric.WithDescription("Settled exchanges by outcome")); err != nil {
		m.log.Warn().Err(err).Msg("exchange counter unavailable")
	}
	if m.latency, err = meter.Float64Histogram("vchat.exchange.duration",
		metric.WithDescription("Exchange round-trip time"),
		metric.WithUnit("ms")); err != nil {
		m.log.Warn().Err(err).Msg("exchange histogram unavailable")
	}
	return m
}

// Open creates a new session for displayName and emits session_start.
func (m *Manager) Open(ctx context.Context, displayName string, opts ...Option) *Session {
	s := New(displayName, m.assistantName, opts...)
	m.log.Info().Str("sessionId", s.ID()).Msg("session started")
	m.emit(ctx, hooks.EventSessionStart, s.ID(), map[string]any{"displayName": displayName})
	return s
}

// Dispatch performs the synchronous half of a send. Blank pending input
// returns a nil Exchange and changes nothing. Otherwise the trimmed text is
// appended as a user message, the draft is cleared, awaiting is set, and
// the returned Exchange must be awaited to settle the reply.
func (m *Manager) Dispatch(ctx context.Context, s *Session) (*Exchange, error) {
	s.mu.Lock()
	if s.awaiting {
		s.mu.Unlock()
		return nil, ErrAwaiting
	}
	text := strings.TrimSpace(s.pendingInput)
	if text == "" {
		s.mu.Unlock()
		return nil, nil
	}

	msg := s.newMessage(text, domain.SenderUser)
	if err := s.appendLocked(msg); err != nil {
		s.mu.Unlock()
		m.log.Error().Err(err).Str("sessionId", s.id).Msg("failed to append user message")
		return nil, err
	}
	req := assistant.Request{
		Message:     text,
		ChatHistory: Transcript(s.history, s.assistantName),
	}
	s.pendingInput = ""
	s.awaiting = true
	epoch := s.epoch
	s.mu.Unlock()

	exCtx, cancel := context.WithCancel(ctx)
	ex := &Exchange{
		manager: m,
		session: s,
		epoch:   epoch,
		user:    msg,
		request: req,
		ctx:     exCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.track(ex)

	m.log.Debug().
		Str("sessionId", s.id).
		Int64("messageId", msg.ID).
		Int("textLen", len(text)).
		Int("historyLen", len(req.ChatHistory)).
		Msg("message dispatched")
	m.emit(ctx, hooks.EventMessageSending, s.id, map[string]any{
		"messageId": msg.ID,
		"text":      text,
	})
	return ex, nil
}

// Send dispatches the pending input and waits for the reply.
// A blank draft yields OutcomeSkipped.
func (m *Manager) Send(ctx context.Context, s *Session) (Outcome, error) {
	ex, err := m.Dispatch(ctx, s)
	if err != nil {
		return Outcome{}, err
	}
	if ex == nil {
		return Outcome{Kind: OutcomeSkipped}, nil
	}
	return ex.Await(ctx), nil
}

// Submit sets the draft to text and sends it. It fails with ErrAwaiting
// while a reply is pending. Blank text yields OutcomeSkipped. In both
// cases the existing draft is left untouched.
func (m *Manager) Submit(ctx context.Context, s *Session, text string) (Outcome, error) {
	s.mu.Lock()
	if s.awaiting {
		s.mu.Unlock()
		return Outcome{}, ErrAwaiting
	}
	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return Outcome{Kind: OutcomeSkipped}, nil
	}
	s.pendingInput = text
	s.mu.Unlock()
	return m.Send(ctx, s)
}

// Clear resets the session to a single fresh greeting. Exchanges still in
// flight are settled as stale.
func (m *Manager) Clear(ctx context.Context, s *Session) {
	epoch := s.reset()
	m.log.Info().Str("sessionId", s.ID()).Uint64("epoch", epoch).Msg("session cleared")
	m.emit(ctx, hooks.EventSessionCleared, s.ID(), nil)
}

// SelectFile records a picked file and returns the acknowledgment to show.
// The file is not read and the history is unchanged.
func (m *Manager) SelectFile(ctx context.Context, s *Session, name string) string {
	m.log.Info().Str("sessionId", s.ID()).Str("file", name).Msg("file selected")
	m.emit(ctx, hooks.EventFileSelected, s.ID(), map[string]any{"name": name})
	return FileAcknowledgment(name)
}

// CancelAll cancels every exchange still in flight. Cancelled exchanges
// append nothing.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	pending := make([]*Exchange, 0, len(m.inflight))
	for ex := range m.inflight {
		pending = append(pending, ex)
	}
	m.mu.Unlock()

	for _, ex := range pending {
		ex.Cancel()
	}
}

// InFlight returns the number of exchanges that have not settled.
func (m *Manager) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight)
}

func (m *Manager) track(ex *Exchange) {
	m.mu.Lock()
	m.inflight[ex] = struct{}{}
	m.mu.Unlock()
}

func (m *Manager) untrack(ex *Exchange) {
	m.mu.Lock()
	delete(m.inflight, ex)
	m.mu.Unlock()
}

func (m *Manager) record(ctx context.Context, o Outcome) {
	attrs := metric.WithAttributes(attribute.String("outcome", string(o.Kind)))
	if m.exchanges != nil {
		m.exchanges.Add(ctx, 1, attrs)
	}
	if m.latency != nil {
		m.latency.Record(ctx, float64(o.Duration.Microseconds())/1000, attrs)
	}
}

func (m *Manager) emit(ctx context.Context, event, sessionID string, data map[string]any) {
	if m.hooks == nil {
		return
	}
	m.hooks.Emit(ctx, event, sessionID, data)
}
