package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/soyeahso/vchat/internal/assistant"
	"github.com/soyeahso/vchat/internal/domain"
	"github.com/soyeahso/vchat/internal/hooks"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OutcomeKind describes how an exchange settled.
type OutcomeKind string

const (
	// OutcomeReplied means the assistant's text (or the placeholder) was appended.
	OutcomeReplied OutcomeKind = "replied"
	// OutcomeFailed means the request failed and the error reply was appended.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomeCancelled means the exchange was cancelled; nothing was appended.
	OutcomeCancelled OutcomeKind = "cancelled"
	// OutcomeStale means the session was cleared while the request was in
	// flight; the reply was dropped.
	OutcomeStale OutcomeKind = "stale"
	// OutcomeSkipped means the draft was blank and nothing was sent.
	OutcomeSkipped OutcomeKind = "skipped"
)

// duplicateKind is the send_failed kind reported when the reply could not
// be appended because its id was already taken.
const duplicateKind = "duplicate_message_id"

// Outcome is the settled result of an exchange.
type Outcome struct {
	Kind     OutcomeKind
	Message  domain.Message   // appended assistant message; zero when nothing was appended
	Reply    *assistant.Reply // nil unless the request succeeded
	Err      error            // cause of failure, never shown to the user
	Duration time.Duration
}

// Appended reports whether the outcome added a message to the history.
func (o Outcome) Appended() bool { return o.Message.ID != 0 }

// Exchange is one in-flight request started by Dispatch.
type Exchange struct {
	manager *Manager
	session *Session
	epoch   uint64
	user    domain.Message
	request assistant.Request

	ctx    context.Context
	cancel context.CancelFunc

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

// UserMessage returns the message appended by Dispatch.
func (e *Exchange) UserMessage() domain.Message { return e.user }

// Request returns the payload sent to the assistant.
func (e *Exchange) Request() assistant.Request { return e.request }

// Done is closed once the exchange has settled.
func (e *Exchange) Done() <-chan struct{} { return e.done }

// Cancel aborts the request. An exchange cancelled before it settles
// appends nothing.
func (e *Exchange) Cancel() { e.cancel() }

// Outcome returns the settled outcome. It is only meaningful after Done
// is closed.
func (e *Exchange) Outcome() Outcome {
	<-e.done
	return e.outcome
}

// Await sends the request and settles the reply into the session. It is
// safe to call more than once; later calls return the first outcome.
// Cancelling ctx cancels the exchange.
func (e *Exchange) Await(ctx context.Context) Outcome {
	e.once.Do(func() {
		stop := context.AfterFunc(ctx, e.cancel)
		defer stop()
		e.outcome = e.run()
		e.cancel()
		e.manager.untrack(e)
		close(e.done)
	})
	<-e.done
	return e.outcome
}

func (e *Exchange) run() Outcome {
	m, s := e.manager, e.session
	start := time.Now()

	ctx, span := m.tracer.Start(e.ctx, "session.exchange", trace.WithAttributes(
		attribute.String("session.id", s.ID()),
		attribute.Int64("message.id", e.user.ID),
	))
	defer span.End()

	reply, err := m.client.Send(ctx, e.request)

	out := e.settle(reply, err)
	out.Duration = time.Since(start)

	span.SetAttributes(attribute.String("outcome", string(out.Kind)))
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, string(out.Kind))
	}
	bg := context.WithoutCancel(ctx)
	m.record(bg, out)
	e.report(bg, out)
	return out
}

// settle applies the reply to the session. Awaiting is cleared on every
// path unless a clear already started a new epoch.
func (e *Exchange) settle(reply *assistant.Reply, sendErr error) Outcome {
	s := e.session
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if s.epoch == e.epoch {
			s.awaiting = false
		}
	}()

	if e.ctx.Err() != nil {
		cause := sendErr
		if cause == nil {
			cause = e.ctx.Err()
		}
		return Outcome{Kind: OutcomeCancelled, Err: cause}
	}
	if s.epoch != e.epoch {
		return Outcome{Kind: OutcomeStale, Reply: reply, Err: sendErr}
	}

	kind, text := OutcomeReplied, PlaceholderReply
	if sendErr != nil {
		kind, text = OutcomeFailed, ErrorReply
	} else if reply != nil && reply.Text != "" {
		text = reply.Text
	}

	// newMessage always exceeds lastID, so a collision means the history
	// was corrupted. It settles as a failure logged at error level.
	msg := s.newMessage(text, domain.SenderAssistant)
	if err := s.appendLocked(msg); err != nil {
		return Outcome{Kind: OutcomeFailed, Reply: reply, Err: errors.Join(sendErr, err)}
	}
	return Outcome{Kind: kind, Message: msg, Reply: reply, Err: sendErr}
}

func (e *Exchange) report(ctx context.Context, out Outcome) {
	m, sid := e.manager, e.session.ID()

	switch out.Kind {
	case OutcomeReplied:
		field := ""
		if out.Reply != nil {
			field = out.Reply.Field
		}
		m.log.Info().
			Str("sessionId", sid).
			Str("field", field).
			Dur("duration", out.Duration).
			Msg("reply received")
		m.emit(ctx, hooks.EventResponseReceived, sid, map[string]any{
			"messageId": out.Message.ID,
			"text":      out.Message.Text,
			"field":     field,
		})
	case OutcomeFailed:
		ev, kind := m.log.Warn(), string(assistant.KindOf(out.Err))
		if errors.Is(out.Err, ErrDuplicateMessageID) {
			ev, kind = m.log.Error(), duplicateKind
		}
		ev.Err(out.Err).
			Str("sessionId", sid).
			Str("kind", kind).
			Dur("duration", out.Duration).
			Msg("send failed")
		m.emit(ctx, hooks.EventSendFailed, sid, map[string]any{
			"kind":  kind,
			"error": errString(out.Err),
		})
	case OutcomeStale:
		m.log.Debug().Str("sessionId", sid).Msg("dropped reply for cleared session")
	case OutcomeCancelled:
		m.log.Debug().Str("sessionId", sid).Msg("exchange cancelled")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
