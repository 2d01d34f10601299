package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/vchat/internal/logging"
)

const (
	// writeWait bounds how long a single frame write may block.
	writeWait = 10 * time.Second

	// operatorQueue is how many frames may wait for a slow operator before
	// new ones are dropped.
	operatorQueue = 64
)

// frameConn is the part of *websocket.Conn an operator writes through.
type frameConn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Operator is one connection on the exchange feed. Frames are queued and
// written by the operator's own goroutine, so a slow reader never holds up
// a /message request.
type Operator struct {
	ID          string
	Remote      string
	ConnectedAt time.Time

	conn    frameConn
	queue   chan Frame
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
	log     *logging.Logger
}

// NewOperator starts the writer for conn.
func NewOperator(conn frameConn, remote string, log *logging.Logger) *Operator {
	op := &Operator{
		ID:          uuid.New().String(),
		Remote:      remote,
		ConnectedAt: time.Now(),
		conn:        conn,
		queue:       make(chan Frame, operatorQueue),
		done:        make(chan struct{}),
	}
	op.log = log.Sub("operator")
	go op.writeLoop()
	return op
}

// Enqueue queues f for delivery. It never blocks and reports false when the
// operator is closed or its queue is full.
func (o *Operator) Enqueue(f Frame) bool {
	select {
	case <-o.done:
		return false
	default:
	}
	select {
	case o.queue <- f:
		return true
	default:
		o.dropped.Add(1)
		return false
	}
}

// Dropped returns how many frames were discarded because the queue was full.
func (o *Operator) Dropped() int64 { return o.dropped.Load() }

// Done is closed once the operator has shut down.
func (o *Operator) Done() <-chan struct{} { return o.done }

func (o *Operator) writeLoop() {
	for {
		select {
		case <-o.done:
			return
		case f := <-o.queue:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteJSON(f); err != nil {
				o.log.Debug().Err(err).Str("connId", o.ID).Msg("feed write failed")
				o.Close()
				return
			}
		}
	}
}

// Close sends a going-away close frame and releases the connection. Safe to
// call more than once.
func (o *Operator) Close() error {
	var err error
	o.once.Do(func() {
		close(o.done)
		o.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		err = o.conn.Close()
	})
	return err
}

// Feed fans exchange events out to every connected operator.
type Feed struct {
	mu  sync.RWMutex
	ops map[string]*Operator
	log *logging.Logger
}

// NewFeed creates an empty feed.
func NewFeed(log *logging.Logger) *Feed {
	return &Feed{
		ops: make(map[string]*Operator),
		log: log,
	}
}

// Add registers an operator.
func (f *Feed) Add(op *Operator) {
	f.mu.Lock()
	f.ops[op.ID] = op
	f.mu.Unlock()
	f.log.Info().Str("connId", op.ID).Str("remote", op.Remote).Msg("operator connected")
}

// Remove unregisters an operator by ID.
func (f *Feed) Remove(id string) {
	f.mu.Lock()
	op, ok := f.ops[id]
	delete(f.ops, id)
	f.mu.Unlock()
	if ok {
		f.log.Info().Str("connId", id).Int64("dropped", op.Dropped()).Msg("operator disconnected")
	}
}

// Count returns the number of connected operators.
func (f *Feed) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ops)
}

// Broadcast encodes the event once and queues it for every operator. It
// returns how many operators accepted the frame.
func (f *Feed) Broadcast(event string, payload any, seq int64) int {
	frame, err := NewEvent(event, payload, seq)
	if err != nil {
		f.log.Error().Err(err).Str("event", event).Msg("broadcast encode failed")
		return 0
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	delivered := 0
	for _, op := range f.ops {
		if op.Enqueue(frame) {
			delivered++
		} else {
			f.log.Debug().Str("connId", op.ID).Int64("seq", seq).Msg("frame dropped")
		}
	}
	return delivered
}

// CloseAll closes and forgets every operator.
func (f *Feed) CloseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, op := range f.ops {
		op.Close()
		delete(f.ops, id)
	}
}
