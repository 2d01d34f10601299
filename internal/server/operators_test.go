package server

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records written frames. Writes block while gate is non-nil and open.
type fakeConn struct {
	mu       sync.Mutex
	frames   []Frame
	gate     chan struct{}
	writeErr error
	closed   int
}

func (c *fakeConn) WriteJSON(v any) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.frames = append(c.frames, v.(Frame))
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) WriteControl(int, []byte, time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeConn) written() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.frames...)
}

func TestFeed_BroadcastInOrder(t *testing.T) {
	feed := NewFeed(testLog())
	a, b := &fakeConn{}, &fakeConn{}
	opA := NewOperator(a, "a", testLog())
	opB := NewOperator(b, "b", testLog())
	defer opA.Close()
	defer opB.Close()
	feed.Add(opA)
	feed.Add(opB)
	require.Equal(t, 2, feed.Count())

	for seq := int64(1); seq <= 3; seq++ {
		assert.Equal(t, 2, feed.Broadcast(EventExchange, map[string]int64{"n": seq}, seq))
	}

	for _, c := range []*fakeConn{a, b} {
		require.Eventually(t, func() bool { return len(c.written()) == 3 }, 2*time.Second, 5*time.Millisecond)
		for i, f := range c.written() {
			assert.Equal(t, EventExchange, f.Event)
			assert.Equal(t, int64(i+1), f.Seq)
		}
	}
}

func TestFeed_SlowOperatorDoesNotBlock(t *testing.T) {
	feed := NewFeed(testLog())
	slow := &fakeConn{gate: make(chan struct{})}
	op := NewOperator(slow, "slow", testLog())
	feed.Add(op)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < operatorQueue+10; i++ {
			feed.Broadcast(EventExchange, nil, int64(i))
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow operator")
	}
	assert.Positive(t, op.Dropped())

	close(slow.gate)
	op.Close()
}

func TestOperator_WriteErrorCloses(t *testing.T) {
	conn := &fakeConn{writeErr: errors.New("broken pipe")}
	op := NewOperator(conn, "x", testLog())

	assert.True(t, op.Enqueue(Frame{Type: FrameTypeEvent, Event: EventHello}))
	select {
	case <-op.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("operator not closed after write error")
	}
	assert.False(t, op.Enqueue(Frame{Type: FrameTypeEvent}))
}

func TestOperator_CloseIdempotent(t *testing.T) {
	conn := &fakeConn{}
	op := NewOperator(conn, "x", testLog())
	require.NoError(t, op.Close())
	require.NoError(t, op.Close())
	assert.Equal(t, 1, conn.closed)
}

func TestFeed_RemoveAndCloseAll(t *testing.T) {
	feed := NewFeed(testLog())
	c1, c2 := &fakeConn{}, &fakeConn{}
	op1 := NewOperator(c1, "1", testLog())
	op2 := NewOperator(c2, "2", testLog())
	feed.Add(op1)
	feed.Add(op2)

	feed.Remove(op1.ID)
	feed.Remove("missing")
	assert.Equal(t, 1, feed.Count())
	assert.Equal(t, 1, feed.Broadcast(EventExchange, nil, 1))

	feed.CloseAll()
	assert.Equal(t, 0, feed.Count())
	<-op2.Done()
	op1.Close()
}

func TestNewEvent(t *testing.T) {
	f, err := NewEvent(EventExchange, map[string]string{"message": "hi"}, 7)
	require.NoError(t, err)
	assert.Equal(t, FrameTypeEvent, f.Type)
	assert.Equal(t, int64(7), f.Seq)

	var payload map[string]string
	require.NoError(t, f.Decode(&payload))
	assert.Equal(t, "hi", payload["message"])

	empty, err := NewEvent(EventHello, nil, 0)
	require.NoError(t, err)
	assert.Error(t, empty.Decode(&payload))

	_, err = NewEvent("bad", make(chan int), 0)
	assert.Error(t, err)
	assert.Panics(t, func() { mustEvent("bad", make(chan int)) })
}
