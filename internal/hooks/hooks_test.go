package hooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soyeahso/vchat/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	m := NewManager(logging.New(nil, "silent"))
	m.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func nop(context.Context, Payload) error { return nil }

func TestEmit_DeliversPayload(t *testing.T) {
	m := testManager()

	var got Payload
	m.On(EventFileSelected, "picker", func(_ context.Context, p Payload) error {
		got = p
		return nil
	})

	m.Emit(context.Background(), EventFileSelected, "sess-1", map[string]any{"name": "notes.txt"})
	assert.Equal(t, Payload{
		Event:     EventFileSelected,
		SessionID: "sess-1",
		Time:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:      map[string]any{"name": "notes.txt"},
	}, got)
}

func TestEmit_RegistrationOrder(t *testing.T) {
	m := testManager()

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		m.On(EventMessageSending, name, func(context.Context, Payload) error {
			order = append(order, name)
			return nil
		})
	}

	m.Emit(context.Background(), EventMessageSending, "s", nil)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestEmit_FailuresDoNotStopOthers(t *testing.T) {
	m := testManager()

	var reached []string
	m.On(EventSendFailed, "erroring", func(context.Context, Payload) error {
		return errors.New("boom")
	})
	m.On(EventSendFailed, "panicking", func(context.Context, Payload) error {
		panic("handler bug")
	})
	m.On(EventSendFailed, "last", func(context.Context, Payload) error {
		reached = append(reached, "last")
		return nil
	})

	require.NotPanics(t, func() {
		m.Emit(context.Background(), EventSendFailed, "", nil)
	})
	assert.Equal(t, []string{"last"}, reached)
}

func TestEmit_NoHandlersAndNilManager(t *testing.T) {
	m := testManager()
	m.Emit(context.Background(), EventServerStop, "", nil)

	var nilManager *Manager
	assert.NotPanics(t, func() {
		nilManager.Emit(context.Background(), EventServerStop, "", nil)
	})
}

func TestOn_SameNameReplaces(t *testing.T) {
	m := testManager()

	var calls []string
	m.On(EventSessionStart, "h", func(context.Context, Payload) error {
		calls = append(calls, "old")
		return nil
	})
	m.On(EventSessionStart, "h", func(context.Context, Payload) error {
		calls = append(calls, "new")
		return nil
	})

	assert.Equal(t, 1, m.Count(EventSessionStart))
	m.Emit(context.Background(), EventSessionStart, "s", nil)
	assert.Equal(t, []string{"new"}, calls)
}

func TestOff(t *testing.T) {
	m := testManager()

	removed, kept := 0, 0
	m.On(EventSessionCleared, "remove-me", func(context.Context, Payload) error {
		removed++
		return nil
	})
	m.On(EventSessionCleared, "keep-me", func(context.Context, Payload) error {
		kept++
		return nil
	})

	m.Emit(context.Background(), EventSessionCleared, "", nil)
	m.Off(EventSessionCleared, "remove-me")
	m.Emit(context.Background(), EventSessionCleared, "", nil)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, kept)
}

func TestOffAll(t *testing.T) {
	m := testManager()
	for _, event := range AllEvents {
		m.On(event, "audit", nop)
	}
	m.On(EventServerStart, "other", nop)

	m.OffAll("audit")
	for _, event := range AllEvents {
		want := 0
		if event == EventServerStart {
			want = 1
		}
		assert.Equal(t, want, m.Count(event), event)
	}
}

func TestAllEvents(t *testing.T) {
	require.Len(t, AllEvents, 8)
	assert.Contains(t, AllEvents, EventFileSelected)
	assert.Contains(t, AllEvents, EventSessionCleared)
}
