package session

import (
	"strings"
	"testing"
	"time"

	"github.com/soyeahso/vchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() Clock {
	t := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestGreeting(t *testing.T) {
	assert.Equal(t, "Hello Alice! I'm V, an AI assistant. How can I help you today?", Greeting("Alice", "V"))
}

func TestNew_SeedsGreeting(t *testing.T) {
	s := New("Alice", "V")

	state := s.Snapshot()
	require.Len(t, state.History, 1)
	assert.Equal(t, domain.SenderAssistant, state.History[0].Sender)
	assert.Equal(t, Greeting("Alice", "V"), state.History[0].Text)
	assert.NotZero(t, state.History[0].ID)
	assert.Empty(t, state.PendingInput)
	assert.False(t, state.Awaiting)
	assert.NotEmpty(t, state.ID)
	assert.Equal(t, "Alice", state.DisplayName)
	assert.Equal(t, "V", state.AssistantName)
}

func TestNew_UniqueIDs(t *testing.T) {
	assert.NotEqual(t, New("a", "V").ID(), New("a", "V").ID())
}

func TestSession_Setters(t *testing.T) {
	s := New("Alice", "V")

	s.SetPendingInput("  draft  ")
	assert.Equal(t, "  draft  ", s.PendingInput())

	s.SetAwaiting(true)
	assert.True(t, s.Awaiting())
	s.SetAwaiting(false)
	assert.False(t, s.Awaiting())

	s.SetDisplayName("Bob")
	assert.Equal(t, "Bob", s.DisplayName())
	assert.Len(t, s.History(), 1, "setters never touch history")
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := New("Alice", "V")
	state := s.Snapshot()
	state.History[0].Text = "changed"

	assert.Equal(t, Greeting("Alice", "V"), s.History()[0].Text)
}

func TestNewMessage_IDsStrictlyIncrease(t *testing.T) {
	s := New("Alice", "V", WithClock(fixedClock()))

	prev := s.History()[0].ID
	for i := 0; i < 50; i++ {
		msg := s.newMessage("x", domain.SenderUser)
		assert.Greater(t, msg.ID, prev)
		prev = msg.ID
	}
}

func TestNewMessage_FollowsClock(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New("Alice", "V", WithClock(func() time.Time { return now }))

	now = now.Add(time.Second)
	msg := s.newMessage("x", domain.SenderUser)
	assert.Equal(t, now.UnixMilli(), msg.ID)
	assert.Equal(t, now, msg.Timestamp)
}

func TestNewMessage_ClockGoingBackwards(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New("Alice", "V", WithClock(func() time.Time { return now }))
	first := s.History()[0].ID

	now = now.Add(-time.Hour)
	msg := s.newMessage("x", domain.SenderUser)
	assert.Equal(t, first+1, msg.ID)
}

func TestAppendMessage(t *testing.T) {
	base := []domain.Message{{ID: 1, Text: "Hi", Sender: domain.SenderAssistant}}

	out, err := AppendMessage(base, domain.Message{ID: 2, Text: "Hello", Sender: domain.SenderUser})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, int64(2), out[1].ID)
	assert.Len(t, base, 1, "input is not modified")

	// Appending to the result again does not alias the original.
	out2, err := AppendMessage(base, domain.Message{ID: 3, Text: "other", Sender: domain.SenderUser})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out[1].ID)
	assert.Equal(t, int64(3), out2[1].ID)
}

func TestAppendMessage_Empty(t *testing.T) {
	out, err := AppendMessage(nil, domain.Message{ID: 7})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestAppendMessage_DuplicateID(t *testing.T) {
	base := []domain.Message{{ID: 1}, {ID: 2}}

	out, err := AppendMessage(base, domain.Message{ID: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateMessageID)
	assert.Nil(t, out)
}

func TestTranscript(t *testing.T) {
	tests := []struct {
		name    string
		history []domain.Message
		want    string
	}{
		{
			name:    "empty",
			history: nil,
			want:    "",
		},
		{
			name: "two turns",
			history: []domain.Message{
				{ID: 1, Text: "Hi", Sender: domain.SenderAssistant},
				{ID: 2, Text: "Hello", Sender: domain.SenderUser},
			},
			want: "V: Hi\nUser: Hello",
		},
		{
			name: "embedded newline passes through",
			history: []domain.Message{
				{ID: 1, Text: "line one\nline two", Sender: domain.SenderUser},
			},
			want: "User: line one\nline two",
		},
		{
			name: "empty text",
			history: []domain.Message{
				{ID: 1, Text: "", Sender: domain.SenderAssistant},
			},
			want: "V: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transcript(tt.history, "V")
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.HasSuffix(got, "\n"))
		})
	}
}

func TestTranscript_LineCount(t *testing.T) {
	history := []domain.Message{
		{ID: 1, Text: "a", Sender: domain.SenderAssistant},
		{ID: 2, Text: "b", Sender: domain.SenderUser},
		{ID: 3, Text: "c", Sender: domain.SenderAssistant},
	}
	assert.Len(t, strings.Split(Transcript(history, "V"), "\n"), len(history))
}

func TestTranscript_CustomLabel(t *testing.T) {
	history := []domain.Message{{ID: 1, Text: "hey", Sender: domain.SenderAssistant}}
	assert.Equal(t, "Nova: hey", Transcript(history, "Nova"))
}
