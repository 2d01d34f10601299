package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soyeahso/vchat/internal/domain"
	"github.com/soyeahso/vchat/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command against an isolated VCHAT_HOME and
// returns stdout.
func run(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("VCHAT_HOME", home)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--log-level", "silent"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"FALSE", false},
		{"8000", 8000},
		{"-3", -3},
		{"1.5", 1.5},
		{"1abc", "1abc"},
		{"1.2.3", "1.2.3"},
		{"http://localhost:8000", "http://localhost:8000"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.in))
		})
	}
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []any{"http://a", "http://b"}, parseList("http://a, http://b,"))
	assert.Equal(t, []any{}, parseList(""))
	assert.True(t, isListKey([]string{"server", "allowedOrigins"}))
	assert.False(t, isListKey([]string{"server", "port"}))
}

func TestPrintValue(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printValue(&buf, "V"))
	require.NoError(t, printValue(&buf, 42))
	require.NoError(t, printValue(&buf, map[string]any{"name": "V"}))
	assert.Equal(t, "V\n42\nname: V\n", buf.String())
}

func TestConfigSetGetUnset(t *testing.T) {
	home := t.TempDir()

	out, err := run(t, home, "config", "set", "user.name", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "Set user.name = Ada\n", out)

	out, err = run(t, home, "config", "get", "user.name")
	require.NoError(t, err)
	assert.Equal(t, "Ada\n", out)

	_, err = run(t, home, "config", "set", "server.port", "9000")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(home, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "port: 9000")

	_, err = run(t, home, "config", "set", "server.allowedOrigins", "http://a,http://b")
	require.NoError(t, err)
	out, err = run(t, home, "config", "get", "server.allowedOrigins")
	require.NoError(t, err)
	assert.Equal(t, "- http://a\n- http://b\n", out)

	out, err = run(t, home, "config", "unset", "user.name")
	require.NoError(t, err)
	assert.Equal(t, "Unset user.name\n", out)

	_, err = run(t, home, "config", "get", "user.name")
	assert.EqualError(t, err, `key "user.name" not found`)
}

func TestConfigShowAppliesDefaults(t *testing.T) {
	out, err := run(t, t.TempDir(), "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "endpoint: http://localhost:8000")
	assert.Contains(t, out, "responseField: response")
}

func TestConfigPathFlag(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "alt.yaml")
	out, err := run(t, t.TempDir(), "--config", custom, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, custom+"\n", out)
}

func TestSendPrintsReply(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"Hello!"}`))
	}))
	defer srv.Close()

	out, err := run(t, t.TempDir(), "send", "--endpoint", srv.URL, "--name", "Ada", "Hi", "there")
	require.NoError(t, err)
	assert.Equal(t, "Hello!\n", out)
	assert.Equal(t, "Hi there", got["message"])
	assert.Equal(t,
		"V: Hello Ada! I'm V, an AI assistant. How can I help you today?\nUser: Hi there",
		got["chatHistory"])
}

func TestSendFailurePrintsErrorReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := run(t, t.TempDir(), "send", "--endpoint", srv.URL, "Hi")
	require.Error(t, err)
	assert.Equal(t, "Sorry, I encountered an error while processing your message. Please try again.\n", out)
}

func TestSendBlankMessage(t *testing.T) {
	_, err := run(t, t.TempDir(), "send", "   ")
	assert.EqualError(t, err, "message is empty")
}

func TestStatusWithoutConfig(t *testing.T) {
	out, err := run(t, t.TempDir(), "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not found (using defaults)")
	assert.Contains(t, out, "Assistant: name=V url=http://localhost:8000/message")
	assert.NotContains(t, out, "Validation issues")
}

func TestStatusProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"V Chat assistant server is running"}`))
	}))
	defer srv.Close()

	home := t.TempDir()
	_, err := run(t, home, "config", "set", "assistant.endpoint", srv.URL)
	require.NoError(t, err)

	out, err := run(t, home, "status", "--check")
	require.NoError(t, err)
	assert.Contains(t, out, "Endpoint:  ok")
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vchat ")
}

func TestPrintFrame(t *testing.T) {
	var buf bytes.Buffer

	hello, err := server.NewEvent(server.EventHello, server.HelloPayload{Server: "vchat", Version: "dev", Assistant: "V"}, 0)
	require.NoError(t, err)
	require.NoError(t, printFrame(&buf, hello))
	assert.Equal(t, "connected to vchat dev (assistant V)\n", buf.String())

	buf.Reset()
	ex := domain.Exchange{
		Message:    "Hi",
		Response:   "Hello!",
		Status:     200,
		DurationMs: 12,
		CreatedAt:  time.Date(2024, 1, 1, 9, 30, 0, 0, time.Local),
	}
	frame, err := server.NewEvent(server.EventExchange, ex, 7)
	require.NoError(t, err)
	require.NoError(t, printFrame(&buf, frame))
	assert.Equal(t, "[09:30:00] #7 200 12ms\n  > Hi\n  < Hello!\n", buf.String())

	assert.Error(t, printFrame(&buf, server.Frame{Event: server.EventExchange}))
}
