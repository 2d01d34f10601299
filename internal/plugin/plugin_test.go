package plugin

import (
	"context"
	"testing"

	"github.com/soyeahso/vchat/internal/hooks"
	"github.com/soyeahso/vchat/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPlugin struct {
	id         string
	initErr    error
	closeErr   error
	initCalls  int
	closeCalls int
	closed     *[]string
}

func (p *testPlugin) ID() string { return p.id }
func (p *testPlugin) Init(_ context.Context, _ Host) error {
	p.initCalls++
	return p.initErr
}
func (p *testPlugin) Close() error {
	p.closeCalls++
	if p.closed != nil {
		*p.closed = append(*p.closed, p.id)
	}
	return p.closeErr
}

func testRegistry() (*Registry, *hooks.Manager) {
	log := logging.New(nil, "silent")
	hm := hooks.NewManager(log)
	return NewRegistry(hm, log), hm
}

func TestRegistry_Register(t *testing.T) {
	reg, _ := testRegistry()

	require.NoError(t, reg.Register(&testPlugin{id: "a"}))
	require.NoError(t, reg.Register(&testPlugin{id: "b"}))
	assert.Equal(t, []string{"a", "b"}, reg.List())

	err := reg.Register(&testPlugin{id: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_InitAndCloseOrder(t *testing.T) {
	reg, _ := testRegistry()
	var closed []string
	p1 := &testPlugin{id: "a", closed: &closed}
	p2 := &testPlugin{id: "b", closed: &closed, closeErr: assert.AnError}
	require.NoError(t, reg.Register(p1))
	require.NoError(t, reg.Register(p2))

	require.NoError(t, reg.InitAll(context.Background()))
	assert.Equal(t, 1, p1.initCalls)
	assert.Equal(t, 1, p2.initCalls)

	reg.CloseAll()
	assert.Equal(t, []string{"b", "a"}, closed)

	reg.CloseAll()
	assert.Equal(t, 1, p1.closeCalls, "second CloseAll is a no-op")
}

func TestRegistry_InitFailureClosesOnlyStarted(t *testing.T) {
	reg, _ := testRegistry()
	good := &testPlugin{id: "good"}
	bad := &testPlugin{id: "bad", initErr: assert.AnError}
	never := &testPlugin{id: "never"}
	require.NoError(t, reg.Register(good))
	require.NoError(t, reg.Register(bad))
	require.NoError(t, reg.Register(never))

	err := reg.InitAll(context.Background())
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "bad")
	assert.Zero(t, never.initCalls)

	reg.CloseAll()
	assert.Equal(t, 1, good.closeCalls)
	assert.Zero(t, bad.closeCalls)
	assert.Zero(t, never.closeCalls)
}

func TestAudit_CountsEvents(t *testing.T) {
	reg, hm := testRegistry()
	audit := NewAudit()
	require.NoError(t, reg.Register(audit))
	require.NoError(t, reg.InitAll(context.Background()))

	ctx := context.Background()
	hm.Emit(ctx, hooks.EventSessionStart, "s1", nil)
	hm.Emit(ctx, hooks.EventMessageSending, "s1", map[string]any{"length": 5})
	hm.Emit(ctx, hooks.EventMessageSending, "s1", nil)
	hm.Emit(ctx, hooks.EventFileSelected, "s1", map[string]any{"name": "a.txt"})

	assert.Equal(t, map[string]int{
		hooks.EventSessionStart:   1,
		hooks.EventMessageSending: 2,
		hooks.EventFileSelected:   1,
	}, audit.Counts())

	reg.CloseAll()
	for _, event := range hooks.AllEvents {
		assert.Zero(t, hm.Count(event), event)
	}
}
