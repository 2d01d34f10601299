package plugin

import (
	"context"
	"sort"
	"sync"

	"github.com/soyeahso/vchat/internal/hooks"
	"github.com/soyeahso/vchat/internal/logging"
)

// Audit logs every lifecycle event and keeps per-event counts. The summary
// is logged when the plugin closes.
type Audit struct {
	mu     sync.Mutex
	counts map[string]int
	host   Host
	log    *logging.Logger
}

// NewAudit creates the audit plugin.
func NewAudit() *Audit {
	return &Audit{counts: make(map[string]int)}
}

func (a *Audit) ID() string { return "audit" }

// Init subscribes to every known event.
func (a *Audit) Init(_ context.Context, host Host) error {
	a.host = host
	a.log = host.Log
	for _, event := range hooks.AllEvents {
		host.Hooks.On(event, a.ID(), a.observe)
	}
	return nil
}

func (a *Audit) observe(_ context.Context, p hooks.Payload) error {
	a.mu.Lock()
	a.counts[p.Event]++
	a.mu.Unlock()

	ev := a.log.Debug().Str("event", p.Event)
	if p.SessionID != "" {
		ev = ev.Str("sessionId", p.SessionID)
	}
	ev.Fields(p.Data).Msg("lifecycle event")
	return nil
}

// Counts returns a copy of the per-event counts.
func (a *Audit) Counts() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]int, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}

// Close unsubscribes and logs the totals.
func (a *Audit) Close() error {
	a.host.Hooks.OffAll(a.ID())

	counts := a.Counts()
	events := make([]string, 0, len(counts))
	for e := range counts {
		events = append(events, e)
	}
	sort.Strings(events)

	ev := a.log.Info()
	for _, e := range events {
		ev = ev.Int(e, counts[e])
	}
	ev.Msg("event totals")
	return nil
}
