package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/soyeahso/vchat/internal/hooks"
	"github.com/soyeahso/vchat/internal/logging"
)

// Registry owns plugin lifecycle. Plugins are initialized in registration
// order and closed in reverse.
type Registry struct {
	mu      sync.Mutex
	plugins []Plugin
	started int // number of plugins whose Init succeeded
	hooks   *hooks.Manager
	log     *logging.Logger
}

// NewRegistry creates a registry whose plugins share hm.
func NewRegistry(hm *hooks.Manager, log *logging.Logger) *Registry {
	return &Registry{
		hooks: hm,
		log:   log.Sub("plugins"),
	}
}

// Register adds p without initializing it.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.ID() == p.ID() {
			return fmt.Errorf("plugin already registered: %s", p.ID())
		}
	}
	r.plugins = append(r.plugins, p)
	r.log.Debug().Str("id", p.ID()).Msg("plugin registered")
	return nil
}

// InitAll initializes every registered plugin. On failure the plugins
// already started stay started so CloseAll can release them.
func (r *Registry) InitAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.plugins[r.started:] {
		host := Host{Hooks: r.hooks, Log: r.log.Sub(p.ID())}
		if err := p.Init(ctx, host); err != nil {
			return fmt.Errorf("init plugin %s: %w", p.ID(), err)
		}
		r.started++
	}
	return nil
}

// CloseAll closes started plugins in reverse order.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := r.started - 1; i >= 0; i-- {
		p := r.plugins[i]
		if err := p.Close(); err != nil {
			r.log.Error().Err(err).Str("id", p.ID()).Msg("plugin close error")
		}
	}
	r.started = 0
}

// List returns plugin IDs in registration order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		ids[i] = p.ID()
	}
	return ids
}
