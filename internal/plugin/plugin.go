// Package plugin hosts in-process extensions that observe chat and server
// lifecycle events through the hook manager. The file picker's
// file_selected event is the intended attachment point for an uploader.
package plugin

import (
	"context"

	"github.com/soyeahso/vchat/internal/hooks"
	"github.com/soyeahso/vchat/internal/logging"
)

// Plugin is an extension loaded by the chat client or the dev server.
type Plugin interface {
	// ID returns a unique identifier, e.g. "audit".
	ID() string

	// Init subscribes to hooks and acquires resources.
	Init(ctx context.Context, host Host) error

	// Close releases resources.
	Close() error
}

// Host is what a plugin sees of the process that loaded it.
type Host struct {
	Hooks *hooks.Manager
	Log   *logging.Logger
}
