// Package agent defines the capability contract every specialized agent
// implements and the registry the kernel routes through.
package agent

import (
	"context"

	"github.com/sky-ai/skai/internal/session"
)

// Result is what a capability returns for one processed message. Extra
// carries agent-specific fields that the kernel merges into its response
// envelope when they don't collide.
type Result struct {
	Message string
	Extra   map[string]any
}

// Capability is the "can process a message" contract. History is the
// conversation so far, most recent turn last; implementations may ignore it.
type Capability interface {
	Process(ctx context.Context, message string, history []session.Turn) (*Result, error)
}

// Func adapts a plain function to the Capability interface, so
// legacy-shaped handlers can be wrapped at registration time.
type Func func(ctx context.Context, message string, history []session.Turn) (*Result, error)

// Process implements Capability.
func (f Func) Process(ctx context.Context, message string, history []session.Turn) (*Result, error) {
	return f(ctx, message, history)
}
