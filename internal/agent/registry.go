package agent

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Registry maps agent names to capabilities. Registrations live for the
// process lifetime; the map is shared between the foreground turn loop
// and the voice conversation goroutine.
type Registry struct {
	agents map[string]Capability
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewRegistry creates an empty agent registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		agents: make(map[string]Capability),
		logger: logger,
	}
}

// Register adds a capability under a name. Re-registering a name
// overwrites the previous capability; last registration wins.
func (r *Registry) Register(name string, c Capability) {
	r.mu.Lock()
	r.agents[name] = c
	r.mu.Unlock()
	r.logger.Info("registered agent", zap.String("name", name))
}

// Lookup returns the capability registered under exactly this name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.agents[name]
	return c, ok
}

// LookupFuzzy falls back to a substring match when no exact registration
// exists: the first registered name (in sorted order, for a stable pick)
// that has the lookup name as prefix or substring wins. Overlapping names
// make the result a heuristic; callers needing determinism should use
// Lookup with exact names.
func (r *Registry) LookupFuzzy(name string) (Capability, bool) {
	if c, ok := r.Lookup(name); ok {
		return c, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for n := range r.agents {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if strings.HasPrefix(n, name) || strings.Contains(n, name) {
			return r.agents[n], true
		}
	}
	return nil, false
}

// Names returns all registered agent names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for n := range r.agents {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
