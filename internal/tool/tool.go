// Package tool holds the registry of callable tools exposed to the
// kernel's default LLM path.
package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/sky-ai/skai/internal/provider"
)

// ParamType enumerates the JSON-schema types a tool parameter may take.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// Param describes one tool parameter. A parameter with no default value
// is required.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
}

// Handler executes a tool with raw JSON arguments and returns the result
// as a string.
type Handler func(ctx context.Context, args string) (string, error)

// Tool pairs a callable handler with its schema.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

// Definition converts the tool to the provider's function-call schema.
func (t *Tool) Definition() provider.Tool {
	properties := make(map[string]any, len(t.Params))
	var required []string
	for _, p := range t.Params {
		desc := p.Description
		if desc == "" {
			desc = "Parameter: " + p.Name
		}
		properties[p.Name] = map[string]any{
			"type":        string(p.Type),
			"description": desc,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        t.Name,
			Description: t.Description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

// Registry holds registered tools.
type Registry struct {
	tools map[string]*Tool
	order []string
	mu    sync.RWMutex
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Re-registering a name overwrites the previous
// tool but keeps its position in the definition order.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Definitions returns all tool schemas in registration order.
func (r *Registry) Definitions() []provider.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]provider.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs a tool by name with the given JSON arguments.
func (r *Registry) Execute(ctx context.Context, name, args string) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return t.Handler(ctx, args)
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
