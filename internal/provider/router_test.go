package provider

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type stubProvider struct {
	id  string
	out string
	err error
}

func (s *stubProvider) ID() string   { return s.id }
func (s *stubProvider) Name() string { return s.id }

func (s *stubProvider) Chat(context.Context, *ChatRequest) (*ChatResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ChatResponse{Content: s.out, FinishReason: "stop"}, nil
}

func (s *stubProvider) HealthCheck(context.Context) error { return nil }

func TestRouteDefault(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.Register(&stubProvider{id: "first", out: "from first"})
	r.Register(&stubProvider{id: "second", out: "from second"})

	resp, err := r.Route(context.Background(), "anyone", &ChatRequest{})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if resp.Content != "from first" {
		t.Errorf("expected first-registered default, got %q", resp.Content)
	}
}

func TestRouteBinding(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.Register(&stubProvider{id: "a", out: "from a"})
	r.Register(&stubProvider{id: "b", out: "from b"})
	r.Bind("kernel_agent", "b")

	resp, err := r.Route(context.Background(), "kernel_agent", &ChatRequest{})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if resp.Content != "from b" {
		t.Errorf("expected bound provider, got %q", resp.Content)
	}
}

func TestRouteFallbackChain(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.Register(&stubProvider{id: "primary", err: errors.New("down")})
	r.Register(&stubProvider{id: "backup", out: "from backup"})
	r.SetFallbacks("kernel_agent", []string{"backup"})

	resp, err := r.Route(context.Background(), "kernel_agent", &ChatRequest{})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if resp.Content != "from backup" {
		t.Errorf("expected fallback response, got %q", resp.Content)
	}
}

func TestRouteAllFail(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.Register(&stubProvider{id: "primary", err: errors.New("down")})
	r.Register(&stubProvider{id: "backup", err: errors.New("also down")})
	r.SetFallbacks("kernel_agent", []string{"backup"})

	if _, err := r.Route(context.Background(), "kernel_agent", &ChatRequest{}); err == nil {
		t.Error("expected error when every provider fails")
	}
}

func TestRouteNoProviders(t *testing.T) {
	r := NewRouter(zap.NewNop())

	if _, err := r.Route(context.Background(), "kernel_agent", &ChatRequest{}); err == nil {
		t.Error("expected error with no providers registered")
	}
}
