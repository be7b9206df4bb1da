package agents

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestWeatherNewYork(t *testing.T) {
	w := NewWeatherTime(zap.NewNop())

	res, err := w.Process(context.Background(), "what's the weather in New York?", nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Extra["status"] != "success" {
		t.Errorf("expected success, got %v", res.Extra["status"])
	}
	if !strings.Contains(res.Message, "sunny") {
		t.Errorf("unexpected report: %q", res.Message)
	}
}

func TestWeatherUnknownCity(t *testing.T) {
	w := NewWeatherTime(zap.NewNop())

	res, err := w.Process(context.Background(), "what's the weather in Atlantis?", nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Extra["status"] != "error" {
		t.Errorf("expected error status, got %v", res.Extra["status"])
	}
	if !strings.Contains(res.Message, "atlantis") {
		t.Errorf("expected city in message, got %q", res.Message)
	}
}

func TestTimeKnownCity(t *testing.T) {
	w := NewWeatherTime(zap.NewNop())

	res, err := w.Process(context.Background(), "what time is it in Tokyo?", nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Extra["status"] != "success" {
		t.Errorf("expected success, got %v", res.Extra["status"])
	}
	if !strings.Contains(res.Message, "tokyo") {
		t.Errorf("expected city in report, got %q", res.Message)
	}
}

func TestTimeUnknownCity(t *testing.T) {
	w := NewWeatherTime(zap.NewNop())

	res, err := w.Process(context.Background(), "what time is it in Gotham?", nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Extra["status"] != "error" {
		t.Errorf("expected error status, got %v", res.Extra["status"])
	}
}

func TestExtractCity(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"what time is it in london?", "london"},
		{"weather in los angeles please", "los angeles"},
		{"what's the weather?", "new york"},
		{"time in smallville", "smallville"},
	}
	for _, tc := range cases {
		if got := extractCity(tc.in); got != tc.want {
			t.Errorf("extractCity(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSelfImprove(t *testing.T) {
	s := NewSelfImprove(zap.NewNop())

	res, err := s.Process(context.Background(), "please refactor this function", nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Extra["status"] != "queued" {
		t.Errorf("expected queued, got %v", res.Extra["status"])
	}
	if !strings.Contains(res.Message, "function") {
		t.Errorf("expected scope in reply, got %q", res.Message)
	}
	plan, ok := res.Extra["plan"].([]string)
	if !ok || len(plan) != 3 {
		t.Errorf("expected 3-step plan, got %v", res.Extra["plan"])
	}
}
