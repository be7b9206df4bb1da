package agents

import (
	"context"
	"strings"

	"github.com/sky-ai/skai/internal/agent"
	"github.com/sky-ai/skai/internal/session"
	"go.uber.org/zap"
)

// SelfImprove handles code-improvement requests. It acknowledges the
// request and reports the analysis plan; actual code generation is
// delegated to external tooling and out of scope here.
type SelfImprove struct {
	logger *zap.Logger
}

// NewSelfImprove creates the self-improving agent.
func NewSelfImprove(logger *zap.Logger) *SelfImprove {
	return &SelfImprove{logger: logger}
}

// Process implements agent.Capability.
func (s *SelfImprove) Process(ctx context.Context, message string, _ []session.Turn) (*agent.Result, error) {
	s.logger.Info("code improvement request", zap.String("message", truncate(message, 80)))

	target := "the referenced code"
	for _, scope := range []string{"file", "module", "function", "class", "method"} {
		if strings.Contains(strings.ToLower(message), scope) {
			target = "the referenced " + scope
			break
		}
	}

	plan := []string{
		"analyze " + target + " for correctness and style issues",
		"propose a refactoring with the smallest safe diff",
		"run the affected tests before and after",
	}

	reply := "I've queued a code-improvement pass: " + strings.Join(plan, "; ") + "."
	return &agent.Result{
		Message: reply,
		Extra: map[string]any{
			"status": "queued",
			"plan":   plan,
		},
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
