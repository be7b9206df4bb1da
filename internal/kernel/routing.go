package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/sky-ai/skai/internal/session"
	"go.uber.org/zap"
)

// WorkflowStep names an agent and the input to give it.
type WorkflowStep struct {
	Agent string `json:"agent"`
	Input string `json:"input"`
}

// StepResult records the outcome of one executed workflow step.
type StepResult struct {
	Step   int            `json:"step"`
	Agent  string         `json:"agent"`
	Input  string         `json:"input"`
	Result map[string]any `json:"result"`
}

// WorkflowResult is the aggregate outcome of ExecuteWorkflow. Message is
// the message of the last executed step.
type WorkflowResult struct {
	SessionID       string       `json:"session_id"`
	WorkflowResults []StepResult `json:"workflow_results"`
	Message         string       `json:"message"`
	ElapsedTime     float64      `json:"elapsed_time"`
}

// RouteToAgent invokes a named agent directly with the conversation
// history, records the exchange as two session turns, and returns the
// agent's raw response. Unknown agents and capability failures are
// reported as an error-carrying map, never a panic or raised error.
func (k *Kernel) RouteToAgent(ctx context.Context, name, input, sessionID string) map[string]any {
	cap, ok := k.agents.Lookup(name)
	if !ok {
		errMsg := fmt.Sprintf("Agent not found: %s", name)
		k.logger.Error(errMsg)
		return map[string]any{"error": errMsg}
	}

	sess := k.sessions.GetOrCreate(ctx, sessionID, nil)
	history := sess.History(0)

	result, err := cap.Process(ctx, input, history)
	if err != nil {
		k.logger.Error("routed agent failed", zap.String("agent", name), zap.Error(err))
		return map[string]any{"error": fmt.Sprintf("Agent %s failed: %s", name, err)}
	}

	sess.AddMessage(session.RoleUser, input, map[string]any{"target_agent": name})
	sess.AddMessage(session.RoleAgent, result.Message, map[string]any{"source_agent": name})
	_ = k.sessions.Save(ctx, sess.SessionID)

	response := map[string]any{"message": result.Message, "session_id": sess.SessionID}
	for key, val := range result.Extra {
		if _, taken := response[key]; !taken {
			response[key] = val
		}
	}
	return response
}

// ExecuteWorkflow runs steps strictly in order on one session. A step
// missing its agent or input is skipped with a log line; there is no
// branching or looping. The final message is taken from the last step
// that actually executed.
func (k *Kernel) ExecuteWorkflow(ctx context.Context, steps []WorkflowStep, sessionID string) *WorkflowResult {
	start := time.Now()
	sess := k.sessions.GetOrCreate(ctx, sessionID, nil)

	var results []StepResult
	var final map[string]any

	for i, step := range steps {
		if step.Agent == "" || step.Input == "" {
			k.logger.Error("invalid workflow step: missing agent or input", zap.Int("step", i))
			continue
		}
		k.logger.Info("executing workflow step",
			zap.Int("step", i+1),
			zap.Int("total", len(steps)),
			zap.String("agent", step.Agent))

		stepResult := k.RouteToAgent(ctx, step.Agent, step.Input, sess.SessionID)
		results = append(results, StepResult{
			Step:   i + 1,
			Agent:  step.Agent,
			Input:  step.Input,
			Result: stepResult,
		})
		final = stepResult
	}

	message := ""
	if final != nil {
		if m, ok := final["message"].(string); ok {
			message = m
		}
	}

	return &WorkflowResult{
		SessionID:       sess.SessionID,
		WorkflowResults: results,
		Message:         message,
		ElapsedTime:     time.Since(start).Seconds(),
	}
}
