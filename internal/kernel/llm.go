package kernel

import (
	"context"
	"fmt"

	"github.com/sky-ai/skai/internal/provider"
	"github.com/sky-ai/skai/internal/session"
	"go.uber.org/zap"
)

// maxToolRounds bounds the tool-call loop on the default path.
const maxToolRounds = 5

// complete runs the generic LLM path: system instruction, conversation
// history, then the message, with registered tools offered to the model.
// Returns the final reply and the names of tools that were executed.
func (k *Kernel) complete(ctx context.Context, message string, history []session.Turn) (string, []string, error) {
	if k.llm == nil {
		return "", nil, fmt.Errorf("no completion provider configured")
	}

	messages := make([]provider.Message, 0, len(history)+2)
	messages = append(messages, provider.Message{Role: "system", Content: k.opts.Instruction})
	for _, turn := range history {
		messages = append(messages, provider.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, provider.Message{Role: "user", Content: message})

	req := &provider.ChatRequest{
		Model:    k.opts.Model,
		Messages: messages,
	}
	if defs := k.tools.Definitions(); len(defs) > 0 {
		req.Tools = defs
		req.ToolChoice = "auto"
	}

	var toolsUsed []string
	var resp *provider.ChatResponse
	for round := 0; round < maxToolRounds; round++ {
		var err error
		resp, err = k.llm.Route(ctx, k.opts.Name, req)
		if err != nil {
			return "", toolsUsed, fmt.Errorf("completion: %w", err)
		}
		if len(resp.ToolCalls) == 0 || resp.FinishReason != "tool_calls" {
			break
		}

		req.Messages = append(req.Messages, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result, toolErr := k.tools.Execute(ctx, tc.Function.Name, tc.Function.Arguments)
			if toolErr != nil {
				result = fmt.Sprintf(`{"error":%q}`, toolErr.Error())
			}
			toolsUsed = append(toolsUsed, tc.Function.Name)
			req.Messages = append(req.Messages, provider.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
		k.logger.Debug("tool round complete",
			zap.Int("round", round+1),
			zap.Int("tool_calls", len(resp.ToolCalls)))
	}

	// The model was still asking for tools when the round budget ran
	// out. Its content is usually empty at that point, so substitute a
	// reply the caller can actually surface.
	if len(resp.ToolCalls) > 0 && resp.FinishReason == "tool_calls" {
		k.logger.Warn("tool round limit reached", zap.Int("rounds", maxToolRounds))
		if resp.Content == "" {
			return "I couldn't finish working through the tools needed for that request. Please try rephrasing it.", toolsUsed, nil
		}
	}

	return resp.Content, toolsUsed, nil
}
