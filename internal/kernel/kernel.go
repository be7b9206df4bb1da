// Package kernel is the central orchestrator: it resolves sessions,
// classifies inbound messages, dispatches to specialized agents or the
// default LLM path, and persists every turn.
package kernel

import (
	"context"
	"time"

	"github.com/sky-ai/skai/internal/agent"
	"github.com/sky-ai/skai/internal/classify"
	"github.com/sky-ai/skai/internal/events"
	"github.com/sky-ai/skai/internal/provider"
	"github.com/sky-ai/skai/internal/session"
	"github.com/sky-ai/skai/internal/tool"
	"go.uber.org/zap"
)

// DefaultAgentName reports which path produced an envelope when no
// specialized agent was dispatched.
const DefaultAgentName = "default_adk_agent"

const apology = "I'm sorry, something went wrong while handling that. Please try again."

// Options configures the kernel's default LLM path.
type Options struct {
	Name        string
	Model       string
	Instruction string
}

// DefaultOptions returns the stock kernel configuration.
func DefaultOptions() Options {
	return Options{
		Name:        "kernel_agent",
		Model:       "meta-llama/llama-4-maverick:free",
		Instruction: "You are the central controller for SKAI, responsible for managing other agents and coordinating workflows.",
	}
}

// Kernel routes user messages through the communicator to specialized
// agents, falling back to a generic LLM-backed path.
type Kernel struct {
	opts       Options
	agents     *agent.Registry
	tools      *tool.Registry
	sessions   *session.Store
	classifier *classify.Classifier
	llm        *provider.Router
	bus        *events.Bus
	logger     *zap.Logger
}

// New creates a kernel. bus may be nil when no event stream is configured.
func New(opts Options, sessions *session.Store, llm *provider.Router, bus *events.Bus, logger *zap.Logger) *Kernel {
	if opts.Name == "" {
		opts = DefaultOptions()
	}
	k := &Kernel{
		opts:       opts,
		agents:     agent.NewRegistry(logger),
		tools:      tool.NewRegistry(),
		sessions:   sessions,
		classifier: classify.NewClassifier(logger),
		llm:        llm,
		bus:        bus,
		logger:     logger,
	}
	logger.Info("kernel initialized", zap.String("name", opts.Name))
	return k
}

// RegisterAgent adds a specialized agent under a routing name.
func (k *Kernel) RegisterAgent(name string, c agent.Capability) {
	k.agents.Register(name, c)
}

// RegisterTool adds a tool to the default LLM path.
func (k *Kernel) RegisterTool(t *tool.Tool) {
	k.tools.Register(t)
	k.logger.Info("registered tool", zap.String("name", t.Name))
}

// Agents exposes the agent registry (read paths for the API layer).
func (k *Kernel) Agents() *agent.Registry { return k.agents }

// Sessions exposes the session store.
func (k *Kernel) Sessions() *session.Store { return k.sessions }

// ProcessMessage runs one conversation turn: resolve the session, append
// the user turn, classify, dispatch, persist, and return the response
// envelope. Failures inside dispatch or the LLM path are converted into
// an error envelope with an apologetic assistant turn; the caller never
// sees a dangling user message.
func (k *Kernel) ProcessMessage(ctx context.Context, message, sessionID string, metadata map[string]any) *Envelope {
	start := time.Now()

	sess := k.sessions.GetOrCreate(ctx, sessionID, metadata)
	history := sess.History(0)
	sess.AddMessage(session.RoleUser, message, nil)

	cls := k.classifier.Classify(message)
	sess.UpdateState(map[string]any{
		"intent":    cls.Intent,
		"sentiment": cls.Sentiment,
		"urgency":   cls.Urgency,
	})
	k.logger.Info("message classified",
		zap.String("session", sess.SessionID),
		zap.String("intent", cls.Intent),
		zap.String("sentiment", cls.Sentiment),
		zap.String("target", cls.TargetAgent))

	if cls.TargetAgent != classify.TargetGeneral {
		if cap, ok := k.agents.Lookup(cls.TargetAgent); ok {
			return k.dispatch(ctx, sess, cap, cls, message, history, start)
		}
		k.logger.Warn("target agent not registered, using default path",
			zap.String("target", cls.TargetAgent))
	}

	return k.dispatchDefault(ctx, sess, message, history, start)
}

// dispatch runs the specialized-agent path. The assistant turn recorded
// in the session is the post-formatting text, so future history matches
// what the user actually received.
func (k *Kernel) dispatch(ctx context.Context, sess *session.Session, cap agent.Capability,
	cls classify.Classification, message string, history []session.Turn, start time.Time) *Envelope {

	result, err := cap.Process(ctx, message, history)
	if err != nil {
		k.logger.Error("agent dispatch failed",
			zap.String("agent", cls.TargetAgent), zap.Error(err))
		return k.failTurn(ctx, sess, cls.TargetAgent, start)
	}

	text := k.classifier.FormatResponse(result.Message, cls.Sentiment, cls.Urgency)
	sess.AddMessage(session.RoleAssistant, text, nil)
	_ = k.sessions.Save(ctx, sess.SessionID)
	k.publishTurn(ctx, sess.SessionID, cls.TargetAgent, cls.Intent, text)

	return &Envelope{
		Message:     text,
		SessionID:   sess.SessionID,
		Intent:      cls.Intent,
		Sentiment:   cls.Sentiment,
		Urgency:     cls.Urgency,
		ElapsedTime: time.Since(start).Seconds(),
		AgentUsed:   cls.TargetAgent,
		Extra:       result.Extra,
	}
}

// dispatchDefault runs the generic LLM-backed path.
func (k *Kernel) dispatchDefault(ctx context.Context, sess *session.Session,
	message string, history []session.Turn, start time.Time) *Envelope {

	k.logger.Info("using default agent path", zap.String("session", sess.SessionID))

	reply, toolsUsed, err := k.complete(ctx, message, history)
	if err != nil {
		k.logger.Error("default completion failed", zap.Error(err))
		return k.failTurn(ctx, sess, DefaultAgentName, start)
	}

	sess.AddMessage(session.RoleAssistant, reply, nil)
	_ = k.sessions.Save(ctx, sess.SessionID)
	k.publishTurn(ctx, sess.SessionID, DefaultAgentName, "", reply)

	return &Envelope{
		Message:     reply,
		SessionID:   sess.SessionID,
		ToolsUsed:   toolsUsed,
		ElapsedTime: time.Since(start).Seconds(),
		AgentUsed:   DefaultAgentName,
	}
}

// failTurn appends an apologetic assistant turn and returns an error
// envelope, preserving the turn-taking invariant.
func (k *Kernel) failTurn(ctx context.Context, sess *session.Session, agentUsed string, start time.Time) *Envelope {
	sess.AddMessage(session.RoleAssistant, apology, nil)
	_ = k.sessions.Save(ctx, sess.SessionID)
	return &Envelope{
		Message:     apology,
		SessionID:   sess.SessionID,
		Status:      StatusError,
		ElapsedTime: time.Since(start).Seconds(),
		AgentUsed:   agentUsed,
	}
}

func (k *Kernel) publishTurn(ctx context.Context, sessionID, agentUsed, intent, content string) {
	k.bus.Publish(ctx, &events.TurnEvent{
		SessionID: sessionID,
		Role:      string(session.RoleAssistant),
		AgentUsed: agentUsed,
		Intent:    intent,
		Content:   content,
	})
}
