package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sky-ai/skai/internal/kernel"
	"go.uber.org/zap"
)

// Phase is the conversation loop's lifecycle state.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseListening    Phase = "listening"
	PhaseAwaitingWake Phase = "awaiting_wake_word"
	PhaseEnded        Phase = "ended"
)

// Processor is the kernel surface the conversation loop needs.
type Processor interface {
	ProcessMessage(ctx context.Context, message, sessionID string, metadata map[string]any) *kernel.Envelope
}

// Config tunes the conversation loop.
type Config struct {
	IdleTimeout  time.Duration // T: silence before the wake-word prompt; 2T in the paused state ends the session
	ListenFor    time.Duration // per-attempt listen timeout
	PhraseLimit  time.Duration // maximum single-utterance duration
	PollInterval time.Duration
	ErrorPause   time.Duration
	Greeting     string
	WakePhrase   string
	ExitPhrases  []string
}

// DefaultConfig returns the stock conversation tuning.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:  10 * time.Second,
		ListenFor:    5 * time.Second,
		PhraseLimit:  15 * time.Second,
		PollInterval: 500 * time.Millisecond,
		ErrorPause:   time.Second,
		Greeting:     "Hello! I'm SKAI. How can I help you today?",
		WakePhrase:   "Hey Sky",
		ExitPhrases:  []string{"exit", "quit", "stop", "exit conversation", "end conversation"},
	}
}

// Conversation runs the continuous listen/speak loop as a single
// background goroutine. At most one loop is active per Conversation;
// re-entrant Start calls are rejected. All runtime state (phase, idle
// timer, current session) sits behind one lock so transitions observed
// by Start/Stop/State are atomic.
type Conversation struct {
	cfg     Config
	proc    Processor
	rec     Recognizer
	speaker *Speaker
	wake    WakeDetector
	textIn  chan string

	mu         sync.Mutex
	phase      Phase
	lastSpeech time.Time
	sessionID  string
	cancel     context.CancelFunc

	logger *zap.Logger
}

// NewConversation wires the loop's collaborators. wake may be nil, in
// which case injected text is the only path out of the paused state.
func NewConversation(cfg Config, proc Processor, rec Recognizer, speaker *Speaker, wake WakeDetector, logger *zap.Logger) *Conversation {
	return &Conversation{
		cfg:     cfg,
		proc:    proc,
		rec:     rec,
		speaker: speaker,
		wake:    wake,
		textIn:  make(chan string, 4),
		phase:   PhaseIdle,
		logger:  logger,
	}
}

// Start verifies the microphone and synthesizer, then launches the loop.
// It fails without entering the listening state when either check fails,
// so callers can fall back to text mode.
func (c *Conversation) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseListening || c.phase == PhaseAwaitingWake {
		c.mu.Unlock()
		return fmt.Errorf("conversation mode already active")
	}
	c.mu.Unlock()

	if err := c.rec.Check(ctx); err != nil {
		return fmt.Errorf("microphone check failed: %w", err)
	}
	if err := c.speaker.Check(ctx); err != nil {
		return fmt.Errorf("speech synthesis check failed: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	// Re-check under the lock: a concurrent Start may have won while the
	// hardware checks ran. Exactly one caller commits the transition.
	c.mu.Lock()
	if c.phase == PhaseListening || c.phase == PhaseAwaitingWake {
		c.mu.Unlock()
		cancel()
		return fmt.Errorf("conversation mode already active")
	}
	c.phase = PhaseListening
	c.lastSpeech = time.Now()
	c.sessionID = ""
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(loopCtx)
	c.logger.Info("conversation mode started")
	return nil
}

// Stop ends the conversation loop.
func (c *Conversation) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Inject feeds a typed message into the loop, bypassing speech capture
// and the wake word. It reports false when the loop is not active or the
// input buffer is full.
func (c *Conversation) Inject(text string) bool {
	c.mu.Lock()
	active := c.phase == PhaseListening || c.phase == PhaseAwaitingWake
	c.mu.Unlock()
	if !active {
		return false
	}
	select {
	case c.textIn <- text:
		return true
	default:
		return false
	}
}

// Phase returns the loop's current lifecycle state.
func (c *Conversation) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// State is a snapshot of the loop's runtime state.
type State struct {
	Phase       Phase   `json:"phase"`
	Speaking    bool    `json:"speaking"`
	SessionID   string  `json:"session_id,omitempty"`
	IdleSeconds float64 `json:"idle_seconds"`
}

// Snapshot returns the current runtime state.
func (c *Conversation) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	idle := 0.0
	if !c.lastSpeech.IsZero() {
		idle = time.Since(c.lastSpeech).Seconds()
	}
	return State{
		Phase:       c.phase,
		Speaking:    c.speaker.Speaking(),
		SessionID:   c.sessionID,
		IdleSeconds: idle,
	}
}

// run is the conversation loop. It exits only through an explicit
// transition to the ended state or context cancellation; per-iteration
// failures are logged and the loop continues after a brief pause. A
// panic in the loop body is caught here, at the outermost wrapper, and
// forces the ended state.
func (c *Conversation) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("conversation loop panicked", zap.Any("panic", r))
		}
		c.mu.Lock()
		c.phase = PhaseEnded
		c.mu.Unlock()
		c.logger.Info("conversation mode ended")
	}()

	var wakeCh <-chan struct{}
	if c.wake != nil {
		wakeCh = c.wake.Events()
	}

	c.speaker.SayStream(ctx, c.cfg.Greeting)

	for {
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		phase := c.phase
		idle := time.Since(c.lastSpeech)
		c.mu.Unlock()

		if phase == PhaseEnded {
			return
		}

		// Idle handling: prompt once, then give up after twice the
		// timeout. Checked cooperatively once per iteration, so a long
		// blocking listen delays it correspondingly.
		if phase == PhaseListening && idle > c.cfg.IdleTimeout {
			prompt := fmt.Sprintf("I haven't heard from you in a while. Say '%s' if you'd like to continue our conversation.", c.cfg.WakePhrase)
			c.speaker.SayStream(ctx, prompt)
			c.mu.Lock()
			c.phase = PhaseAwaitingWake
			c.lastSpeech = time.Now()
			c.mu.Unlock()
			c.logger.Info("pausing for wake word", zap.Duration("idle", idle))
			continue
		}
		if phase == PhaseAwaitingWake && idle > 2*c.cfg.IdleTimeout {
			c.logger.Info("ending conversation due to inactivity")
			return
		}

		// Never capture while our own speech is playing.
		if c.speaker.Speaking() {
			if !c.sleep(ctx, c.cfg.PollInterval) {
				return
			}
			continue
		}

		if phase == PhaseAwaitingWake {
			select {
			case text := <-c.textIn:
				if !c.processTurn(ctx, text) {
					return
				}
			case <-wakeCh:
				c.logger.Info("wake word detected, resuming")
				c.mu.Lock()
				c.phase = PhaseListening
				c.lastSpeech = time.Now()
				c.mu.Unlock()
				c.speaker.SayStream(ctx, "I'm listening.")
			case <-time.After(c.cfg.PollInterval):
			case <-ctx.Done():
				return
			}
			continue
		}

		// Typed input takes priority over opening the microphone.
		select {
		case text := <-c.textIn:
			if !c.processTurn(ctx, text) {
				return
			}
			continue
		default:
		}

		result, err := c.rec.Listen(ctx, c.cfg.ListenFor, c.cfg.PhraseLimit)
		if err != nil {
			c.logger.Error("listen failed", zap.Error(err))
			if !c.sleep(ctx, c.cfg.ErrorPause) {
				return
			}
			continue
		}
		if result.Timeout {
			continue
		}
		if !c.processTurn(ctx, result.Text) {
			return
		}
	}
}

// processTurn runs one user turn with its own recover, so a panic in
// turn handling costs that turn but not the session. The outer recover
// in run remains the backstop for the loop itself.
func (c *Conversation) processTurn(ctx context.Context, text string) (cont bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("turn handling panicked", zap.Any("panic", r))
			c.sleep(ctx, c.cfg.ErrorPause)
			cont = true
		}
	}()
	return c.handleUserTurn(ctx, text)
}

// handleUserTurn processes one recognized or injected user message.
// Returns false when the turn ended the conversation.
func (c *Conversation) handleUserTurn(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}

	c.mu.Lock()
	c.phase = PhaseListening
	c.lastSpeech = time.Now()
	sessionID := c.sessionID
	c.mu.Unlock()

	if c.isExitPhrase(text) {
		c.logger.Info("exit phrase received")
		return false
	}

	c.logger.Info("processing user turn", zap.String("session", sessionID))
	env := c.proc.ProcessMessage(ctx, text, sessionID, map[string]any{"mode": "voice"})

	c.mu.Lock()
	c.sessionID = env.SessionID
	c.lastSpeech = time.Now()
	c.mu.Unlock()

	c.speaker.SayStream(ctx, env.Message)
	return true
}

// isExitPhrase checks the text against the exit list, case-insensitive
// exact match.
func (c *Conversation) isExitPhrase(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range c.cfg.ExitPhrases {
		if lower == strings.ToLower(phrase) {
			return true
		}
	}
	return false
}

// sleep waits for d or context cancellation, reporting false on cancel.
func (c *Conversation) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
