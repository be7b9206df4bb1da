package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sky-ai/skai/internal/kernel"
	"go.uber.org/zap"
)

// fakeProcessor echoes the message back and pins a fixed session id.
type fakeProcessor struct {
	mu       sync.Mutex
	messages []string
}

func (fp *fakeProcessor) ProcessMessage(_ context.Context, message, _ string, _ map[string]any) *kernel.Envelope {
	fp.mu.Lock()
	fp.messages = append(fp.messages, message)
	fp.mu.Unlock()
	return &kernel.Envelope{
		Message:   "you said: " + message,
		SessionID: "session_1_voice",
	}
}

func (fp *fakeProcessor) received() []string {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	cp := make([]string, len(fp.messages))
	copy(cp, fp.messages)
	return cp
}

// brokenRecognizer fails its availability check.
type brokenRecognizer struct{}

func (brokenRecognizer) Listen(context.Context, time.Duration, time.Duration) (Transcript, error) {
	return Transcript{}, errors.New("no device")
}

func (brokenRecognizer) Check(context.Context) error { return errors.New("no microphone") }

func testConfig(idle time.Duration) Config {
	cfg := DefaultConfig()
	cfg.IdleTimeout = idle
	cfg.ListenFor = 20 * time.Millisecond
	cfg.PollInterval = 5 * time.Millisecond
	cfg.ErrorPause = 5 * time.Millisecond
	cfg.Greeting = "Hi."
	return cfg
}

func newTestConversation(t *testing.T, idle time.Duration) (*Conversation, *fakeProcessor, *recordSynth) {
	t.Helper()
	proc := &fakeProcessor{}
	synth := &recordSynth{}
	sp := NewSpeaker(synth, zap.NewNop())
	conv := NewConversation(testConfig(idle), proc, SilentRecognizer{}, sp, nil, zap.NewNop())
	return conv, proc, synth
}

func TestConversationTurn(t *testing.T) {
	conv, proc, synth := newTestConversation(t, 10*time.Second)
	if err := conv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer conv.Stop()

	waitFor(t, 2*time.Second, func() bool { return conv.Inject("hello") })
	waitFor(t, 2*time.Second, func() bool { return len(proc.received()) == 1 })

	if proc.received()[0] != "hello" {
		t.Errorf("unexpected message: %v", proc.received())
	}

	// The reply is spoken and the kernel's session id sticks.
	waitFor(t, 2*time.Second, func() bool {
		for _, s := range synth.all() {
			if s == "you said: hello" {
				return true
			}
		}
		return false
	})
	waitFor(t, 2*time.Second, func() bool { return conv.Snapshot().SessionID == "session_1_voice" })
}

func TestConversationExitPhrase(t *testing.T) {
	conv, proc, _ := newTestConversation(t, 10*time.Second)
	if err := conv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return conv.Inject("Exit Conversation") })
	waitFor(t, 2*time.Second, func() bool { return conv.Phase() == PhaseEnded })

	// Exit phrases never reach the kernel.
	if len(proc.received()) != 0 {
		t.Errorf("expected no kernel turns, got %v", proc.received())
	}
}

func TestConversationIdleEndsAfterDoubleTimeout(t *testing.T) {
	conv, _, synth := newTestConversation(t, 100*time.Millisecond)
	if err := conv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Silence for T: paused awaiting the wake word, with a spoken prompt.
	waitFor(t, 2*time.Second, func() bool { return conv.Phase() == PhaseAwaitingWake })
	waitFor(t, 2*time.Second, func() bool {
		for _, s := range synth.all() {
			if len(s) > 0 && s != "Hi." {
				return true
			}
		}
		return false
	})

	// Silence for another 2T: conversation over.
	waitFor(t, 3*time.Second, func() bool { return conv.Phase() == PhaseEnded })
}

func TestConversationInjectResumesFromPause(t *testing.T) {
	conv, proc, _ := newTestConversation(t, 700*time.Millisecond)
	if err := conv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer conv.Stop()

	waitFor(t, 3*time.Second, func() bool { return conv.Phase() == PhaseAwaitingWake })
	if !conv.Inject("still here") {
		t.Fatal("expected injection to be accepted while paused")
	}

	waitFor(t, 3*time.Second, func() bool { return len(proc.received()) == 1 })
	waitFor(t, 3*time.Second, func() bool { return conv.Phase() == PhaseListening })
}

func TestConversationWakeWordResumes(t *testing.T) {
	proc := &fakeProcessor{}
	synth := &recordSynth{}
	sp := NewSpeaker(synth, zap.NewNop())
	wakeCh := make(chan struct{}, 1)
	conv := NewConversation(testConfig(700*time.Millisecond), proc, SilentRecognizer{}, sp, fakeWake(wakeCh), zap.NewNop())

	if err := conv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer conv.Stop()

	waitFor(t, 3*time.Second, func() bool { return conv.Phase() == PhaseAwaitingWake })
	wakeCh <- struct{}{}
	waitFor(t, 3*time.Second, func() bool { return conv.Phase() == PhaseListening })
}

// fakeWake adapts a raw channel to the WakeDetector interface.
type fakeWake <-chan struct{}

func (f fakeWake) Events() <-chan struct{} { return f }

func TestStartRejectsReentry(t *testing.T) {
	conv, _, _ := newTestConversation(t, 10*time.Second)
	if err := conv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer conv.Stop()

	if err := conv.Start(context.Background()); err == nil {
		t.Error("expected second start to fail while active")
	}
}

// gateRecognizer parks availability checks until released, widening the
// window between a Start call's hardware checks and its phase commit.
type gateRecognizer struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gateRecognizer) Check(ctx context.Context) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gateRecognizer) Listen(ctx context.Context, timeout, _ time.Duration) (Transcript, error) {
	select {
	case <-time.After(timeout):
		return Transcript{Timeout: true}, nil
	case <-ctx.Done():
		return Transcript{}, ctx.Err()
	}
}

func TestStartConcurrentSingleWinner(t *testing.T) {
	rec := &gateRecognizer{entered: make(chan struct{}), release: make(chan struct{})}
	sp := NewSpeaker(&recordSynth{}, zap.NewNop())
	conv := NewConversation(testConfig(10*time.Second), &fakeProcessor{}, rec, sp, nil, zap.NewNop())
	defer conv.Stop()

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- conv.Start(context.Background()) }()
	}

	// Both callers are past the initial phase check before either can
	// commit the transition.
	<-rec.entered
	<-rec.entered
	close(rec.release)

	var started, rejected int
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			rejected++
		} else {
			started++
		}
	}
	if started != 1 || rejected != 1 {
		t.Fatalf("expected exactly one start to win, got %d started and %d rejected", started, rejected)
	}
}

// panicOnceProcessor blows up on its first turn, then echoes normally.
type panicOnceProcessor struct {
	fakeProcessor
	once sync.Once
}

func (pp *panicOnceProcessor) ProcessMessage(ctx context.Context, message, sessionID string, metadata map[string]any) *kernel.Envelope {
	first := false
	pp.once.Do(func() { first = true })
	if first {
		panic("completion blew up")
	}
	return pp.fakeProcessor.ProcessMessage(ctx, message, sessionID, metadata)
}

func TestTurnPanicKeepsSessionAlive(t *testing.T) {
	proc := &panicOnceProcessor{}
	sp := NewSpeaker(&recordSynth{}, zap.NewNop())
	conv := NewConversation(testConfig(10*time.Second), proc, SilentRecognizer{}, sp, nil, zap.NewNop())

	if err := conv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer conv.Stop()

	waitFor(t, 2*time.Second, func() bool { return conv.Inject("boom") })
	waitFor(t, 2*time.Second, func() bool { return conv.Inject("hello") })

	// The first turn panics inside the processor; the session absorbs it
	// and delivers the next turn.
	waitFor(t, 2*time.Second, func() bool { return len(proc.received()) == 1 })
	if got := proc.received(); got[0] != "hello" {
		t.Errorf("unexpected message after recovered turn: %v", got)
	}
	if conv.Phase() == PhaseEnded {
		t.Error("conversation ended after a panicking turn")
	}
}

func TestStartFailsWithoutMicrophone(t *testing.T) {
	proc := &fakeProcessor{}
	sp := NewSpeaker(&recordSynth{}, zap.NewNop())
	conv := NewConversation(testConfig(time.Second), proc, brokenRecognizer{}, sp, nil, zap.NewNop())

	if err := conv.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail with broken recognizer")
	}
	if conv.Phase() != PhaseIdle {
		t.Errorf("expected idle phase after failed start, got %q", conv.Phase())
	}
}

func TestInjectInactive(t *testing.T) {
	conv, _, _ := newTestConversation(t, time.Second)

	if conv.Inject("hello") {
		t.Error("expected injection rejected before start")
	}
}

func TestStopEndsLoop(t *testing.T) {
	conv, _, _ := newTestConversation(t, 10*time.Second)
	if err := conv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	conv.Stop()
	waitFor(t, 2*time.Second, func() bool { return conv.Phase() == PhaseEnded })
}
