package voice

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// recordSynth records spoken sentences and can simulate playback time.
type recordSynth struct {
	mu     sync.Mutex
	spoken []string
	delay  time.Duration
	err    error
}

func (rs *recordSynth) Say(_ context.Context, text string) error {
	if rs.delay > 0 {
		time.Sleep(rs.delay)
	}
	rs.mu.Lock()
	rs.spoken = append(rs.spoken, text)
	rs.mu.Unlock()
	return rs.err
}

func (rs *recordSynth) Check(context.Context) error { return nil }

func (rs *recordSynth) all() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	cp := make([]string, len(rs.spoken))
	copy(cp, rs.spoken)
	return cp
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSayStreamSpeaksInOrder(t *testing.T) {
	synth := &recordSynth{}
	sp := NewSpeaker(synth, zap.NewNop())

	sp.SayStream(context.Background(), "First thing. Second thing! Third?")

	waitFor(t, 2*time.Second, func() bool { return len(synth.all()) == 3 })
	want := []string{"First thing.", "Second thing!", "Third?"}
	if got := synth.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSpeakingCoversWholeDrain(t *testing.T) {
	synth := &recordSynth{delay: 30 * time.Millisecond}
	sp := NewSpeaker(synth, zap.NewNop())

	sp.SayStream(context.Background(), "One. Two. Three.")
	if !sp.Speaking() {
		t.Fatal("expected speaking flag set right after enqueue")
	}

	// Mid-drain the flag must still be held.
	time.Sleep(45 * time.Millisecond)
	if !sp.Speaking() {
		t.Error("expected speaking flag held while queue drains")
	}

	waitFor(t, 3*time.Second, func() bool { return !sp.Speaking() })
	if len(synth.all()) != 3 {
		t.Errorf("expected all sentences played, got %v", synth.all())
	}
}

func TestSayStreamReusesWorker(t *testing.T) {
	synth := &recordSynth{}
	sp := NewSpeaker(synth, zap.NewNop())

	sp.SayStream(context.Background(), "Alpha.")
	sp.SayStream(context.Background(), "Beta.")

	waitFor(t, 2*time.Second, func() bool { return len(synth.all()) == 2 })
}

func TestWorkerOutlivesCallerContext(t *testing.T) {
	synth := &recordSynth{delay: 20 * time.Millisecond}
	sp := NewSpeaker(synth, zap.NewNop())

	// The first stream's context dies right after enqueueing; later
	// streams ride the same worker and must still play.
	ctx, cancel := context.WithCancel(context.Background())
	sp.SayStream(ctx, "First thing.")
	cancel()

	sp.SayStream(context.Background(), "Second thing.")

	waitFor(t, 2*time.Second, func() bool { return len(synth.all()) == 2 })
	want := []string{"First thing.", "Second thing."}
	if got := synth.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSayImmediate(t *testing.T) {
	synth := &recordSynth{}
	sp := NewSpeaker(synth, zap.NewNop())

	if err := sp.Say(context.Background(), "right now"); err != nil {
		t.Fatalf("say: %v", err)
	}
	if got := synth.all(); len(got) != 1 || got[0] != "right now" {
		t.Errorf("expected immediate playback, got %v", got)
	}
}

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Hello there. How are you?", []string{"Hello there.", "How are you?"}},
		{"No terminal punctuation", []string{"No terminal punctuation"}},
		{"Pi is 3.14 roughly. Yes!", []string{"Pi is 3.14 roughly.", "Yes!"}},
		{"One!", []string{"One!"}},
	}
	for _, tc := range cases {
		if got := splitSentences(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitSentences(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
