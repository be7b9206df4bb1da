package voice

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// queueIdleExit is how long the speech worker waits on an empty queue
// before clearing the speaking flag and exiting.
const queueIdleExit = 500 * time.Millisecond

// Speaker wraps a Synthesizer with two modes: immediate blocking
// playback, and a streaming mode that splits text into sentence-sized
// chunks drained sequentially by a single worker goroutine. The speaking
// flag is held for the whole queue-draining session, not per chunk, so
// the conversation loop's "don't listen while speaking" check covers the
// entire utterance.
type Speaker struct {
	synth  Synthesizer
	queue  chan string
	mu     sync.Mutex
	active bool // worker running, speaking flag held
	logger *zap.Logger
}

// NewSpeaker creates a speaker over the given synthesizer.
func NewSpeaker(synth Synthesizer, logger *zap.Logger) *Speaker {
	return &Speaker{
		synth:  synth,
		queue:  make(chan string, 64),
		logger: logger,
	}
}

// Check probes the underlying synthesizer.
func (sp *Speaker) Check(ctx context.Context) error {
	return sp.synth.Check(ctx)
}

// Say synthesizes and plays the text immediately, blocking the caller
// until playback completes.
func (sp *Speaker) Say(ctx context.Context, text string) error {
	return sp.synth.Say(ctx, text)
}

// SayStream splits the text into sentences and enqueues them for the
// background worker, starting the worker if none is draining. It returns
// as soon as the chunks are queued.
func (sp *Speaker) SayStream(ctx context.Context, text string) {
	for _, sentence := range splitSentences(text) {
		select {
		case sp.queue <- sentence:
		case <-ctx.Done():
			return
		}
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()
	if !sp.active {
		sp.active = true
		// The worker outlives the enqueueing call: it serves every
		// stream until the queue idles out, so it must not inherit any
		// single caller's cancellation.
		go sp.worker(context.WithoutCancel(ctx))
	}
}

// Speaking reports whether a queue-draining session is in progress.
func (sp *Speaker) Speaking() bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.active
}

// worker drains the queue sequentially. Playback never overlaps: this is
// the only goroutine that dequeues.
func (sp *Speaker) worker(ctx context.Context) {
	defer func() {
		sp.mu.Lock()
		sp.active = false
		sp.mu.Unlock()
	}()

	for {
		select {
		case sentence := <-sp.queue:
			if err := sp.synth.Say(ctx, sentence); err != nil {
				sp.logger.Error("speech synthesis failed", zap.Error(err))
			}
		case <-time.After(queueIdleExit):
			return
		}
	}
}

// splitSentences breaks text after sentence-ending punctuation so the
// worker can start playback before the whole reply is synthesized.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				if s := strings.TrimSpace(b.String()); s != "" {
					sentences = append(sentences, s)
				}
				b.Reset()
			}
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
