package voice

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// ConsoleSynthesizer writes speech to a writer instead of an audio
// device. Used when no TTS engine is available so the conversation loop
// still produces visible output.
type ConsoleSynthesizer struct {
	out    io.Writer
	logger *zap.Logger
}

func NewConsoleSynthesizer(out io.Writer, logger *zap.Logger) *ConsoleSynthesizer {
	return &ConsoleSynthesizer{out: out, logger: logger}
}

func (cs *ConsoleSynthesizer) Say(_ context.Context, text string) error {
	_, err := fmt.Fprintf(cs.out, "[skai] %s\n", text)
	return err
}

func (cs *ConsoleSynthesizer) Check(context.Context) error { return nil }

// SilentRecognizer is a microphone-less recognizer: every listen waits
// out the timeout and reports silence. With it installed, injected text
// is the conversation's only input path.
type SilentRecognizer struct{}

func (SilentRecognizer) Listen(ctx context.Context, timeout, _ time.Duration) (Transcript, error) {
	select {
	case <-ctx.Done():
		return Transcript{}, ctx.Err()
	case <-time.After(timeout):
		return Transcript{Timeout: true}, nil
	}
}

func (SilentRecognizer) Check(context.Context) error { return nil }
