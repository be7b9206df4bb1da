// Package voice drives the continuous conversation loop: capture speech,
// hand the transcript to the kernel, speak the reply, and manage the
// wake-word-gated pause states. Audio capture and synthesis live behind
// interfaces; OS-level audio is an external collaborator.
package voice

import (
	"context"
	"time"
)

// Transcript is the outcome of one listen attempt. A timeout is a normal
// result, not an error: control returns to the loop which listens again.
type Transcript struct {
	Text    string
	Timeout bool
}

// Recognizer captures one utterance and converts it to text. Listen
// blocks until speech, the listen timeout, or the phrase duration cap.
// Check probes microphone availability before entering voice mode.
type Recognizer interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (Transcript, error)
	Check(ctx context.Context) error
}

// Synthesizer converts text to audible speech. Say blocks until playback
// completes. Check probes engine availability.
type Synthesizer interface {
	Say(ctx context.Context, text string) error
	Check(ctx context.Context) error
}

// WakeDetector emits an event each time the wake phrase is heard. The
// detector runs its own capture loop; implementations may be absent
// (a nil detector leaves text injection as the only resume path).
type WakeDetector interface {
	Events() <-chan struct{}
}
