// Package asr abstracts speech-to-text services behind a common interface.
// It defines the transcriber contract plus data structures shared by the
// HTTP implementation, the retry wrapper, and the mock fallback.
package asr

import (
	"context"
	"time"

	"github.com/hysio/scribe-audio/cmd/server/internal/audio"
)

// ResultSegment is a single timed span of transcribed speech.
type ResultSegment struct {
	// ID is the sequential identifier of this span within the transcription
	ID int `json:"id"`

	// Start is the beginning time in seconds from the audio start
	Start float64 `json:"start"`

	// End is the ending time in seconds from the audio start
	End float64 `json:"end"`

	// Text is the transcribed content of this span
	Text string `json:"text"`
}

// Result is the complete output of one transcription call.
type Result struct {
	// Text is the full transcribed text
	Text string `json:"text"`

	// Segments lists the timed spans, when the backend provides them
	Segments []ResultSegment `json:"segments,omitempty"`

	// Language is the detected or requested language code (e.g. "nl", "en")
	Language string `json:"language"`

	// Duration is the audio duration in seconds as reported by the backend
	Duration float64 `json:"duration"`
}

// Transcriber is the contract every speech-to-text backend implements.
// Concrete implementations (GroqTranscriber, RetryTranscriber,
// MockTranscriber) are interchangeable from the orchestrator's point of
// view, which is what lets the degradation controller swap them at runtime.
//
// Implementations must respect context cancellation and deadline, wrap
// external errors with context, and treat an empty transcription as a valid
// Result rather than an error.
type Transcriber interface {
	// Transcribe converts the audio blob to text. The blob is expected to be
	// a self-contained decodable file (16 kHz mono PCM WAV preferred).
	Transcribe(ctx context.Context, blob audio.Blob, opts *Options) (*Result, error)

	// HealthCheck reports whether the backend is reachable and ready.
	// It should complete quickly; callers pass a short-deadline context.
	HealthCheck(ctx context.Context) (bool, error)

	// Name identifies the implementation for logging and monitoring.
	Name() string
}

// Options carries optional per-request transcription parameters.
// Zero values mean "use the implementation default".
type Options struct {
	// Model selects the backend model (e.g. "whisper-large-v3").
	Model string

	// Language forces a transcription language (ISO 639-1 code).
	// Empty means auto-detect.
	Language string

	// Prompt supplies domain context to steer the model, useful for
	// clinical terminology.
	Prompt string

	// Temperature controls sampling; 0 keeps output deterministic and
	// reduces hallucinated repetitions.
	Temperature float64

	// Timeout overrides the default per-request deadline.
	Timeout time.Duration
}
