package asr

import (
	"context"

	"github.com/hysio/scribe-audio/cmd/server/internal/audio"
	"github.com/hysio/scribe-audio/pkg/logger"
)

// MockTranscriber is the degraded-mode fallback. It returns empty results
// without error so upload handling keeps working when the real backend is
// down; callers detect the empty transcript and surface a service notice.
type MockTranscriber struct{}

// NewMockTranscriber creates the fallback instance. It has no state.
func NewMockTranscriber() *MockTranscriber {
	return &MockTranscriber{}
}

// Transcribe returns an empty Result and logs a warning. It never fails, so
// a fully degraded system still answers requests instead of erroring out.
func (m *MockTranscriber) Transcribe(ctx context.Context, blob audio.Blob, opts *Options) (*Result, error) {
	logger.L().Warn("mock transcriber invoked, ASR backend unavailable",
		"audio_size", audio.FormatFileSize(blob.Size()),
	)
	return &Result{
		Segments: []ResultSegment{},
		Text:     "",
		Language: "unknown",
		Duration: 0,
	}, nil
}

// HealthCheck always reports unhealthy; the mock existing at all means the
// system is degraded.
func (m *MockTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	return false, nil
}

// Name identifies the fallback in logs and monitoring.
func (m *MockTranscriber) Name() string {
	return "mock-degraded"
}
