package asr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hysio/scribe-audio/cmd/server/internal/audio"
	"github.com/hysio/scribe-audio/pkg/logger"
)

// RetryTranscriber wraps another Transcriber with bounded retries and a
// fixed backoff. Context cancellation and deadline expiry are not retried;
// the caller gave up, so retrying would only waste the backend's time.
type RetryTranscriber struct {
	inner      Transcriber
	maxRetries int
	backoff    time.Duration
}

// NewRetryTranscriber wraps inner with up to maxRetries additional attempts
// after the first failure.
func NewRetryTranscriber(inner Transcriber, maxRetries int, backoff time.Duration) *RetryTranscriber {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryTranscriber{
		inner:      inner,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Transcribe tries the inner transcriber up to 1+maxRetries times.
func (r *RetryTranscriber) Transcribe(ctx context.Context, blob audio.Blob, opts *Options) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			logger.L().Warn("retrying transcription",
				"transcriber", r.inner.Name(),
				"attempt", attempt+1,
				"error", lastErr.Error(),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff):
			}
		}

		result, err := r.inner.Transcribe(ctx, blob, opts)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("transcription failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

// HealthCheck delegates to the wrapped transcriber without retrying.
func (r *RetryTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	return r.inner.HealthCheck(ctx)
}

// Name reports the wrapped implementation's name so logs point at the real
// backend.
func (r *RetryTranscriber) Name() string {
	return r.inner.Name()
}
