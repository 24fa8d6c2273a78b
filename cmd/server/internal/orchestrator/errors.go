package orchestrator

import (
	"fmt"
	"time"
)

// ErrorCode classifies audio pipeline failures for API responses, logs, and
// metrics labels.
type ErrorCode string

const (
	// AUDIO_TOO_LARGE marks an upload over the request size guard
	AUDIO_TOO_LARGE ErrorCode = "AUDIO_TOO_LARGE"

	// AUDIO_EMPTY marks a missing or zero-duration payload
	AUDIO_EMPTY ErrorCode = "AUDIO_EMPTY"

	// AUDIO_UNSUPPORTED marks a container format the segmenter cannot split
	AUDIO_UNSUPPORTED ErrorCode = "AUDIO_UNSUPPORTED"

	// SEGMENTATION_FAILED marks a corrupt input or failed split
	SEGMENTATION_FAILED ErrorCode = "SEGMENTATION_FAILED"

	// SEGMENT_FAILED marks one segment whose transcription failed after retries
	SEGMENT_FAILED ErrorCode = "SEGMENT_FAILED"

	// ASR_TIMEOUT marks a segment transcription exceeding its deadline
	ASR_TIMEOUT ErrorCode = "ASR_TIMEOUT"

	// ALL_SEGMENTS_FAILED marks a request where no segment produced text
	ALL_SEGMENTS_FAILED ErrorCode = "ALL_SEGMENTS_FAILED"
)

// PipelineError is the typed error surfaced by the audio pipeline.
type PipelineError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError creates a typed pipeline error.
func NewPipelineError(code ErrorCode, message string, cause error) *PipelineError {
	return &PipelineError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewAudioTooLargeError reports an upload over the request guard.
func NewAudioTooLargeError(size, limit int64) *PipelineError {
	msg := fmt.Sprintf("upload of %d bytes exceeds limit of %d bytes", size, limit)
	return NewPipelineError(AUDIO_TOO_LARGE, msg, nil)
}

// NewSegmentationError wraps a failed split.
func NewSegmentationError(cause error) *PipelineError {
	return NewPipelineError(SEGMENTATION_FAILED, "audio segmentation failed", cause)
}

// NewAllSegmentsFailedError reports a request with no usable transcript.
func NewAllSegmentsFailedError(total int, cause error) *PipelineError {
	msg := fmt.Sprintf("all %d segments failed transcription", total)
	return NewPipelineError(ALL_SEGMENTS_FAILED, msg, cause)
}
