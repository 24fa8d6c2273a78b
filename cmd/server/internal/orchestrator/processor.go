// Package orchestrator drives the audio pipeline: split oversized uploads
// into bounded segments, transcribe them concurrently, and reassemble the
// per-segment transcripts into one ordered document.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hysio/scribe-audio/cmd/server/internal/asr"
	"github.com/hysio/scribe-audio/cmd/server/internal/audio"
	"github.com/hysio/scribe-audio/cmd/server/internal/metrics"
	"github.com/hysio/scribe-audio/pkg/logger"
)

// TranscriberSource supplies the transcriber for each request. The
// degradation controller implements this; StaticSource covers setups
// without health-based switching.
type TranscriberSource interface {
	GetTranscriber() asr.Transcriber
	IsDegraded() bool
}

// StaticSource is a TranscriberSource pinned to one transcriber.
type StaticSource struct {
	T asr.Transcriber
}

func (s StaticSource) GetTranscriber() asr.Transcriber { return s.T }
func (s StaticSource) IsDegraded() bool                { return false }

// SegmentOutcome records the result of transcribing one segment.
type SegmentOutcome struct {
	// Index is the zero-based segment position
	Index int `json:"index"`

	// Text is the transcribed content, empty when Err is set
	Text string `json:"text"`

	// Duration is the segment length in seconds, taken from the segmenter
	Duration float64 `json:"duration"`

	// Err is the transcription failure for this segment, nil on success
	Err error `json:"-"`
}

// ProcessingResult is the reassembled output of one pipeline run.
type ProcessingResult struct {
	// Transcript is the ordered per-segment texts joined by blank lines,
	// with failed segments replaced by readable placeholders
	Transcript string `json:"transcript"`

	// TotalDuration is the audio duration in seconds, summed from the
	// segmenter's authoritative segment spans
	TotalDuration float64 `json:"total_duration"`

	// Segmented is true when the input was split into more than one piece
	Segmented bool `json:"segmented"`

	// SegmentCount is the number of segments processed
	SegmentCount int `json:"segment_count"`

	// FailedSegments lists the 1-based labels of segments whose
	// transcription failed
	FailedSegments []int `json:"failed_segments,omitempty"`

	// Errors holds one readable failure description per failed segment,
	// prefixed with the segment's 1-based label
	Errors []string `json:"errors,omitempty"`

	// Transcriber names the backend that served this request
	Transcriber string `json:"transcriber"`

	// Degraded is true when the fallback transcriber served this request
	Degraded bool `json:"degraded"`

	// Outcomes holds the per-segment details in index order
	Outcomes []SegmentOutcome `json:"-"`
}

// Processor coordinates splitting, concurrent transcription, and ordered
// reassembly. Concurrency is bounded by a weighted semaphore; segment order
// in the output never depends on completion order.
type Processor struct {
	splitter       *audio.Splitter
	source         TranscriberSource
	maxConcurrent  int64
	segmentTimeout time.Duration
}

// NewProcessor creates a Processor. maxConcurrent bounds in-flight
// transcriptions; segmentTimeout is the per-segment deadline.
func NewProcessor(splitter *audio.Splitter, source TranscriberSource, maxConcurrent int, segmentTimeout time.Duration) *Processor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Processor{
		splitter:       splitter,
		source:         source,
		maxConcurrent:  int64(maxConcurrent),
		segmentTimeout: segmentTimeout,
	}
}

// Process runs the full pipeline for one upload. Segmentation failures are
// fatal. Individual segment failures are tolerated: the failed span is
// replaced by a placeholder and listed in FailedSegments. When every
// segment fails the whole request fails. Context cancellation aborts the
// run and is returned as-is, not converted into segment failures.
func (p *Processor) Process(ctx context.Context, blob audio.Blob, opts *asr.Options) (*ProcessingResult, error) {
	splitStart := time.Now()
	split, err := p.splitter.Split(ctx, blob)
	if err != nil {
		code := classifySplitError(err)
		metrics.RecordError("split", string(code))
		return nil, NewPipelineError(code, "audio segmentation failed", err)
	}
	metrics.RecordDuration("split", time.Since(splitStart).Seconds())
	metrics.RecordSegmentProcessed("split", true)

	transcriber := p.source.GetTranscriber()
	logger.L().Info("processing audio",
		"segments", len(split.Segments),
		"total_duration", split.TotalDuration,
		"total_size", audio.FormatFileSize(split.TotalSize),
		"transcriber", transcriber.Name(),
	)

	outcomes := make([]SegmentOutcome, len(split.Segments))
	sem := semaphore.NewWeighted(p.maxConcurrent)
	var wg sync.WaitGroup

	for i := range split.Segments {
		seg := split.Segments[i]

		if err := sem.Acquire(ctx, 1); err != nil {
			// Context ended while waiting; remaining segments are not
			// started and the cancellation surfaces below.
			outcomes[seg.Index] = SegmentOutcome{Index: seg.Index, Duration: seg.Duration(), Err: err}
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			outcomes[seg.Index] = p.transcribeSegment(ctx, transcriber, seg, opts)
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	return p.reassemble(split, outcomes, transcriber.Name())
}

// transcribeSegment runs one segment under the per-segment deadline.
func (p *Processor) transcribeSegment(ctx context.Context, t asr.Transcriber, seg audio.Segment, opts *asr.Options) SegmentOutcome {
	segCtx, cancel := context.WithTimeout(ctx, p.segmentTimeout)
	defer cancel()

	start := time.Now()
	result, err := t.Transcribe(segCtx, seg.Blob, opts)
	elapsed := time.Since(start)

	outcome := SegmentOutcome{Index: seg.Index, Duration: seg.Duration()}
	if err != nil {
		code := SEGMENT_FAILED
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			code = ASR_TIMEOUT
		}
		outcome.Err = err
		metrics.RecordSegmentProcessed("transcribe", false)
		metrics.RecordError("transcribe", string(code))
		logger.LogSegmentProcessing(logger.L(), "transcribe", "error", seg.Index, elapsed.Milliseconds(), string(code))
		return outcome
	}

	outcome.Text = strings.TrimSpace(result.Text)
	metrics.RecordSegmentProcessed("transcribe", true)
	metrics.RecordDuration("transcribe", elapsed.Seconds())
	logger.LogSegmentProcessing(logger.L(), "transcribe", "success", seg.Index, elapsed.Milliseconds(), "")
	return outcome
}

// reassemble joins the per-segment texts in index order. Failed segments
// get a readable placeholder carrying their 1-based label so clinicians see
// where the gap is in the transcript.
func (p *Processor) reassemble(split *audio.SplitResult, outcomes []SegmentOutcome, transcriberName string) (*ProcessingResult, error) {
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })

	var (
		parts    = make([]string, 0, len(outcomes))
		failed   []int
		failures []string
		first    error
	)
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			parts = append(parts, fmt.Sprintf("[Error processing segment %d]", outcome.Index+1))
			failed = append(failed, outcome.Index+1)
			failures = append(failures, fmt.Sprintf("segment %d: %v", outcome.Index+1, outcome.Err))
			if first == nil {
				first = outcome.Err
			}
			continue
		}
		parts = append(parts, outcome.Text)
	}

	if len(failed) == len(outcomes) {
		metrics.RecordError("reassemble", string(ALL_SEGMENTS_FAILED))
		return nil, NewAllSegmentsFailedError(len(outcomes), first)
	}

	transcript := strings.Join(parts, "\n\n")

	// An all-empty transcript is not a usable response. The degraded
	// fallback is exempt: it answers with empty text on purpose so requests
	// keep flowing while the backend is down.
	if strings.TrimSpace(transcript) == "" && !p.source.IsDegraded() {
		metrics.RecordError("reassemble", string(ALL_SEGMENTS_FAILED))
		return nil, NewPipelineError(ALL_SEGMENTS_FAILED, "combined transcript is empty", first)
	}

	if len(failed) > 0 {
		logger.L().Warn("partial transcription failure",
			"failed_segments", failed,
			"total_segments", len(outcomes),
		)
	}

	metrics.RecordSegmentProcessed("reassemble", true)
	return &ProcessingResult{
		Transcript:     transcript,
		TotalDuration:  split.TotalDuration,
		Segmented:      len(outcomes) > 1,
		SegmentCount:   len(outcomes),
		FailedSegments: failed,
		Errors:         failures,
		Transcriber:    transcriberName,
		Degraded:       p.source.IsDegraded(),
		Outcomes:       outcomes,
	}, nil
}

func classifySplitError(err error) ErrorCode {
	switch {
	case errors.Is(err, audio.ErrEmptyAudio):
		return AUDIO_EMPTY
	case errors.Is(err, audio.ErrUnsupportedFormat):
		return AUDIO_UNSUPPORTED
	default:
		return SEGMENTATION_FAILED
	}
}
