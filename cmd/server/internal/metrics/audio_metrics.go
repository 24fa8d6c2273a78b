package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SegmentsTotal counts transcribed audio segments.
	// Labels: stage (split/transcribe/reassemble), status (success/error)
	SegmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_audio_segments_total",
			Help: "Total number of audio segments processed by stage",
		},
		[]string{"stage", "status"},
	)

	// ErrorsTotal counts pipeline errors.
	// Labels: stage (split/transcribe/reassemble), error_code (AUDIO_TOO_LARGE/ASR_TIMEOUT/...)
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_audio_errors_total",
			Help: "Total number of audio pipeline errors by stage and error code",
		},
		[]string{"stage", "error_code"},
	)

	// DegradedMode reports whether the fallback transcriber is active (0=primary, 1=fallback).
	DegradedMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scribe_asr_degraded_mode",
			Help: "ASR degradation status (0=primary transcriber, 1=fallback)",
		},
	)

	// ProcessingDuration tracks per-stage wall time in seconds.
	// Buckets cover fast local splits up to multi-minute transcriptions.
	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_audio_processing_duration_seconds",
			Help:    "Audio pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)
)

// RecordSegmentProcessed records one finished segment for a stage.
func RecordSegmentProcessed(stage string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	SegmentsTotal.WithLabelValues(stage, status).Inc()
}

// RecordError records a pipeline error by stage and code.
func RecordError(stage, errorCode string) {
	ErrorsTotal.WithLabelValues(stage, errorCode).Inc()
}

// SetDegradedMode updates the degradation gauge.
func SetDegradedMode(degraded bool) {
	if degraded {
		DegradedMode.Set(1)
	} else {
		DegradedMode.Set(0)
	}
}

// RecordDuration records stage wall time in seconds.
func RecordDuration(stage string, durationSeconds float64) {
	ProcessingDuration.WithLabelValues(stage).Observe(durationSeconds)
}
