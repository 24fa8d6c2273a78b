package audio

import (
	"math"
	"testing"
)

func TestFileSizeExceeded(t *testing.T) {
	const limit = 25 * 1024 * 1024

	tests := []struct {
		name string
		size int64
		want bool
	}{
		{"under limit", 10 * 1024 * 1024, false},
		{"exactly at limit", limit, false},
		{"over limit", 30 * 1024 * 1024, true},
		{"zero", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileSizeExceeded(tt.size, limit); got != tt.want {
				t.Errorf("FileSizeExceeded(%d) = %v, want %v", tt.size, got, tt.want)
			}
			// Pure function: a second call must agree.
			if got := FileSizeExceeded(tt.size, limit); got != tt.want {
				t.Errorf("FileSizeExceeded(%d) not idempotent", tt.size)
			}
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{30 * 1024 * 1024, "30 MB"},
		{int64(2.5 * 1024 * 1024 * 1024), "2.5 GB"},
	}

	for _, tt := range tests {
		if got := FormatFileSize(tt.bytes); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
		// Idempotence.
		if got := FormatFileSize(tt.bytes); got != tt.want {
			t.Errorf("FormatFileSize(%d) not idempotent", tt.bytes)
		}
	}
}

func TestEstimateDurationWAV(t *testing.T) {
	blob := makeTestWAV(t, 12.0, 16000)

	seconds, exact := EstimateDuration(blob)
	if !exact {
		t.Error("expected exact duration for WAV input")
	}
	if math.Abs(seconds-12.0) > 0.001 {
		t.Errorf("duration = %f, want 12.0", seconds)
	}
}

func TestEstimateDurationHeuristic(t *testing.T) {
	blob := Blob{Data: make([]byte, 120*1024), MIME: "audio/webm"}

	seconds, exact := EstimateDuration(blob)
	if exact {
		t.Error("webm estimate must not claim exactness")
	}
	if seconds <= 0 {
		t.Errorf("duration = %f, want positive estimate", seconds)
	}
}

func TestEstimateDurationUnknown(t *testing.T) {
	blob := Blob{Data: []byte("junk"), MIME: "application/octet-stream"}

	seconds, exact := EstimateDuration(blob)
	if exact || seconds != 0 {
		t.Errorf("EstimateDuration(unknown) = %f, %v; want 0, false", seconds, exact)
	}
}
