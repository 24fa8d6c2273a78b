package audio

import (
	"fmt"
	"strings"
)

// FileSizeExceeded reports whether a payload of the given size is over the
// single-upload ceiling of the transcription service. Pure and idempotent.
func FileSizeExceeded(size, limit int64) bool {
	return size > limit
}

// FormatFileSize renders a byte count as a human-scaled string for logging
// and API responses, e.g. "512 B", "1.5 KB", "30 MB".
func FormatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	value := float64(bytes)
	units := []string{"KB", "MB", "GB"}
	suffix := units[0]
	for _, u := range units {
		suffix = u
		value /= unit
		if value < unit {
			break
		}
	}

	formatted := strings.TrimSuffix(fmt.Sprintf("%.1f", value), ".0")
	return formatted + " " + suffix
}

// EstimateDuration returns the blob duration in seconds. WAV containers are
// read sample-accurately from the header; other formats fall back to a
// bitrate heuristic and report ok=false so callers can treat the value as
// approximate.
func EstimateDuration(blob Blob) (seconds float64, ok bool) {
	if info, err := parseWAV(blob.Data); err == nil {
		return info.duration(), true
	}

	rate := fallbackBytesPerSecond(blob.MIME)
	if rate <= 0 || len(blob.Data) == 0 {
		return 0, false
	}
	return float64(len(blob.Data)) / rate, false
}

// fallbackBytesPerSecond gives a rough byte rate for common compressed
// speech recordings when the container cannot be parsed.
func fallbackBytesPerSecond(mime string) float64 {
	switch normalizeMIME(mime) {
	case "audio/webm", "audio/ogg":
		return 12 * 1024 // Opus voice, ~96 kbps
	case "audio/mpeg", "audio/mp3", "audio/mp4", "audio/m4a", "audio/x-m4a":
		return 16 * 1024 // ~128 kbps
	default:
		return 0
	}
}

func normalizeMIME(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
