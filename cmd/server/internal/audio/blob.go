// Package audio implements the size estimation and segmentation stage of the
// transcription pipeline. Oversized recordings are divided into an ordered,
// contiguous sequence of independently decodable segments, each small enough
// for a single upload to the speech-to-text service.
package audio

// Blob is an in-memory audio payload with its declared MIME type.
// A Blob is immutable once created; the segmenter never mutates its input.
type Blob struct {
	Data []byte
	MIME string
}

// Size returns the payload size in bytes.
func (b Blob) Size() int64 {
	return int64(len(b.Data))
}

// Segment is one slice of an original audio blob. Segments are contiguous
// and non-overlapping: segment[i].EndTime == segment[i+1].StartTime.
type Segment struct {
	// Index is 0-based and defines output ordering.
	Index int

	// Blob is the sliced audio content, independently decodable.
	Blob Blob

	// Size is the segment payload size in bytes.
	Size int64

	// StartTime and EndTime are seconds on the original audio timeline.
	StartTime float64
	EndTime   float64
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// SplitResult aggregates one segmentation run.
type SplitResult struct {
	// Segments is ordered by Index ascending.
	Segments []Segment

	// TotalDuration is the summed segment duration, equal to the source
	// duration.
	TotalDuration float64

	// TotalSize is the summed segment size in bytes.
	TotalSize int64
}
