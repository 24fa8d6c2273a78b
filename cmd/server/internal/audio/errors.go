package audio

import "errors"

// Segmentation failures are fatal for the request: either the whole input
// splits cleanly or no segments are produced.
var (
	// ErrEmptyAudio marks a missing or zero-duration payload.
	ErrEmptyAudio = errors.New("audio: empty or zero-duration input")

	// ErrUnsupportedFormat marks a container the segmenter cannot split.
	ErrUnsupportedFormat = errors.New("audio: unsupported audio format")

	// ErrUndecodable marks corrupt input or a failed decode/re-encode.
	ErrUndecodable = errors.New("audio: input could not be decoded")
)
