package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// Re-encode target for compressed sources: 16 kHz mono 16-bit PCM, the same
// parameters the transcription models are trained on.
const (
	splitSampleRate     = 16000
	splitBytesPerSecond = splitSampleRate * 2
)

// commandRunner abstracts ffmpeg execution so tests can stub it.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Splitter divides oversized audio blobs into bounded-size segments.
//
// PCM WAV input is sliced natively at sample-frame boundaries with rewritten
// RIFF headers, so each segment is a valid standalone WAV file. Compressed
// containers cannot be byte-sliced safely and are cut with ffmpeg instead,
// re-encoding each piece to PCM WAV.
//
// Splitting is deterministic: the same input always yields the same segment
// boundaries.
type Splitter struct {
	maxSegmentBytes int64
	marginBytes     int64
	ffmpegPath      string
	cmd             commandRunner
}

// SplitterOption configures a Splitter.
type SplitterOption func(*Splitter)

// WithCommandRunner replaces the ffmpeg command runner, used by tests.
func WithCommandRunner(r commandRunner) SplitterOption {
	return func(s *Splitter) {
		s.cmd = r
	}
}

// NewSplitter creates a Splitter. maxSegmentBytes is the upload ceiling of
// the transcription service; marginBytes is headroom kept under it per
// segment for container overhead.
func NewSplitter(maxSegmentBytes, marginBytes int64, ffmpegPath string, opts ...SplitterOption) *Splitter {
	s := &Splitter{
		maxSegmentBytes: maxSegmentBytes,
		marginBytes:     marginBytes,
		ffmpegPath:      ffmpegPath,
		cmd:             osCommandRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split divides the blob into an ordered, contiguous, gap-free segment
// sequence with every segment at or below the configured ceiling. Input
// already under the ceiling yields a single segment spanning the whole blob.
// On any failure no partial segment list is returned.
func (s *Splitter) Split(ctx context.Context, blob Blob) (*SplitResult, error) {
	if blob.Size() == 0 {
		return nil, ErrEmptyAudio
	}

	if info, err := parseWAV(blob.Data); err == nil {
		if info.isPCM() {
			return s.splitPCM(blob, info)
		}
		// Non-PCM WAV (e.g. ADPCM) goes through the decode path.
		return s.splitCompressed(ctx, blob)
	}

	switch normalizeMIME(blob.MIME) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		// Declared WAV but the header did not parse.
		return nil, fmt.Errorf("%w: malformed WAV container", ErrUndecodable)
	case "audio/webm", "audio/ogg", "audio/mpeg", "audio/mp3",
		"audio/mp4", "audio/m4a", "audio/x-m4a", "audio/flac":
		return s.splitCompressed(ctx, blob)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, blob.MIME)
	}
}

// payloadLimit returns the largest per-segment audio payload that keeps the
// finished segment (payload plus WAV header) under the ceiling with margin.
func (s *Splitter) payloadLimit() int64 {
	return s.maxSegmentBytes - s.marginBytes - wavHeaderSize
}

// splitPCM slices the WAV data chunk at sample-frame boundaries. Segment
// count is the minimum that fits the ceiling; bytes are distributed evenly
// so segments come out near-equal rather than one full and one remainder.
func (s *Splitter) splitPCM(blob Blob, info *wavInfo) (*SplitResult, error) {
	if info.dataSize == 0 || info.duration() == 0 {
		return nil, ErrEmptyAudio
	}

	limit := s.payloadLimit()
	if limit <= 0 {
		return nil, fmt.Errorf("audio: segment ceiling %d too small for margin %d", s.maxSegmentBytes, s.marginBytes)
	}

	if !FileSizeExceeded(blob.Size(), s.maxSegmentBytes) {
		return &SplitResult{
			Segments: []Segment{{
				Index:     0,
				Blob:      blob,
				Size:      blob.Size(),
				StartTime: 0,
				EndTime:   info.duration(),
			}},
			TotalDuration: info.duration(),
			TotalSize:     blob.Size(),
		}, nil
	}

	align := int64(info.blockAlign)
	maxPayload := limit - limit%align
	if maxPayload <= 0 {
		return nil, fmt.Errorf("audio: segment ceiling too small for frame size %d", align)
	}

	dataSize := int64(info.dataSize)
	count := (dataSize + maxPayload - 1) / maxPayload
	perSegment := (dataSize + count - 1) / count
	if rem := perSegment % align; rem != 0 {
		perSegment += align - rem
	}

	result := &SplitResult{Segments: make([]Segment, 0, count)}
	data := blob.Data[info.dataOffset : info.dataOffset+info.dataSize]
	byteRate := float64(info.byteRate)

	for offset := int64(0); offset < dataSize; offset += perSegment {
		end := offset + perSegment
		if end > dataSize {
			end = dataSize
		}
		payload := data[offset:end]

		segData := make([]byte, 0, wavHeaderSize+len(payload))
		segData = append(segData, encodeWAVHeader(info, len(payload))...)
		segData = append(segData, payload...)

		endTime := float64(end) / byteRate
		if end == dataSize {
			endTime = info.duration()
		}

		result.Segments = append(result.Segments, Segment{
			Index:     len(result.Segments),
			Blob:      Blob{Data: segData, MIME: "audio/wav"},
			Size:      int64(len(segData)),
			StartTime: float64(offset) / byteRate,
			EndTime:   endTime,
		})
	}

	for _, seg := range result.Segments {
		result.TotalSize += seg.Size
	}
	result.TotalDuration = info.duration()
	return result, nil
}

// splitCompressed cuts a compressed container with ffmpeg, re-encoding each
// piece to 16 kHz mono PCM WAV so every segment decodes on its own. Input
// already under the ceiling is passed through whole, without touching
// ffmpeg; only the timeline is estimated.
func (s *Splitter) splitCompressed(ctx context.Context, blob Blob) (*SplitResult, error) {
	if !FileSizeExceeded(blob.Size(), s.maxSegmentBytes) {
		duration, _ := EstimateDuration(blob)
		return &SplitResult{
			Segments: []Segment{{
				Index:     0,
				Blob:      blob,
				Size:      blob.Size(),
				StartTime: 0,
				EndTime:   duration,
			}},
			TotalDuration: duration,
			TotalSize:     blob.Size(),
		}, nil
	}

	tempDir, err := os.MkdirTemp("", "scribe-split-*")
	if err != nil {
		return nil, fmt.Errorf("audio: create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	inputPath := filepath.Join(tempDir, "input"+extensionForMIME(blob.MIME))
	if err := os.WriteFile(inputPath, blob.Data, 0o600); err != nil {
		return nil, fmt.Errorf("audio: stage input: %w", err)
	}

	duration, err := s.probeDuration(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if duration <= 0 {
		return nil, ErrEmptyAudio
	}

	// Each re-encoded segment grows at splitBytesPerSecond, so the ceiling
	// translates directly into a duration cap.
	maxSegDuration := float64(s.payloadLimit()) / splitBytesPerSecond
	if maxSegDuration <= 0 {
		return nil, fmt.Errorf("audio: segment ceiling %d too small for margin %d", s.maxSegmentBytes, s.marginBytes)
	}

	count := int64(math.Ceil(duration / maxSegDuration))
	if count < 1 {
		count = 1
	}

	result := &SplitResult{Segments: make([]Segment, 0, count)}
	for i := int64(0); i < count; i++ {
		start := duration * float64(i) / float64(count)
		end := duration * float64(i+1) / float64(count)

		segPath := filepath.Join(tempDir, fmt.Sprintf("segment_%04d.wav", i))
		args := []string{
			"-y",
			"-i", inputPath,
			"-ss", formatFFmpegTime(start),
			"-to", formatFFmpegTime(end),
			"-ar", strconv.Itoa(splitSampleRate),
			"-ac", "1",
			"-c:a", "pcm_s16le",
			segPath,
		}
		if output, err := s.cmd.CombinedOutput(ctx, s.ffmpegPath, args); err != nil {
			return nil, fmt.Errorf("%w: ffmpeg segment %d failed: %v: %s", ErrUndecodable, i, err, string(output))
		}

		segData, err := os.ReadFile(segPath)
		if err != nil {
			return nil, fmt.Errorf("%w: read segment %d: %v", ErrUndecodable, i, err)
		}

		result.Segments = append(result.Segments, Segment{
			Index:     int(i),
			Blob:      Blob{Data: segData, MIME: "audio/wav"},
			Size:      int64(len(segData)),
			StartTime: start,
			EndTime:   end,
		})
		result.TotalSize += int64(len(segData))
	}

	result.TotalDuration = duration
	return result, nil
}

// probeDuration reads the stream duration from ffmpeg's own file info
// output. ffmpeg exits non-zero for the null muxer invocation, so the output
// is parsed regardless of exit status.
func (s *Splitter) probeDuration(ctx context.Context, path string) (float64, error) {
	output, err := s.cmd.CombinedOutput(ctx, s.ffmpegPath, []string{"-i", path, "-f", "null", "-"})
	if err != nil && len(output) == 0 {
		return 0, err
	}
	return parseFFmpegDuration(string(output))
}

var ffmpegDurationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

func parseFFmpegDuration(output string) (float64, error) {
	matches := ffmpegDurationRe.FindStringSubmatch(output)
	if matches == nil {
		return 0, fmt.Errorf("no duration in ffmpeg output")
	}
	h, _ := strconv.Atoi(matches[1])
	m, _ := strconv.Atoi(matches[2])
	sec, _ := strconv.Atoi(matches[3])
	frac, _ := strconv.ParseFloat("0."+matches[4], 64)
	return float64(h*3600+m*60+sec) + frac, nil
}

// formatFFmpegTime renders seconds as HH:MM:SS.mmm for -ss/-to arguments.
func formatFFmpegTime(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

func extensionForMIME(mime string) string {
	switch normalizeMIME(mime) {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/flac":
		return ".flac"
	default:
		return ".bin"
	}
}
