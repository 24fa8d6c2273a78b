package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"testing"
)

// makeTestWAV builds a 16-bit mono PCM WAV blob of the given duration.
func makeTestWAV(t *testing.T, seconds float64, sampleRate int) Blob {
	t.Helper()

	info := &wavInfo{
		audioFormat:   1,
		channels:      1,
		sampleRate:    uint32(sampleRate),
		byteRate:      uint32(sampleRate * 2),
		blockAlign:    2,
		bitsPerSample: 16,
	}
	dataSize := int(seconds * float64(info.byteRate))
	dataSize -= dataSize % int(info.blockAlign)

	data := make([]byte, 0, wavHeaderSize+dataSize)
	data = append(data, encodeWAVHeader(info, dataSize)...)
	data = append(data, make([]byte, dataSize)...)
	return Blob{Data: data, MIME: "audio/wav"}
}

func TestSplitSingleSegmentUnderCeiling(t *testing.T) {
	blob := makeTestWAV(t, 5.0, 16000)
	s := NewSplitter(25*1024*1024, 1024*1024, "ffmpeg")

	result, err := s.Split(context.Background(), blob)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(result.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(result.Segments))
	}

	seg := result.Segments[0]
	if !bytes.Equal(seg.Blob.Data, blob.Data) {
		t.Error("single segment must carry the original blob unchanged")
	}
	if seg.StartTime != 0 || math.Abs(seg.EndTime-5.0) > 0.001 {
		t.Errorf("segment span = [%f, %f], want [0, 5]", seg.StartTime, seg.EndTime)
	}
	if math.Abs(result.TotalDuration-5.0) > 0.001 {
		t.Errorf("TotalDuration = %f, want 5.0", result.TotalDuration)
	}
}

func TestSplitPCMOversized(t *testing.T) {
	// 60s at 16kHz mono 16-bit is 1.92 MB of PCM; a 1 MiB ceiling forces
	// two segments.
	blob := makeTestWAV(t, 60.0, 16000)
	s := NewSplitter(1024*1024, 64*1024, "ffmpeg")

	result, err := s.Split(context.Background(), blob)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(result.Segments))
	}

	for i, seg := range result.Segments {
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
		if seg.Size > 1024*1024 {
			t.Errorf("segment %d size %d exceeds ceiling", i, seg.Size)
		}
		info, err := parseWAV(seg.Blob.Data)
		if err != nil {
			t.Fatalf("segment %d is not a valid WAV: %v", i, err)
		}
		if got := float64(info.dataSize); got != float64(len(seg.Blob.Data)-wavHeaderSize) {
			t.Errorf("segment %d header dataSize %f disagrees with payload %d", i, got, len(seg.Blob.Data)-wavHeaderSize)
		}
	}

	// Contiguity and conservation.
	if result.Segments[0].StartTime != 0 {
		t.Error("first segment must start at 0")
	}
	for i := 1; i < len(result.Segments); i++ {
		if result.Segments[i].StartTime != result.Segments[i-1].EndTime {
			t.Errorf("gap between segments %d and %d", i-1, i)
		}
	}
	last := result.Segments[len(result.Segments)-1]
	if math.Abs(last.EndTime-60.0) > 0.001 {
		t.Errorf("last segment ends at %f, want 60", last.EndTime)
	}

	var sum float64
	for _, seg := range result.Segments {
		sum += seg.Duration()
	}
	if math.Abs(sum-result.TotalDuration) > 0.001 {
		t.Errorf("segment durations sum to %f, TotalDuration is %f", sum, result.TotalDuration)
	}

	// Near-even distribution, not one full and one sliver.
	d0, d1 := result.Segments[0].Duration(), result.Segments[1].Duration()
	if math.Abs(d0-d1) > 1.0 {
		t.Errorf("uneven split: %f vs %f seconds", d0, d1)
	}
}

func TestSplitDeterministic(t *testing.T) {
	blob := makeTestWAV(t, 90.0, 16000)
	s := NewSplitter(1024*1024, 64*1024, "ffmpeg")

	first, err := s.Split(context.Background(), blob)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	second, err := s.Split(context.Background(), blob)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	if len(first.Segments) != len(second.Segments) {
		t.Fatalf("segment counts differ: %d vs %d", len(first.Segments), len(second.Segments))
	}
	for i := range first.Segments {
		a, b := first.Segments[i], second.Segments[i]
		if a.StartTime != b.StartTime || a.EndTime != b.EndTime || a.Size != b.Size {
			t.Errorf("segment %d differs between runs", i)
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	s := NewSplitter(25*1024*1024, 1024*1024, "ffmpeg")

	_, err := s.Split(context.Background(), Blob{MIME: "audio/wav"})
	if !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("got %v, want ErrEmptyAudio", err)
	}
}

func TestSplitUnsupportedFormat(t *testing.T) {
	s := NewSplitter(25*1024*1024, 1024*1024, "ffmpeg")

	_, err := s.Split(context.Background(), Blob{Data: []byte("not audio at all"), MIME: "text/plain"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("got %v, want ErrUnsupportedFormat", err)
	}
}

func TestSplitMalformedWAV(t *testing.T) {
	s := NewSplitter(25*1024*1024, 1024*1024, "ffmpeg")

	junk := make([]byte, 256)
	copy(junk, "RIFFxxxxJUNK")
	_, err := s.Split(context.Background(), Blob{Data: junk, MIME: "audio/wav"})
	if !errors.Is(err, ErrUndecodable) {
		t.Errorf("got %v, want ErrUndecodable", err)
	}
}

// stubRunner fakes ffmpeg: the probe invocation reports a fixed duration and
// extract invocations write a small valid WAV to the output path.
type stubRunner struct {
	t        *testing.T
	duration string
	segWAV   []byte
	calls    [][]string
	probeErr error
}

func (r *stubRunner) CombinedOutput(_ context.Context, _ string, args []string) ([]byte, error) {
	r.calls = append(r.calls, args)

	if len(args) > 0 && args[len(args)-1] == "-" {
		if r.probeErr != nil {
			return nil, r.probeErr
		}
		out := fmt.Sprintf("Input #0, matroska,webm:\n  Duration: %s, start: 0.000000\n", r.duration)
		// ffmpeg exits non-zero when muxing to null; the splitter must
		// still read the info output.
		return []byte(out), errors.New("exit status 1")
	}

	outPath := args[len(args)-1]
	if err := os.WriteFile(outPath, r.segWAV, 0o600); err != nil {
		r.t.Fatalf("stub write: %v", err)
	}
	return nil, nil
}

func TestSplitCompressed(t *testing.T) {
	segWAV := makeTestWAV(t, 1.0, 16000)
	stub := &stubRunner{t: t, duration: "00:10:00.00", segWAV: segWAV.Data}

	// payloadLimit of 9,600,000 bytes at 32,000 B/s caps segments at 300s,
	// so 600s of input splits in two. The input must be over the ceiling to
	// reach the ffmpeg path at all.
	s := NewSplitter(9600044, 0, "ffmpeg", WithCommandRunner(stub))

	result, err := s.Split(context.Background(), Blob{Data: make([]byte, 10*1024*1024), MIME: "audio/webm"})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(result.Segments))
	}

	if result.Segments[0].StartTime != 0 || result.Segments[0].EndTime != 300 {
		t.Errorf("segment 0 span = [%f, %f], want [0, 300]", result.Segments[0].StartTime, result.Segments[0].EndTime)
	}
	if result.Segments[1].StartTime != 300 || result.Segments[1].EndTime != 600 {
		t.Errorf("segment 1 span = [%f, %f], want [300, 600]", result.Segments[1].StartTime, result.Segments[1].EndTime)
	}
	if result.TotalDuration != 600 {
		t.Errorf("TotalDuration = %f, want 600", result.TotalDuration)
	}

	// One probe plus one extract per segment.
	if len(stub.calls) != 3 {
		t.Fatalf("ffmpeg invoked %d times, want 3", len(stub.calls))
	}
	extract := strings.Join(stub.calls[1], " ")
	for _, want := range []string{"-ar 16000", "-ac 1", "-c:a pcm_s16le", "-ss 00:00:00.000", "-to 00:05:00.000"} {
		if !strings.Contains(extract, want) {
			t.Errorf("extract args missing %q: %s", want, extract)
		}
	}
}

func TestSplitCompressedProbeFailure(t *testing.T) {
	stub := &stubRunner{t: t, probeErr: errors.New("ffmpeg not found")}
	s := NewSplitter(1024, 0, "ffmpeg", WithCommandRunner(stub))

	_, err := s.Split(context.Background(), Blob{Data: make([]byte, 2048), MIME: "audio/webm"})
	if !errors.Is(err, ErrUndecodable) {
		t.Errorf("got %v, want ErrUndecodable", err)
	}
}

func TestSplitCompressedUnderCeiling(t *testing.T) {
	// Report a long duration so a duration-driven split would cut this blob;
	// size is what must decide, and ffmpeg must never run.
	stub := &stubRunner{t: t, duration: "00:20:00.00"}
	s := NewSplitter(25*1024*1024, 1024*1024, "ffmpeg", WithCommandRunner(stub))

	blob := Blob{Data: make([]byte, 10*1024*1024), MIME: "audio/webm"}
	result, err := s.Split(context.Background(), blob)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	if len(result.Segments) != 1 {
		t.Fatalf("got %d segments, want 1 for under-ceiling input", len(result.Segments))
	}
	seg := result.Segments[0]
	if !bytes.Equal(seg.Blob.Data, blob.Data) {
		t.Error("under-ceiling input must pass through unchanged")
	}
	if seg.StartTime != 0 || seg.EndTime != result.TotalDuration {
		t.Errorf("segment span = [%f, %f], want whole input", seg.StartTime, seg.EndTime)
	}
	if len(stub.calls) != 0 {
		t.Errorf("ffmpeg invoked %d times for under-ceiling input, want 0", len(stub.calls))
	}
}

func TestParseFFmpegDuration(t *testing.T) {
	tests := []struct {
		output  string
		want    float64
		wantErr bool
	}{
		{"  Duration: 00:10:00.00, start: 0.000000", 600, false},
		{"  Duration: 01:02:03.50, bitrate: 96 kb/s", 3723.5, false},
		{"no duration here", 0, true},
	}

	for _, tt := range tests {
		got, err := parseFFmpegDuration(tt.output)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseFFmpegDuration(%q) expected error", tt.output)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseFFmpegDuration(%q): %v", tt.output, err)
			continue
		}
		if math.Abs(got-tt.want) > 0.001 {
			t.Errorf("parseFFmpegDuration(%q) = %f, want %f", tt.output, got, tt.want)
		}
	}
}

func TestFormatFFmpegTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00.000"},
		{300, "00:05:00.000"},
		{3723.5, "01:02:03.500"},
	}

	for _, tt := range tests {
		if got := formatFFmpegTime(tt.seconds); got != tt.want {
			t.Errorf("formatFFmpegTime(%f) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
