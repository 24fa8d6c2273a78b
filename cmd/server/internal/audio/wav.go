package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const wavHeaderSize = 44

var errNotWAV = errors.New("not a RIFF/WAVE container")

// wavInfo describes the format and data layout of a parsed WAV container.
type wavInfo struct {
	audioFormat   uint16 // 1 = PCM
	channels      uint16
	sampleRate    uint32
	byteRate      uint32
	blockAlign    uint16
	bitsPerSample uint16

	dataOffset int
	dataSize   int
}

func (w wavInfo) duration() float64 {
	if w.byteRate == 0 {
		return 0
	}
	return float64(w.dataSize) / float64(w.byteRate)
}

// isPCM reports whether the data chunk can be sliced at sample boundaries
// without re-encoding.
func (w wavInfo) isPCM() bool {
	return w.audioFormat == 1 && w.blockAlign > 0 && w.byteRate > 0
}

// parseWAV reads the RIFF header and locates the fmt and data chunks.
// The data chunk size is clamped to the actual payload so truncated
// uploads still parse.
func parseWAV(data []byte) (*wavInfo, error) {
	if len(data) < wavHeaderSize {
		return nil, errNotWAV
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errNotWAV
	}

	info := &wavInfo{}
	haveFmt := false
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || body+16 > len(data) {
				return nil, fmt.Errorf("wav: malformed fmt chunk")
			}
			info.audioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			info.channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			info.sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			info.byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
			info.blockAlign = binary.LittleEndian.Uint16(data[body+12 : body+14])
			info.bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			info.dataOffset = body
			info.dataSize = chunkSize
			if body+chunkSize > len(data) {
				info.dataSize = len(data) - body
			}
		}

		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
		if info.dataOffset != 0 && haveFmt {
			break
		}
	}

	if !haveFmt || info.dataOffset == 0 {
		return nil, fmt.Errorf("wav: missing fmt or data chunk")
	}
	return info, nil
}

// encodeWAVHeader builds a 44-byte PCM RIFF header for a data payload of the
// given size, reusing the source format parameters.
func encodeWAVHeader(info *wavInfo, dataSize int) []byte {
	header := make([]byte, wavHeaderSize)
	copy(header[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:], uint32(36+dataSize))
	copy(header[8:], []byte("WAVEfmt "))
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], info.audioFormat)
	binary.LittleEndian.PutUint16(header[22:], info.channels)
	binary.LittleEndian.PutUint32(header[24:], info.sampleRate)
	binary.LittleEndian.PutUint32(header[28:], info.byteRate)
	binary.LittleEndian.PutUint16(header[32:], info.blockAlign)
	binary.LittleEndian.PutUint16(header[34:], info.bitsPerSample)
	copy(header[36:], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:], uint32(dataSize))
	return header
}
