package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrDecode reports a malformed or truncated container. It is distinct
// from an empty payload so callers can tell "bad format" from "no data".
var ErrDecode = errors.New("audio: malformed container")

// wavHeader is the 44-byte canonical PCM container header.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // payload bytes
}

const wavHeaderSize = 44

// EncodeWAV wraps mono 16-bit samples in the container format. The
// header byte-length field always equals the payload length exactly; the
// encoder is the only producer of headers, so a mismatch would be an
// encode-time defect rather than a runtime condition.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: sample rate must be positive, got %d", sampleRate)
	}

	numChannels := uint16(1)
	bitsPerSample := uint16(16)
	dataSize := uint32(len(samples) * 2)

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("audio: write header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("audio: write samples: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeWAV parses container bytes back into samples and the declared
// sample rate. Any structural inconsistency wraps ErrDecode.
func DecodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("%w: need at least %d bytes, got %d", ErrDecode, wavHeaderSize, len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("%w: read header: %v", ErrDecode, err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, 0, fmt.Errorf("%w: missing RIFF marker", ErrDecode)
	}
	if string(header.Format[:]) != "WAVE" {
		return nil, 0, fmt.Errorf("%w: missing WAVE marker", ErrDecode)
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, 0, fmt.Errorf("%w: missing fmt chunk", ErrDecode)
	}
	if header.AudioFormat != 1 {
		return nil, 0, fmt.Errorf("%w: unsupported audio format %d", ErrDecode, header.AudioFormat)
	}
	if header.BitsPerSample != 16 {
		return nil, 0, fmt.Errorf("%w: unsupported bit depth %d", ErrDecode, header.BitsPerSample)
	}
	if header.NumChannels != 1 {
		return nil, 0, fmt.Errorf("%w: expected mono, got %d channels", ErrDecode, header.NumChannels)
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return nil, 0, fmt.Errorf("%w: missing data chunk", ErrDecode)
	}

	payload := data[wavHeaderSize:]
	if int(header.Subchunk2Size) > len(payload) {
		return nil, 0, fmt.Errorf("%w: header declares %d payload bytes, only %d present",
			ErrDecode, header.Subchunk2Size, len(payload))
	}
	payload = payload[:header.Subchunk2Size]

	return Int16sFromBytes(payload), int(header.SampleRate), nil
}
