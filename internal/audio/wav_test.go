package audio

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncodeWAVHeaderFields(t *testing.T) {
	samples := make([]int16, 16000)
	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if len(data) != 44+32000 {
		t.Fatalf("container size = %d, want %d", len(data), 44+32000)
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if ch := binary.LittleEndian.Uint16(data[22:24]); ch != 1 {
		t.Errorf("channels = %d, want 1", ch)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if byteRate := binary.LittleEndian.Uint32(data[28:32]); byteRate != 32000 {
		t.Errorf("byte rate = %d, want 32000", byteRate)
	}
	if align := binary.LittleEndian.Uint16(data[32:34]); align != 2 {
		t.Errorf("block align = %d, want 2", align)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Errorf("bits per sample = %d, want 16", bits)
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); size != 32000 {
		t.Errorf("declared payload = %d, want 32000", size)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768, 7, -9}
	data, err := EncodeWAV(samples, 44100)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	got, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 44100 {
		t.Errorf("rate = %d, want 44100", rate)
	}
	if len(got) != len(samples) {
		t.Fatalf("length = %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestEncodeWAVRejectsBadRate(t *testing.T) {
	if _, err := EncodeWAV([]int16{1}, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestDecodeWAVMalformed(t *testing.T) {
	cases := map[string][]byte{
		"truncated": make([]byte, 10),
		"garbage":   []byte("this is definitely not a pcm container, not at all!!"),
	}
	for name, data := range cases {
		if _, _, err := DecodeWAV(data); !errors.Is(err, ErrDecode) {
			t.Errorf("%s: expected ErrDecode, got %v", name, err)
		}
	}

	// Valid prefix but payload shorter than the header claims.
	data, err := EncodeWAV([]int16{1, 2, 3, 4}, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if _, _, err := DecodeWAV(data[:len(data)-3]); !errors.Is(err, ErrDecode) {
		t.Errorf("short payload: expected ErrDecode, got %v", err)
	}
}
