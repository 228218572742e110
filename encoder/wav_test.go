package encoder

import (
	"encoding/binary"
	"testing"
)

func TestBuildWAVHeader(t *testing.T) {
	pcm := make([]byte, 3200)
	wav := BuildWAV(pcm)

	if len(wav) != WAVHeaderSize+len(pcm) {
		t.Fatalf("length = %d, want %d", len(wav), WAVHeaderSize+len(pcm))
	}
	if string(wav[:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(wav[24:]); got != SampleRate {
		t.Errorf("sample rate = %d, want %d", got, SampleRate)
	}
	if got := binary.LittleEndian.Uint32(wav[40:]); got != uint32(len(pcm)) {
		t.Errorf("data length = %d, want %d", got, len(pcm))
	}
}

func TestBuildWAVEmpty(t *testing.T) {
	wav := BuildWAV(nil)
	if len(wav) != WAVHeaderSize {
		t.Fatalf("length = %d, want %d", len(wav), WAVHeaderSize)
	}
}
