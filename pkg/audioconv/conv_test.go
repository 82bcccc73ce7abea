package audioconv

import (
	"math"
	"testing"
)

func sine(n, rate int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestSniff(t *testing.T) {
	tests := []struct {
		data []byte
		want Format
	}{
		{[]byte("RIFF....WAVE"), FormatWAV},
		{[]byte("OggS\x00"), FormatOgg},
		{[]byte("ID3\x04"), FormatMP3},
		{[]byte{0xFF, 0xFB, 0x90}, FormatMP3},
		{[]byte("hello"), FormatUnknown},
		{nil, FormatUnknown},
	}
	for _, tt := range tests {
		if got := Sniff(tt.data); got != tt.want {
			t.Errorf("Sniff(%q) = %q, want %q", tt.data, got, tt.want)
		}
	}
}

func TestWAVThroughDecode(t *testing.T) {
	pcm := sine(1600, WhisperRate, 440)

	data, err := EncodeWAV(pcm, WhisperRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if Sniff(data) != FormatWAV {
		t.Fatalf("encoded clip not recognised as wav")
	}

	got, err := Decode(data, Options{})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != len(pcm) {
		t.Fatalf("Expected %d samples, got %d", len(pcm), len(got))
	}
	for i := range pcm {
		if d := math.Abs(float64(got[i] - pcm[i])); d > 1e-3 {
			t.Fatalf("sample %d: expected %f, got %f", i, pcm[i], got[i])
		}
	}
}

func TestDecodeResamplesAndLimits(t *testing.T) {
	data, err := EncodeWAV(sine(1600, WhisperRate, 220), WhisperRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	got, err := Decode(data, Options{SampleRate: 8000})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != 800 {
		t.Errorf("Expected 800 samples at 8 kHz, got %d", len(got))
	}

	got, err = Decode(data, Options{MaxSamples: 100})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != 100 {
		t.Errorf("Expected 100 samples, got %d", len(got))
	}
}

func TestDecodeRejects(t *testing.T) {
	if _, err := Decode(nil, Options{}); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := Decode([]byte("plain text"), Options{}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDownmixAndResample(t *testing.T) {
	mono := downmixInterleaved([]float32{1, 0, 0.5, 0.5}, 2)
	if len(mono) != 2 || mono[0] != 0.5 || mono[1] != 0.5 {
		t.Errorf("unexpected downmix %v", mono)
	}

	up := resampleLinear([]float32{0, 1}, 1, 2)
	if len(up) != 4 || up[1] != 0.5 {
		t.Errorf("unexpected resample %v", up)
	}
}
