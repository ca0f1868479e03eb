package audio

import (
	"math"
	"testing"
)

func TestResamplerChunkingInvariance(t *testing.T) {
	// A stream resampled in chunks must be identical to the same stream
	// resampled in one pass, for any chunk size.
	src := make([]float64, 4410)
	for i := range src {
		src[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 44100)
	}

	whole := newResampler(44100, 16000)
	want := append([]float64(nil), whole.process(src)...)

	for _, chunkSize := range []int{1, 7, 100, 1024, len(src)} {
		rs := newResampler(44100, 16000)
		var got []float64
		for off := 0; off < len(src); off += chunkSize {
			end := off + chunkSize
			if end > len(src) {
				end = len(src)
			}
			got = append(got, rs.process(src[off:end])...)
		}

		if len(got) != len(want) {
			t.Fatalf("chunk size %d: got %d samples, want %d", chunkSize, len(got), len(want))
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("chunk size %d: sample %d = %v, want %v", chunkSize, i, got[i], want[i])
			}
		}
	}
}

func TestResamplerPassthrough(t *testing.T) {
	rs := newResampler(16000, 16000)
	in := []float64{0.1, 0.2, 0.3}
	out := rs.process(in)
	if len(out) != len(in) {
		t.Fatalf("expected passthrough, got %d samples", len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestResamplerOutputLength(t *testing.T) {
	tests := []struct {
		name    string
		srcRate int
		dstRate int
		samples int
	}{
		{"downsample 44.1k to 16k", 44100, 16000, 44100},
		{"downsample 48k to 16k", 48000, 16000, 48000},
		{"upsample 8k to 16k", 8000, 16000, 8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := newResampler(tt.srcRate, tt.dstRate)
			in := make([]float64, tt.samples)
			out := rs.process(in)

			want := tt.samples * tt.dstRate / tt.srcRate
			if diff := len(out) - want; diff < -2 || diff > 2 {
				t.Errorf("got %d samples, want about %d", len(out), want)
			}
		})
	}
}

func TestDownmix(t *testing.T) {
	tests := []struct {
		name     string
		data     []int
		channels int
		bits     int
		want     []float64
	}{
		{
			name:     "mono 16-bit passthrough",
			data:     []int{16384, -16384},
			channels: 1,
			bits:     16,
			want:     []float64{0.5, -0.5},
		},
		{
			name:     "stereo averaged",
			data:     []int{16384, 0, 0, -16384},
			channels: 2,
			bits:     16,
			want:     []float64{0.25, -0.25},
		},
		{
			name:     "24-bit scaled",
			data:     []int{4194304},
			channels: 1,
			bits:     24,
			want:     []float64{0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := downmix(tt.data, tt.channels, tt.bits)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d samples, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("sample %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestClampPCM16(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{0.5, 16384},
		{-0.5, -16384},
		{1.5, 32767},
		{-1.5, -32768},
		{1.0, 32767},
		{-1.0, -32768},
	}
	for _, tt := range tests {
		if got := clampPCM16(tt.in); got != tt.want {
			t.Errorf("clampPCM16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDownmixStereo16(t *testing.T) {
	// One frame: left = 0x4000 (0.5), right = 0xC000 (-0.5).
	b := []byte{0x00, 0x40, 0x00, 0xC0}
	got := downmixStereo16(b)
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}
	if math.Abs(got[0]) > 1e-9 {
		t.Errorf("averaged sample = %v, want 0", got[0])
	}
}
