package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// pcmWriter appends -1..1 samples to a mono PCM16 WAV file chunk by chunk.
type pcmWriter struct {
	f      *os.File
	enc    *wav.Encoder
	rate   int
	frames int
}

func newPCMWriter(path string, rate int) (*pcmWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &pcmWriter{
		f:    f,
		enc:  wav.NewEncoder(f, rate, 16, 1, 1),
		rate: rate,
	}, nil
}

// write appends one chunk of mono samples.
func (w *pcmWriter) write(samples []float64) error {
	if len(samples) == 0 {
		return nil
	}
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = clampPCM16(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: w.rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("write PCM chunk: %w", err)
	}
	w.frames += len(samples)
	return nil
}

// close finalizes the WAV header and closes the file.
func (w *pcmWriter) close() error {
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("finalize WAV: %w", err)
	}
	return w.f.Close()
}

// abort discards the partial output file. No partial artifact may survive a
// failed conversion.
func (w *pcmWriter) abort() {
	w.f.Close()
	os.Remove(w.f.Name())
}
