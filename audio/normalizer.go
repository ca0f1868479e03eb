// Package audio converts uploaded media into the canonical form the model
// expects: mono, 16 kHz, 16-bit PCM WAV.
//
// WAV and MP3 sources are decoded natively in fixed-size chunks so memory
// stays bounded regardless of file length; everything else goes through an
// external transcoder subprocess. If streaming decode fails partway, the
// source is re-decoded in one pass, producing a bit-identical artifact.
package audio

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/skillsenselab/parakeet/errors"
	"github.com/skillsenselab/parakeet/logger"
)

// Normalizer produces canonical-form artifacts from uploaded media files.
type Normalizer struct {
	cfg Config
	log *logger.Logger
}

// NewNormalizer creates a normalizer with the given configuration.
func NewNormalizer(cfg Config, log *logger.Logger) *Normalizer {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Normalizer{cfg: cfg, log: log.WithComponent("audio")}
}

// Normalize converts src into a mono 16 kHz PCM16 WAV artifact. A source that
// is already in canonical form is returned as-is without touching the disk.
// The returned artifact never points at a partially written file.
func (n *Normalizer) Normalize(ctx context.Context, src string) (*Artifact, error) {
	ext := strings.ToLower(filepath.Ext(src))
	if !n.cfg.allowed(ext) {
		return nil, errors.UnsupportedMediaType(ext)
	}

	switch ext {
	case ".wav":
		return n.normalizeWAV(src)
	case ".mp3":
		return n.normalizeMP3(src)
	default:
		return n.normalizeExternal(ctx, src)
	}
}

// NormalizedPath returns the artifact path Normalize would write for src.
func NormalizedPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".norm.wav"
}

// --- WAV ---

func (n *Normalizer) normalizeWAV(src string) (*Artifact, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, errors.ConversionFailed("cannot open source file", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if !d.IsValidFile() {
		return nil, errors.ConversionFailed("not a valid WAV file", d.Err())
	}

	srcRate := int(d.SampleRate)
	channels := int(d.NumChans)
	bits := int(d.BitDepth)
	if srcRate <= 0 || channels <= 0 || bits <= 0 {
		return nil, errors.ConversionFailed("WAV header reports no audio", nil)
	}

	// Fast path: already canonical, hand back the source untouched.
	if srcRate == n.cfg.TargetSampleRate && channels == n.cfg.TargetChannels && bits == 16 {
		dur, err := d.Duration()
		if err != nil {
			return nil, errors.ConversionFailed("cannot read WAV duration", err)
		}
		return &Artifact{
			Path:       src,
			SampleRate: srcRate,
			Channels:   channels,
			Format:     "wav",
			Duration:   dur.Seconds(),
			Source:     true,
		}, nil
	}

	dst := NormalizedPath(src)
	art, err := n.streamWAV(d, dst, srcRate, channels, bits)
	if err == nil {
		return art, nil
	}

	n.log.WithError(err).Warn("Streaming WAV conversion failed, retrying whole-file")
	os.Remove(dst)
	return n.wholeFileWAV(src, dst)
}

// streamWAV converts in fixed-duration chunks, bounding decode memory.
func (n *Normalizer) streamWAV(d *wav.Decoder, dst string, srcRate, channels, bits int) (*Artifact, error) {
	w, err := newPCMWriter(dst, n.cfg.TargetSampleRate)
	if err != nil {
		return nil, errors.ConversionFailed("cannot create artifact", err)
	}

	rs := newResampler(srcRate, n.cfg.TargetSampleRate)
	chunk := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: channels, SampleRate: srcRate},
		Data:   make([]int, n.cfg.ChunkSeconds*srcRate*channels),
	}
	for {
		read, err := d.PCMBuffer(chunk)
		if err != nil {
			w.abort()
			return nil, errors.ConversionFailed("WAV decode failed", err)
		}
		if read == 0 {
			break
		}
		mono := downmix(chunk.Data[:read], channels, bits)
		if err := w.write(rs.process(mono)); err != nil {
			w.abort()
			return nil, errors.ConversionFailed("artifact write failed", err)
		}
	}

	return n.finish(w, dst)
}

// wholeFileWAV is the fallback: decode the entire file into memory at once.
// It feeds the same downmix and resampler pipeline a single chunk, so the
// output is byte-identical to a successful streaming pass.
func (n *Normalizer) wholeFileWAV(src, dst string) (*Artifact, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, errors.ConversionFailed("cannot open source file", err)
	}
	defer f.Close()

	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	if err != nil {
		return nil, errors.ConversionFailed("WAV decode failed", err)
	}
	channels := buf.Format.NumChannels
	srcRate := buf.Format.SampleRate
	bits := buf.SourceBitDepth
	if bits == 0 {
		bits = 16
	}
	if srcRate <= 0 || channels <= 0 {
		return nil, errors.ConversionFailed("WAV header reports no audio", nil)
	}

	w, err := newPCMWriter(dst, n.cfg.TargetSampleRate)
	if err != nil {
		return nil, errors.ConversionFailed("cannot create artifact", err)
	}
	rs := newResampler(srcRate, n.cfg.TargetSampleRate)
	if err := w.write(rs.process(downmix(buf.Data, channels, bits))); err != nil {
		w.abort()
		return nil, errors.ConversionFailed("artifact write failed", err)
	}
	return n.finish(w, dst)
}

// --- MP3 ---

func (n *Normalizer) normalizeMP3(src string) (*Artifact, error) {
	dst := NormalizedPath(src)

	art, err := n.streamMP3(src, dst)
	if err == nil {
		return art, nil
	}
	if !errors.HasCode(err, errors.ErrCodeConversionFailed) {
		return nil, err
	}

	n.log.WithError(err).Warn("Streaming MP3 conversion failed, retrying whole-file")
	os.Remove(dst)
	return n.wholeFileMP3(src, dst)
}

func (n *Normalizer) streamMP3(src, dst string) (*Artifact, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, errors.ConversionFailed("cannot open source file", err)
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, errors.ConversionFailed("not a valid MP3 file", err)
	}

	w, werr := newPCMWriter(dst, n.cfg.TargetSampleRate)
	if werr != nil {
		return nil, errors.ConversionFailed("cannot create artifact", werr)
	}
	rs := newResampler(d.SampleRate(), n.cfg.TargetSampleRate)

	// The decoder emits interleaved 16-bit stereo frames, 4 bytes each.
	buf := make([]byte, n.cfg.ChunkSeconds*d.SampleRate()*4)
	for {
		read, err := io.ReadFull(d, buf)
		if err == io.EOF {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			w.abort()
			return nil, errors.ConversionFailed("MP3 decode failed", err)
		}
		mono := downmixStereo16(buf[:read-read%4])
		if werr := w.write(rs.process(mono)); werr != nil {
			w.abort()
			return nil, errors.ConversionFailed("artifact write failed", werr)
		}
		if err == io.ErrUnexpectedEOF {
			break
		}
	}

	return n.finish(w, dst)
}

func (n *Normalizer) wholeFileMP3(src, dst string) (*Artifact, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, errors.ConversionFailed("cannot open source file", err)
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, errors.ConversionFailed("not a valid MP3 file", err)
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, errors.ConversionFailed("MP3 decode failed", err)
	}

	w, err := newPCMWriter(dst, n.cfg.TargetSampleRate)
	if err != nil {
		return nil, errors.ConversionFailed("cannot create artifact", err)
	}
	rs := newResampler(d.SampleRate(), n.cfg.TargetSampleRate)
	if err := w.write(rs.process(downmixStereo16(pcm[:len(pcm)-len(pcm)%4]))); err != nil {
		w.abort()
		return nil, errors.ConversionFailed("artifact write failed", err)
	}
	return n.finish(w, dst)
}

// downmixStereo16 averages interleaved 16-bit little-endian stereo PCM into
// mono samples in the -1..1 range.
func downmixStereo16(b []byte) []float64 {
	frames := len(b) / 4
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(b[i*4:]))
		r := int16(binary.LittleEndian.Uint16(b[i*4+2:]))
		out[i] = (float64(l) + float64(r)) / 2 / 32768
	}
	return out
}

// --- external transcoder ---

func (n *Normalizer) normalizeExternal(ctx context.Context, src string) (*Artifact, error) {
	dst := NormalizedPath(src)
	if err := n.transcode(ctx, src, dst); err != nil {
		return nil, err
	}

	f, err := os.Open(dst)
	if err != nil {
		return nil, errors.ConversionFailed("cannot open transcoded artifact", err)
	}
	defer f.Close()
	d := wav.NewDecoder(f)
	d.ReadInfo()
	if !d.IsValidFile() {
		os.Remove(dst)
		return nil, errors.ConversionFailed("transcoder produced invalid WAV", d.Err())
	}
	dur, err := d.Duration()
	if err != nil {
		os.Remove(dst)
		return nil, errors.ConversionFailed("cannot read artifact duration", err)
	}

	return &Artifact{
		Path:       dst,
		SampleRate: n.cfg.TargetSampleRate,
		Channels:   n.cfg.TargetChannels,
		Format:     "wav",
		Duration:   dur.Seconds(),
	}, nil
}

// finish closes the writer and builds the artifact descriptor.
func (n *Normalizer) finish(w *pcmWriter, dst string) (*Artifact, error) {
	if err := w.close(); err != nil {
		os.Remove(dst)
		return nil, errors.ConversionFailed("cannot finalize artifact", err)
	}
	return &Artifact{
		Path:       dst,
		SampleRate: n.cfg.TargetSampleRate,
		Channels:   n.cfg.TargetChannels,
		Format:     "wav",
		Duration:   float64(w.frames) / float64(n.cfg.TargetSampleRate),
	}, nil
}
