package audio

import (
	"context"
	"os"
	"strconv"

	"github.com/skillsenselab/parakeet/errors"
	"github.com/skillsenselab/parakeet/process"
)

// transcode shells out to ffmpeg to convert src into a mono PCM16 WAV at the
// target rate. On failure the partial output is removed.
func (n *Normalizer) transcode(ctx context.Context, src, dst string) error {
	if err := process.LookPath(n.cfg.FFmpegBinary); err != nil {
		return errors.ConversionFailed("transcoder binary not found", err).
			WithDetail("binary", n.cfg.FFmpegBinary)
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.TranscodeTimeout)
	defer cancel()

	res, err := process.Run(ctx, process.Command{
		Binary: n.cfg.FFmpegBinary,
		Args: []string{
			"-y",
			"-i", src,
			"-vn",
			"-ac", strconv.Itoa(n.cfg.TargetChannels),
			"-ar", strconv.Itoa(n.cfg.TargetSampleRate),
			"-c:a", "pcm_s16le",
			dst,
		},
	})
	if err != nil {
		os.Remove(dst)
		appErr := errors.ConversionFailed("transcoder failed", err)
		if res != nil && len(res.Stderr) > 0 {
			appErr = appErr.WithDetail("transcoder_output", tail(res.Stderr, 2048))
		}
		return appErr
	}

	n.log.Debug("Transcoded audio file", map[string]interface{}{
		"source":      src,
		"artifact":    dst,
		"duration_ms": res.Duration.Milliseconds(),
	})
	return nil
}

// tail returns the last n bytes of b as a string.
func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
