// Package pyannote implements diarization.Provider against a pyannote.audio
// HTTP sidecar.
package pyannote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/skillsenselab/parakeet/diarization"
)

const (
	// ProviderName is the registered name for the Pyannote provider.
	ProviderName = "pyannote"

	defaultBaseURL = "http://localhost:8388"
	defaultTimeout = 300 * time.Second
)

// Config holds configuration for the Pyannote diarization provider.
type Config struct {
	// Enabled toggles diarization support for the whole service.
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults sets sensible defaults for unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// Provider implements diarization.Provider using the Pyannote HTTP sidecar.
type Provider struct {
	cfg    Config
	client *http.Client
}

// NewProvider creates a new Pyannote diarization provider.
func NewProvider(cfg Config) *Provider {
	cfg.ApplyDefaults()
	return &Provider{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the Pyannote sidecar is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Diarize sends audio to the Pyannote sidecar and returns diarization results.
func (p *Provider) Diarize(ctx context.Context, req diarization.Request) (*diarization.Response, error) {
	audioData, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	if req.MinSpeakers > 0 {
		_ = writer.WriteField("min_speakers", fmt.Sprintf("%d", req.MinSpeakers))
	}
	if req.MaxSpeakers > 0 {
		_ = writer.WriteField("max_speakers", fmt.Sprintf("%d", req.MaxSpeakers))
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/diarize", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("diarization request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("diarization error (status %d): %s", resp.StatusCode, string(body))
	}

	var result pyannoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode diarization response: %w", err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("diarization error: %s", result.Error)
	}

	return toResponse(&result), nil
}

// --- internal Pyannote API types ---

type pyannoteResponse struct {
	Segments    []pyannoteSegment `json:"segments"`
	NumSpeakers int               `json:"num_speakers"`
	Error       string            `json:"error,omitempty"`
}

type pyannoteSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

func toResponse(resp *pyannoteResponse) *diarization.Response {
	segments := make([]diarization.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = diarization.Segment{
			Speaker: seg.Speaker,
			Start:   seg.Start,
			End:     seg.End,
		}
	}
	return &diarization.Response{
		Segments:    segments,
		NumSpeakers: resp.NumSpeakers,
	}
}
