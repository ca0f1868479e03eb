// Package parakeet implements transcription.Provider against a Parakeet ASR
// HTTP sidecar (NVIDIA parakeet-tdt served behind a small REST shim).
package parakeet

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
	"strconv"
	"time"

	"github.com/skillsenselab/parakeet/transcription"
)

const (
	// ProviderName is the registered name for the Parakeet provider.
	ProviderName = "parakeet"

	defaultURL     = "http://localhost:8386"
	defaultTimeout = 300 * time.Second
)

// Config holds configuration for the Parakeet transcription provider.
type Config struct {
	URL      string        `yaml:"url" mapstructure:"url"`
	Language string        `yaml:"language,omitempty" mapstructure:"language"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults sets sensible defaults for unset fields.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// Provider implements transcription.Provider using the Parakeet HTTP sidecar.
type Provider struct {
	cfg    Config
	client *http.Client
}

// NewProvider creates a new Parakeet transcription provider.
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

// IsAvailable checks if the Parakeet sidecar is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL+"/healthz", nil)
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

// Transcribe sends an audio file to the Parakeet sidecar and returns the transcription.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	audioData, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	lang := p.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	_ = writer.WriteField("include_timestamps", strconv.FormatBool(req.Timestamps))
	if lang != "" {
		_ = writer.WriteField("language", lang)
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL+"/transcribe", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("parakeet request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("parakeet error (status %d): %s", resp.StatusCode, string(body))
	}

	var result parakeetResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode parakeet response: %w", err)
	}

	return toResponse(&result), nil
}

// --- internal Parakeet API response types ---

type parakeetResponse struct {
	Text       string             `json:"text"`
	Timestamps *parakeetOffsets   `json:"timestamps"`
	Language   string             `json:"language"`
	Duration   float64            `json:"duration"`
}

type parakeetOffsets struct {
	Word    []parakeetStamp `json:"word"`
	Segment []parakeetStamp `json:"segment"`
}

type parakeetStamp struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func toResponse(resp *parakeetResponse) *transcription.Response {
	out := &transcription.Response{
		Text:     resp.Text,
		Duration: resp.Duration,
		Language: resp.Language,
	}
	if resp.Timestamps != nil {
		ts := &transcription.Timestamps{
			Words:    make([]transcription.Stamp, len(resp.Timestamps.Word)),
			Segments: make([]transcription.Stamp, len(resp.Timestamps.Segment)),
		}
		for i, w := range resp.Timestamps.Word {
			ts.Words[i] = transcription.Stamp{Start: w.Start, End: w.End, Text: w.Text}
		}
		for i, s := range resp.Timestamps.Segment {
			ts.Segments[i] = transcription.Stamp{Start: s.Start, End: s.End, Text: s.Text}
		}
		out.Timestamps = ts
	}
	return out
}
