package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"voicebridge/internal/provider"
)

const (
	DefaultElevenLabsURL   = "https://api.elevenlabs.io"
	DefaultElevenLabsModel = "eleven_multilingual_v2"

	maxAudioBytes = 32 << 20
)

type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	ModelID string
	Timeout time.Duration
}

func (c ElevenLabsConfig) withDefaults() ElevenLabsConfig {
	out := c
	if strings.TrimSpace(out.BaseURL) == "" {
		out.BaseURL = DefaultElevenLabsURL
	}
	if strings.TrimSpace(out.ModelID) == "" {
		out.ModelID = DefaultElevenLabsModel
	}
	if out.Timeout <= 0 {
		out.Timeout = 15 * time.Second
	}
	return out
}

type ElevenLabs struct {
	cfg  ElevenLabsConfig
	http *http.Client
}

// NewElevenLabs uses httpClient for transport (proxy etc.); nil gets a plain client.
func NewElevenLabs(cfg ElevenLabsConfig, httpClient *http.Client) *ElevenLabs {
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &ElevenLabs{cfg: cfg, http: httpClient}
}

type elevenLabsRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings map[string]any `json:"voice_settings,omitempty"`
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text, voiceID, style string) ([]byte, error) {
	body := elevenLabsRequest{Text: text, ModelID: e.cfg.ModelID}
	// ElevenLabs style is a 0..1 exaggeration knob; free-text styles are dropped.
	if v, err := strconv.ParseFloat(strings.TrimSpace(style), 64); err == nil {
		body.VoiceSettings = map[string]any{"style": v}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, provider.Wrap("elevenlabs", "synthesize", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") + "/v1/text-to-speech/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, provider.Wrap("elevenlabs", "synthesize", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, provider.Wrap("elevenlabs", "synthesize", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, provider.Wrap("elevenlabs", "synthesize", fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, provider.WrapStatus("elevenlabs", "synthesize", resp.StatusCode,
			fmt.Errorf("body=%s", strings.TrimSpace(string(data))))
	}

	return data, nil
}
