package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paperwavelabs/paperwave-core/internal/config"
)

// ElevenLabs synthesizes speech through the ElevenLabs HTTP API.
//
// Synthesize tries the plain streaming endpoint first and falls back to the
// parameterized endpoint with explicit voice settings; either success is
// accepted.
type ElevenLabs struct {
	apiKey       string
	baseURL      string
	modelID      string
	outputFormat string
	client       *http.Client
	logger       *slog.Logger
}

func NewElevenLabs(cfg config.SpeechConfig, logger *slog.Logger) *ElevenLabs {
	return &ElevenLabs{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.Endpoint, "/"),
		modelID:      cfg.ModelID,
		outputFormat: cfg.OutputFormat,
		client:       &http.Client{Timeout: 60 * time.Second},
		logger:       logger.With(slog.String("component", "elevenlabs")),
	}
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

func (e *ElevenLabs) Voices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch voice catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("voice catalog returned status %s", resp.Status)
	}

	var out voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode voice catalog: %w", err)
	}
	return out.Voices, nil
}

type synthRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	data, streamErr := e.call(ctx, voiceID, "/stream", synthRequest{Text: text, ModelID: e.modelID})
	if streamErr == nil {
		return data, nil
	}
	e.logger.Warn("stream synthesis failed, retrying with explicit settings",
		slog.String("voice_id", voiceID), slog.String("error", streamErr.Error()))

	data, err := e.call(ctx, voiceID, "", synthRequest{
		Text:    text,
		ModelID: e.modelID,
		VoiceSettings: &voiceSettings{
			Stability:       0.3,
			SimilarityBoost: 0.6,
			Style:           0.1,
			UseSpeakerBoost: false,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize line: %w", err)
	}
	return data, nil
}

func (e *ElevenLabs) call(ctx context.Context, voiceID, suffix string, payload synthRequest) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s%s", e.baseURL, url.PathEscape(voiceID), suffix)
	if e.outputFormat != "" {
		endpoint += "?output_format=" + url.QueryEscape(e.outputFormat)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("text-to-speech returned status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
