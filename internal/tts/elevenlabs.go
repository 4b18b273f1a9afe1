package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gramudyog/assist/internal/logger"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabs reads text aloud through the ElevenLabs HTTP streaming endpoint and writes
// 24 kHz PCM to the sink as it arrives.
type ElevenLabs struct {
	APIKey     string
	VoiceID    string
	BaseURL    string
	HTTPClient *http.Client
	sink       io.Writer
	log        *logger.Logger
}

func NewElevenLabs(apiKey, voiceID string, sink io.Writer, log *logger.Logger) *ElevenLabs {
	if sink == nil {
		sink = io.Discard
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ElevenLabs{
		APIKey:     apiKey,
		VoiceID:    voiceID,
		BaseURL:    elevenLabsBaseURL,
		HTTPClient: &http.Client{Timeout: 0},
		sink:       sink,
		log:        log,
	}
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text, lang string) error {
	if e.APIKey == "" || e.VoiceID == "" {
		return fmt.Errorf("elevenlabs: api key or voice id missing")
	}
	if text == "" {
		return nil
	}

	body := map[string]any{
		"model_id": "eleven_flash_v2_5",
		"text":     text,
		"voice_settings": map[string]any{
			"stability":         0.4,
			"similarity_boost":  0.7,
			"style":             0.0,
			"use_speaker_boost": true,
		},
	}
	if l := strings.ToLower(lang); l != "" {
		if i := strings.IndexAny(l, "-_"); i > 0 {
			l = l[:i]
		}
		body["language_code"] = l
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := strings.TrimRight(e.BaseURL, "/") + "/v1/text-to-speech/" + e.VoiceID +
		"/stream?output_format=pcm_24000&optimize_streaming_latency=2"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", e.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs http stream error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("elevenlabs http status=%d body=%s", resp.StatusCode, string(b))
	}

	chunk := make([]byte, 4096)
	total := 0
	for {
		n, rerr := resp.Body.Read(chunk)
		if n > 0 {
			if total == 0 {
				e.log.Debug("elevenlabs: receiving audio stream", "first_chunk_bytes", n)
			}
			total += n
			if _, err := e.sink.Write(chunk[:n]); err != nil {
				return fmt.Errorf("tts: write sink: %w", err)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("elevenlabs http read error: %w", rerr)
		}
	}
}
