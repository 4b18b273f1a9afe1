package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gramudyog/assist/internal/apierr"
)

// Client talks to the GramUdyog backend. Every endpoint lives under BaseURL.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

// AssistantResponse is the tagged reply of the assistant endpoint. StructuredData is kept raw
// so each feature renderer decodes only the keys it knows.
type AssistantResponse struct {
	Output         string                     `json:"output"`
	FeatureType    string                     `json:"feature_type"`
	StructuredData map[string]json.RawMessage `json:"structured_data,omitempty"`
	Summary        string                     `json:"summary,omitempty"`
}

type assistantRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type translateTextRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type translateTextResponse struct {
	Translated string `json:"translated"`
}

type translateJSONRequest struct {
	JSON           any    `json:"json"`
	TargetLanguage string `json:"target_language"`
}

// EventPrompt asks the backend to draft an event from free text.
type EventPrompt struct {
	Prompt    string `json:"prompt"`
	EventType string `json:"event_type"`
	Language  string `json:"language"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// AudioURL resolves a backend-relative audio path the way the backend serves it.
func (c *Client) AudioURL(path string) string {
	if path == "" {
		return ""
	}
	return c.BaseURL + "/api" + path
}

// Query sends one assistant request.
func (c *Client) Query(ctx context.Context, text, lang string) (AssistantResponse, error) {
	var out AssistantResponse
	if err := c.postJSON(ctx, "/api/ai-assistant-enhanced", assistantRequest{Text: text, Lang: lang}, &out); err != nil {
		return AssistantResponse{}, err
	}
	return out, nil
}

// TranslateText translates a plain string. An empty result is returned as is; callers decide
// what an empty translation means.
func (c *Client) TranslateText(ctx context.Context, text, lang string) (string, error) {
	var out translateTextResponse
	if err := c.postJSON(ctx, "/translate", translateTextRequest{Text: text, Lang: lang}, &out); err != nil {
		return "", err
	}
	return out.Translated, nil
}

// TranslateJSON sends a structured value for translation and returns the translated object.
func (c *Client) TranslateJSON(ctx context.Context, v any, lang string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.postJSON(ctx, "/translate", translateJSONRequest{JSON: v, TargetLanguage: lang}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateEvent returns the raw partial event drafted by the backend.
func (c *Client) GenerateEvent(ctx context.Context, p EventPrompt) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.postJSON(ctx, "/api/events/generate-with-ai", p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transcribe uploads an audio clip as multipart form data and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename, lang string) (string, error) {
	if filename == "" {
		filename = "recording.webm"
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return "", fmt.Errorf("backend: read audio: %w", err)
	}
	if err := mw.WriteField("language", lang); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/transcribe", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out transcribeResponse
	if err := c.do(req, "/api/transcribe", &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Text), nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	reqBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("backend %s: encode request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apierr.New(resp.StatusCode, "backend_status",
			fmt.Errorf("backend %s: status=%d body=%s", path, resp.StatusCode, strings.TrimSpace(string(b))))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierr.New(resp.StatusCode, "bad_response", fmt.Errorf("backend %s: decode: %w", path, err))
	}
	return nil
}
