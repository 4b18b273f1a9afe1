package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Whisper uploads a recorded clip to the OpenAI transcription API.
type Whisper struct {
	client   *openai.Client
	model    string
	source   Source
	Filename string
}

func NewWhisper(client *openai.Client, model string, src Source) *Whisper {
	if model == "" {
		model = openai.Whisper1
	}
	return &Whisper{client: client, model: model, source: src, Filename: "recording.wav"}
}

func (w *Whisper) Recognize(ctx context.Context, lang string) (string, error) {
	if w.source == nil {
		return "", errors.New("transcript: no audio source configured")
	}
	clip, err := w.source.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("transcript: open audio: %w", err)
	}
	defer clip.Close()

	tr, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		Reader:   clip,
		FilePath: w.Filename,
		Language: baseLang(lang),
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return strings.TrimSpace(tr.Text), nil
}
