package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Uploader is the backend transcription endpoint.
type Uploader interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, lang string) (string, error)
}

// Backend sends recorded clips to the GramUdyog backend's /api/transcribe.
type Backend struct {
	api      Uploader
	source   Source
	Filename string
}

func NewBackend(api Uploader, src Source) *Backend {
	return &Backend{api: api, source: src, Filename: "recording.webm"}
}

func (b *Backend) Recognize(ctx context.Context, lang string) (string, error) {
	if b.source == nil {
		return "", errors.New("transcript: no audio source configured")
	}
	clip, err := b.source.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("transcript: open audio: %w", err)
	}
	defer clip.Close()
	return b.api.Transcribe(ctx, clip, b.Filename, lang)
}
