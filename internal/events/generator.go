package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gramudyog/assist/internal/backend"
	"github.com/gramudyog/assist/internal/logger"
)

// ErrNoTranscript is returned by FromVoice when the clip produced no text.
var ErrNoTranscript = errors.New("events: no transcript")

// Backend is the slice of the backend API the generator needs.
type Backend interface {
	GenerateEvent(ctx context.Context, p backend.EventPrompt) (json.RawMessage, error)
	Transcribe(ctx context.Context, audio io.Reader, filename, lang string) (string, error)
}

// Archiver keeps a copy of voice prompts.
type Archiver interface {
	Put(ctx context.Context, clip []byte, filename, lang string) (string, error)
}

// StructuredTranslator translates a whole document in one request; translate.Chunker
// satisfies it.
type StructuredTranslator interface {
	TranslateJSON(ctx context.Context, v any, lang string) (json.RawMessage, error)
}

type Generator struct {
	api     Backend
	archive Archiver
	log     *logger.Logger
}

// NewGenerator builds a generator. archive may be nil.
func NewGenerator(api Backend, archive Archiver, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{api: api, archive: archive, log: log}
}

// Generate asks the backend to draft an event of eventType from prompt.
func (g *Generator) Generate(ctx context.Context, prompt, eventType, lang string) (Generated, error) {
	raw, err := g.api.GenerateEvent(ctx, backend.EventPrompt{Prompt: prompt, EventType: eventType, Language: lang})
	if err != nil {
		return Generated{}, fmt.Errorf("events: generate: %w", err)
	}
	var out Generated
	if err := json.Unmarshal(raw, &out); err != nil {
		return Generated{}, fmt.Errorf("events: decode generated event: %w", err)
	}
	return out, nil
}

// Apply drafts into form. A blank prompt falls back to the form's own description. On
// failure form is returned unchanged together with the error.
func (g *Generator) Apply(ctx context.Context, form Form, prompt, lang string) (Form, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = form.DefaultPrompt()
	}
	gen, err := g.Generate(ctx, prompt, form.EventType, lang)
	if err != nil {
		g.log.Warn("event generation failed", "event_type", form.EventType, "error", err)
		return form, err
	}
	return form.Merge(gen), nil
}

// FromVoice transcribes a spoken prompt, archives the clip when an archive is configured
// and drafts the form from the transcript. The transcript is returned even when drafting
// fails.
func (g *Generator) FromVoice(ctx context.Context, form Form, clip []byte, filename, lang string) (Form, string, error) {
	transcript, err := g.api.Transcribe(ctx, bytes.NewReader(clip), filename, lang)
	if err != nil {
		return form, "", fmt.Errorf("events: transcribe: %w", err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return form, "", ErrNoTranscript
	}
	if g.archive != nil {
		if key, err := g.archive.Put(ctx, clip, filename, lang); err != nil {
			g.log.Warn("voice prompt archive failed", "error", err)
		} else {
			g.log.Info("voice prompt archived", "key", key)
		}
	}
	out, err := g.Apply(ctx, form, transcript, lang)
	return out, transcript, err
}

// Translate rewrites the form's title, description, skills and tags into lang. Fields the
// translation leaves empty or absent keep their current value.
func Translate(ctx context.Context, tr StructuredTranslator, form Form, lang string) (Form, error) {
	raw, err := tr.TranslateJSON(ctx, form, lang)
	if err != nil {
		return form, fmt.Errorf("events: translate: %w", err)
	}
	var got Generated
	if err := json.Unmarshal(raw, &got); err != nil {
		return form, fmt.Errorf("events: decode translation: %w", err)
	}
	return form.Merge(Generated{
		Title:          got.Title,
		Description:    got.Description,
		SkillsRequired: got.SkillsRequired,
		Tags:           got.Tags,
	}), nil
}
