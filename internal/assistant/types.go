package assistant

import (
	"context"
	"errors"

	"github.com/gramudyog/assist/internal/backend"
	"github.com/gramudyog/assist/internal/feature"
	"github.com/gramudyog/assist/internal/visual"
)

var (
	// ErrEmptyInput is returned by Submit for blank input; no request is made.
	ErrEmptyInput = errors.New("assistant: empty input")
	// ErrClosed is returned once the session has been closed.
	ErrClosed = errors.New("assistant: session closed")
)

// FeatureError tags the synthetic response stored when a query fails.
const FeatureError = "error"

// Response is one assistant reply.
type Response = backend.AssistantResponse

// Querier sends a query to the assistant backend.
type Querier interface {
	Query(ctx context.Context, text, lang string) (Response, error)
}

// Translator translates display text; translate.Chunker satisfies it.
type Translator interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// Snapshot is a consistent copy of the session state for presentation.
type Snapshot struct {
	SessionID   string         `json:"session_id"`
	Language    string         `json:"language"`
	Input       string         `json:"input"`
	Transcribed string         `json:"transcribed,omitempty"`
	Loading     bool           `json:"loading"`
	Listening   bool           `json:"listening"`
	Speaking    bool           `json:"speaking"`
	TTSEnabled  bool           `json:"tts_enabled"`
	Translating bool           `json:"translating"`
	Notice      string         `json:"notice,omitempty"`
	Output      string         `json:"output,omitempty"`
	FeatureType string         `json:"feature_type,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Block       *feature.Block `json:"block,omitempty"`
	VisualOpen  bool           `json:"visual_open"`
	Visual      *visual.View   `json:"visual,omitempty"`
}
