// Package translate splits long text into fixed-size chunks, translates the chunks
// concurrently and stitches the results back together in order.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gramudyog/assist/internal/i18n"
	"github.com/gramudyog/assist/internal/logger"
)

const (
	DefaultChunkSize   = 400
	defaultConcurrency = 8
)

// Translator translates a single piece of text.
type Translator interface {
	TranslateText(ctx context.Context, text, lang string) (string, error)
}

// JSONTranslator translates the string values of a structured document.
type JSONTranslator interface {
	TranslateJSON(ctx context.Context, v any, lang string) (json.RawMessage, error)
}

// Cache stores per-chunk translations. A miss is ("", false, nil).
type Cache interface {
	Get(ctx context.Context, lang, text string) (string, bool, error)
	Set(ctx context.Context, lang, text, translated string) error
}

type Chunker struct {
	tr    Translator
	size  int
	conc  int
	cache Cache
	log   *logger.Logger
}

type Option func(*Chunker)

func WithChunkSize(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.size = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.conc = n
		}
	}
}

func WithCache(cache Cache) Option {
	return func(c *Chunker) { c.cache = cache }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Chunker) {
		if l != nil {
			c.log = l
		}
	}
}

func NewChunker(tr Translator, opts ...Option) *Chunker {
	c := &Chunker{tr: tr, size: DefaultChunkSize, conc: defaultConcurrency, log: logger.Nop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// IsSource reports whether lang needs no translation.
func IsSource(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	return lang == "" || lang == i18n.Source
}

// Split cuts text into contiguous pieces of at most size runes. Joining the pieces gives
// back text exactly.
func Split(text string, size int) []string {
	if text == "" {
		return nil
	}
	r := []rune(text)
	if size <= 0 || len(r) <= size {
		return []string{text}
	}
	out := make([]string, 0, (len(r)/size)+1)
	for i := 0; i < len(r); i += size {
		end := i + size
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[i:end]))
	}
	return out
}

// Translate returns text in lang. A chunk whose translation fails keeps its original text,
// so the only error is the context being done.
func (c *Chunker) Translate(ctx context.Context, text, lang string) (string, error) {
	if text == "" || IsSource(lang) {
		return text, nil
	}
	chunks := Split(text, c.size)
	results := make([]string, len(chunks))

	var g errgroup.Group
	g.SetLimit(c.conc)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			results[i] = c.translateChunk(ctx, i, chunk, lang)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return text, err
	}
	return strings.Join(results, ""), nil
}

func (c *Chunker) translateChunk(ctx context.Context, idx int, chunk, lang string) string {
	if c.cache != nil {
		if v, ok, err := c.cache.Get(ctx, lang, chunk); err != nil {
			c.log.Warn("translation cache read failed", "lang", lang, "chunk", idx, "error", err)
		} else if ok {
			return v
		}
	}
	out, err := c.tr.TranslateText(ctx, chunk, lang)
	if err != nil {
		c.log.Warn("chunk translation failed, keeping original", "lang", lang, "chunk", idx, "error", err)
		return chunk
	}
	if out == "" {
		c.log.Warn("chunk translation empty, keeping original", "lang", lang, "chunk", idx)
		return chunk
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, lang, chunk, out); err != nil {
			c.log.Warn("translation cache write failed", "lang", lang, "chunk", idx, "error", err)
		}
	}
	return out
}

// ErrNoStructured is returned by TranslateJSON when the translator cannot take documents.
var ErrNoStructured = errors.New("translate: structured translation not supported")

// TranslateJSON translates a structured value in one request. For the source language the
// value is marshalled unchanged.
func (c *Chunker) TranslateJSON(ctx context.Context, v any, lang string) (json.RawMessage, error) {
	if IsSource(lang) {
		return json.Marshal(v)
	}
	jt, ok := c.tr.(JSONTranslator)
	if !ok {
		return nil, ErrNoStructured
	}
	return jt.TranslateJSON(ctx, v, lang)
}
