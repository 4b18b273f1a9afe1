// Package assistant drives one user's conversation with the GramUdyog assistant: the query,
// translation of the answer, reading it aloud and the visual summary viewer.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gramudyog/assist/internal/feature"
	"github.com/gramudyog/assist/internal/i18n"
	"github.com/gramudyog/assist/internal/logger"
	"github.com/gramudyog/assist/internal/speech"
	"github.com/gramudyog/assist/internal/translate"
	"github.com/gramudyog/assist/internal/visual"
)

// Session holds the transient state of one assistant conversation. All methods are safe
// for concurrent use.
type Session struct {
	id       string
	api      Querier
	tr       Translator
	voice    *speech.Adapter
	registry *feature.Registry
	apiBase  string
	log      *logger.Logger
	onChange func(Snapshot)
	ttsOpt   *bool

	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup

	mu          sync.Mutex
	lang        string
	input       string
	transcribed string
	notice      string
	loading     bool
	translating bool
	resp        *Response
	display     string
	queryGen    uint64
	transGen    uint64
	viewer      *visual.Viewer
	closed      bool
}

type Option func(*Session)

func WithLanguage(lang string) Option {
	return func(s *Session) {
		if lang != "" {
			s.lang = strings.ToLower(lang)
		}
	}
}

func WithTranslator(tr Translator) Option { return func(s *Session) { s.tr = tr } }

func WithVoice(v *speech.Adapter) Option { return func(s *Session) { s.voice = v } }

// WithTTS sets whether replies are read aloud.
func WithTTS(on bool) Option { return func(s *Session) { s.ttsOpt = &on } }

// WithRegistry replaces the package-wide feature registry for this session.
func WithRegistry(r *feature.Registry) Option { return func(s *Session) { s.registry = r } }

// WithAPIBase sets the backend base URL used to resolve visual summary audio.
func WithAPIBase(base string) Option { return func(s *Session) { s.apiBase = base } }

func WithLogger(l *logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithOnChange registers a callback invoked with a fresh snapshot after every state change.
func WithOnChange(fn func(Snapshot)) Option { return func(s *Session) { s.onChange = fn } }

func NewSession(api Querier, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     uuid.NewString(),
		api:    api,
		lang:   i18n.Source,
		log:    logger.Nop(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(s)
	}
	if s.voice == nil {
		s.voice = speech.NewAdapter(nil, nil, s.log)
	}
	if s.ttsOpt != nil {
		s.voice.SetEnabled(*s.ttsOpt)
	}
	s.log = s.log.With("session_id", s.id)
	s.voice.OnStateChange(func(speech.State) { s.notify() })
	return s
}

func (s *Session) ID() string { return s.id }

// Submit sends text to the assistant and stores the reply. A failed request stores a
// localized error reply instead; only blank input and a closed session are reported.
func (s *Session) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.queryGen++
	gen := s.queryGen
	s.input = text
	s.loading = true
	s.notice = ""
	s.resp = nil
	s.display = ""
	s.translating = false
	s.transGen++
	old := s.viewer
	s.viewer = nil
	lang := s.lang
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	s.notify()

	resp, err := s.api.Query(ctx, text, lang)
	if err != nil {
		s.log.Warn("assistant query failed", "lang", lang, "error", err)
		resp = Response{Output: i18n.T(lang, "error.processing"), FeatureType: FeatureError}
	}
	s.apply(gen, resp)
	return nil
}

// apply stores resp if it belongs to the latest query and starts the follow-up work.
func (s *Session) apply(gen uint64, resp Response) {
	s.mu.Lock()
	if s.closed || gen != s.queryGen {
		s.mu.Unlock()
		s.log.Debug("discarding superseded response", "generation", gen)
		return
	}
	s.loading = false
	s.resp = &resp
	s.display = resp.Output
	lang := s.lang
	old := s.syncViewerLocked()
	startTranslation := s.beginTranslationLocked()
	speak := s.voice.Enabled() && resp.Output != "" && resp.FeatureType != FeatureError
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	if startTranslation != nil {
		startTranslation()
	}
	if speak {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			if err := s.voice.Speak(s.ctx, resp.Output, lang); err != nil {
				if errors.Is(err, speech.ErrUnsupported) {
					s.setNotice(i18n.T(lang, "alerts.ttsNotSupported"))
				}
			}
		}()
	}
	s.notify()
}

// syncViewerLocked opens a viewer for a visual summary reply and drops it otherwise. The
// viewer to close is returned so it can be closed without holding the lock.
func (s *Session) syncViewerLocked() *visual.Viewer {
	old := s.viewer
	s.viewer = nil
	if s.resp == nil || s.resp.FeatureType != "visual_summary" {
		return old
	}
	raw, ok := s.resp.StructuredData["visual_summary"]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return old
	}
	var sum visual.Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		s.log.Warn("visual summary payload is malformed", "error", err)
		return old
	}
	var v *visual.Viewer
	v = visual.Open(sum, func() { s.viewerClosed(v) })
	s.viewer = v
	return old
}

func (s *Session) viewerClosed(v *visual.Viewer) {
	s.mu.Lock()
	if s.viewer != v {
		s.mu.Unlock()
		return
	}
	s.viewer = nil
	s.mu.Unlock()
	s.notify()
}

// beginTranslationLocked marks the output as translating and returns the function that
// starts the work, or nil when nothing needs translating.
func (s *Session) beginTranslationLocked() func() {
	s.transGen++
	s.translating = false
	if s.resp == nil || s.resp.Output == "" || s.tr == nil || translate.IsSource(s.lang) {
		if s.resp != nil {
			s.display = s.resp.Output
		}
		return nil
	}
	s.translating = true
	gen, text, lang := s.transGen, s.resp.Output, s.lang
	return func() {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			out, err := s.tr.Translate(s.ctx, text, lang)
			s.mu.Lock()
			if s.closed || gen != s.transGen {
				s.mu.Unlock()
				return
			}
			s.translating = false
			if err == nil {
				s.display = out
			} else {
				s.log.Warn("output translation failed", "lang", lang, "error", err)
			}
			s.mu.Unlock()
			s.notify()
		}()
	}
}

// SetLanguage switches the conversation language and re-translates the current reply.
func (s *Session) SetLanguage(lang string) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = i18n.Source
	}
	s.mu.Lock()
	if s.closed || s.lang == lang {
		s.mu.Unlock()
		return
	}
	s.lang = lang
	start := s.beginTranslationLocked()
	s.mu.Unlock()
	if start != nil {
		start()
	}
	s.notify()
}

func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// SetTTS turns reading replies aloud on or off.
func (s *Session) SetTTS(on bool) {
	s.voice.SetEnabled(on)
	s.notify()
}

// SetInput replaces the pending input text.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
	s.notify()
}

// Listen captures one utterance and places its transcript in the input. Failures are
// surfaced as a localized notice as well as returned.
func (s *Session) Listen(ctx context.Context) (string, error) {
	lang := s.Language()
	text, err := s.voice.StartListening(ctx, lang)
	switch {
	case err == nil:
	case errors.Is(err, speech.ErrUnsupported):
		s.setNotice(i18n.T(lang, "alerts.speechNotSupported"))
		return "", err
	case errors.Is(err, context.Canceled), errors.Is(err, speech.ErrBusy):
		return "", err
	default:
		s.setNotice(i18n.T(lang, "alerts.speechError"))
		return "", err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return text, ErrClosed
	}
	s.transcribed = text
	s.input = text
	s.notice = ""
	s.mu.Unlock()
	s.notify()
	return text, nil
}

func (s *Session) StopListening() { s.voice.StopListening() }

func (s *Session) StopSpeaking() { s.voice.StopSpeaking() }

// Viewer returns the open visual summary viewer, if any.
func (s *Session) Viewer() *visual.Viewer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewer
}

// VisualKey forwards a key press to the open viewer.
func (s *Session) VisualKey(k visual.Key) {
	v := s.Viewer()
	if v == nil {
		return
	}
	v.Handle(k)
	s.notify()
}

// DisplayOutput is the reply text to show: the translation when ready, a localized
// placeholder while translating.
func (s *Session) DisplayOutput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayOutputLocked()
}

func (s *Session) displayOutputLocked() string {
	if s.translating {
		return i18n.T(s.lang, "status.translating")
	}
	return s.display
}

func (s *Session) Snapshot() Snapshot {
	vs := s.voice.State()
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		SessionID:   s.id,
		Language:    s.lang,
		Input:       s.input,
		Transcribed: s.transcribed,
		Loading:     s.loading,
		Listening:   vs.Listening,
		Speaking:    vs.Speaking,
		TTSEnabled:  s.voice.Enabled(),
		Translating: s.translating,
		Notice:      s.notice,
	}
	if s.resp != nil {
		snap.Output = s.displayOutputLocked()
		snap.FeatureType = s.resp.FeatureType
		if sum := s.resp.Summary; sum != "" && sum != s.resp.Output {
			snap.Summary = sum
		}
		data := feature.Payload(s.resp.StructuredData)
		if s.registry != nil {
			snap.Block = s.registry.Dispatch(s.resp.FeatureType, data)
		} else {
			snap.Block = feature.Dispatch(s.resp.FeatureType, data)
		}
	}
	if s.viewer != nil {
		view := s.viewer.View(s.apiBase, s.lang)
		snap.VisualOpen = true
		snap.Visual = &view
	}
	return snap
}

// WaitIdle blocks until background translation and speech have finished or ctx is done.
func (s *Session) WaitIdle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the session. In-flight work is cancelled and late results are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	v := s.viewer
	s.viewer = nil
	s.mu.Unlock()

	s.cancel()
	s.voice.StopListening()
	if v != nil {
		v.Close()
	}
}

func (s *Session) setNotice(msg string) {
	s.mu.Lock()
	s.notice = msg
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	s.mu.Lock()
	fn, closed := s.onChange, s.closed
	s.mu.Unlock()
	if fn == nil || closed {
		return
	}
	fn(s.Snapshot())
}
