package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gramudyog/assist/internal/apierr"
	"github.com/gramudyog/assist/internal/assistant"
	"github.com/gramudyog/assist/internal/events"
	"github.com/gramudyog/assist/internal/logger"
	mw "github.com/gramudyog/assist/internal/middleware"
	"github.com/gramudyog/assist/internal/visual"
)

// HeaderSessionID names the assistant session a REST request addresses.
const HeaderSessionID = "X-Session-ID"

// DefaultIdleTTL is how long a REST session survives without requests.
const DefaultIdleTTL = 30 * time.Minute

// SessionFactory builds a new assistant session with the server's shared dependencies.
type SessionFactory func(opts ...assistant.Option) *assistant.Session

type Deps struct {
	NewSession SessionFactory
	// Events and Translator are optional; without them the event routes answer 503.
	Events     *events.Generator
	Translator events.StructuredTranslator
	Log        *logger.Logger
	// IdleTTL evicts REST sessions that saw no request for this long. Zero means DefaultIdleTTL.
	IdleTTL    time.Duration
}

type liveSession struct {
	sess   *assistant.Session
	seen   time.Time
	// pinned sessions belong to an open websocket and are never evicted.
	pinned bool
}

// Server bundles the HTTP router with the live assistant sessions.
type Server struct {
	Echo *echo.Echo

	deps    Deps
	log     *logger.Logger
	origins []string

	now      func() time.Time
	mu       sync.Mutex
	sessions map[string]*liveSession
}

// New constructs the HTTP server with routes.
func New(allowedOrigins []string, d Deps) *Server {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.IdleTTL <= 0 {
		d.IdleTTL = DefaultIdleTTL
	}
	s := &Server{
		Echo:     NewEcho(allowedOrigins),
		deps:     d,
		log:      d.Log,
		origins:  allowedOrigins,
		now:      time.Now,
		sessions: make(map[string]*liveSession),
	}
	s.Echo.Use(mw.SessionFromRequest("/api/assistant/", HeaderSessionID, s.lookup))

	s.Echo.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	s.Echo.POST("/api/assistant/session", s.createSession)
	s.Echo.DELETE("/api/assistant/session", s.closeSession)
	s.Echo.POST("/api/assistant/query", s.query)
	s.Echo.GET("/api/assistant/state", s.state)
	s.Echo.POST("/api/assistant/visual/key", s.visualKey)
	s.Echo.POST("/api/assistant/tts", s.setTTS)

	s.Echo.POST("/api/events/generate", s.generateEvent)
	s.Echo.POST("/api/events/voice", s.generateEventFromVoice)
	s.Echo.POST("/api/events/translate", s.translateEvent)

	s.Echo.GET("/ws/assistant", s.serveWS)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.Echo.ServeHTTP(w, r) }

// Close ends every live session.
func (s *Server) Close() {
	s.mu.Lock()
	live := make([]*assistant.Session, 0, len(s.sessions))
	for _, ls := range s.sessions {
		live = append(live, ls.sess)
	}
	s.sessions = make(map[string]*liveSession)
	s.mu.Unlock()
	for _, sess := range live {
		sess.Close()
	}
}

func (s *Server) lookup(id string) (*assistant.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	ls.seen = s.now()
	return ls.sess, true
}

// open registers a new session and evicts idle unpinned ones.
func (s *Server) open(pinned bool, opts ...assistant.Option) *assistant.Session {
	sess := s.deps.NewSession(opts...)
	now := s.now()
	s.mu.Lock()
	var idle []*assistant.Session
	for id, ls := range s.sessions {
		if !ls.pinned && now.Sub(ls.seen) > s.deps.IdleTTL {
			idle = append(idle, ls.sess)
			delete(s.sessions, id)
		}
	}
	s.sessions[sess.ID()] = &liveSession{sess: sess, seen: now, pinned: pinned}
	n := len(s.sessions)
	s.mu.Unlock()
	for _, old := range idle {
		old.Close()
	}
	if len(idle) > 0 {
		s.log.Info("evicted idle assistant sessions", "count", len(idle))
	}
	s.log.Debug("assistant session opened", "session_id", sess.ID(), "live", n)
	return sess
}

func (s *Server) drop(sess *assistant.Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID())
	s.mu.Unlock()
	sess.Close()
}

// session returns the addressed session, creating one when the request names none.
func (s *Server) session(c echo.Context, create bool) (*assistant.Session, error) {
	if sess, ok := mw.Session(c); ok {
		return sess, nil
	}
	if !create {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "missing "+HeaderSessionID)
	}
	sess := s.open(false)
	c.Response().Header().Set(HeaderSessionID, sess.ID())
	return sess, nil
}

func (s *Server) createSession(c echo.Context) error {
	var req struct {
		Lang string `json:"lang"`
		TTS  *bool  `json:"tts"`
	}
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	var opts []assistant.Option
	if req.Lang != "" {
		opts = append(opts, assistant.WithLanguage(req.Lang))
	}
	if req.TTS != nil {
		opts = append(opts, assistant.WithTTS(*req.TTS))
	}
	sess := s.open(false, opts...)
	c.Response().Header().Set(HeaderSessionID, sess.ID())
	return c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) closeSession(c echo.Context) error {
	sess, err := s.session(c, false)
	if err != nil {
		return err
	}
	s.drop(sess)
	return c.NoContent(http.StatusNoContent)
}

type queryRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

func (s *Server) query(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	sess, err := s.session(c, true)
	if err != nil {
		return err
	}
	if req.Lang != "" {
		sess.SetLanguage(req.Lang)
	}
	switch err := sess.Submit(c.Request().Context(), req.Text); {
	case errors.Is(err, assistant.ErrEmptyInput):
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	case errors.Is(err, assistant.ErrClosed):
		return echo.NewHTTPError(http.StatusGone, "session closed")
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) state(c echo.Context) error {
	sess, err := s.session(c, false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) visualKey(c echo.Context) error {
	var req struct {
		Key string `json:"key"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	sess, err := s.session(c, false)
	if err != nil {
		return err
	}
	if sess.Viewer() == nil {
		return echo.NewHTTPError(http.StatusConflict, "no visual summary open")
	}
	sess.VisualKey(visual.Key(req.Key))
	return c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) setTTS(c echo.Context) error {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	sess, err := s.session(c, false)
	if err != nil {
		return err
	}
	sess.SetTTS(req.Enabled)
	return c.JSON(http.StatusOK, sess.Snapshot())
}

type eventRequest struct {
	Form   events.Form `json:"form"`
	Prompt string      `json:"prompt"`
	Lang   string      `json:"lang"`
}

type eventResponse struct {
	Form       events.Form `json:"form"`
	Transcript string      `json:"transcript,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func (s *Server) generateEvent(c echo.Context) error {
	if s.deps.Events == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event generation is not configured")
	}
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	form, err := s.deps.Events.Apply(c.Request().Context(), req.Form, req.Prompt, req.Lang)
	if err != nil {
		return c.JSON(upstreamStatus(err), eventResponse{Form: form, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, eventResponse{Form: form})
}

// generateEventFromVoice takes multipart "audio", optional "form" (JSON) and "language".
func (s *Server) generateEventFromVoice(c echo.Context) error {
	if s.deps.Events == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event generation is not configured")
	}
	fh, err := c.FormFile("audio")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "audio file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	clip, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	var form events.Form
	if raw := c.FormValue("form"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &form); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid form JSON")
		}
	}
	out, transcript, err := s.deps.Events.FromVoice(c.Request().Context(), form, clip, fh.Filename, c.FormValue("language"))
	switch {
	case errors.Is(err, events.ErrNoTranscript):
		return c.JSON(http.StatusUnprocessableEntity, eventResponse{Form: out, Error: err.Error()})
	case err != nil:
		return c.JSON(upstreamStatus(err), eventResponse{Form: out, Transcript: transcript, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, eventResponse{Form: out, Transcript: transcript})
}

func (s *Server) translateEvent(c echo.Context) error {
	if s.deps.Translator == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "translation is not configured")
	}
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	form, err := events.Translate(c.Request().Context(), s.deps.Translator, req.Form, req.Lang)
	if err != nil {
		return c.JSON(upstreamStatus(err), eventResponse{Form: form, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, eventResponse{Form: form})
}

// upstreamStatus maps a backend failure to the status reported to our caller.
func upstreamStatus(err error) int {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status >= 400 && ae.Status < 500 {
		return ae.Status
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// bindOptional binds a JSON body when one was sent.
func bindOptional(c echo.Context, v any) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	return nil
}

func (s *Server) originAllowed(origin string) bool {
	if origin == "" || len(s.origins) == 0 {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
