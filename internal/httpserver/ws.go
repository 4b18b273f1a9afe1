package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/gramudyog/assist/internal/assistant"
	"github.com/gramudyog/assist/internal/visual"
)

// wsCommand is a client frame on /ws/assistant.
// Types: "query", "input", "listen", "stop_listening", "stop_speaking", "key", "lang", "tts".
type wsCommand struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Key     string `json:"key,omitempty"`
	Lang    string `json:"lang,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// wsEvent is a server frame: "state" carries a full snapshot, "error" a message.
type wsEvent struct {
	Type  string              `json:"type"`
	State *assistant.Snapshot `json:"state,omitempty"`
	Error string              `json:"error,omitempty"`
}

const wsWriteTimeout = 10 * time.Second

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 16384,
		CheckOrigin:     func(r *http.Request) bool { return s.originAllowed(r.Header.Get("Origin")) },
	}
}

// serveWS binds one assistant session to the connection for its lifetime and pushes a
// snapshot after every state change.
func (s *Server) serveWS(c echo.Context) error {
	up := s.upgrader()
	conn, err := up.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "error", err)
		return nil
	}
	defer func() { _ = conn.Close() }()

	dirty := make(chan struct{}, 1)
	errs := make(chan string, 8)
	var opts []assistant.Option
	if lang := c.QueryParam("lang"); lang != "" {
		opts = append(opts, assistant.WithLanguage(lang))
	}
	opts = append(opts, assistant.WithOnChange(func(assistant.Snapshot) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	}))
	sess := s.open(true, opts...)
	defer s.drop(sess)
	log := s.log.With("session_id", sess.ID())
	log.Info("assistant websocket connected", "remote", c.RealIP())

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		if err := s.writeLoop(ctx, conn, sess, dirty, errs); err != nil {
			log.Debug("ws write loop ended", "error", err)
			_ = conn.Close()
		}
	}()
	dirty <- struct{}{}

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("ws read ended", "error", err)
			}
			break
		}
		s.handleCommand(ctx, sess, cmd, errs)
	}
	cancel()
	<-writerDone
	log.Info("assistant websocket closed")
	return nil
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, sess *assistant.Session, dirty <-chan struct{}, errs <-chan string) error {
	for {
		var ev wsEvent
		select {
		case <-ctx.Done():
			return nil
		case <-dirty:
			snap := sess.Snapshot()
			ev = wsEvent{Type: "state", State: &snap}
		case msg := <-errs:
			ev = wsEvent{Type: "error", Error: msg}
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			return err
		}
	}
}

func (s *Server) handleCommand(ctx context.Context, sess *assistant.Session, cmd wsCommand, errs chan<- string) {
	report := func(err error) {
		select {
		case errs <- err.Error():
		default:
		}
	}
	switch strings.ToLower(cmd.Type) {
	case "query":
		go func() {
			if err := sess.Submit(ctx, cmd.Text); err != nil {
				report(err)
			}
		}()
	case "input":
		sess.SetInput(cmd.Text)
	case "listen":
		go func() {
			if _, err := sess.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
				report(err)
			}
		}()
	case "stop_listening":
		sess.StopListening()
	case "stop_speaking":
		sess.StopSpeaking()
	case "key":
		sess.VisualKey(visual.Key(cmd.Key))
	case "lang":
		sess.SetLanguage(cmd.Lang)
	case "tts":
		if cmd.Enabled != nil {
			sess.SetTTS(*cmd.Enabled)
		}
	default:
		report(errors.New("unknown command: " + cmd.Type))
	}
}
