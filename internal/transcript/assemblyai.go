package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gramudyog/assist/internal/logger"
)

const assemblyAIURL = "wss://streaming.assemblyai.com/v3/ws"

// pcmFrame is 100ms of 16 kHz PCM16 mono.
const pcmFrame = 3200

// AssemblyAI recognizes one utterance over the AssemblyAI streaming API. The first turn
// marked end_of_turn is the result.
type AssemblyAI struct {
	APIKey string
	URL    string
	Source Source
	Dialer *websocket.Dialer
	log    *logger.Logger
}

// AssemblyAI message types
type BeginMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

type TurnMessage struct {
	Type          string `json:"type"`
	Transcript    string `json:"transcript"`
	EndOfTurn     bool   `json:"end_of_turn"`
	TurnFormatted bool   `json:"turn_is_formatted"`
}

type TerminationMessage struct {
	Type                   string  `json:"type"`
	AudioDurationSeconds   float64 `json:"audio_duration_seconds"`
	SessionDurationSeconds float64 `json:"session_duration_seconds"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewAssemblyAI(apiKey string, src Source, log *logger.Logger) *AssemblyAI {
	if log == nil {
		log = logger.Nop()
	}
	return &AssemblyAI{
		APIKey: apiKey,
		URL:    assemblyAIURL,
		Source: src,
		Dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    log,
	}
}

type recognition struct {
	text string
	err  error
}

// Recognize streams the source until AssemblyAI closes a turn, the source ends or ctx is done.
func (s *AssemblyAI) Recognize(ctx context.Context, lang string) (string, error) {
	if s.APIKey == "" {
		return "", errors.New("AssemblyAI API key is empty")
	}
	if s.Source == nil {
		return "", errors.New("transcript: no audio source configured")
	}

	params := url.Values{}
	params.Set("sample_rate", "16000")
	params.Set("encoding", "pcm_s16le")
	params.Set("format_turns", "true")
	if base := baseLang(lang); base != "" && base != "en" {
		params.Set("speech_model", "universal-streaming-multilingual")
	}
	wsURL := s.URL + "?" + params.Encode()
	headers := map[string][]string{"Authorization": {s.APIKey}}

	conn, resp, err := s.Dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			s.log.Warn("assemblyai connection refused", "status", resp.StatusCode)
		}
		return "", fmt.Errorf("failed to connect to AssemblyAI: %w", err)
	}
	defer conn.Close()

	audio, err := s.Source.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("transcript: open audio: %w", err)
	}
	defer audio.Close()

	var writeMu sync.Mutex
	terminate := func() {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.WriteJSON(map[string]string{"type": "Terminate"})
	}

	results := make(chan recognition, 1)
	go func() {
		var latest string
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				results <- recognition{text: latest, err: fmt.Errorf("assemblyai read: %w", err)}
				return
			}
			text, done, err := s.processMessage(message, &latest)
			if err != nil || done {
				results <- recognition{text: text, err: err}
				return
			}
		}
	}()

	go func() {
		buf := make([]byte, pcmFrame)
		for {
			n, rerr := audio.Read(buf)
			if n > 0 {
				writeMu.Lock()
				werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n])
				writeMu.Unlock()
				if werr != nil {
					return
				}
			}
			if rerr != nil {
				if !errors.Is(rerr, io.EOF) {
					s.log.Warn("audio source read failed", "error", rerr)
				}
				terminate()
				return
			}
		}
	}()

	select {
	case r := <-results:
		terminate()
		if r.err != nil && r.text != "" {
			return strings.TrimSpace(r.text), nil
		}
		return strings.TrimSpace(r.text), r.err
	case <-ctx.Done():
		terminate()
		return "", ctx.Err()
	}
}

// processMessage updates latest with the running transcript and reports whether the
// utterance is complete.
func (s *AssemblyAI) processMessage(message []byte, latest *string) (string, bool, error) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &base); err != nil {
		s.log.Debug("assemblyai: undecodable message", "error", err)
		return "", false, nil
	}
	switch base.Type {
	case "Begin":
		var msg BeginMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			s.log.Debug("assemblyai session began", "id", msg.ID, "expires_at", time.Unix(msg.ExpiresAt, 0).Format(time.RFC3339))
		}
	case "Turn":
		var msg TurnMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return "", false, nil
		}
		if msg.Transcript != "" {
			*latest = msg.Transcript
		}
		if msg.EndOfTurn && strings.TrimSpace(msg.Transcript) != "" {
			return msg.Transcript, true, nil
		}
	case "Termination":
		var msg TerminationMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			s.log.Debug("assemblyai session terminated", "audio_seconds", msg.AudioDurationSeconds)
		}
		return *latest, true, nil
	case "Error":
		var msg ErrorMessage
		_ = json.Unmarshal(message, &msg)
		return "", true, fmt.Errorf("assemblyai: %s", msg.Error)
	}
	return "", false, nil
}

// baseLang turns "hi-IN" into "hi".
func baseLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		return lang[:i]
	}
	return lang
}
