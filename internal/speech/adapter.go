// Package speech wraps speech recognition and synthesis behind explicit start/stop
// operations with observable listening and speaking states.
package speech

import (
	"context"
	"errors"
	"sync"

	"github.com/gramudyog/assist/internal/logger"
)

var (
	// ErrUnsupported is returned when no backend is configured for the capability.
	ErrUnsupported = errors.New("speech: not supported")
	// ErrBusy is returned by StartListening while a capture is already running.
	ErrBusy = errors.New("speech: already listening")
)

// Recognizer captures one utterance in lang and returns its final transcript.
type Recognizer interface {
	Recognize(ctx context.Context, lang string) (string, error)
}

// Synthesizer reads text aloud and returns once playback has finished or ctx is done.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) error
}

type State struct {
	Listening bool `json:"listening"`
	Speaking  bool `json:"speaking"`
}

type Adapter struct {
	rec Recognizer
	syn Synthesizer
	log *logger.Logger

	mu        sync.Mutex
	enabled   bool
	listening bool
	speaking  bool
	recCancel context.CancelFunc
	recSeq    uint64
	ttsCancel context.CancelFunc
	ttsSeq    uint64
	onChange  func(State)
}

// NewAdapter builds an adapter. Either backend may be nil, which makes the matching
// operation report ErrUnsupported.
func NewAdapter(rec Recognizer, syn Synthesizer, log *logger.Logger) *Adapter {
	if log == nil {
		log = logger.Nop()
	}
	return &Adapter{rec: rec, syn: syn, log: log, enabled: true}
}

// OnStateChange registers fn to be called after every listening/speaking transition.
func (a *Adapter) OnStateChange(fn func(State)) {
	a.mu.Lock()
	a.onChange = fn
	a.mu.Unlock()
}

func (a *Adapter) CanListen() bool { return a.rec != nil }
func (a *Adapter) CanSpeak() bool  { return a.syn != nil }

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return State{Listening: a.listening, Speaking: a.speaking}
}

func (a *Adapter) Listening() bool { return a.State().Listening }
func (a *Adapter) Speaking() bool  { return a.State().Speaking }

// SetEnabled turns read-aloud on or off. Turning it off stops the current utterance.
func (a *Adapter) SetEnabled(on bool) {
	a.mu.Lock()
	a.enabled = on
	a.mu.Unlock()
	if !on {
		a.StopSpeaking()
	}
}

func (a *Adapter) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// StartListening runs a single non-continuous capture and blocks until the final
// transcript, an error or StopListening.
func (a *Adapter) StartListening(ctx context.Context, lang string) (string, error) {
	if a.rec == nil {
		return "", ErrUnsupported
	}
	a.mu.Lock()
	if a.listening {
		a.mu.Unlock()
		return "", ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	a.recSeq++
	seq := a.recSeq
	a.listening = true
	a.recCancel = cancel
	notify := a.stateLocked()
	a.mu.Unlock()
	notify()

	text, err := a.rec.Recognize(ctx, lang)
	cancel()

	// A capture abandoned by StopListening must not clear a newer one.
	a.mu.Lock()
	if a.recSeq == seq {
		a.listening = false
		a.recCancel = nil
		notify = a.stateLocked()
	} else {
		notify = func() {}
	}
	a.mu.Unlock()
	notify()

	if err != nil {
		a.log.Warn("speech recognition ended with error", "lang", lang, "error", err)
		return "", err
	}
	return text, nil
}

// StopListening cancels a running capture. Any utterance being spoken is cut as well.
func (a *Adapter) StopListening() {
	a.StopSpeaking()
	a.mu.Lock()
	cancel := a.recCancel
	a.recCancel = nil
	a.recSeq++
	changed := a.listening
	a.listening = false
	notify := a.stateLocked()
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if changed {
		notify()
	}
}

// Speak reads text aloud, replacing whatever is being spoken. It is a no-op while
// read-aloud is disabled.
func (a *Adapter) Speak(ctx context.Context, text, lang string) error {
	a.mu.Lock()
	if !a.enabled || text == "" {
		a.mu.Unlock()
		return nil
	}
	if a.syn == nil {
		a.mu.Unlock()
		return ErrUnsupported
	}
	if a.ttsCancel != nil {
		a.ttsCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	a.ttsSeq++
	seq := a.ttsSeq
	a.ttsCancel = cancel
	a.speaking = true
	notify := a.stateLocked()
	a.mu.Unlock()
	notify()

	err := a.syn.Synthesize(ctx, text, lang)
	interrupted := ctx.Err() != nil
	cancel()

	a.mu.Lock()
	if a.ttsSeq == seq {
		a.speaking = false
		a.ttsCancel = nil
		notify = a.stateLocked()
	} else {
		notify = func() {}
	}
	a.mu.Unlock()
	notify()

	if err != nil && !interrupted {
		a.log.Warn("speech synthesis failed", "lang", lang, "error", err)
		return err
	}
	return nil
}

// StopSpeaking cancels synthesis unconditionally.
func (a *Adapter) StopSpeaking() {
	a.mu.Lock()
	cancel := a.ttsCancel
	a.ttsCancel = nil
	a.ttsSeq++
	changed := a.speaking
	a.speaking = false
	notify := a.stateLocked()
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if changed {
		notify()
	}
}

// stateLocked snapshots the state for a notification delivered after the lock is released.
func (a *Adapter) stateLocked() func() {
	fn := a.onChange
	st := State{Listening: a.listening, Speaking: a.speaking}
	if fn == nil {
		return func() {}
	}
	return func() { fn(st) }
}
