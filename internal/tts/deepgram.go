package tts

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"

	"github.com/gramudyog/assist/internal/logger"
)

// Deepgram reads text aloud through Deepgram's streaming speak API and writes linear16
// PCM to the sink.
type Deepgram struct {
	apiKey     string
	model      string
	sampleRate int
	encoding   string
	sink       io.Writer
	log        *logger.Logger

	// idleWindow ends an utterance once no audio has arrived for this long.
	idleWindow time.Duration
	maxWait    time.Duration
}

func NewDeepgram(apiKey, model string, sink io.Writer, log *logger.Logger) *Deepgram {
	if model == "" {
		model = "aura-2-thalia-en"
	}
	if sink == nil {
		sink = io.Discard
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Deepgram{
		apiKey:     apiKey,
		model:      model,
		sampleRate: 24000,
		encoding:   "linear16",
		sink:       sink,
		log:        log,
		idleWindow: 400 * time.Millisecond,
		maxWait:    30 * time.Second,
	}
}

// Synthesize blocks until the utterance has been written or ctx is done.
func (d *Deepgram) Synthesize(ctx context.Context, text, lang string) error {
	if d.apiKey == "" {
		return fmt.Errorf("deepgram: API key missing")
	}
	if text == "" {
		return nil
	}
	pcmCh, errCh := d.stream(ctx, text)
	return drain(ctx, d.sink, pcmCh, errCh)
}

func (d *Deepgram) stream(ctx context.Context, text string) (<-chan []byte, <-chan error) {
	pcmCh := make(chan []byte, 4096)
	errCh := make(chan error, 1)

	go func() {
		defer close(pcmCh)
		defer close(errCh)

		options := &clientinterfaces.WSSpeakOptions{
			Model:      d.model,
			Encoding:   d.encoding,
			SampleRate: d.sampleRate,
		}

		var lastRecvUnix int64
		var seenAudio int32

		cb := &speakCallback{onBinary: func(data []byte) error {
			if len(data) == 0 {
				return nil
			}
			atomic.StoreInt64(&lastRecvUnix, time.Now().UnixNano())
			atomic.StoreInt32(&seenAudio, 1)
			b := make([]byte, len(data))
			copy(b, data)
			select {
			case pcmCh <- b:
			case <-ctx.Done():
			}
			return nil
		}}

		dg, err := speak.NewWSUsingCallback(ctx, d.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
		if err != nil {
			errCh <- fmt.Errorf("deepgram: create ws client: %w", err)
			return
		}
		var stopped int32
		stopClient := func() {
			if atomic.CompareAndSwapInt32(&stopped, 0, 1) {
				dg.Stop()
			}
		}
		defer stopClient()

		if ok := dg.Connect(); !ok {
			errCh <- fmt.Errorf("deepgram: connect failed")
			return
		}
		if err := dg.SpeakWithText(text); err != nil {
			errCh <- fmt.Errorf("deepgram: speak text: %w", err)
			return
		}
		if err := dg.Flush(); err != nil {
			d.log.Warn("deepgram flush failed", "error", err)
		}

		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		deadline := time.Now().Add(d.maxWait)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if atomic.LoadInt32(&seenAudio) == 1 {
					last := time.Unix(0, atomic.LoadInt64(&lastRecvUnix))
					if time.Since(last) > d.idleWindow {
						return
					}
				}
				if time.Now().After(deadline) {
					errCh <- fmt.Errorf("deepgram: no end of audio after %s", d.maxWait)
					return
				}
			}
		}
	}()

	return pcmCh, errCh
}

type speakCallback struct{ onBinary func([]byte) error }

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *speakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (s *speakCallback) Error(*msginterfaces.ErrorResponse) error       { return nil }
func (s *speakCallback) UnhandledEvent([]byte) error                    { return nil }
func (s *speakCallback) Binary(byMsg []byte) error {
	if s.onBinary != nil {
		return s.onBinary(byMsg)
	}
	return nil
}
