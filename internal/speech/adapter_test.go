package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	text    string
	err     error
	block   bool
	started chan struct{}
}

func (f *fakeRecognizer) Recognize(ctx context.Context, lang string) (string, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

type fakeSynth struct {
	mu      sync.Mutex
	spoken  []string
	block   bool
	started chan string
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, lang string) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- text
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func TestStartListening_Unsupported(t *testing.T) {
	a := NewAdapter(nil, nil, nil)
	var calls int
	a.OnStateChange(func(State) { calls++ })
	_, err := a.StartListening(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.False(t, a.Listening())
	assert.Zero(t, calls)
}

func TestStartListening_ReturnsTranscriptAndGoesIdle(t *testing.T) {
	a := NewAdapter(&fakeRecognizer{text: "find jobs"}, nil, nil)
	var mu sync.Mutex
	var states []State
	a.OnStateChange(func(s State) { mu.Lock(); states = append(states, s); mu.Unlock() })

	text, err := a.StartListening(context.Background(), "en")
	require.NoError(t, err)
	assert.Equal(t, "find jobs", text)
	assert.False(t, a.Listening())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{{Listening: true}, {}}, states)
}

func TestStartListening_ErrorGoesIdle(t *testing.T) {
	a := NewAdapter(&fakeRecognizer{err: errors.New("no-speech")}, nil, nil)
	_, err := a.StartListening(context.Background(), "en")
	assert.Error(t, err)
	assert.False(t, a.Listening())
}

func TestStopListening_CancelsCapture(t *testing.T) {
	rec := &fakeRecognizer{block: true, started: make(chan struct{})}
	a := NewAdapter(rec, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := a.StartListening(context.Background(), "hi")
		done <- err
	}()
	<-rec.started
	assert.True(t, a.Listening())

	_, err := a.StartListening(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrBusy)

	a.StopListening()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatalf("capture was not cancelled")
	}
	assert.False(t, a.Listening())
}

func TestSpeak_DisabledAndUnsupported(t *testing.T) {
	syn := &fakeSynth{}
	a := NewAdapter(nil, syn, nil)
	a.SetEnabled(false)
	require.NoError(t, a.Speak(context.Background(), "hello", "en"))
	assert.Empty(t, syn.spoken)

	b := NewAdapter(nil, nil, nil)
	assert.ErrorIs(t, b.Speak(context.Background(), "hello", "en"), ErrUnsupported)
}

func TestSpeak_TransitionsAndReturnsIdle(t *testing.T) {
	syn := &fakeSynth{}
	a := NewAdapter(nil, syn, nil)
	var states []State
	a.OnStateChange(func(s State) { states = append(states, s) })
	require.NoError(t, a.Speak(context.Background(), "hello", "en"))
	assert.False(t, a.Speaking())
	assert.Equal(t, []State{{Speaking: true}, {}}, states)
	assert.Equal(t, []string{"hello"}, syn.spoken)
}

func TestSpeak_NewUtteranceCancelsPrevious(t *testing.T) {
	syn := &fakeSynth{block: true, started: make(chan string, 2)}
	a := NewAdapter(nil, syn, nil)

	first := make(chan error, 1)
	go func() { first <- a.Speak(context.Background(), "one", "en") }()
	<-syn.started

	second := make(chan error, 1)
	go func() { second <- a.Speak(context.Background(), "two", "en") }()
	<-syn.started

	select {
	case err := <-first:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("first utterance was not cancelled")
	}
	assert.True(t, a.Speaking())

	a.StopSpeaking()
	select {
	case err := <-second:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("second utterance was not cancelled")
	}
	assert.False(t, a.Speaking())
}

func TestStopListening_AlsoStopsSpeaking(t *testing.T) {
	syn := &fakeSynth{block: true, started: make(chan string, 1)}
	a := NewAdapter(&fakeRecognizer{}, syn, nil)
	done := make(chan error, 1)
	go func() { done <- a.Speak(context.Background(), "hello", "en") }()
	<-syn.started

	a.StopListening()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("speech was not cancelled")
	}
	assert.False(t, a.Speaking())
}

// stubbornRecognizer ignores cancellation on its first capture until release is closed.
type stubbornRecognizer struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	started chan int
}

func (r *stubbornRecognizer) Recognize(ctx context.Context, lang string) (string, error) {
	r.mu.Lock()
	r.calls++
	n := r.calls
	r.mu.Unlock()
	r.started <- n
	if n == 1 {
		<-r.release
		return "late", nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func TestStartListening_AbandonedCaptureKeepsNewerState(t *testing.T) {
	rec := &stubbornRecognizer{release: make(chan struct{}), started: make(chan int, 2)}
	a := NewAdapter(rec, nil, nil)

	first := make(chan error, 1)
	go func() {
		_, err := a.StartListening(context.Background(), "hi")
		first <- err
	}()
	require.Equal(t, 1, <-rec.started)
	a.StopListening()
	assert.False(t, a.Listening())

	second := make(chan error, 1)
	go func() {
		_, err := a.StartListening(context.Background(), "hi")
		second <- err
	}()
	require.Equal(t, 2, <-rec.started)
	assert.True(t, a.Listening())

	close(rec.release)
	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatalf("first capture did not return")
	}
	assert.True(t, a.Listening())

	a.StopListening()
	select {
	case err := <-second:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatalf("second capture was not cancelled")
	}
	assert.False(t, a.Listening())
}
