package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramudyog/assist/internal/assistant"
	"github.com/gramudyog/assist/internal/speech"
)

type cannedQuerier struct{}

func (cannedQuerier) Query(ctx context.Context, text, lang string) (assistant.Response, error) {
	if text == "guide" {
		return assistant.Response{
			Output:      "A short guide",
			FeatureType: "visual_summary",
			StructuredData: map[string]json.RawMessage{
				"visual_summary": json.RawMessage(`{"topic":"Bamboo","summary_data":{"title":"Craft","sections":[
					{"title":"Cut","text":"Cut the cane","imageUrl":"https://www.youtube.com/watch?v=z1"},
					{"title":"Weave","text":"Weave tight"}]}}`),
			},
		}, nil
	}
	return assistant.Response{
		Output:      "Jobs near you",
		FeatureType: "recommend_job",
		StructuredData: map[string]json.RawMessage{
			"jobs": json.RawMessage(`[{"title":"Carpenter","company":"Woodworks"}]`),
		},
	}, nil
}

func runScript(t *testing.T, script string) string {
	t.Helper()
	sess := assistant.NewSession(cannedQuerier{}, assistant.WithTTS(false))
	defer sess.Close()
	var out bytes.Buffer
	r := newREPL(sess, &out)
	require.NoError(t, r.run(context.Background(), strings.NewReader(script)))
	return out.String()
}

func TestREPL_QueryPrintsOutputAndBlock(t *testing.T) {
	out := runScript(t, "find work\n:quit\n")
	assert.Contains(t, out, "Assistant: Jobs near you")
	assert.Contains(t, out, "1. Carpenter")
}

func TestREPL_VisualNavigation(t *testing.T) {
	out := runScript(t, "guide\n:next\n:next\n:close\n:quit\n")
	assert.Contains(t, out, "Section 1 of 2")
	assert.Contains(t, out, "https://www.youtube.com/embed/z1")
	assert.Contains(t, out, "Section 2 of 2")
	assert.Contains(t, out, "No video available for this section")
}

func TestREPL_CommandsAndNotices(t *testing.T) {
	out := runScript(t, "   \n:listen\n:bogus\n")
	assert.Contains(t, out, "Please type or speak a question first.")
	assert.Contains(t, out, "! Speech recognition is not supported on this device.")
	assert.Contains(t, out, "unknown command :bogus")
}

type waitingRecognizer struct{ started chan struct{} }

func (w waitingRecognizer) Recognize(ctx context.Context, lang string) (string, error) {
	close(w.started)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestREPL_StopInterruptsListen(t *testing.T) {
	rec := waitingRecognizer{started: make(chan struct{})}
	voice := speech.NewAdapter(rec, nil, nil)
	sess := assistant.NewSession(cannedQuerier{}, assistant.WithVoice(voice), assistant.WithTTS(false))
	defer sess.Close()
	var out bytes.Buffer
	r := newREPL(sess, &out)

	assert.False(t, r.handle(context.Background(), ":listen"))
	select {
	case <-rec.started:
	case <-time.After(time.Second):
		t.Fatalf("capture did not start")
	}
	assert.True(t, voice.Listening())

	assert.False(t, r.handle(context.Background(), ":stop"))
	select {
	case h := <-r.heard:
		assert.ErrorIs(t, h.err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatalf(":stop did not end the capture")
	}
	assert.False(t, voice.Listening())
}
