package translate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranslator struct {
	calls  int32
	failOn map[string]bool
	empty  map[string]bool
}

func (f *fakeTranslator) TranslateText(ctx context.Context, text, lang string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.failOn[text] {
		return "", errors.New("status 500")
	}
	if f.empty[text] {
		return "", nil
	}
	return strings.ToUpper(text), nil
}

type memCache struct {
	mu sync.Mutex
	m  map[string]string
}

func (c *memCache) Get(_ context.Context, lang, text string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[lang+"|"+text]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, lang, text, translated string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[lang+"|"+text] = translated
	return nil
}

func TestSplit_ConcatReconstructs(t *testing.T) {
	inputs := []string{
		"a",
		strings.Repeat("x", 400),
		strings.Repeat("ab ", 401),
		"नमस्ते दुनिया, यह एक लंबा वाक्य है",
	}
	for _, in := range inputs {
		for _, size := range []int{1, 3, 7, 400} {
			parts := Split(in, size)
			assert.Equal(t, in, strings.Join(parts, ""))
			for _, p := range parts {
				assert.LessOrEqual(t, len([]rune(p)), size)
				assert.NotEmpty(t, p)
			}
		}
	}
	assert.Nil(t, Split("", 400))
}

func TestSplit_ChunkCount(t *testing.T) {
	assert.Len(t, Split(strings.Repeat("x", 1000), 400), 3)
	assert.Len(t, Split(strings.Repeat("x", 800), 400), 2)
}

func TestTranslate_SourceLanguageAndEmptyAreIdentity(t *testing.T) {
	tr := &fakeTranslator{}
	c := NewChunker(tr)

	out, err := c.Translate(context.Background(), "hello", "en")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	out, err = c.Translate(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "", out)

	assert.Equal(t, int32(0), atomic.LoadInt32(&tr.calls))
}

func TestTranslate_ReassemblesInOrder(t *testing.T) {
	tr := &fakeTranslator{}
	c := NewChunker(tr, WithChunkSize(2))
	out, err := c.Translate(context.Background(), "abcdefg", "hi")
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFG", out)
	assert.Equal(t, int32(4), atomic.LoadInt32(&tr.calls))
}

// barrierTranslator holds every chunk until all of them are in flight, then finishes
// the first chunk last.
type barrierTranslator struct {
	all      sync.WaitGroup
	rest     sync.WaitGroup
	inFlight int32
	first    string
}

func (b *barrierTranslator) TranslateText(ctx context.Context, text, lang string) (string, error) {
	atomic.AddInt32(&b.inFlight, 1)
	b.all.Done()
	arrived := make(chan struct{})
	go func() { b.all.Wait(); close(arrived) }()
	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		return "", errors.New("chunks were not dispatched concurrently")
	}
	if text == b.first {
		b.rest.Wait()
	} else {
		defer b.rest.Done()
	}
	return strings.ToUpper(text), nil
}

func TestTranslate_ConcurrentChunksReassembledByIndex(t *testing.T) {
	tr := &barrierTranslator{first: "ab"}
	tr.all.Add(4)
	tr.rest.Add(3)
	c := NewChunker(tr, WithChunkSize(2), WithConcurrency(4))

	out, err := c.Translate(context.Background(), "abcdefg", "hi")
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFG", out)
	assert.Equal(t, int32(4), atomic.LoadInt32(&tr.inFlight))
}

func TestTranslate_FailedChunkKeepsOriginal(t *testing.T) {
	tr := &fakeTranslator{failOn: map[string]bool{"cd": true}, empty: map[string]bool{"ef": true}}
	c := NewChunker(tr, WithChunkSize(2))
	out, err := c.Translate(context.Background(), "abcdefgh", "mr")
	require.NoError(t, err)
	assert.Equal(t, "ABcdefGH", out)
}

func TestTranslate_UsesCache(t *testing.T) {
	tr := &fakeTranslator{}
	cache := &memCache{m: map[string]string{"hi|ab": "cached"}}
	c := NewChunker(tr, WithChunkSize(2), WithCache(cache))

	out, err := c.Translate(context.Background(), "abcd", "hi")
	require.NoError(t, err)
	assert.Equal(t, "cachedCD", out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tr.calls))
	v, ok, _ := cache.Get(context.Background(), "hi", "cd")
	assert.True(t, ok)
	assert.Equal(t, "CD", v)
}

func TestTranslate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewChunker(&fakeTranslator{})
	out, err := c.Translate(ctx, "hello", "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "hello", out)
}

type fakeJSONTranslator struct {
	fakeTranslator
	got string
}

func (f *fakeJSONTranslator) TranslateJSON(_ context.Context, v any, lang string) (json.RawMessage, error) {
	f.got = lang
	return json.RawMessage(`{"title":"translated"}`), nil
}

func TestTranslateJSON(t *testing.T) {
	jt := &fakeJSONTranslator{}
	c := NewChunker(jt)

	out, err := c.TranslateJSON(context.Background(), map[string]string{"title": "Fair"}, "en")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Fair"}`, string(out))
	assert.Empty(t, jt.got)

	out, err = c.TranslateJSON(context.Background(), map[string]string{"title": "Fair"}, "hi")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"translated"}`, string(out))
	assert.Equal(t, "hi", jt.got)

	_, err = NewChunker(&fakeTranslator{}).TranslateJSON(context.Background(), 1, "hi")
	assert.ErrorIs(t, err, ErrNoStructured)
}
