// Package visual steps through the sections of a visual summary.
package visual

import (
	"context"
	"sync"

	"github.com/gramudyog/assist/internal/feature"
	"github.com/gramudyog/assist/internal/i18n"
)

type Section struct {
	Title    feature.Text `json:"title"`
	Text     feature.Text `json:"text"`
	ImageURL string       `json:"imageUrl"`
	AudioURL string       `json:"audioUrl"`
}

type Data struct {
	Type     feature.Text `json:"type"`
	Title    feature.Text `json:"title"`
	Sections []Section    `json:"sections"`
}

type Summary struct {
	ID          feature.Text `json:"id"`
	Topic       feature.Text `json:"topic"`
	SummaryData Data         `json:"summary_data"`
	CreatedAt   feature.Text `json:"created_at"`
}

type Key string

const (
	KeyLeft   Key = "ArrowLeft"
	KeyRight  Key = "ArrowRight"
	KeyEscape Key = "Escape"
)

// Viewer holds the current section index, always within [0, N-1].
type Viewer struct {
	summary Summary
	onClose func()

	mu        sync.Mutex
	idx       int
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
}

// Open starts a viewer at the first section. onClose runs once, on Escape or Close.
func Open(s Summary, onClose func()) *Viewer {
	return &Viewer{summary: s, onClose: onClose, done: make(chan struct{})}
}

func (v *Viewer) Summary() Summary { return v.summary }

func (v *Viewer) Len() int { return len(v.summary.SummaryData.Sections) }

func (v *Viewer) Index() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.idx
}

// Current returns the section at the index, or an empty placeholder when there are none.
func (v *Viewer) Current() Section {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.idx < 0 || v.idx >= v.Len() {
		return Section{}
	}
	return v.summary.SummaryData.Sections[v.idx]
}

func (v *Viewer) Next() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.idx < v.Len()-1 {
		v.idx++
	}
}

func (v *Viewer) Prev() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.idx > 0 {
		v.idx--
	}
}

// Select jumps to section i; out-of-range values are ignored.
func (v *Viewer) Select(i int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i >= 0 && i < v.Len() {
		v.idx = i
	}
}

// Handle applies one key press. It reports false once the viewer is closed.
func (v *Viewer) Handle(k Key) bool {
	switch k {
	case KeyLeft:
		v.Prev()
	case KeyRight:
		v.Next()
	case KeyEscape:
		v.Close()
	}
	return !v.Closed()
}

func (v *Viewer) Close() {
	first := false
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		v.mu.Unlock()
		close(v.done)
		first = true
	})
	if first && v.onClose != nil {
		v.onClose()
	}
}

func (v *Viewer) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Done is closed when the viewer closes.
func (v *Viewer) Done() <-chan struct{} { return v.done }

// Run consumes keys until ctx is done, keys is closed or the viewer closes.
func (v *Viewer) Run(ctx context.Context, keys <-chan Key) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-v.done:
			return
		case k, ok := <-keys:
			if !ok {
				return
			}
			if !v.Handle(k) {
				return
			}
		}
	}
}

// View is the presentable state of the current section.
type View struct {
	Topic    string  `json:"topic"`
	Title    string  `json:"title"`
	Index    int     `json:"index"`
	Count    int     `json:"count"`
	Position string  `json:"position"`
	Section  Section `json:"section"`
	Media    Media   `json:"media"`
	MediaMsg string  `json:"media_message,omitempty"`
	AudioURL string  `json:"audio_url,omitempty"`
}

func (v *Viewer) View(apiBase, lang string) View {
	idx := v.Index()
	sec := v.Current()
	view := View{
		Topic:    string(v.summary.Topic),
		Title:    string(v.summary.SummaryData.Title),
		Index:    idx,
		Count:    v.Len(),
		Position: i18n.Tf(lang, "visual.position", idx+1, v.Len()),
		Section:  sec,
		Media:    ClassifyMedia(sec.ImageURL),
		AudioURL: AudioURL(apiBase, sec.AudioURL),
	}
	switch view.Media.Kind {
	case MediaNone:
		view.MediaMsg = i18n.T(lang, "visual.noMedia")
	case MediaSearchLink:
		view.MediaMsg = i18n.Tf(lang, "visual.searchLink", string(sec.Title))
	}
	return view
}
