// Package feature turns the tagged structured_data of an assistant response into
// presentation blocks.
package feature

import (
	"bytes"
	"encoding/json"
	"sort"
	"sync"
)

// Payload is the structured_data object with values left undecoded.
type Payload map[string]json.RawMessage

// Handler renders a payload or returns nil when its keys are absent or malformed.
type Handler func(Payload) *Block

// Registry maps feature_type tags to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns a registry preloaded with every known feature type.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.Register("event_management", renderEventManagement)
	r.Register("project_showcase", listHandler("projects", RenderProjects, true))
	r.Register("profile_management", renderProfile)
	r.Register("dashboard_view", renderProfile)
	r.Register("recommend_job", listHandler("jobs", RenderJobs, true))
	r.Register("scheme_recommendation", listHandler("schemes", RenderSchemes, true))
	r.Register("business_suggestion", listHandler("suggestions", RenderSuggestions, true))
	r.Register("course_recommendation", listHandler("courses", RenderCourses, true))
	r.Register("skill_tutorial", listHandler("tutorials", RenderTutorials, true))
	r.Register("youtube_summary", renderYoutube)
	r.Register("csr_dashboard", renderCompanies)
	r.Register("csr_course", listHandler("csr_courses", RenderCourses, true))
	r.Register("visual_summary", renderVisualSummary)
	r.Register("product_recommendation", renderProducts)
	return r
}

// Register adds or replaces the handler for tag.
func (r *Registry) Register(tag string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[tag] = h
}

// Dispatch renders data with the handler for tag. Unknown tags and absent keys yield nil.
func (r *Registry) Dispatch(tag string, data Payload) *Block {
	if data == nil {
		return nil
	}
	r.mu.RLock()
	h, ok := r.handlers[tag]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return h(data)
}

func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

var defaultRegistry = NewRegistry()

// Dispatch uses the package registry.
func Dispatch(tag string, data Payload) *Block { return defaultRegistry.Dispatch(tag, data) }

// Register extends the package registry.
func Register(tag string, h Handler) { defaultRegistry.Register(tag, h) }

// present reports whether key exists with a non-null value.
func (p Payload) present(key string) bool {
	raw, ok := p[key]
	return ok && len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decode reads key into v; shape mismatches report false.
func (p Payload) decode(key string, v any) bool {
	if !p.present(key) {
		return false
	}
	return json.Unmarshal(p[key], v) == nil
}

func (p Payload) isArray(key string) bool {
	raw := bytes.TrimSpace(p[key])
	return len(raw) > 0 && raw[0] == '['
}

func listHandler[T any](key string, render func([]T, bool) *Block, compact bool) Handler {
	return func(p Payload) *Block {
		if !p.isArray(key) {
			return nil
		}
		var records []T
		if !p.decode(key, &records) {
			return nil
		}
		return render(records, compact)
	}
}

// renderEventManagement shows a single "event" in full when present, otherwise the
// compact "events" list.
func renderEventManagement(p Payload) *Block {
	var ev Event
	if p.present("event") && p.decode("event", &ev) {
		return RenderEvents([]Event{ev}, false)
	}
	return listHandler("events", RenderEvents, true)(p)
}

func renderProfile(p Payload) *Block {
	var prof Profile
	if !p.decode("profile", &prof) {
		return nil
	}
	return RenderProfile(prof, false)
}

func renderYoutube(p Payload) *Block {
	var s YoutubeSummary
	if p.decode("youtube_summary", &s) {
		return RenderYoutubeSummaries([]YoutubeSummary{s}, true)
	}
	var url Text
	if p.decode("youtube_search_url", &url) && url != "" {
		b := newBlock("youtube_search", "blocks.youtubeSearch", 0)
		b.Link = &Link{Label: "Search YouTube for this topic", URL: string(url)}
		return b
	}
	return nil
}

func renderCompanies(p Payload) *Block {
	if !p.isArray("companies") {
		return nil
	}
	var companies []Company
	if !p.decode("companies", &companies) {
		return nil
	}
	return RenderCompanies(companies)
}

func renderVisualSummary(p Payload) *Block {
	if !p.present("visual_summary") {
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, p["visual_summary"], "", "  "); err != nil {
		return nil
	}
	b := newBlock("visual_summary", "blocks.visualSummary", 0)
	b.Raw = json.RawMessage(pretty.Bytes())
	return b
}

func renderProducts(p Payload) *Block {
	if !p.isArray("product_links") {
		return nil
	}
	var links []ProductLink
	if !p.decode("product_links", &links) {
		return nil
	}
	return RenderProductLinks(links)
}
