package feature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(t *testing.T, s string) Payload {
	t.Helper()
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(s), &p))
	return p
}

func jobsJSON(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"id":%d,"title":"Job %d"}`, i+1, i+1)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestDispatch_UnknownTagIsNil(t *testing.T) {
	assert.Nil(t, Dispatch("nonexistent_tag", payload(t, `{"jobs":[]}`)))
	assert.Nil(t, Dispatch("recommend_job", nil))
}

func TestDispatch_EmptyJobsRendersZeroCards(t *testing.T) {
	b := Dispatch("recommend_job", payload(t, `{"jobs":[]}`))
	require.NotNil(t, b)
	assert.Empty(t, b.Cards)
	assert.Zero(t, b.More)
}

func TestDispatch_AbsentKeyIsNil(t *testing.T) {
	for _, tag := range []string{"recommend_job", "scheme_recommendation", "business_suggestion",
		"course_recommendation", "skill_tutorial", "event_management", "project_showcase",
		"profile_management", "dashboard_view", "youtube_summary", "csr_dashboard", "csr_course",
		"visual_summary", "product_recommendation"} {
		assert.Nil(t, Dispatch(tag, payload(t, `{"other":1}`)), tag)
	}
}

func TestDispatch_ShapeMismatchIsNil(t *testing.T) {
	assert.Nil(t, Dispatch("recommend_job", payload(t, `{"jobs":{"title":"x"}}`)))
	assert.Nil(t, Dispatch("product_recommendation", payload(t, `{"product_links":{"product_term":"x"}}`)))
	assert.Nil(t, Dispatch("recommend_job", payload(t, `{"jobs":null}`)))
}

func TestDispatch_CompactLimits(t *testing.T) {
	cases := []struct {
		tag, key string
		limit    int
	}{
		{"recommend_job", "jobs", 3},
		{"scheme_recommendation", "schemes", 3},
		{"business_suggestion", "suggestions", 2},
		{"course_recommendation", "courses", 3},
		{"skill_tutorial", "tutorials", 3},
		{"event_management", "events", 3},
		{"project_showcase", "projects", 3},
		{"csr_course", "csr_courses", 3},
	}
	for _, tc := range cases {
		b := Dispatch(tc.tag, payload(t, `{"`+tc.key+`":`+jobsJSON(5)+`}`))
		require.NotNil(t, b, tc.tag)
		assert.Len(t, b.Cards, tc.limit, tc.tag)
		assert.Equal(t, 5-tc.limit, b.More, tc.tag)
	}

	b := Dispatch("recommend_job", payload(t, `{"jobs":`+jobsJSON(2)+`}`))
	assert.Len(t, b.Cards, 2)
	assert.Zero(t, b.More)
}

func TestDispatch_EventPrecedence(t *testing.T) {
	b := Dispatch("event_management", payload(t, `{"event":{"title":"Mela"},"events":`+jobsJSON(5)+`}`))
	require.NotNil(t, b)
	require.Len(t, b.Cards, 1)
	assert.Equal(t, "Mela", b.Cards[0].Title)
	assert.Zero(t, b.More)

	b = Dispatch("event_management", payload(t, `{"events":[{"title":"A","type":"fair","date":"2024-05-01"}]}`))
	require.Len(t, b.Cards, 1)
	assert.Equal(t, []string{"fair"}, b.Cards[0].Badges)
	assert.Equal(t, []Field{{Label: "Date", Value: "2024-05-01"}}, b.Cards[0].Fields)
}

func TestDispatch_Youtube(t *testing.T) {
	b := Dispatch("youtube_summary", payload(t, `{"youtube_summary":{"title":"Dyeing","summary":"s","key_points":["a","b","c","d"]}}`))
	require.NotNil(t, b)
	require.Len(t, b.Cards, 1)
	assert.Equal(t, []string{"a", "b", "c"}, b.Cards[0].Bullets)

	b = Dispatch("youtube_summary", payload(t, `{"youtube_search_url":"https://www.youtube.com/results?search_query=dyeing"}`))
	require.NotNil(t, b)
	require.NotNil(t, b.Link)
	assert.Equal(t, "https://www.youtube.com/results?search_query=dyeing", b.Link.URL)
	assert.Empty(t, b.Cards)
}

func TestDispatch_ProfileIsNotCompact(t *testing.T) {
	p := payload(t, `{"profile":{"name":"Asha","skills":["a","b","c","d","e","f"],"achievements":["x","y","z"],"experience":"5 years"}}`)
	for _, tag := range []string{"profile_management", "dashboard_view"} {
		b := Dispatch(tag, p)
		require.NotNil(t, b)
		c := b.Cards[0]
		assert.Len(t, c.Tags, 6)
		assert.Zero(t, c.MoreTags)
		assert.Len(t, c.Bullets, 3)
		assert.Equal(t, []Field{{Label: "Experience", Value: "5 years"}}, c.Fields)
	}

	c := RenderProfile(Profile{Skills: TextList{"a", "b", "c", "d", "e"}, Achievements: TextList{"x", "y", "z"}}, true).Cards[0]
	assert.Equal(t, []string{"a", "b", "c", "d"}, c.Tags)
	assert.Equal(t, 1, c.MoreTags)
	assert.Len(t, c.Bullets, 2)
}

func TestDispatch_CompaniesAndProducts(t *testing.T) {
	b := Dispatch("csr_dashboard", payload(t, `{"companies":[{"id":1,"name":"Tata"},{"id":2,"name":"Infosys"}]}`))
	require.NotNil(t, b)
	assert.Equal(t, "Tata", b.Cards[0].Title)
	assert.Equal(t, "Infosys", b.Cards[1].Title)

	b = Dispatch("product_recommendation", payload(t, `{"product_links":[{"product_term":"loom","product_search_url":"https://gem.gov.in/search?q=loom"}]}`))
	require.NotNil(t, b)
	assert.Equal(t, []Link{{Label: "View on GeM", URL: "https://gem.gov.in/search?q=loom"}}, b.Cards[0].Links)
}

func TestDispatch_VisualSummaryRaw(t *testing.T) {
	b := Dispatch("visual_summary", payload(t, `{"visual_summary":{"topic":"Pottery"}}`))
	require.NotNil(t, b)
	assert.JSONEq(t, `{"topic":"Pottery"}`, string(b.Raw))
	assert.Contains(t, string(b.Raw), "\n")
}

func TestRegister_ExtendsWithoutTouchingDispatch(t *testing.T) {
	r := NewRegistry()
	r.Register("weather", func(p Payload) *Block {
		if !p.present("city") {
			return nil
		}
		return &Block{Kind: "weather", Cards: []Card{{Title: "ok"}}}
	})
	b := r.Dispatch("weather", payload(t, `{"city":"Pune"}`))
	require.NotNil(t, b)
	assert.Equal(t, "weather", b.Kind)
	assert.Contains(t, r.Tags(), "weather")
	assert.Nil(t, Dispatch("weather", payload(t, `{"city":"Pune"}`)))
}

func TestRenderJobs_Card(t *testing.T) {
	var jobs []Job
	require.NoError(t, json.Unmarshal([]byte(`[{
		"title":"Tailor","company":"Sewa","company_name":"SEWA Co-op","location":{"city":"Pune","state":"MH"},
		"pay":12000,"relevance_score":0.8,"is_active":true,"experience_required":6,
		"tags":["a","b","c","d","e","f","g","h"],"skills_required":["s1","s2","s3","s4","s5","s6"],
		"company_contact":"99999","source":"ncs"
	}]`), &jobs))
	c := RenderJobs(jobs, true).Cards[0]
	assert.Equal(t, "Tailor", c.Title)
	assert.Equal(t, []string{"★ 0.8", "Active"}, c.Badges)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, c.Tags)
	assert.Equal(t, 2, c.MoreTags)
	assert.Contains(t, c.Fields, Field{Label: "Company", Value: "SEWA Co-op"})
	assert.Contains(t, c.Fields, Field{Label: "Location", Value: "Pune, MH"})
	assert.Contains(t, c.Fields, Field{Label: "Salary", Value: "12000"})
	assert.Contains(t, c.Fields, Field{Label: "Experience", Value: "6 months exp"})
	assert.Contains(t, c.Fields, Field{Label: "Skills", Value: "s1, s2, s3, s4, s5"})
	assert.Contains(t, c.Fields, Field{Label: "Contact", Value: "99999"})
	assert.Equal(t, "via ncs", c.Footer)
	assert.Empty(t, c.Links)
}

func TestRenderSuggestions_ResourceEllipsis(t *testing.T) {
	s := []BusinessSuggestion{{IdeaName: "Dairy", RequiredResources: TextList{"cow", "shed", "feed", "vet"}}}
	c := RenderSuggestions(s, true).Cards[0]
	assert.Contains(t, c.Fields, Field{Label: "Resources", Value: "cow, shed, feed..."})
}

func TestRenderTutorials_DefaultTitleAndContentFallback(t *testing.T) {
	c := RenderTutorials([]Tutorial{{}, {Content: "body"}}, true).Cards
	assert.Equal(t, "Tutorial 1", c[0].Title)
	assert.Equal(t, "Tutorial 2", c[1].Title)
	assert.Equal(t, "body", c[1].Body)
}

func TestRenderCourses_TagCap(t *testing.T) {
	c := RenderCourses([]Course{{Name: "Weaving", Tags: TextList{"1", "2", "3", "4", "5"}}}, false).Cards[0]
	assert.Equal(t, []string{"1", "2", "3", "4"}, c.Tags)
	assert.Equal(t, 1, c.MoreTags)
}

func TestWriteText(t *testing.T) {
	b := Dispatch("recommend_job", payload(t, `{"jobs":`+jobsJSON(4)+`}`))
	var out bytes.Buffer
	require.NoError(t, WriteText(&out, b, "en"))
	s := out.String()
	assert.Contains(t, s, "== Recommended Jobs ==")
	assert.Contains(t, s, "1. Job 1")
	assert.NotContains(t, s, "Job 4")
	assert.Contains(t, s, "+ 1 more")

	out.Reset()
	require.NoError(t, WriteText(&out, nil, "en"))
	assert.Empty(t, out.String())
}
