// Package events drafts event forms with the backend's AI generator, from typed or spoken
// prompts, and translates drafted forms.
package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gramudyog/assist/internal/feature"
)

type Section struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	KeyPoints       []string `json:"key_points,omitempty"`
	TargetAudience  string   `json:"target_audience,omitempty"`
	ExpectedOutcome string   `json:"expected_outcome,omitempty"`
}

// Form is the editable event being organized.
type Form struct {
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	EventType           string    `json:"event_type"`
	Category            string    `json:"category"`
	Location            string    `json:"location"`
	State               string    `json:"state"`
	StartDate           string    `json:"start_date"`
	EndDate             string    `json:"end_date"`
	MaxParticipants     int       `json:"max_participants"`
	Budget              int       `json:"budget"`
	PrizePool           int       `json:"prize_pool"`
	SkillsRequired      []string  `json:"skills_required"`
	Tags                []string  `json:"tags"`
	MarketingHighlights []string  `json:"marketing_highlights,omitempty"`
	SuccessMetrics      []string  `json:"success_metrics,omitempty"`
	Sections            []Section `json:"sections,omitempty"`
}

// DefaultPrompt describes the form when the organizer gave no prompt of their own.
func (f Form) DefaultPrompt() string {
	category := f.Category
	if category == "" {
		category = "skill development"
	}
	return fmt.Sprintf("Create a %s event that focuses on %s. Location: %s, %s. Budget: %d, Prize Pool: %d",
		f.EventType, category, f.Location, f.State, f.Budget, f.PrizePool)
}

// Generated holds the fields the generator produced. Nil lists were absent or not arrays.
type Generated struct {
	Title               string
	Description         string
	Category            string
	SkillsRequired      []string
	Tags                []string
	MarketingHighlights []string
	SuccessMetrics      []string
	Sections            []Section
}

func (g *Generated) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	g.Title = textField(raw["title"])
	g.Description = textField(raw["description"])
	g.Category = textField(raw["category"])
	g.SkillsRequired = listField(raw["skills_required"])
	g.Tags = listField(raw["tags"])
	g.MarketingHighlights = listField(raw["marketing_highlights"])
	g.SuccessMetrics = listField(raw["success_metrics"])
	if isArray(raw["sections"]) {
		var secs []struct {
			Title           feature.Text     `json:"title"`
			Description     feature.Text     `json:"description"`
			KeyPoints       feature.TextList `json:"key_points"`
			TargetAudience  feature.Text     `json:"target_audience"`
			ExpectedOutcome feature.Text     `json:"expected_outcome"`
		}
		if err := json.Unmarshal(raw["sections"], &secs); err == nil {
			g.Sections = make([]Section, 0, len(secs))
			for _, s := range secs {
				g.Sections = append(g.Sections, Section{
					Title:           string(s.Title),
					Description:     string(s.Description),
					KeyPoints:       s.KeyPoints,
					TargetAudience:  string(s.TargetAudience),
					ExpectedOutcome: string(s.ExpectedOutcome),
				})
			}
		}
	}
	return nil
}

// Merge returns f with every generated field applied. Empty strings and missing lists keep
// the previous value.
func (f Form) Merge(g Generated) Form {
	if g.Title != "" {
		f.Title = g.Title
	}
	if g.Description != "" {
		f.Description = g.Description
	}
	if g.Category != "" {
		f.Category = g.Category
	}
	if g.SkillsRequired != nil {
		f.SkillsRequired = g.SkillsRequired
	}
	if g.Tags != nil {
		f.Tags = g.Tags
	}
	if g.MarketingHighlights != nil {
		f.MarketingHighlights = g.MarketingHighlights
	}
	if g.SuccessMetrics != nil {
		f.SuccessMetrics = g.SuccessMetrics
	}
	if g.Sections != nil {
		f.Sections = g.Sections
	}
	return f
}

func textField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var t feature.Text
	if err := json.Unmarshal(raw, &t); err != nil {
		return ""
	}
	return string(t)
}

func listField(raw json.RawMessage) []string {
	if !isArray(raw) {
		return nil
	}
	var l feature.TextList
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil
	}
	if l == nil {
		return []string{}
	}
	return l
}

func isArray(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '['
}
