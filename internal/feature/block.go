package feature

import "encoding/json"

// Block is the presentation-neutral result of rendering one feature payload.
type Block struct {
	Kind     string          `json:"kind"`
	TitleKey string          `json:"title_key"`
	Cards    []Card          `json:"cards"`
	More     int             `json:"more,omitempty"`
	Link     *Link           `json:"link,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

type Card struct {
	Title    string   `json:"title"`
	Badges   []string `json:"badges,omitempty"`
	Fields   []Field  `json:"fields,omitempty"`
	Body     string   `json:"body,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	MoreTags int      `json:"more_tags,omitempty"`
	Bullets  []string `json:"bullets,omitempty"`
	Links    []Link   `json:"links,omitempty"`
	Footer   string   `json:"footer,omitempty"`
}

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Optional fields are appended only when they carry a value.

func (c *Card) field(label string, v Text) {
	if v != "" {
		c.Fields = append(c.Fields, Field{Label: label, Value: string(v)})
	}
}

func (c *Card) badge(v Text) {
	if v != "" {
		c.Badges = append(c.Badges, string(v))
	}
}

func (c *Card) link(label string, url Text) {
	if url != "" {
		c.Links = append(c.Links, Link{Label: label, URL: string(url)})
	}
}

// tags keeps at most limit entries and records how many were cut.
func (c *Card) tags(list TextList, limit int) {
	if len(list) == 0 {
		return
	}
	if limit > 0 && len(list) > limit {
		c.Tags = append([]string(nil), list[:limit]...)
		c.MoreTags = len(list) - limit
		return
	}
	c.Tags = append([]string(nil), list...)
}

func newBlock(kind, titleKey string, n int) *Block {
	return &Block{Kind: kind, TitleKey: titleKey, Cards: make([]Card, 0, n)}
}

// visible applies a compact limit and returns how many records are shown.
func visible(n int, compact bool, limit int) (shown, more int) {
	if compact && n > limit {
		return limit, n - limit
	}
	return n, 0
}
