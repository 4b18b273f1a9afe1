package visual

import "strings"

type MediaKind string

const (
	MediaNone       MediaKind = "none"
	MediaEmbed      MediaKind = "embed"
	MediaSearchLink MediaKind = "search_link"
)

// Media describes what a section shows in its media slot.
type Media struct {
	Kind     MediaKind `json:"kind"`
	URL      string    `json:"url,omitempty"`
	EmbedURL string    `json:"embed_url,omitempty"`
}

// ClassifyMedia decides how a section's imageUrl is presented. YouTube search result pages
// become a link, other YouTube URLs are rewritten to their embed form, anything else has
// no media.
func ClassifyMedia(url string) Media {
	isYouTube := strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be")
	if !isYouTube {
		return Media{Kind: MediaNone}
	}
	if strings.Contains(url, "youtube.com/results") {
		return Media{Kind: MediaSearchLink, URL: url}
	}
	embed := strings.Replace(url, "watch?v=", "embed/", 1)
	embed = strings.Replace(embed, "youtu.be/", "youtube.com/embed/", 1)
	return Media{Kind: MediaEmbed, URL: url, EmbedURL: embed}
}

// AudioURL resolves a section's audio path against the backend; empty paths stay empty.
func AudioURL(apiBase, audioPath string) string {
	if audioPath == "" {
		return ""
	}
	return strings.TrimRight(apiBase, "/") + "/api" + audioPath
}
