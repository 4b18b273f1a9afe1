package feature

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gramudyog/assist/internal/i18n"
)

// WriteText prints b as plain terminal text with its title localized for lang.
func WriteText(w io.Writer, b *Block, lang string) error {
	if b == nil {
		return nil
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "== %s ==\n", i18n.T(lang, b.TitleKey))
	if b.Link != nil {
		fmt.Fprintf(bw, "%s: %s\n", b.Link.Label, b.Link.URL)
	}
	if len(b.Raw) > 0 {
		bw.Write(b.Raw)
		bw.WriteString("\n")
	}
	for i, c := range b.Cards {
		writeCard(bw, i+1, c)
	}
	if b.More > 0 {
		fmt.Fprintln(bw, i18n.Tf(lang, "blocks.more", b.More))
	}
	return bw.Flush()
}

func writeCard(w *bufio.Writer, n int, c Card) {
	fmt.Fprintf(w, "%d. %s", n, c.Title)
	if len(c.Badges) > 0 {
		fmt.Fprintf(w, " [%s]", strings.Join(c.Badges, "] ["))
	}
	w.WriteString("\n")
	for _, f := range c.Fields {
		fmt.Fprintf(w, "   %s: %s\n", f.Label, f.Value)
	}
	if c.Body != "" {
		fmt.Fprintf(w, "   %s\n", c.Body)
	}
	if len(c.Tags) > 0 {
		tags := "#" + strings.Join(c.Tags, " #")
		if c.MoreTags > 0 {
			tags += fmt.Sprintf(" +%d more", c.MoreTags)
		}
		fmt.Fprintf(w, "   %s\n", tags)
	}
	for _, b := range c.Bullets {
		fmt.Fprintf(w, "   • %s\n", b)
	}
	for _, l := range c.Links {
		fmt.Fprintf(w, "   %s: %s\n", l.Label, l.URL)
	}
	if c.Footer != "" {
		fmt.Fprintf(w, "   %s\n", c.Footer)
	}
}
