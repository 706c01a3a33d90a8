package importers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

// PocketParser reads the HTML export Pocket produces from its settings page.
// The export lists saved links under "Unread" and "Read Archive" headings.
type PocketParser struct{}

// NewPocketParser creates a parser for Pocket HTML exports.
func NewPocketParser() *PocketParser {
	return &PocketParser{}
}

var pocketCapture = map[string]bool{"a": true, "h1": true}

// Parse implements Parser.
func (p *PocketParser) Parse(ctx context.Context, content []byte) (entities.ParseResult, error) {
	b := newResultBuilder(ctx, entities.SourcePocket)
	section := "unknown"

	err := scanHTML(content, pocketCapture, func(ev htmlEvent) error {
		if ev.Kind != htmlElement {
			return nil
		}
		if ev.Tag == "h1" {
			section = pocketSection(ev.Text)
			return nil
		}
		if err := b.begin(); err != nil {
			return err
		}
		p.convertLink(b, ev, section)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return entities.ParseResult{}, ctx.Err()
		}
		return entities.ParseResult{}, &ParserFatalError{Source: entities.SourcePocket, Err: err}
	}

	if b.total == 0 {
		b.warn("No items found in Pocket export.")
	}
	return b.result(), nil
}

func pocketSection(heading string) string {
	switch strings.ToLower(heading) {
	case "unread":
		return "unread"
	case "read archive", "read":
		return "read"
	}
	return "unknown"
}

func (p *PocketParser) convertLink(b *resultBuilder, a htmlEvent, section string) {
	href := strings.TrimSpace(a.Attrs["href"])
	if href == "" {
		b.skipWithWarning(fmt.Sprintf("Skipped %q: link has no href", sanitizeTitle(a.Text)))
		return
	}

	url, ok := normalizeURL(href)
	if !ok {
		label := a.Text
		if label == "" {
			label = "Unknown"
		}
		b.skip(label, fmt.Sprintf("Invalid URL: %s", href))
		return
	}

	title := a.Text
	if title == "" {
		title = url
	}

	b.add(entities.ImportItem{
		Title:     sanitizeTitle(title),
		URL:       url,
		Type:      entities.ItemTypeLink,
		Tags:      splitTags(a.Attrs["tags"]),
		CreatedAt: parseDate(a.Attrs["time_added"]),
		Metadata:  map[string]any{"section": section},
	})
}

// Compile-time interface check
var _ Parser = (*PocketParser)(nil)
