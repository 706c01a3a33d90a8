package importers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

// BookmarksParser reads the Netscape bookmark format exported by Chrome,
// Firefox, Safari and Edge. Folders become tags.
type BookmarksParser struct{}

// NewBookmarksParser creates a parser for browser bookmark exports.
func NewBookmarksParser() *BookmarksParser {
	return &BookmarksParser{}
}

var bookmarkCapture = map[string]bool{"a": true, "h3": true}

// Parse implements Parser.
func (p *BookmarksParser) Parse(ctx context.Context, content []byte) (entities.ParseResult, error) {
	b := newResultBuilder(ctx, entities.SourceBookmarks)

	// Each <DL> opens the folder named by the <H3> right before it.
	var folders []string
	pendingFolder := ""

	err := scanHTML(content, bookmarkCapture, func(ev htmlEvent) error {
		switch ev.Kind {
		case htmlStart:
			if ev.Tag == "dl" {
				folders = append(folders, pendingFolder)
				pendingFolder = ""
			}
		case htmlEnd:
			if ev.Tag == "dl" && len(folders) > 0 {
				folders = folders[:len(folders)-1]
			}
		case htmlElement:
			if ev.Tag == "h3" {
				pendingFolder = ev.Text
				return nil
			}
			if err := b.begin(); err != nil {
				return err
			}
			p.convertAnchor(b, ev, folderPath(folders))
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return entities.ParseResult{}, ctx.Err()
		}
		return entities.ParseResult{}, &ParserFatalError{Source: entities.SourceBookmarks, Err: err}
	}

	if b.total == 0 {
		b.warn("No bookmarks found in file")
	}
	return b.result(), nil
}

func (p *BookmarksParser) convertAnchor(b *resultBuilder, a htmlEvent, folder string) {
	href := strings.TrimSpace(a.Attrs["href"])
	text := a.Text
	if text == "" {
		text = href
	}
	title := sanitizeTitle(text)
	if href == "" {
		b.skipWithWarning(fmt.Sprintf("Skipped %q: anchor has no href (folder heading or separator)", title))
		return
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "data:") {
		b.skipWithWarning(fmt.Sprintf("Skipped %q: bookmarklets and data URLs are not imported", title))
		return
	}

	url, ok := normalizeURL(href)
	if !ok {
		b.skip(title, fmt.Sprintf("Invalid URL: %s", href))
		return
	}

	tags := mergeTags(folderPathToTags(folder), splitTags(a.Attrs["tags"]))
	metadata := map[string]any{}
	if folder != "" {
		metadata["folder"] = folder
	}
	if icon := a.Attrs["icon_uri"]; icon != "" {
		metadata["icon_uri"] = icon
	}

	b.add(entities.ImportItem{
		Title:     title,
		URL:       url,
		Type:      entities.ItemTypeLink,
		Tags:      tags,
		CreatedAt: parseDate(a.Attrs["add_date"]),
		Metadata:  metadata,
	})
}

func folderPath(stack []string) string {
	parts := make([]string, 0, len(stack))
	for _, f := range stack {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, "/")
}

// Compile-time interface check
var _ Parser = (*BookmarksParser)(nil)
