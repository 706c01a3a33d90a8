package importers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

const (
	twitterTitleLength = 100
	twitterTag         = "twitter-bookmark"
)

var tweetIDPattern = regexp.MustCompile(`^[0-9]{1,25}$`)

// TwitterParser reads bookmarks.js from an X (Twitter) data archive. The file
// is a JavaScript assignment whose right-hand side is a JSON array.
type TwitterParser struct{}

// NewTwitterParser creates a parser for X/Twitter bookmark archives.
func NewTwitterParser() *TwitterParser {
	return &TwitterParser{}
}

type twitterEntry struct {
	Bookmark *struct {
		TweetID  tweetID `json:"tweetId"`
		FullText string  `json:"fullText"`
	} `json:"bookmark"`
}

// tweetID accepts both string and numeric IDs.
type tweetID string

func (t *tweetID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = tweetID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = tweetID(n.String())
	return nil
}

// Parse implements Parser.
func (p *TwitterParser) Parse(ctx context.Context, content []byte) (entities.ParseResult, error) {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(content, utf8BOM), " \t\r\n")
	eq := bytes.IndexByte(trimmed, '=')
	if eq < 0 {
		return entities.ParseResult{}, p.fatal(errors.New("missing assignment"))
	}
	payload := bytes.TrimSpace(trimmed[eq+1:])
	payload = bytes.TrimSpace(bytes.TrimSuffix(payload, []byte(";")))

	var entries []json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		return entities.ParseResult{}, p.fatal(fmt.Errorf("failed to parse JSON from bookmarks file: %w", err))
	}

	b := newResultBuilder(ctx, entities.SourceTwitter)
	for i, raw := range entries {
		if err := b.begin(); err != nil {
			return entities.ParseResult{}, err
		}
		p.convertEntry(b, raw, i)
	}

	if b.total == 0 {
		b.warn("No bookmarks found in file")
	}
	return b.result(), nil
}

func (p *TwitterParser) fatal(err error) error {
	return &ParserFatalError{Source: entities.SourceTwitter, Err: err}
}

func (p *TwitterParser) convertEntry(b *resultBuilder, raw json.RawMessage, i int) {
	label := fmt.Sprintf("Entry %d", i)

	var entry twitterEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		b.skip(label, "Invalid bookmark entry")
		return
	}
	if entry.Bookmark == nil || strings.TrimSpace(string(entry.Bookmark.TweetID)) == "" {
		b.skip(label, "Missing tweetId")
		return
	}

	id := strings.TrimSpace(string(entry.Bookmark.TweetID))
	if !tweetIDPattern.MatchString(id) {
		b.skip(label, fmt.Sprintf("Invalid tweetId: %s", id))
		return
	}

	fullText := strings.TrimSpace(entry.Bookmark.FullText)
	title := fmt.Sprintf("Tweet %s", id)
	if fullText != "" {
		title = truncateRunes(fullText, twitterTitleLength, "…")
	}

	b.add(entities.ImportItem{
		Title:    sanitizeTitle(title),
		URL:      "https://x.com/i/status/" + id,
		Body:     fullText,
		Type:     entities.ItemTypeLink,
		Tags:     []string{twitterTag},
		Metadata: map[string]any{"original_id": id},
	})
}

// Compile-time interface check
var _ Parser = (*TwitterParser)(nil)
