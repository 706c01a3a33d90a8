package entities

import "time"

// SourceKind identifies the service an export file came from.
type SourceKind string

const (
	SourceBookmarks SourceKind = "bookmarks"
	SourcePocket    SourceKind = "pocket"
	SourceNotion    SourceKind = "notion"
	SourceEvernote  SourceKind = "evernote"
	SourceTwitter   SourceKind = "twitter"
)

// ItemType is the canonical content type of an imported item.
type ItemType string

const (
	ItemTypeNote ItemType = "note"
	ItemTypeLink ItemType = "link"
)

// ImportItem is the canonical record every parser converges on.
// URL is required for links and optional for notes.
type ImportItem struct {
	Title     string         `json:"title" yaml:"title"`
	URL       string         `json:"url,omitempty" yaml:"url,omitempty"`
	Body      string         `json:"body,omitempty" yaml:"body,omitempty"`
	Type      ItemType       `json:"type" yaml:"type"`
	Tags      []string       `json:"tags" yaml:"tags"`
	CreatedAt *time.Time     `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ParseError describes one record that was skipped.
// Item is a human-readable label (title, row, path), not an index.
type ParseError struct {
	Item    string `json:"item,omitempty" yaml:"item,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// ParseStats accounts for every record found in the file exactly once.
type ParseStats struct {
	Total   int `json:"total" yaml:"total"`
	Parsed  int `json:"parsed" yaml:"parsed"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// ParseResult is the only artifact the import pipeline returns.
type ParseResult struct {
	Success  bool         `json:"success" yaml:"success"`
	Items    []ImportItem `json:"items" yaml:"items"`
	Errors   []ParseError `json:"errors" yaml:"errors"`
	Warnings []string     `json:"warnings" yaml:"warnings"`
	Stats    ParseStats   `json:"stats" yaml:"stats"`
}

// FailedParseResult builds the result for a file that could not be parsed at all.
func FailedParseResult(message string) ParseResult {
	return ParseResult{
		Success:  false,
		Items:    []ImportItem{},
		Errors:   []ParseError{{Message: message}},
		Warnings: []string{},
	}
}
