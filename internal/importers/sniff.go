package importers

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

// Format is the concrete file format a parser understands. Pocket is the only
// source with two formats; the variant is picked by file extension.
type Format string

const (
	FormatBookmarksHTML Format = "bookmarks-html"
	FormatPocketHTML    Format = "pocket-html"
	FormatPocketCSV     Format = "pocket-csv"
	FormatNotionZip     Format = "notion-zip"
	FormatEvernoteENEX  Format = "evernote-enex"
	FormatTwitterJS     Format = "twitter-js"
)

// ResolveFormat picks the format variant for a source and uploaded filename.
func ResolveFormat(kind entities.SourceKind, filename string) Format {
	switch kind {
	case entities.SourceBookmarks:
		return FormatBookmarksHTML
	case entities.SourcePocket:
		if strings.EqualFold(filepath.Ext(filename), ".csv") {
			return FormatPocketCSV
		}
		return FormatPocketHTML
	case entities.SourceNotion:
		return FormatNotionZip
	case entities.SourceEvernote:
		return FormatEvernoteENEX
	case entities.SourceTwitter:
		return FormatTwitterJS
	}
	panic("importers: unhandled source kind " + string(kind))
}

var (
	bookmarksMarkers = []string{"<!doctype netscape-bookmark-file", "netscape-bookmark-file-1"}
	pocketMarkers    = []string{"<title>pocket export</title>", "getpocket.com", "<h1>unread</h1>", "<h1>read</h1>", "<h1>read archive</h1>"}
	evernoteMarkers  = []string{"<en-export"}
	twitterPrefixes  = []string{"window.YTD.bookmark.part0 = ", "window.YTD.bookmarks.part0 = "}
	utf8BOM          = []byte{0xEF, 0xBB, 0xBF}
)

// IsValidFormat runs the cheap signature check for a format. It never parses.
// Formats validated by their parser (Notion zip, Pocket CSV) always pass.
func IsValidFormat(format Format, content []byte) bool {
	switch format {
	case FormatBookmarksHTML:
		return containsAnyFold(content, bookmarksMarkers)
	case FormatPocketHTML:
		return containsAnyFold(content, pocketMarkers)
	case FormatEvernoteENEX:
		return containsAnyFold(content, evernoteMarkers)
	case FormatTwitterJS:
		return hasTwitterPrefix(content)
	case FormatPocketCSV, FormatNotionZip:
		return true
	}
	return false
}

// Sniff returns a FormatMismatchError with a source-specific message when the
// content does not look like the expected export.
func Sniff(kind entities.SourceKind, format Format, content []byte) error {
	if IsValidFormat(format, content) {
		return nil
	}
	return &FormatMismatchError{Source: kind, Message: mismatchMessage(format)}
}

func mismatchMessage(format Format) string {
	switch format {
	case FormatBookmarksHTML:
		return "This does not appear to be a valid bookmarks HTML file."
	case FormatPocketHTML:
		return "This does not appear to be a valid Pocket export file."
	case FormatEvernoteENEX:
		return "This does not appear to be a valid Evernote ENEX file."
	case FormatTwitterJS:
		return "This does not appear to be a valid X/Twitter bookmarks.js file."
	}
	return "This file does not match the selected import source."
}

func hasTwitterPrefix(content []byte) bool {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(content, utf8BOM), " \t\r\n")
	for _, p := range twitterPrefixes {
		if bytes.HasPrefix(trimmed, []byte(p)) {
			return true
		}
	}
	return false
}

// containsAnyFold reports whether any of the lowercase ASCII markers occurs in
// content, ignoring ASCII case. It scans content once per marker without copying.
func containsAnyFold(content []byte, markers []string) bool {
	for _, m := range markers {
		if indexFold(content, m) >= 0 {
			return true
		}
	}
	return false
}

func indexFold(s []byte, marker string) int {
	if len(marker) == 0 {
		return 0
	}
	m := []byte(marker)
	first := m[0]
	upper := first
	if first >= 'a' && first <= 'z' {
		upper = first - 'a' + 'A'
	}
	for i := 0; i+len(m) <= len(s); i++ {
		c := s[i]
		if c != first && c != upper {
			continue
		}
		if bytes.EqualFold(s[i:i+len(m)], m) {
			return i
		}
	}
	return -1
}
