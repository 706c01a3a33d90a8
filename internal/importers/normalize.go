package importers

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	maxTitleLength = 500
	maxTagLength   = 50
	untitled       = "Untitled"
)

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	tagInvalidChars = regexp.MustCompile(`[^a-z0-9_-]`)
	hyphenRun       = regexp.MustCompile(`-+`)
	tagSeparators   = regexp.MustCompile(`[,|;]`)
	folderSplit     = regexp.MustCompile(`[/\\>]+`)
	hasHTTPScheme   = regexp.MustCompile(`(?i)^https?://`)
)

// Generic root folders that browsers and exporters create; they carry no meaning as tags.
var excludedFolders = map[string]bool{
	"bookmarks":         true,
	"bookmarks bar":     true,
	"bookmarks menu":    true,
	"bookmarks toolbar": true,
	"other bookmarks":   true,
	"mobile bookmarks":  true,
	"favorites":         true,
	"favorites bar":     true,
	"unfiled bookmarks": true,
	"root":              true,
	"export":            true,
	"exported":          true,
}

// now is swapped in tests that need a fixed clock.
var now = time.Now

// sanitizeTitle collapses whitespace, drops control characters and bounds the length.
func sanitizeTitle(title string) string {
	title = whitespaceRun.ReplaceAllString(title, " ")
	title = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, title)
	title = strings.TrimSpace(title)
	if title == "" {
		return untitled
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		runes := []rune(title)
		title = string(runes[:maxTitleLength-3]) + "..."
	}
	return title
}

// truncateRunes shortens s to limit runes and appends suffix when it was cut.
func truncateRunes(s string, limit int, suffix string) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + suffix
}

func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = tagInvalidChars.ReplaceAllString(tag, "-")
	tag = hyphenRun.ReplaceAllString(tag, "-")
	tag = strings.Trim(tag, "-")
	if len(tag) > maxTagLength {
		tag = strings.TrimRight(tag[:maxTagLength], "-")
	}
	return tag
}

// normalizeTags normalizes every tag and returns them as an ordered set.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		n := normalizeTag(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// splitTags splits a multi-valued tag field on comma, pipe or semicolon.
func splitTags(field string) []string {
	if strings.TrimSpace(field) == "" {
		return []string{}
	}
	return normalizeTags(tagSeparators.Split(field, -1))
}

// folderPathToTags turns "Bookmarks Bar/Development/JavaScript" into
// ["development", "javascript"].
func folderPathToTags(folderPath string) []string {
	if folderPath == "" {
		return []string{}
	}
	var tags []string
	for _, part := range folderSplit.Split(folderPath, -1) {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || excludedFolders[part] {
			continue
		}
		tags = append(tags, part)
	}
	return normalizeTags(tags)
}

// mergeTags returns the ordered union of several tag lists.
func mergeTags(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	return normalizeTags(all)
}

// normalizeURL trims the URL, adds https:// when no http(s) scheme is present
// and checks that the result has a usable host.
func normalizeURL(raw string) (string, bool) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", false
	}
	if !hasHTTPScheme.MatchString(u) {
		u = "https://" + u
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Hostname() == "" || strings.ContainsAny(parsed.Host, " \t\r\n") {
		return "", false
	}
	return u, true
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"20060102T150405Z",
	"20060102T150405",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

var minImportDate = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

// parseDate understands unix timestamps in seconds or milliseconds and the
// date layouts seen in exports. Dates before 1990 or after tomorrow are rejected.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var t time.Time
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return nil
		}
		if n > 1e12 {
			t = time.UnixMilli(n).UTC()
		} else {
			t = time.Unix(n, 0).UTC()
		}
	} else {
		parsed := false
		for _, layout := range dateLayouts {
			if v, err := time.Parse(layout, s); err == nil {
				t = v.UTC()
				parsed = true
				break
			}
		}
		if !parsed {
			return nil
		}
	}

	if t.Before(minImportDate) || t.After(now().Add(24*time.Hour)) {
		return nil
	}
	return &t
}
