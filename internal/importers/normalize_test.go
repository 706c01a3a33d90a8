package importers

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapses whitespace", "  Hello \n\t World  ", "Hello World"},
		{"strips control characters", "Bell\x07 title", "Bell title"},
		{"empty becomes untitled", "   ", "Untitled"},
		{"keeps unicode", "Привет мир", "Привет мир"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeTitle(tt.input))
		})
	}
}

func TestSanitizeTitle_Truncates(t *testing.T) {
	title := sanitizeTitle(strings.Repeat("a", 600))

	assert.Len(t, []rune(title), 500)
	assert.True(t, strings.HasSuffix(title, "..."))
}

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Go", "go"},
		{"C++ Programming!", "c-programming"},
		{"  --web--dev-- ", "web-dev"},
		{"snake_case", "snake_case"},
		{"???", ""},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeTag(tt.input))
		})
	}
}

func TestNormalizeTags_OrderedSet(t *testing.T) {
	assert.Equal(t, []string{"tech", "news"}, normalizeTags([]string{"Tech", "tech", " news ", "", "NEWS"}))
	assert.Equal(t, []string{}, normalizeTags(nil))
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"tech", "news"}, splitTags("tech|news"))
	assert.Equal(t, []string{"a", "b", "c"}, splitTags("a, b;c"))
	assert.Equal(t, []string{}, splitTags(""))
}

func TestFolderPathToTags(t *testing.T) {
	assert.Equal(t, []string{"development", "javascript"}, folderPathToTags("Bookmarks Bar/Development/JavaScript"))
	assert.Equal(t, []string{"work", "reading"}, folderPathToTags(`Other Bookmarks\Work > Reading`))
	assert.Equal(t, []string{}, folderPathToTags("Bookmarks Menu"))
	assert.Equal(t, []string{}, folderPathToTags(""))
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"https://example.com/page", "https://example.com/page", true},
		{"  HTTP://Example.com ", "HTTP://Example.com", true},
		{"example.com/page", "https://example.com/page", true},
		{"not a url", "", false},
		{"http://", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := normalizeURL(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	seconds := parseDate("1700000000")
	require.NotNil(t, seconds)
	assert.True(t, want.Equal(*seconds))

	millis := parseDate("1700000000000")
	require.NotNil(t, millis)
	assert.True(t, want.Equal(*millis))

	enex := parseDate("20240115T143022Z")
	require.NotNil(t, enex)
	assert.Equal(t, time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC), *enex)

	iso := parseDate("2024-01-15T14:30:22+02:00")
	require.NotNil(t, iso)
	assert.Equal(t, time.Date(2024, 1, 15, 12, 30, 22, 0, time.UTC), *iso)
}

func TestParseDate_RejectsOutOfRange(t *testing.T) {
	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("garbage"))
	assert.Nil(t, parseDate("0"))
	assert.Nil(t, parseDate("1980-01-01"))

	future := time.Now().Add(72 * time.Hour).Unix()
	assert.Nil(t, parseDate(strconv.FormatInt(future, 10)))
}

func TestParseDate_UsesClock(t *testing.T) {
	orig := now
	now = func() time.Time { return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = orig })

	assert.Nil(t, parseDate("2020-01-01"))
	assert.NotNil(t, parseDate("1999-12-31"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "hi", truncateRunes("hi", 5, "…"))
	assert.Equal(t, "héllo…", truncateRunes("héllo world", 5, "…"))
}
