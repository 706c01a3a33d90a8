package importers

import (
	"path/filepath"
	"strings"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

// ImportSourceConfig describes the files a source accepts.
type ImportSourceConfig struct {
	ID                 entities.SourceKind `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	AcceptedExtensions []string            `json:"acceptedExtensions"`
	AcceptedMIMETypes  []string            `json:"acceptedMimeTypes"`
}

// AcceptsMIME reports whether mime is one of the source's accepted MIME types.
func (c ImportSourceConfig) AcceptsMIME(mime string) bool {
	for _, m := range c.AcceptedMIMETypes {
		if strings.EqualFold(m, mime) {
			return true
		}
	}
	return false
}

// AcceptsFilename reports whether the filename carries an accepted extension.
func (c ImportSourceConfig) AcceptsFilename(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range c.AcceptedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

var sources = []ImportSourceConfig{
	{
		ID:                 entities.SourceBookmarks,
		Name:               "Browser Bookmarks",
		Description:        "Import bookmarks from Chrome, Firefox, Safari, or Edge",
		AcceptedExtensions: []string{".html", ".htm"},
		AcceptedMIMETypes:  []string{"text/html"},
	},
	{
		ID:                 entities.SourcePocket,
		Name:               "Pocket",
		Description:        "Import saved articles from Pocket (HTML or CSV export)",
		AcceptedExtensions: []string{".html", ".htm", ".csv"},
		AcceptedMIMETypes:  []string{"text/html", "text/csv"},
	},
	{
		ID:                 entities.SourceNotion,
		Name:               "Notion",
		Description:        "Import pages from Notion (ZIP export with HTML/Markdown)",
		AcceptedExtensions: []string{".zip"},
		AcceptedMIMETypes:  []string{"application/zip", "application/x-zip-compressed"},
	},
	{
		ID:                 entities.SourceEvernote,
		Name:               "Evernote",
		Description:        "Import notes from Evernote (ENEX export)",
		AcceptedExtensions: []string{".enex"},
		AcceptedMIMETypes:  []string{"application/xml", "text/xml"},
	},
	{
		ID:                 entities.SourceTwitter,
		Name:               "X/Twitter Bookmarks",
		Description:        "Import bookmarks from an X (Twitter) data archive (bookmarks.js)",
		AcceptedExtensions: []string{".js"},
		AcceptedMIMETypes:  []string{"application/javascript", "text/javascript"},
	},
}

var sourceIndex = func() map[entities.SourceKind]int {
	idx := make(map[entities.SourceKind]int, len(sources))
	for i, s := range sources {
		idx[s.ID] = i
	}
	return idx
}()

// ParseSourceKind converts a discriminator string into a SourceKind.
func ParseSourceKind(id string) (entities.SourceKind, bool) {
	kind := entities.SourceKind(strings.ToLower(strings.TrimSpace(id)))
	_, ok := sourceIndex[kind]
	return kind, ok
}

// LookupSource returns a copy of the configuration registered for id.
func LookupSource(id string) (ImportSourceConfig, bool) {
	kind, ok := ParseSourceKind(id)
	if !ok {
		return ImportSourceConfig{}, false
	}
	return cloneSource(sources[sourceIndex[kind]]), true
}

// Sources returns copies of all registered source configurations, in display order.
func Sources() []ImportSourceConfig {
	out := make([]ImportSourceConfig, 0, len(sources))
	for _, s := range sources {
		out = append(out, cloneSource(s))
	}
	return out
}

func cloneSource(s ImportSourceConfig) ImportSourceConfig {
	s.AcceptedExtensions = append([]string(nil), s.AcceptedExtensions...)
	s.AcceptedMIMETypes = append([]string(nil), s.AcceptedMIMETypes...)
	return s
}
