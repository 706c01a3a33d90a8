package importers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

// EvernoteParser reads ENEX, the XML export format of Evernote. Every <note>
// is decoded on its own, so one malformed note does not sink the file.
type EvernoteParser struct {
	maxResourceBytes int64
}

// NewEvernoteParser creates a parser for ENEX files. Attachments larger than
// maxResourceBytes are dropped with a warning; zero disables the limit.
func NewEvernoteParser(maxResourceBytes int64) *EvernoteParser {
	return &EvernoteParser{maxResourceBytes: maxResourceBytes}
}

type enexNote struct {
	Title      string   `xml:"title"`
	Content    string   `xml:"content"`
	Created    string   `xml:"created"`
	Updated    string   `xml:"updated"`
	Tags       []string `xml:"tag"`
	Notebook   string   `xml:"notebook,attr"`
	Attributes struct {
		SourceURL string `xml:"source-url"`
		Author    string `xml:"author"`
	} `xml:"note-attributes"`
	Resources []enexResource `xml:"resource"`
}

type enexResource struct {
	Data struct {
		Encoding string `xml:"encoding,attr"`
		Value    string `xml:",chardata"`
	} `xml:"data"`
	Mime       string `xml:"mime"`
	Attributes struct {
		FileName string `xml:"file-name"`
	} `xml:"resource-attributes"`
}

var (
	noteOpen     = []byte("<note")
	noteClose    = []byte("</note>")
	cdataOpen    = []byte("<![CDATA[")
	cdataClose   = []byte("]]>")
	commentOpen  = []byte("<!--")
	commentClose = []byte("-->")
	rawTitle     = regexp.MustCompile(`(?s)<title[^>]*>(.*?)</title>`)
)

// Parse implements Parser.
func (p *EvernoteParser) Parse(ctx context.Context, content []byte) (entities.ParseResult, error) {
	if err := checkENEXRoot(content); err != nil {
		return entities.ParseResult{}, &ParserFatalError{Source: entities.SourceEvernote, Err: err}
	}

	b := newResultBuilder(ctx, entities.SourceEvernote)
	pos := 0
	for {
		start, end, found := nextNoteBlock(content, pos)
		if !found {
			break
		}
		if err := b.begin(); err != nil {
			return entities.ParseResult{}, err
		}
		if end < 0 {
			b.skip(noteLabel(content[start:], b.total), "Note element is not terminated")
			break
		}
		p.convertNote(b, content[start:end], b.total)
		pos = end
	}

	if b.total == 0 {
		b.warn("No notes found in ENEX file. Make sure this is a valid Evernote export.")
	}
	return b.result(), nil
}

// checkENEXRoot decodes the prolog and requires <en-export> as the root element.
func checkENEXRoot(content []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(content))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return errors.New("no root element")
		}
		if err != nil {
			return err
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != "en-export" {
				return fmt.Errorf("root element is <%s>, expected <en-export>", se.Name.Local)
			}
			return nil
		}
	}
}

// nextNoteBlock finds the next <note>...</note> block at or after from.
// Markup inside comments and CDATA sections is ignored, between notes and
// within them. end is -1 when the block is never closed.
func nextNoteBlock(content []byte, from int) (start, end int, found bool) {
	pos := from
	for {
		at, ok := indexOutsideSpans(content, pos, noteOpen)
		if !ok {
			return 0, 0, false
		}
		after := at + len(noteOpen)
		if after < len(content) && (content[after] == '>' || isXMLSpace(content[after])) {
			start = at
			break
		}
		pos = after
	}

	closeAt, ok := indexOutsideSpans(content, start+len(noteOpen), noteClose)
	if !ok {
		return start, -1, true
	}
	return start, closeAt + len(noteClose), true
}

// indexOutsideSpans returns the index of the next marker at or after pos that
// is not inside a comment or CDATA section.
func indexOutsideSpans(content []byte, pos int, marker []byte) (int, bool) {
	for {
		i := bytes.Index(content[pos:], marker)
		if i < 0 {
			return 0, false
		}
		at := pos + i
		spanEnd, opened := skipSpan(content[pos:at], content[pos:])
		if !opened {
			return at, true
		}
		if spanEnd < 0 {
			return 0, false
		}
		pos += spanEnd
	}
}

// skipSpan looks for a comment or CDATA opener in head and, when one is
// found, returns the offset in rest just past its terminator, or -1 when the
// span is never closed. head is a prefix of rest.
func skipSpan(head, rest []byte) (end int, opened bool) {
	open, closer := -1, []byte(nil)
	if i := bytes.Index(head, commentOpen); i >= 0 {
		open, closer = i+len(commentOpen), commentClose
	}
	if i := bytes.Index(head, cdataOpen); i >= 0 && (open < 0 || i < open-len(commentOpen)) {
		open, closer = i+len(cdataOpen), cdataClose
	}
	if open < 0 {
		return 0, false
	}
	j := bytes.Index(rest[open:], closer)
	if j < 0 {
		return -1, true
	}
	return open + j + len(closer), true
}

func isXMLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func noteLabel(block []byte, n int) string {
	if m := rawTitle.FindSubmatch(block); m != nil {
		if t := collapseSpace(string(m[1])); t != "" {
			return t
		}
	}
	return fmt.Sprintf("Note %d", n)
}

func (p *EvernoteParser) convertNote(b *resultBuilder, block []byte, n int) {
	var note enexNote
	if err := xml.Unmarshal(block, &note); err != nil {
		b.skip(noteLabel(block, n), fmt.Sprintf("Could not parse note: %v", err))
		return
	}

	title := sanitizeTitle(note.Title)
	body, err := htmlToText(note.Content)
	if err != nil {
		b.skip(title, fmt.Sprintf("Could not parse note content: %v", err))
		return
	}
	if body == "" && title == untitled {
		b.skipWithWarning(fmt.Sprintf("Skipped empty note %d", n))
		return
	}

	metadata := map[string]any{}
	if note.Notebook != "" {
		metadata["notebook"] = note.Notebook
	}
	if note.Attributes.SourceURL != "" {
		metadata["source_url"] = strings.TrimSpace(note.Attributes.SourceURL)
	}
	if note.Attributes.Author != "" {
		metadata["author"] = strings.TrimSpace(note.Attributes.Author)
	}
	if attachments := p.attachments(b, title, note.Resources); len(attachments) > 0 {
		metadata["attachments"] = attachments
	}

	createdAt := parseDate(note.Created)
	if createdAt == nil {
		createdAt = parseDate(note.Updated)
	}

	b.add(entities.ImportItem{
		Title:     title,
		Body:      body,
		Type:      entities.ItemTypeNote,
		Tags:      normalizeTags(note.Tags),
		CreatedAt: createdAt,
		Metadata:  metadata,
	})
}

// attachments describes the note's resources. Bytes are never copied into the
// item; oversized or undecodable resources are dropped with a warning.
func (p *EvernoteParser) attachments(b *resultBuilder, title string, resources []enexResource) []map[string]any {
	var out []map[string]any
	for _, r := range resources {
		name := strings.TrimSpace(r.Attributes.FileName)
		if name == "" {
			name = "unnamed attachment"
		}

		encoded := strings.Map(func(c rune) rune {
			if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
				return -1
			}
			return c
		}, r.Data.Value)
		size := int64(base64.StdEncoding.DecodedLen(len(encoded)))
		if p.maxResourceBytes > 0 && size > p.maxResourceBytes {
			b.warn(fmt.Sprintf("Note %q: dropped attachment %q (about %d bytes, limit is %d)", title, name, size, p.maxResourceBytes))
			continue
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			b.warn(fmt.Sprintf("Note %q: dropped attachment %q (invalid base64 data)", title, name))
			continue
		}
		out = append(out, map[string]any{
			"file_name": name,
			"mime":      strings.TrimSpace(r.Mime),
			"size":      len(decoded),
		})
	}
	return out
}

// Compile-time interface check
var _ Parser = (*EvernoteParser)(nil)
