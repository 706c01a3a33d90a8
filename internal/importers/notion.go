package importers

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

// Archive noise added by macOS and Windows zip tools.
var notionIgnorePatterns = []string{
	"__MACOSX/**",
	".DS_Store",
	"**/.DS_Store",
	"._*",
	"**/._*",
	"**/Thumbs.db",
}

var (
	notionIDSuffix = regexp.MustCompile(`(?i)[\s_-]+(?:[0-9a-f]{32}|[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
	notionParenID  = regexp.MustCompile(`(?i)\s+\([0-9a-f-]+\)$`)
	inlineHashtag  = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_-]*)`)
)

// defaultExpansionRatio applies when NotionLimits leaves the ratio unset.
const defaultExpansionRatio = 100

// NotionLimits bounds how much work a single archive may cause.
type NotionLimits struct {
	// MaxExpansionRatio caps decompressed bytes relative to the archive size.
	MaxExpansionRatio int
	// MaxDecompressedBytes is an absolute cap on decompressed page bytes.
	MaxDecompressedBytes int64
	// MaxEntries caps the number of entries in the archive directory.
	MaxEntries int
}

// NotionParser reads a Notion workspace export: a zip of Markdown or HTML
// pages, with subpages and assets in folders named after their parent page.
type NotionParser struct {
	limits NotionLimits
}

// NewNotionParser creates a parser for Notion zip exports.
func NewNotionParser(limits NotionLimits) *NotionParser {
	return &NotionParser{limits: limits}
}

// Parse implements Parser.
func (p *NotionParser) Parse(ctx context.Context, content []byte) (entities.ParseResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if errors.Is(err, zip.ErrInsecurePath) {
		// Unsafe names are reported per entry below.
		err = nil
	}
	if err != nil {
		return entities.ParseResult{}, p.fatal(err)
	}
	if p.limits.MaxEntries > 0 && len(zr.File) > p.limits.MaxEntries {
		return entities.ParseResult{}, p.fatal(fmt.Errorf("archive has %d entries, the limit is %d", len(zr.File), p.limits.MaxEntries))
	}

	budget := p.budget(int64(len(content)))
	var declared uint64
	for _, f := range zr.File {
		if isNotionPage(f.Name) {
			declared += f.UncompressedSize64
		}
	}
	if declared > uint64(budget) {
		return entities.ParseResult{}, p.fatal(fmt.Errorf("%w: %d bytes declared, limit is %d", ErrArchiveTooLarge, declared, budget))
	}

	b := newResultBuilder(ctx, entities.SourceNotion)
	b.checkEvery = 1 // every entry may decompress up to the whole budget
	remaining := budget

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || ignoredNotionEntry(f.Name) {
			continue
		}
		unsafe := unsafeEntryName(f.Name)
		if !unsafe && !isNotionPage(f.Name) {
			continue
		}

		if err := b.begin(); err != nil {
			return entities.ParseResult{}, err
		}
		if unsafe {
			b.skip(f.Name, "Unsafe path in archive; entry ignored")
			continue
		}

		data, err := readZipEntry(f, remaining)
		if errors.Is(err, ErrArchiveTooLarge) {
			return entities.ParseResult{}, p.fatal(fmt.Errorf("%w: limit is %d bytes", ErrArchiveTooLarge, budget))
		}
		if err != nil {
			b.skip(f.Name, fmt.Sprintf("Could not read entry: %v", err))
			continue
		}
		remaining -= int64(len(data))

		p.convertPage(b, f.Name, strings.ToValidUTF8(string(data), "�"))
	}

	if b.total == 0 {
		b.warn("No content files found in ZIP. Make sure this is a Notion export with HTML or Markdown format.")
	}
	return b.result(), nil
}

func (p *NotionParser) fatal(err error) error {
	return &ParserFatalError{Source: entities.SourceNotion, Err: err}
}

// budget is the ratio limit times the archive size, lowered to the absolute
// cap when that is smaller.
func (p *NotionParser) budget(archiveSize int64) int64 {
	ratio := int64(p.limits.MaxExpansionRatio)
	if ratio <= 0 {
		ratio = defaultExpansionRatio
	}
	budget := archiveSize * ratio
	if p.limits.MaxDecompressedBytes > 0 && p.limits.MaxDecompressedBytes < budget {
		budget = p.limits.MaxDecompressedBytes
	}
	return budget
}

func (p *NotionParser) convertPage(b *resultBuilder, name, content string) {
	dir, file := path.Split(strings.ReplaceAll(name, `\`, "/"))
	folder := notionFolderPath(strings.TrimSuffix(dir, "/"))

	var page notionPage
	switch strings.ToLower(path.Ext(file)) {
	case ".md":
		page = parseNotionMarkdown(content, file)
	default:
		var err error
		page, err = parseNotionHTML(content, file)
		if err != nil {
			b.skip(name, fmt.Sprintf("Could not parse HTML: %v", err))
			return
		}
	}

	if page.body == "" && page.title == untitled {
		b.skipWithWarning(fmt.Sprintf("Skipped empty page: %s", name))
		return
	}

	metadata := map[string]any{"original_file_name": file}
	if folder != "" {
		metadata["folder_path"] = folder
	}

	b.add(entities.ImportItem{
		Title:    page.title,
		Body:     page.body,
		Type:     entities.ItemTypeNote,
		Tags:     mergeTags(folderPathToTags(folder), inlineTags(page.body)),
		Metadata: metadata,
	})
}

type notionPage struct {
	title string
	body  string
}

// parseNotionMarkdown takes the title from a leading "# " heading, falling back
// to the file name. The body stays Markdown.
func parseNotionMarkdown(content, file string) notionPage {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	title := ""
	start := 0
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(line[2:])
			start = i + 1
		}
		break
	}
	if title == "" {
		title = titleFromFileName(file)
	}
	return notionPage{
		title: sanitizeTitle(title),
		body:  strings.TrimSpace(strings.Join(lines[start:], "\n")),
	}
}

func parseNotionHTML(content, file string) (notionPage, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return notionPage{}, err
	}

	pageTitle := func(n *html.Node) bool { return n.Data == "h1" && hasClass(n, "page-title") }

	var title string
	var titleNode *html.Node
	if n := findElement(doc, pageTitle); n != nil {
		title, titleNode = nodeText(n), n
	} else if n := findElement(doc, isElement("title")); n != nil && nodeText(n) != "" {
		title = nodeText(n)
	} else if n := findElement(doc, isElement("h1")); n != nil {
		title, titleNode = nodeText(n), n
	}
	if title == "" {
		title = titleFromFileName(file)
	}

	root := findElement(doc, isElement("article"))
	if root == nil {
		root = findElement(doc, func(n *html.Node) bool { return hasClass(n, "page-body") })
	}
	if root == nil {
		root = doc
	}

	body := renderText(root, func(n *html.Node) bool {
		return n == titleNode || n.Data == "header"
	})
	return notionPage{title: sanitizeTitle(title), body: body}, nil
}

// titleFromFileName strips the extension and the page ID Notion appends to
// every exported file name.
func titleFromFileName(file string) string {
	name := strings.TrimSuffix(file, path.Ext(file))
	name = stripNotionID(name)
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return untitled
	}
	return name
}

func stripNotionID(name string) string {
	name = notionIDSuffix.ReplaceAllString(name, "")
	return notionParenID.ReplaceAllString(name, "")
}

// notionFolderPath removes page IDs from every directory in the entry path.
func notionFolderPath(dir string) string {
	if dir == "" {
		return ""
	}
	parts := strings.Split(dir, "/")
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(stripNotionID(part)); part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, "/")
}

func inlineTags(body string) []string {
	var tags []string
	for _, m := range inlineHashtag.FindAllStringSubmatch(body, -1) {
		if tag := m[1]; len(tag) > 1 && len(tag) <= 30 {
			tags = append(tags, tag)
		}
	}
	return tags
}

func isNotionPage(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".html", ".htm":
		return true
	}
	return false
}

func ignoredNotionEntry(name string) bool {
	name = strings.ReplaceAll(name, `\`, "/")
	for _, pattern := range notionIgnorePatterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// unsafeEntryName reports entry names that would escape an extraction root:
// absolute paths, drive letters, parent references and NUL bytes.
func unsafeEntryName(name string) bool {
	if name == "" || strings.ContainsRune(name, 0) {
		return true
	}
	n := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(n, "/") {
		return true
	}
	if len(n) >= 2 && n[1] == ':' {
		return true
	}
	for _, part := range strings.Split(n, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// readZipEntry decompresses f, failing with ErrArchiveTooLarge as soon as more
// than limit bytes come out. Declared sizes are not trusted.
func readZipEntry(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrArchiveTooLarge
	}
	return data, nil
}

// Compile-time interface check
var _ Parser = (*NotionParser)(nil)
