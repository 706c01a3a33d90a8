package importers

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

// Column aliases accepted in Pocket CSV headers, in lookup order.
var (
	pocketURLColumns    = []string{"url", "link"}
	pocketTitleColumns  = []string{"title", "name"}
	pocketTagsColumns   = []string{"tags", "tag"}
	pocketDateColumns   = []string{"time_added", "date", "added"}
	pocketStatusColumns = []string{"status"}
)

// PocketCSVParser reads the CSV variant of the Pocket export.
type PocketCSVParser struct{}

// NewPocketCSVParser creates a parser for Pocket CSV exports.
func NewPocketCSVParser() *PocketCSVParser {
	return &PocketCSVParser{}
}

// Parse implements Parser.
func (p *PocketCSVParser) Parse(ctx context.Context, content []byte) (entities.ParseResult, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return entities.ParseResult{}, &ParserFatalError{Source: entities.SourcePocket, Err: errors.New("CSV file is empty")}
	}
	if err != nil {
		return entities.ParseResult{}, &ParserFatalError{Source: entities.SourcePocket, Err: fmt.Errorf("failed to read header: %w", err)}
	}

	headerIndex := make(map[string]int, len(header))
	for i, h := range header {
		headerIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := columnIndex(headerIndex, pocketURLColumns); !ok {
		return entities.ParseResult{}, &ParserFatalError{Source: entities.SourcePocket, Err: errors.New("CSV must have a URL column")}
	}

	b := newResultBuilder(ctx, entities.SourcePocket)
	lineNum := 1 // Header already read

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if cerr := b.begin(); cerr != nil {
			return entities.ParseResult{}, cerr
		}
		if err != nil {
			b.skip(fmt.Sprintf("Row %d", lineNum), err.Error())
			continue
		}
		p.convertRow(b, record, headerIndex, lineNum)
	}

	if b.total == 0 {
		b.warn("No items found in Pocket export.")
	}
	return b.result(), nil
}

func (p *PocketCSVParser) convertRow(b *resultBuilder, record []string, headerIndex map[string]int, lineNum int) {
	rawURL := csvValue(record, headerIndex, pocketURLColumns)
	title := csvValue(record, headerIndex, pocketTitleColumns)

	url, ok := normalizeURL(rawURL)
	if !ok {
		label := title
		if label == "" {
			label = rawURL
		}
		if label == "" {
			label = fmt.Sprintf("Row %d", lineNum)
		}
		b.skip(label, fmt.Sprintf("Invalid URL: %s", rawURL))
		return
	}
	if title == "" {
		title = url
	}

	metadata := map[string]any{}
	if status := csvValue(record, headerIndex, pocketStatusColumns); status != "" {
		metadata["status"] = status
	}

	b.add(entities.ImportItem{
		Title:     sanitizeTitle(title),
		URL:       url,
		Type:      entities.ItemTypeLink,
		Tags:      splitTags(csvValue(record, headerIndex, pocketTagsColumns)),
		CreatedAt: parseDate(csvValue(record, headerIndex, pocketDateColumns)),
		Metadata:  metadata,
	})
}

func columnIndex(headerIndex map[string]int, aliases []string) (int, bool) {
	for _, a := range aliases {
		if idx, ok := headerIndex[a]; ok {
			return idx, true
		}
	}
	return 0, false
}

func csvValue(record []string, headerIndex map[string]int, aliases []string) string {
	if idx, ok := columnIndex(headerIndex, aliases); ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

// Compile-time interface check
var _ Parser = (*PocketCSVParser)(nil)
