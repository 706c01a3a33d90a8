package importers

import (
	"context"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

// defaultCheckEvery is how many records a parser handles between context checks.
const defaultCheckEvery = 64

// resultBuilder aggregates per-record outcomes into a ParseResult. Every record a
// parser finds must go through begin() and then exactly one of add, skip or
// skipWithWarning, so the stats always balance.
type resultBuilder struct {
	ctx      context.Context
	source   entities.SourceKind
	items    []entities.ImportItem
	errors   []entities.ParseError
	warnings []string
	total    int

	checkEvery int
}

func newResultBuilder(ctx context.Context, source entities.SourceKind) *resultBuilder {
	return &resultBuilder{
		ctx:        ctx,
		source:     source,
		items:      []entities.ImportItem{},
		errors:     []entities.ParseError{},
		warnings:   []string{},
		checkEvery: defaultCheckEvery,
	}
}

// begin counts a new record and periodically checks for cancellation.
func (b *resultBuilder) begin() error {
	b.total++
	if b.checkEvery <= 1 || b.total%b.checkEvery == 0 {
		return b.checkpoint()
	}
	return nil
}

// checkpoint reports the context error, if any.
func (b *resultBuilder) checkpoint() error {
	return b.ctx.Err()
}

func (b *resultBuilder) add(item entities.ImportItem) {
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if item.Metadata == nil {
		item.Metadata = map[string]any{}
	}
	item.Metadata["source"] = string(b.source)
	b.items = append(b.items, item)
}

// skip drops the current record and records why.
func (b *resultBuilder) skip(item, message string) {
	b.errors = append(b.errors, entities.ParseError{Item: item, Message: message})
}

// skipWithWarning drops the current record without treating it as malformed data.
func (b *resultBuilder) skipWithWarning(message string) {
	b.warnings = append(b.warnings, message)
}

// warn adds a warning that is not tied to a skipped record.
func (b *resultBuilder) warn(message string) {
	b.warnings = append(b.warnings, message)
}

func (b *resultBuilder) result() entities.ParseResult {
	parsed := len(b.items)
	return entities.ParseResult{
		Success:  true,
		Items:    b.items,
		Errors:   b.errors,
		Warnings: b.warnings,
		Stats: entities.ParseStats{
			Total:   b.total,
			Parsed:  parsed,
			Skipped: b.total - parsed,
		},
	}
}
