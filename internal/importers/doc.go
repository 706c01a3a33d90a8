// Package importers turns export files from other services into a preview of
// canonical import items.
//
// # Architecture
//
// Every upload follows the same flow:
//
//	Upload → Registry → Size guard → Sniff → Parser (bounded) → ParseResult
//
// The registry rejects unknown sources before any bytes are read. The size
// guard rejects oversized uploads before any parser runs. Sniffing is a cheap
// marker search that gives a source-specific message when the wrong file was
// picked. The parser runs on its own goroutine under a deadline and checks
// the context between records.
//
// Nothing here writes to storage. A ParseResult is a preview the caller can
// show to the user or hand to a bulk-create step.
//
// # Partial Failures
//
// A malformed record is skipped and recorded in ParseResult.Errors, or in
// Warnings when it is not really malformed (a folder heading in a bookmark
// file, an empty page). Parsing continues with the next record. Only a file
// that cannot be read as a whole (corrupt zip, missing JSON array, wrong XML
// root) fails with a ParserFatalError. Stats always balance:
//
//	Stats.Parsed == len(Items)
//	Stats.Skipped == Stats.Total - Stats.Parsed
//
// # Adding a New Source
//
//  1. Add a SourceKind constant in entities and a registry entry in registry.go.
//
//  2. Add a Format constant and extend ResolveFormat, IsValidFormat and
//     mismatchMessage in sniff.go.
//
//  3. Implement the Parser interface, collecting records through a resultBuilder:
//
//     func (p *KoboParser) Parse(ctx context.Context, content []byte) (entities.ParseResult, error) {
//     b := newResultBuilder(ctx, entities.SourceKobo)
//     for _, rec := range records {
//     if err := b.begin(); err != nil {
//     return entities.ParseResult{}, err
//     }
//     // b.add(item), b.skip(label, msg) or b.skipWithWarning(msg)
//     }
//     return b.result(), nil
//     }
//
//     // Compile-time check
//     var _ Parser = (*KoboParser)(nil)
//
//  4. Return the parser from Service.newParser.
//
// # Example Usage
//
//	svc := importers.NewService(importers.DefaultLimits())
//	outcome := svc.Preview(ctx, importers.Upload{
//		Filename: "bookmarks.html",
//		Source:   "bookmarks",
//		Content:  data,
//	})
//	if outcome.State != importers.StateCompleted {
//		// outcome.Result.Errors[0].Message is ready to show to the user
//	}
package importers
