package importers

import (
	"errors"
	"fmt"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

var (
	// ErrInvalidSource is returned when the discriminator is not a registered source.
	ErrInvalidSource = errors.New("invalid import source")

	// ErrFileTooLarge is returned when the upload exceeds the configured size ceiling.
	ErrFileTooLarge = errors.New("file too large")

	// ErrTimeout is returned when parsing does not finish within the parse budget.
	ErrTimeout = errors.New("import parsing timed out")

	// ErrCanceled is returned when the caller gave up before parsing finished.
	ErrCanceled = errors.New("import was canceled")

	// ErrArchiveTooLarge aborts a zip extraction that crossed its expansion limits.
	ErrArchiveTooLarge = errors.New("archive expands beyond the allowed size")
)

// FormatMismatchError is returned when a file fails the source's format sniff.
type FormatMismatchError struct {
	Source  entities.SourceKind
	Message string
}

func (e *FormatMismatchError) Error() string {
	return e.Message
}

// ParserFatalError wraps an error that made the whole file unparseable.
type ParserFatalError struct {
	Source entities.SourceKind
	Err    error
}

func (e *ParserFatalError) Error() string {
	return fmt.Sprintf("failed to parse %s export: %v", sourceDisplayName(e.Source), e.Err)
}

func (e *ParserFatalError) Unwrap() error {
	return e.Err
}

func sourceDisplayName(kind entities.SourceKind) string {
	if cfg, ok := LookupSource(string(kind)); ok {
		return cfg.Name
	}
	return string(kind)
}
