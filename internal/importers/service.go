package importers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

// Parser turns the raw bytes of one export file into a ParseResult. Record-level
// problems are reported inside the result; a returned error means the whole
// file could not be parsed. Parsers must stop promptly once ctx is done.
type Parser interface {
	Parse(ctx context.Context, content []byte) (entities.ParseResult, error)
}

// State is the stage an import request reached. Completed, RejectedInvalidFormat,
// TimedOut, Canceled, Failed and Rejected are terminal.
type State string

const (
	StateReceived              State = "received"
	StateSizeChecked           State = "size_checked"
	StateSniffed               State = "sniffed"
	StateParsing               State = "parsing"
	StateCompleted             State = "completed"
	StateRejected              State = "rejected"
	StateRejectedInvalidFormat State = "rejected_invalid_format"
	StateTimedOut              State = "timed_out"
	StateCanceled              State = "canceled"
	StateFailed                State = "failed"
)

// Limits configures the guards applied around every parse.
type Limits struct {
	MaxFileSize          int64
	ParseTimeout         time.Duration
	MaxExpansionRatio    int
	MaxDecompressedBytes int64
	MaxArchiveEntries    int
	MaxResourceBytes     int64
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:          20 << 20,
		ParseTimeout:         30 * time.Second,
		MaxExpansionRatio:    defaultExpansionRatio,
		MaxDecompressedBytes: 200 << 20,
		MaxArchiveEntries:    10000,
		MaxResourceBytes:     5 << 20,
	}
}

// Upload is one file submitted for preview.
type Upload struct {
	Filename string
	Source   string
	Content  []byte
}

// Outcome is the terminal result of a preview request. Result is always
// populated, with Success=false for every state other than Completed.
type Outcome struct {
	State    State
	Source   entities.SourceKind
	Format   Format
	Result   entities.ParseResult
	Err      error
	Duration time.Duration
}

// Service runs uploads through the registry, size guard, sniffer and parser.
// It keeps no per-request state and is safe for concurrent use.
type Service struct {
	limits    Limits
	parserFor func(Format) Parser
}

// NewService creates a preview service with the given limits.
func NewService(limits Limits) *Service {
	s := &Service{limits: limits}
	s.parserFor = s.newParser
	return s
}

// Limits returns the limits the service enforces.
func (s *Service) Limits() Limits {
	return s.limits
}

// Check validates the discriminator and the declared size. It needs no file
// bytes, so callers run it before reading the upload.
func (s *Service) Check(source string, size int64) (ImportSourceConfig, error) {
	cfg, ok := LookupSource(source)
	if !ok {
		return ImportSourceConfig{}, fmt.Errorf("%w: %s", ErrInvalidSource, source)
	}
	if s.limits.MaxFileSize > 0 && size > s.limits.MaxFileSize {
		return cfg, fmt.Errorf("%w: maximum size is %s", ErrFileTooLarge, formatSize(s.limits.MaxFileSize))
	}
	return cfg, nil
}

// Preview parses an upload and returns a terminal outcome. It never panics on
// hostile input and returns within the parse timeout.
func (s *Service) Preview(ctx context.Context, up Upload) Outcome {
	start := time.Now()
	out := s.preview(ctx, up)
	out.Duration = time.Since(start)
	return out
}

func (s *Service) preview(ctx context.Context, up Upload) Outcome {
	out := Outcome{State: StateReceived}

	cfg, err := s.Check(up.Source, int64(len(up.Content)))
	if err != nil {
		return out.fail(StateRejected, err)
	}
	out.Source = cfg.ID
	out.State = StateSizeChecked

	out.Format = ResolveFormat(cfg.ID, up.Filename)
	if err := Sniff(cfg.ID, out.Format, up.Content); err != nil {
		return out.fail(StateRejectedInvalidFormat, err)
	}
	out.State = StateParsing
	result, err := s.runBounded(ctx, s.parserFor(out.Format), up.Content)
	switch {
	case err == nil:
		out.State = StateCompleted
		out.Result = result
		return out
	case errors.Is(err, ErrTimeout):
		return out.fail(StateTimedOut, err)
	case errors.Is(err, ErrCanceled):
		return out.fail(StateCanceled, err)
	default:
		return out.fail(StateFailed, err)
	}
}

// Rejected builds the outcome for a request refused before its content was
// read, such as an upload whose declared size is over the limit.
func Rejected(source entities.SourceKind, err error) Outcome {
	return Outcome{State: StateReceived, Source: source}.fail(StateRejected, err)
}

func (o Outcome) fail(state State, err error) Outcome {
	o.State = state
	o.Err = err
	o.Result = entities.FailedParseResult(UserMessage(err))
	return o
}

type parseOutput struct {
	result entities.ParseResult
	err    error
}

// runBounded runs the parser on its own goroutine and races it against the
// parse timeout. Parsers observe the same context and stop at their next
// checkpoint once it expires.
func (s *Service) runBounded(ctx context.Context, p Parser, content []byte) (entities.ParseResult, error) {
	timeout := s.limits.ParseTimeout
	if timeout <= 0 {
		timeout = DefaultLimits().ParseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan parseOutput, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[IMPORT] Parser panic: %v\n%s", r, debug.Stack())
				done <- parseOutput{err: fmt.Errorf("parser crashed: %v", r)}
			}
		}()
		res, err := p.Parse(ctx, content)
		done <- parseOutput{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return entities.ParseResult{}, classifyParseError(out.err, timeout)
		}
		return out.result, nil
	case <-ctx.Done():
		return entities.ParseResult{}, classifyParseError(ctx.Err(), timeout)
	}
}

func classifyParseError(err error, timeout time.Duration) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case errors.Is(err, context.Canceled):
		return ErrCanceled
	}
	return err
}

// newParser maps a format to its parser. The switch is exhaustive over Format.
func (s *Service) newParser(format Format) Parser {
	switch format {
	case FormatBookmarksHTML:
		return NewBookmarksParser()
	case FormatPocketHTML:
		return NewPocketParser()
	case FormatPocketCSV:
		return NewPocketCSVParser()
	case FormatNotionZip:
		return NewNotionParser(NotionLimits{
			MaxExpansionRatio:    s.limits.MaxExpansionRatio,
			MaxDecompressedBytes: s.limits.MaxDecompressedBytes,
			MaxEntries:           s.limits.MaxArchiveEntries,
		})
	case FormatEvernoteENEX:
		return NewEvernoteParser(s.limits.MaxResourceBytes)
	case FormatTwitterJS:
		return NewTwitterParser()
	}
	panic("importers: no parser for format " + string(format))
}

// UserMessage turns a pipeline error into the text shown to the person who
// uploaded the file.
func UserMessage(err error) string {
	var mismatch *FormatMismatchError
	var fatal *ParserFatalError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &mismatch):
		return mismatch.Message
	case errors.As(err, &fatal):
		return fmt.Sprintf("Failed to parse %s export: %v", sourceDisplayName(fatal.Source), fatal.Err)
	case errors.Is(err, ErrTimeout):
		return capitalize(err.Error()) + ". Try splitting the export into smaller files."
	}
	return capitalize(err.Error())
}

func formatSize(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
