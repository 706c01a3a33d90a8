package importers

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

// spyParser records calls and behaves according to its fields.
type spyParser struct {
	calls    atomic.Int32
	block    bool
	sleep    time.Duration
	panicMsg string
}

func (p *spyParser) Parse(ctx context.Context, _ []byte) (entities.ParseResult, error) {
	p.calls.Add(1)
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.block {
		<-ctx.Done()
		return entities.ParseResult{}, ctx.Err()
	}
	if p.sleep > 0 {
		time.Sleep(p.sleep)
	}
	return newResultBuilder(ctx, entities.SourceBookmarks).result(), nil
}

func serviceWithSpy(limits Limits, spy *spyParser) *Service {
	svc := NewService(limits)
	svc.parserFor = func(Format) Parser { return spy }
	return svc
}

func TestService_OversizedUploadNeverReachesParser(t *testing.T) {
	spy := &spyParser{}
	svc := serviceWithSpy(Limits{MaxFileSize: 20 << 20, ParseTimeout: time.Second}, spy)

	content := bytes.Repeat([]byte("a"), 25<<20)
	outcome := svc.Preview(context.Background(), Upload{Filename: "bookmarks.html", Source: "bookmarks", Content: content})

	assert.Equal(t, StateRejected, outcome.State)
	assert.ErrorIs(t, outcome.Err, ErrFileTooLarge)
	assert.Equal(t, int32(0), spy.calls.Load())
	assert.False(t, outcome.Result.Success)
	require.Len(t, outcome.Result.Errors, 1)
	assert.Contains(t, outcome.Result.Errors[0].Message, "20MB")
}

func TestService_Check(t *testing.T) {
	svc := NewService(Limits{MaxFileSize: 1024})

	cfg, err := svc.Check("notion", 1024)
	require.NoError(t, err)
	assert.Equal(t, entities.SourceNotion, cfg.ID)

	_, err = svc.Check("notion", 1025)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = svc.Check("raindrop", 1)
	assert.ErrorIs(t, err, ErrInvalidSource)
	assert.Equal(t, "Invalid import source: raindrop", UserMessage(err))
}

func TestService_FormatMismatchSkipsParser(t *testing.T) {
	spy := &spyParser{}
	svc := serviceWithSpy(DefaultLimits(), spy)

	outcome := svc.Preview(context.Background(), Upload{Filename: "notes.enex", Source: "evernote", Content: []byte(bookmarksFixture)})

	assert.Equal(t, StateRejectedInvalidFormat, outcome.State)
	assert.Equal(t, int32(0), spy.calls.Load())
	assert.Equal(t, []entities.ParseError{{Message: "This does not appear to be a valid Evernote ENEX file."}}, outcome.Result.Errors)
}

func TestService_CooperativeTimeout(t *testing.T) {
	spy := &spyParser{block: true}
	svc := serviceWithSpy(Limits{MaxFileSize: 1 << 20, ParseTimeout: 50 * time.Millisecond}, spy)

	outcome := svc.Preview(context.Background(), Upload{Filename: "b.html", Source: "bookmarks", Content: []byte(bookmarksFixture)})

	assert.Equal(t, StateTimedOut, outcome.State)
	assert.ErrorIs(t, outcome.Err, ErrTimeout)
	assert.False(t, outcome.Result.Success)
	assert.Contains(t, outcome.Result.Errors[0].Message, "timed out")
}

func TestService_UncooperativeParserStillTimesOut(t *testing.T) {
	spy := &spyParser{sleep: 2 * time.Second}
	svc := serviceWithSpy(Limits{MaxFileSize: 1 << 20, ParseTimeout: 50 * time.Millisecond}, spy)

	start := time.Now()
	outcome := svc.Preview(context.Background(), Upload{Filename: "b.html", Source: "bookmarks", Content: []byte(bookmarksFixture)})

	assert.Equal(t, StateTimedOut, outcome.State)
	assert.Less(t, time.Since(start), time.Second)
}

func TestService_CallerCancellation(t *testing.T) {
	spy := &spyParser{block: true}
	svc := serviceWithSpy(Limits{MaxFileSize: 1 << 20, ParseTimeout: 5 * time.Second}, spy)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	outcome := svc.Preview(ctx, Upload{Filename: "b.html", Source: "bookmarks", Content: []byte(bookmarksFixture)})

	assert.Equal(t, StateCanceled, outcome.State)
	assert.ErrorIs(t, outcome.Err, ErrCanceled)
	assert.NotErrorIs(t, outcome.Err, ErrTimeout)
	assert.Equal(t, "Import was canceled", outcome.Result.Errors[0].Message)
}

func TestService_ParserPanicBecomesFailure(t *testing.T) {
	spy := &spyParser{panicMsg: "boom"}
	svc := serviceWithSpy(DefaultLimits(), spy)

	outcome := svc.Preview(context.Background(), Upload{Filename: "b.html", Source: "bookmarks", Content: []byte(bookmarksFixture)})

	assert.Equal(t, StateFailed, outcome.State)
	assert.Contains(t, outcome.Result.Errors[0].Message, "boom")
}

func TestService_FatalParseError(t *testing.T) {
	svc := NewService(DefaultLimits())

	outcome := svc.Preview(context.Background(), Upload{Filename: "export.zip", Source: "notion", Content: []byte("not a zip")})

	assert.Equal(t, StateFailed, outcome.State)
	var fatal *ParserFatalError
	require.True(t, errors.As(outcome.Err, &fatal))
	assert.False(t, outcome.Result.Success)
	assert.Contains(t, outcome.Result.Errors[0].Message, "Failed to parse Notion export")
	assert.Equal(t, entities.ParseStats{}, outcome.Result.Stats)
}

func TestService_TwitterEndToEnd(t *testing.T) {
	svc := NewService(DefaultLimits())

	outcome := svc.Preview(context.Background(), Upload{Filename: "bookmarks.js", Source: "twitter", Content: []byte(twitterFixture)})

	require.Equal(t, StateCompleted, outcome.State)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, entities.SourceTwitter, outcome.Source)
	assert.Equal(t, FormatTwitterJS, outcome.Format)
	require.Len(t, outcome.Result.Items, 1)
	assert.Equal(t, "https://x.com/i/status/2", outcome.Result.Items[0].URL)
}

func allFixtures(t *testing.T) []Upload {
	return []Upload{
		{Filename: "bookmarks.html", Source: "bookmarks", Content: []byte(bookmarksFixture)},
		{Filename: "ril_export.html", Source: "pocket", Content: []byte(pocketHTMLFixture)},
		{Filename: "part_000000.csv", Source: "pocket", Content: []byte(pocketCSVFixture)},
		{Filename: "export.zip", Source: "notion", Content: notionFixture(t)},
		{Filename: "notes.enex", Source: "evernote", Content: []byte(enexFixture(6 << 20))},
		{Filename: "bookmarks.js", Source: "twitter", Content: []byte(twitterFixture)},
	}
}

func TestService_StatsInvariantsHoldForEverySource(t *testing.T) {
	svc := NewService(DefaultLimits())

	for _, up := range allFixtures(t) {
		t.Run(up.Filename, func(t *testing.T) {
			outcome := svc.Preview(context.Background(), up)
			require.Equal(t, StateCompleted, outcome.State, "%v", outcome.Err)

			r := outcome.Result
			assert.True(t, r.Success)
			assert.Equal(t, len(r.Items), r.Stats.Parsed)
			assert.Equal(t, r.Stats.Total-r.Stats.Parsed, r.Stats.Skipped)
			assert.LessOrEqual(t, r.Stats.Skipped, len(r.Errors)+len(r.Warnings))
			for _, item := range r.Items {
				assert.NotEmpty(t, item.Title)
				assert.NotNil(t, item.Tags)
				if item.Type == entities.ItemTypeLink {
					assert.NotEmpty(t, item.URL)
				}
			}
		})
	}
}

func TestService_PreviewIsIdempotent(t *testing.T) {
	svc := NewService(DefaultLimits())

	for _, up := range allFixtures(t) {
		t.Run(up.Filename, func(t *testing.T) {
			first := svc.Preview(context.Background(), up)
			second := svc.Preview(context.Background(), up)
			assert.Equal(t, first.Result, second.Result)
		})
	}
}

func TestService_ConcurrentPreviews(t *testing.T) {
	svc := NewService(DefaultLimits())
	fixtures := allFixtures(t)

	results := make(chan Outcome, len(fixtures)*4)
	for i := 0; i < 4; i++ {
		for _, up := range fixtures {
			go func(up Upload) {
				results <- svc.Preview(context.Background(), up)
			}(up)
		}
	}
	for i := 0; i < cap(results); i++ {
		assert.Equal(t, StateCompleted, (<-results).State)
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Something broke", UserMessage(errors.New("something broke")))
	assert.Equal(t,
		"Failed to parse Pocket export: CSV must have a URL column",
		UserMessage(&ParserFatalError{Source: entities.SourcePocket, Err: errors.New("CSV must have a URL column")}),
	)
}

func TestRejected(t *testing.T) {
	svc := NewService(Limits{MaxFileSize: 1 << 20})
	cfg, err := svc.Check("pocket", 2<<20)
	require.Error(t, err)

	outcome := Rejected(cfg.ID, err)

	assert.Equal(t, StateRejected, outcome.State)
	assert.Equal(t, entities.SourcePocket, outcome.Source)
	assert.False(t, outcome.Result.Success)
	assert.Equal(t, "File too large: maximum size is 1MB", outcome.Result.Errors[0].Message)
}
