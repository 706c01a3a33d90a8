package http

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/knowledgehub/internal/audit"
	"github.com/mrlokans/knowledgehub/internal/entities"
	"github.com/mrlokans/knowledgehub/internal/importers"
)

const (
	// multipartOverhead is the slack allowed on top of the file limit for
	// form boundaries and the source field.
	multipartOverhead = 1 << 20

	// formMemory is how much of a form is held in memory before file parts
	// spill to disk.
	formMemory = 8 << 20

	// statusClientClosedRequest reports a preview abandoned by its caller.
	statusClientClosedRequest = 499
)

// PreviewFailure is returned for every non-completed preview. It keeps the
// ParseResult shape so clients can render errors the same way in both cases.
type PreviewFailure struct {
	entities.ParseResult
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ImportController struct {
	importer     *importers.Service
	auditService *audit.Service
}

func NewImportController(importer *importers.Service, auditService *audit.Service) *ImportController {
	return &ImportController{
		importer:     importer,
		auditService: auditService,
	}
}

// Sources lists the registered import sources.
// GET /api/import/sources
func (ic *ImportController) Sources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sources":       importers.Sources(),
		"max_file_size": ic.importer.Limits().MaxFileSize,
	})
}

// Preview parses an uploaded export and returns the items it would import.
// POST /api/import (multipart: file, source)
func (ic *ImportController) Preview(c *gin.Context) {
	requestID := RequestID(c)
	maxSize := ic.importer.Limits().MaxFileSize
	if maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)
	}

	if err := c.Request.ParseMultipartForm(formMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			err = fmt.Errorf("%w: request body exceeds %d bytes", importers.ErrFileTooLarge, tooBig.Limit)
			ic.reject(c, "", "", tooBig.Limit, importers.Rejected("", err))
			return
		}
		respondPreviewFailure(c, http.StatusBadRequest, "invalid_form", entities.FailedParseResult("Expected a multipart form with file and source fields"))
		return
	}

	source := c.PostForm("source")
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondPreviewFailure(c, http.StatusBadRequest, "missing_file", entities.FailedParseResult("No file provided"))
		return
	}
	defer file.Close()

	cfg, err := ic.importer.Check(source, header.Size)
	if err != nil {
		ic.reject(c, source, header.Filename, header.Size, importers.Rejected(cfg.ID, err))
		return
	}

	content, err := readUpload(file, maxSize)
	if err != nil {
		if errors.Is(err, importers.ErrFileTooLarge) {
			ic.reject(c, source, header.Filename, header.Size, importers.Rejected(cfg.ID, err))
			return
		}
		respondInternalError(c, err, "read upload")
		return
	}

	outcome := ic.importer.Preview(c.Request.Context(), importers.Upload{
		Filename: header.Filename,
		Source:   source,
		Content:  content,
	})
	log.Printf("[IMPORT] %s source=%s file=%q state=%s parsed=%d/%d in %s",
		requestID, source, header.Filename, outcome.State,
		outcome.Result.Stats.Parsed, outcome.Result.Stats.Total, outcome.Duration)

	ic.record(c, audit.Preview{
		Source:    source,
		Filename:  header.Filename,
		SizeBytes: int64(len(content)),
		Content:   content,
		Outcome:   outcome,
	})

	if outcome.State == importers.StateCompleted {
		c.JSON(http.StatusOK, outcome.Result)
		return
	}
	status, code := failureStatus(outcome)
	respondPreviewFailure(c, status, code, outcome.Result)
}

func (ic *ImportController) reject(c *gin.Context, source, filename string, size int64, outcome importers.Outcome) {
	ic.record(c, audit.Preview{
		Source:    source,
		Filename:  filename,
		SizeBytes: size,
		Outcome:   outcome,
	})
	status, code := failureStatus(outcome)
	respondPreviewFailure(c, status, code, outcome.Result)
}

func (ic *ImportController) record(c *gin.Context, p audit.Preview) {
	if ic.auditService == nil {
		return
	}
	p.RequestID = RequestID(c)
	p.ClientRequestID = ClientRequestID(c)
	ic.auditService.RecordPreviewAsync(p)
}

// readUpload reads at most maxSize bytes. The multipart header size is
// client-supplied, so the limit is enforced again on the stream.
func readUpload(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		return io.ReadAll(r)
	}
	content, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(content)) > maxSize {
		return nil, fmt.Errorf("%w: upload exceeds %d bytes", importers.ErrFileTooLarge, maxSize)
	}
	return content, nil
}

// failureStatus maps a terminal outcome to an HTTP status and error code.
func failureStatus(o importers.Outcome) (int, string) {
	var mismatch *importers.FormatMismatchError
	var fatal *importers.ParserFatalError
	switch {
	case errors.Is(o.Err, importers.ErrInvalidSource):
		return http.StatusBadRequest, "invalid_source"
	case errors.Is(o.Err, importers.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.As(o.Err, &mismatch):
		return http.StatusBadRequest, "invalid_format"
	case errors.Is(o.Err, importers.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(o.Err, importers.ErrCanceled):
		return statusClientClosedRequest, "canceled"
	case errors.As(o.Err, &fatal):
		return http.StatusBadRequest, "parse_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

func respondPreviewFailure(c *gin.Context, status int, code string, result entities.ParseResult) {
	message := ""
	if len(result.Errors) > 0 {
		message = result.Errors[0].Message
	}
	c.JSON(status, PreviewFailure{ParseResult: result, Message: message, Code: code})
}
