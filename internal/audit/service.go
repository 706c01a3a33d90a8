package audit

import (
	"encoding/hex"
	"log"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	auditRepo "github.com/mrlokans/knowledgehub/internal/database/audit"
	"github.com/mrlokans/knowledgehub/internal/entities"
	"github.com/mrlokans/knowledgehub/internal/importers"
)

// Preview describes one finished preview request. Content may be nil when
// the request was refused before the upload was read.
type Preview struct {
	RequestID       string
	ClientRequestID string
	Source          string
	Filename        string
	SizeBytes       int64
	Content         []byte
	Outcome         importers.Outcome
}

// Service records import preview requests in the audit trail.
type Service struct {
	repo    *auditRepo.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *auditRepo.Repository) *Service {
	return &Service{repo: repo}
}

// NewRequestID returns a fresh identifier for a preview request.
func NewRequestID() string {
	return uuid.NewString()
}

// Fingerprint returns the hex blake2b-256 digest of an upload.
func Fingerprint(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// DetectMIME reports the content type inferred from the upload bytes.
func DetectMIME(content []byte) string {
	return mimetype.Detect(content).String()
}

// NewEvent builds the audit record for a preview. Only counts and request
// metadata are kept; item contents never reach the audit trail.
func NewEvent(p Preview) *entities.ImportAuditEvent {
	out := p.Outcome
	source := string(out.Source)
	if source == "" {
		source = p.Source
	}

	event := &entities.ImportAuditEvent{
		RequestID:       p.RequestID,
		ClientRequestID: truncate(p.ClientRequestID, 36),
		Source:          truncate(source, 20),
		Filename:        truncate(p.Filename, 255),
		SizeBytes:       p.SizeBytes,
		Outcome:         string(out.State),
		Total:           out.Result.Stats.Total,
		Parsed:          out.Result.Stats.Parsed,
		Skipped:         out.Result.Stats.Skipped,
		Warnings:        len(out.Result.Warnings),
		DurationMs:      out.Duration.Milliseconds(),
		Status:          entities.AuditStatusSuccess,
	}
	if event.RequestID == "" {
		event.RequestID = NewRequestID()
	}
	if p.Content != nil {
		event.Fingerprint = Fingerprint(p.Content)
		event.DetectedMIME = truncate(DetectMIME(p.Content), 100)
	}
	if out.State != importers.StateCompleted {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(importers.UserMessage(out.Err), 500)
	}
	return event
}

// RecordPreview stores the audit record synchronously.
func (s *Service) RecordPreview(p Preview) (*entities.ImportAuditEvent, error) {
	event := NewEvent(p)
	if err := s.repo.LogEvent(event); err != nil {
		return nil, err
	}
	return event, nil
}

// RecordPreviewAsync stores the audit record in the background (non-blocking).
func (s *Service) RecordPreviewAsync(p Preview) {
	event := NewEvent(p)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("[AUDIT] Failed to record preview %s: %v", event.RequestID, err)
		}
	}()
}

// Wait blocks until every background write has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(filter auditRepo.Filter, limit, offset int) ([]entities.ImportAuditEvent, int64, error) {
	return s.repo.GetEvents(filter, limit, offset)
}

// GetEvent retrieves the audit record of one request.
func (s *Service) GetEvent(requestID string) (*entities.ImportAuditEvent, error) {
	return s.repo.GetEventByRequestID(requestID)
}

// Summary counts outcomes per source over the given window.
func (s *Service) Summary(window time.Duration) ([]auditRepo.OutcomeCount, error) {
	return s.repo.CountOutcomes(time.Now().Add(-window))
}

// DeleteEventsBefore removes up to limit events created before cutoff,
// optionally only those with the given outcomes.
func (s *Service) DeleteEventsBefore(cutoff time.Time, outcomes []string, limit int) (int64, error) {
	return s.repo.DeleteEventsBefore(cutoff, outcomes, limit)
}

// truncate shortens a string to at most maxLen runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
