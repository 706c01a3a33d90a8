package entities

import "time"

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// ImportAuditEvent records one import preview request. It stores only
// request metadata and counts, never the uploaded content or parsed items.
type ImportAuditEvent struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	RequestID       string      `gorm:"uniqueIndex;size:36" json:"request_id"`
	ClientRequestID string      `gorm:"index;size:36" json:"client_request_id,omitempty"` // caller's X-Request-ID, repeated on retries
	Source          string      `gorm:"index;size:20" json:"source"`
	Filename        string      `gorm:"size:255" json:"filename"`
	SizeBytes       int64       `json:"size_bytes"`
	Fingerprint     string      `gorm:"index;size:64" json:"fingerprint"` // blake2b-256 of the upload, hex
	DetectedMIME    string      `gorm:"size:100" json:"detected_mime"`
	Outcome         string      `gorm:"index;size:30" json:"outcome"`
	Total           int         `json:"total"`
	Parsed          int         `json:"parsed"`
	Skipped         int         `json:"skipped"`
	Warnings        int         `json:"warnings"`
	DurationMs      int64       `json:"duration_ms"`
	Status          AuditStatus `gorm:"size:20" json:"status"`
	ErrorMsg        string      `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt       time.Time   `gorm:"index" json:"created_at"`
}

func (ImportAuditEvent) TableName() string {
	return "import_audit_events"
}
