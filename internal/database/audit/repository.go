package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/knowledgehub/internal/entities"
)

// Filter narrows event listings. Zero values match everything.
type Filter struct {
	Source          string
	Status          entities.AuditStatus
	ClientRequestID string
}

// OutcomeCount is one row of a per-source outcome summary.
type OutcomeCount struct {
	Source  string `json:"source"`
	Outcome string `json:"outcome"`
	Count   int64  `json:"count"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an import audit event.
func (r *Repository) LogEvent(event *entities.ImportAuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// GetEvents retrieves paginated events, most recent first.
func (r *Repository) GetEvents(filter Filter, limit, offset int) ([]entities.ImportAuditEvent, int64, error) {
	var events []entities.ImportAuditEvent
	var total int64

	query := r.filtered(filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// GetEventByRequestID looks up the event recorded for one preview request.
func (r *Repository) GetEventByRequestID(requestID string) (*entities.ImportAuditEvent, error) {
	var event entities.ImportAuditEvent
	err := r.db.Where("request_id = ?", requestID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// CountOutcomes groups events created after since by source and outcome.
func (r *Repository) CountOutcomes(since time.Time) ([]OutcomeCount, error) {
	var counts []OutcomeCount
	err := r.db.Model(&entities.ImportAuditEvent{}).
		Select("source, outcome, COUNT(*) AS count").
		Where("created_at > ?", since).
		Group("source, outcome").
		Order("source, outcome").
		Scan(&counts).Error
	return counts, err
}

// DeleteEventsBefore removes events created before cutoff, oldest first.
// A non-empty outcomes list restricts the delete to those outcomes; a
// positive limit caps the rows removed. Returns the number of deleted events.
func (r *Repository) DeleteEventsBefore(cutoff time.Time, outcomes []string, limit int) (int64, error) {
	ids := r.db.Model(&entities.ImportAuditEvent{}).Select("id").Where("created_at < ?", cutoff)
	if len(outcomes) > 0 {
		ids = ids.Where("outcome IN ?", outcomes)
	}
	if limit > 0 {
		ids = ids.Order("id").Limit(limit)
	}
	result := r.db.Where("id IN (?)", ids).Delete(&entities.ImportAuditEvent{})
	return result.RowsAffected, result.Error
}

func (r *Repository) filtered(filter Filter) *gorm.DB {
	query := r.db.Model(&entities.ImportAuditEvent{})
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ClientRequestID != "" {
		query = query.Where("client_request_id = ?", filter.ClientRequestID)
	}
	return query
}
