package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/knowledgehub/internal/importers"
)

const (
	// defaultRetentionDays applies when a task carries no retention.
	defaultRetentionDays = 30

	// defaultPruneBatch bounds how many rows one DELETE statement removes.
	defaultPruneBatch = 500
)

// rejectedOutcomes are previews refused before any parser ran. They carry
// no parse statistics and may be pruned sooner than completed previews.
var rejectedOutcomes = []string{
	string(importers.StateRejected),
	string(importers.StateRejectedInvalidFormat),
}

// AuditPruner deletes import audit events created before cutoff, at most
// limit per call. A non-empty outcomes list restricts the delete.
type AuditPruner interface {
	DeleteEventsBefore(cutoff time.Time, outcomes []string, limit int) (int64, error)
}

// PruneImportAuditTask removes import audit events older than RetentionDays.
// Rejected previews go after RejectedRetentionDays when that is shorter.
type PruneImportAuditTask struct {
	RetentionDays         int `json:"retention_days"`
	RejectedRetentionDays int `json:"rejected_retention_days,omitempty"`
	BatchSize             int `json:"batch_size,omitempty"`
}

func (t PruneImportAuditTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "prune_import_audit",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PruneImportAuditProcessor runs PruneImportAuditTask against pruner. Rows
// are deleted in batches so the audit table is never locked for long, and
// the task stops between batches once its context is done.
func PruneImportAuditProcessor(pruner AuditPruner) backlite.QueueProcessor[PruneImportAuditTask] {
	return func(ctx context.Context, task PruneImportAuditTask) error {
		if pruner == nil {
			return errors.New("audit pruner not configured")
		}

		days := task.RetentionDays
		if days <= 0 {
			days = defaultRetentionDays
		}
		batch := task.BatchSize
		if batch <= 0 {
			batch = defaultPruneBatch
		}
		now := time.Now()

		var rejected int64
		if rejectedDays := task.RejectedRetentionDays; rejectedDays > 0 && rejectedDays < days {
			n, err := pruneInBatches(ctx, pruner, now.Add(-daysToDuration(rejectedDays)), rejectedOutcomes, batch)
			if err != nil {
				return fmt.Errorf("prune rejected import previews: %w", err)
			}
			rejected = n
			log.Printf("[TASK] Pruned %d rejected import previews older than %d days", n, rejectedDays)
		}

		deleted, err := pruneInBatches(ctx, pruner, now.Add(-daysToDuration(days)), nil, batch)
		if err != nil {
			return fmt.Errorf("prune import audit: %w", err)
		}

		log.Printf("[TASK] Pruned %d import audit events older than %d days (%d total)", deleted, days, deleted+rejected)
		return nil
	}
}

func pruneInBatches(ctx context.Context, pruner AuditPruner, cutoff time.Time, outcomes []string, batch int) (int64, error) {
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := pruner.DeleteEventsBefore(cutoff, outcomes, batch)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(batch) {
			return total, nil
		}
	}
}

func daysToDuration(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

func NewPruneImportAuditQueue(pruner AuditPruner) backlite.Queue {
	return backlite.NewQueue(PruneImportAuditProcessor(pruner))
}
