package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/knowledgehub/internal/tasks"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer hands tasks to the background queue.
type Enqueuer interface {
	Enqueue(tasks ...backlite.Task) ([]string, error)
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := scheduleParser.Parse(schedule)
	return err
}

// AuditCleanupScheduler periodically enqueues a prune of the import audit trail.
type AuditCleanupScheduler struct {
	schedule string
	task     tasks.PruneImportAuditTask
	queue    Enqueuer

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.Mutex
	isRunning bool
}

// NewAuditCleanupScheduler enqueues task on every tick of schedule.
func NewAuditCleanupScheduler(schedule string, task tasks.PruneImportAuditTask, queue Enqueuer) *AuditCleanupScheduler {
	return &AuditCleanupScheduler{
		schedule: schedule,
		task:     task,
		queue:    queue,
		cron:     cron.New(cron.WithParser(scheduleParser)),
	}
}

// Start registers the job and runs the cron loop until ctx is cancelled.
func (s *AuditCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.RunNow(); err != nil {
			log.Printf("[AUDIT] Cleanup scheduler: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audit cleanup: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	log.Printf("[AUDIT] Cleanup scheduler: started with schedule '%s', retention %d days. Next run: %v",
		s.schedule, s.task.RetentionDays, s.cron.Entry(entryID).Next)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the cron loop and waits for a running job to return.
func (s *AuditCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.isRunning = false

	log.Printf("[AUDIT] Cleanup scheduler: stopped")
}

// RunNow enqueues a prune immediately.
func (s *AuditCleanupScheduler) RunNow() error {
	ids, err := s.queue.Enqueue(s.task)
	if err != nil {
		return err
	}
	log.Printf("[AUDIT] Cleanup scheduler: enqueued prune task %v", ids)
	return nil
}

func (s *AuditCleanupScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// NextRun returns when the next prune will be enqueued, or nil when stopped.
func (s *AuditCleanupScheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}
