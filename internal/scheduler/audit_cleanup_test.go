package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/knowledgehub/internal/tasks"
)

type recordingQueue struct {
	mu    sync.Mutex
	tasks []backlite.Task
	err   error
}

func (q *recordingQueue) Enqueue(ts ...backlite.Task) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, ts...)
	return []string{"task-1"}, nil
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("30 3 * * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.Error(t, ValidateSchedule("every day"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestAuditCleanupScheduler_RunNow(t *testing.T) {
	queue := &recordingQueue{}
	task := tasks.PruneImportAuditTask{RetentionDays: 14, RejectedRetentionDays: 3}
	s := NewAuditCleanupScheduler("30 3 * * *", task, queue)

	require.NoError(t, s.RunNow())

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, task, queue.tasks[0])
}

func TestAuditCleanupScheduler_RunNowPropagatesErrors(t *testing.T) {
	s := NewAuditCleanupScheduler("30 3 * * *", tasks.PruneImportAuditTask{RetentionDays: 14}, &recordingQueue{err: errors.New("queue closed")})
	assert.EqualError(t, s.RunNow(), "queue closed")
}

func TestAuditCleanupScheduler_Lifecycle(t *testing.T) {
	s := NewAuditCleanupScheduler("30 3 * * *", tasks.PruneImportAuditTask{RetentionDays: 30}, &recordingQueue{})
	assert.Nil(t, s.NextRun())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())

	next := s.NextRun()
	require.NotNil(t, next)
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 30, next.Minute())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
}

func TestAuditCleanupScheduler_InvalidSchedule(t *testing.T) {
	s := NewAuditCleanupScheduler("not a schedule", tasks.PruneImportAuditTask{}, &recordingQueue{})
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}
