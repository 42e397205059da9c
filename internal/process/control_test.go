package process

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedJob(t *testing.T, db *gorm.DB, jobStatus string, actionStatuses ...string) *ScheduledJob {
	t.Helper()
	proc := createBookingProcess(t, db, nil)

	job := &ScheduledJob{
		ProcessID: proc.ID,
		ObjectID:  100,
		Status:    jobStatus,
		RunTime:   time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, db.Create(job).Error)

	for i, status := range actionStatuses {
		spa := &ScheduledProcessAction{
			ScheduledJobID:  job.ID,
			ProcessActionID: proc.Actions[i%len(proc.Actions)].ID,
			Status:          status,
			TaskID:          "old-task",
		}
		require.NoError(t, db.Create(spa).Error)
	}
	return job
}

func TestCancelJobCancelsAllActions(t *testing.T) {
	service, dispatcher, db := newTestService(t)
	// 任务下同时存在待执行与已完成的动作，取消时全部进入 cancelled
	job := seedJob(t, db, JobStatusScheduled, ActionStatusPending, ActionStatusCompleted)

	performer := uint(7)
	ok, message := service.CancelJob(job.ID, &performer)
	assert.True(t, ok)
	assert.NotEmpty(t, message)

	require.NoError(t, db.First(job, job.ID).Error)
	assert.Equal(t, JobStatusCancelled, job.Status)

	var spas []ScheduledProcessAction
	require.NoError(t, db.Where("scheduled_job_id = ?", job.ID).Find(&spas).Error)
	require.Len(t, spas, 2)
	for _, spa := range spas {
		assert.Equal(t, ActionStatusCancelled, spa.Status)
		assert.Empty(t, spa.TaskID)
	}
	assert.Len(t, dispatcher.revoked, 2)

	var logs []ActivityLog
	require.NoError(t, db.Where("action_type = ?", ActivityJobCancelled).Find(&logs).Error)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, performer, *logs[0].UserID)
}

func TestCancelJobIsIdempotent(t *testing.T) {
	service, _, db := newTestService(t)
	job := seedJob(t, db, JobStatusCancelled)

	ok, _ := service.CancelJob(job.ID, nil)
	assert.True(t, ok)

	require.NoError(t, db.First(job, job.ID).Error)
	assert.Equal(t, JobStatusCancelled, job.Status)
}

func TestRunJobNowOnScheduledJob(t *testing.T) {
	service, dispatcher, db := newTestService(t)
	job := seedJob(t, db, JobStatusScheduled, ActionStatusPending, ActionStatusPending)

	ok, _ := service.RunJobNow(job.ID, nil)
	assert.True(t, ok)

	require.NoError(t, db.First(job, job.ID).Error)
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.RunLogs)

	// 旧分发撤销后立即重新入队
	assert.Len(t, dispatcher.revoked, 2)
	require.Len(t, dispatcher.enqueued, 2)
	for _, task := range dispatcher.enqueued {
		assert.True(t, task.eta.IsZero())
	}

	var logCount int64
	require.NoError(t, db.Model(&ActivityLog{}).
		Where("action_type = ?", ActivityJobRun).
		Count(&logCount).Error)
	assert.EqualValues(t, 1, logCount)
}

func TestRunJobNowRejectsNonScheduled(t *testing.T) {
	service, dispatcher, db := newTestService(t)
	job := seedJob(t, db, JobStatusCancelled, ActionStatusCancelled)

	ok, message := service.RunJobNow(job.ID, nil)
	assert.False(t, ok)
	assert.NotEmpty(t, message)
	assert.Empty(t, dispatcher.enqueued)
}

func TestRunJobAgainOnCompletedJob(t *testing.T) {
	service, dispatcher, db := newTestService(t)
	job := seedJob(t, db, JobStatusCompleted, ActionStatusCompleted, ActionStatusFailed)

	ok, _ := service.RunJobAgain(job.ID, nil)
	assert.True(t, ok)

	// 所有动作重新进入 pending，含已失败的
	var spas []ScheduledProcessAction
	require.NoError(t, db.Where("scheduled_job_id = ?", job.ID).Find(&spas).Error)
	require.Len(t, spas, 2)
	for _, spa := range spas {
		assert.Equal(t, ActionStatusPending, spa.Status)
		assert.NotEqual(t, "old-task", spa.TaskID)
		assert.Empty(t, spa.ErrorMessage)
	}
	assert.Len(t, dispatcher.enqueued, 2)
}

func TestRunJobAgainRejectsScheduled(t *testing.T) {
	service, dispatcher, db := newTestService(t)
	job := seedJob(t, db, JobStatusScheduled, ActionStatusPending)

	ok, _ := service.RunJobAgain(job.ID, nil)
	assert.False(t, ok)
	assert.Empty(t, dispatcher.enqueued)
}
