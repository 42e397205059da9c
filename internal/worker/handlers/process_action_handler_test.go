package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"bookflow/internal/process"
	"bookflow/internal/worker/tasks"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeRunner struct {
	err   error
	calls int
}

func (f *fakeRunner) RunAction(ctx context.Context, job *process.ScheduledJob, action *process.ProcessAction, execCtx map[string]any, performerID *uint) error {
	f.calls++
	return f.err
}

func openHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(process.AllModels()...))
	return db
}

func seedScheduledAction(t *testing.T, db *gorm.DB, procStatus, actionStatus, spaStatus string) *process.ScheduledProcessAction {
	t.Helper()
	proc := &process.Process{
		Name:      "预约提醒",
		Status:    procStatus,
		EventType: process.EventBookingCreated,
		Actions: []process.ProcessAction{
			{Status: actionStatus, ActionType: process.ActionSendEmail, Content: "hi"},
		},
	}
	require.NoError(t, db.Create(proc).Error)

	job := &process.ScheduledJob{ProcessID: proc.ID, ObjectID: 1, Status: process.JobStatusScheduled}
	require.NoError(t, db.Create(job).Error)

	spa := &process.ScheduledProcessAction{
		ScheduledJobID:  job.ID,
		ProcessActionID: proc.Actions[0].ID,
		Status:          spaStatus,
	}
	require.NoError(t, db.Create(spa).Error)
	return spa
}

func buildTask(t *testing.T, spaID uint) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(tasks.ExecuteProcessActionPayload{ScheduledActionID: spaID})
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypeExecuteProcessAction, payload)
}

func TestHandleExecuteSuccessCompletesActionAndJob(t *testing.T) {
	db := openHandlerDB(t)
	runner := &fakeRunner{}
	handler := NewProcessActionHandler(db, runner, zaptest.NewLogger(t))

	spa := seedScheduledAction(t, db, process.StatusActive, process.StatusActive, process.ActionStatusPending)

	err := handler.HandleExecuteProcessAction(context.Background(), buildTask(t, spa.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)

	require.NoError(t, db.First(spa, spa.ID).Error)
	assert.Equal(t, process.ActionStatusCompleted, spa.Status)
	assert.NotNil(t, spa.LastRunTime)

	// 没有其余 pending 动作，任务整体完成
	var job process.ScheduledJob
	require.NoError(t, db.First(&job, spa.ScheduledJobID).Error)
	assert.Equal(t, process.JobStatusCompleted, job.Status)
}

func TestHandleExecuteFailureMarksActionFailed(t *testing.T) {
	db := openHandlerDB(t)
	runner := &fakeRunner{err: errors.New("投递超时")}
	handler := NewProcessActionHandler(db, runner, zaptest.NewLogger(t))

	spa := seedScheduledAction(t, db, process.StatusActive, process.StatusActive, process.ActionStatusPending)

	// 失败不向队列返回错误，避免自动重试
	err := handler.HandleExecuteProcessAction(context.Background(), buildTask(t, spa.ID))
	require.NoError(t, err)

	require.NoError(t, db.First(spa, spa.ID).Error)
	assert.Equal(t, process.ActionStatusFailed, spa.Status)
	assert.Equal(t, "投递超时", spa.ErrorMessage)

	// 失败动作不触发任务完成
	var job process.ScheduledJob
	require.NoError(t, db.First(&job, spa.ScheduledJobID).Error)
	assert.Equal(t, process.JobStatusScheduled, job.Status)
}

func TestHandleExecuteGuards(t *testing.T) {
	tests := []struct {
		name         string
		procStatus   string
		actionStatus string
		spaStatus    string
	}{
		{"动作已完成", process.StatusActive, process.StatusActive, process.ActionStatusCompleted},
		{"流程已停用", process.StatusDisabled, process.StatusActive, process.ActionStatusPending},
		{"动作已停用", process.StatusActive, process.StatusDisabled, process.ActionStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openHandlerDB(t)
			runner := &fakeRunner{}
			handler := NewProcessActionHandler(db, runner, zaptest.NewLogger(t))

			spa := seedScheduledAction(t, db, tt.procStatus, tt.actionStatus, tt.spaStatus)

			err := handler.HandleExecuteProcessAction(context.Background(), buildTask(t, spa.ID))
			require.NoError(t, err)
			assert.Equal(t, 0, runner.calls)

			// 状态不被改写
			before := tt.spaStatus
			require.NoError(t, db.First(spa, spa.ID).Error)
			assert.Equal(t, before, spa.Status)
		})
	}
}

func TestHandleExecuteMissingRecordReturnsError(t *testing.T) {
	db := openHandlerDB(t)
	handler := NewProcessActionHandler(db, &fakeRunner{}, zaptest.NewLogger(t))

	err := handler.HandleExecuteProcessAction(context.Background(), buildTask(t, 9999))
	require.Error(t, err)
}
