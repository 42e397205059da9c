package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookflow/internal/process"
	"bookflow/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActionRunner 执行单个计划动作并返回投递错误
type ActionRunner interface {
	RunAction(ctx context.Context, job *process.ScheduledJob, action *process.ProcessAction, execCtx map[string]any, performerID *uint) error
}

// ProcessActionHandler 计划动作任务处理器
// 执行前做守卫检查：动作已完成、流程被停用、动作被停用时直接放弃
type ProcessActionHandler struct {
	db     *gorm.DB
	runner ActionRunner
	logger *zap.Logger
}

func NewProcessActionHandler(db *gorm.DB, runner ActionRunner, logger *zap.Logger) *ProcessActionHandler {
	return &ProcessActionHandler{
		db:     db,
		runner: runner,
		logger: logger,
	}
}

// HandleExecuteProcessAction 消费计划动作任务
// 投递失败不向队列返回错误：失败是动作的终态，重跑由操作员决定
func (h *ProcessActionHandler) HandleExecuteProcessAction(ctx context.Context, t *asynq.Task) error {
	var p tasks.ExecuteProcessActionPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}

	var spa process.ScheduledProcessAction
	err := h.db.
		Preload("ScheduledJob").
		Preload("ScheduledJob.Process").
		Preload("ProcessAction").
		First(&spa, p.ScheduledActionID).Error
	if err != nil {
		h.logger.Error("查询计划动作失败",
			zap.Uint("scheduled_action_id", p.ScheduledActionID),
			zap.Error(err))
		return fmt.Errorf("查询计划动作失败: %w", err)
	}

	// 任务句柄可能在重新调度时被替换，旧分发到期后在这里被识破
	if taskID, ok := asynq.GetTaskID(ctx); ok && spa.TaskID != "" && spa.TaskID != taskID {
		h.logger.Info("任务句柄已过期，跳过执行",
			zap.Uint("scheduled_action_id", spa.ID),
			zap.String("expected", spa.TaskID),
			zap.String("got", taskID))
		return nil
	}

	if spa.Status == process.ActionStatusCompleted {
		h.logger.Info("动作已完成，跳过执行", zap.Uint("scheduled_action_id", spa.ID))
		return nil
	}
	if spa.ScheduledJob.Process.Status != process.StatusActive {
		h.logger.Info("流程已停用，跳过执行",
			zap.Uint("scheduled_action_id", spa.ID),
			zap.Uint("process_id", spa.ScheduledJob.ProcessID))
		return nil
	}
	if spa.ProcessAction.Status != process.StatusActive {
		h.logger.Info("动作已停用，跳过执行",
			zap.Uint("scheduled_action_id", spa.ID),
			zap.Uint("action_id", spa.ProcessActionID))
		return nil
	}

	var performerID *uint
	if p.PerformerID != 0 {
		performerID = &p.PerformerID
	}

	runErr := h.runner.RunAction(ctx, &spa.ScheduledJob, &spa.ProcessAction, p.Context, performerID)

	now := time.Now().UTC()
	if runErr != nil {
		spa.Status = process.ActionStatusFailed
		spa.ErrorMessage = runErr.Error()
	} else {
		spa.Status = process.ActionStatusCompleted
		spa.ErrorMessage = ""
	}
	spa.LastRunTime = &now
	if err := h.db.Save(&spa).Error; err != nil {
		h.logger.Error("保存计划动作状态失败",
			zap.Uint("scheduled_action_id", spa.ID),
			zap.Error(err))
		return fmt.Errorf("保存计划动作状态失败: %w", err)
	}

	if runErr == nil {
		h.completeJobIfDone(spa.ScheduledJobID)
	}
	return nil
}

// completeJobIfDone 所有动作离开 pending 后把任务置为完成
func (h *ProcessActionHandler) completeJobIfDone(jobID uint) {
	var pending int64
	err := h.db.Model(&process.ScheduledProcessAction{}).
		Where("scheduled_job_id = ? AND status = ?", jobID, process.ActionStatusPending).
		Count(&pending).Error
	if err != nil {
		h.logger.Error("统计待执行动作失败", zap.Uint("job_id", jobID), zap.Error(err))
		return
	}
	if pending > 0 {
		return
	}

	err = h.db.Model(&process.ScheduledJob{}).
		Where("id = ? AND status = ?", jobID, process.JobStatusScheduled).
		Update("status", process.JobStatusCompleted).Error
	if err != nil {
		h.logger.Error("更新任务状态失败", zap.Uint("job_id", jobID), zap.Error(err))
		return
	}
	h.logger.Info("计划任务已完成", zap.Uint("job_id", jobID))
}
