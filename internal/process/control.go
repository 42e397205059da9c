package process

import (
	"fmt"
	"time"

	"bookflow/internal/common"
	"bookflow/internal/worker/tasks"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CancelJob 取消计划任务及其全部计划动作
// 幂等：对已取消/已完成的任务重复调用同样返回成功
func (s *ProcessService) CancelJob(jobID uint, performerID *uint) (bool, string) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var job ScheduledJob
		err := lockForUpdate(tx).
			Scopes(common.NotDeleted()).
			First(&job, jobID).Error
		if err != nil {
			return fmt.Errorf("查询计划任务失败: %w", err)
		}

		var actions []ScheduledProcessAction
		if err := tx.Where("scheduled_job_id = ?", job.ID).
			Find(&actions).Error; err != nil {
			return fmt.Errorf("查询计划动作失败: %w", err)
		}

		for i := range actions {
			spa := &actions[i]
			if spa.TaskID != "" {
				if err := s.dispatcher.Revoke(spa.TaskID); err != nil {
					s.logger.Warn("撤销任务失败",
						zap.String("task_id", spa.TaskID),
						zap.Error(err))
				}
			}
			spa.Status = ActionStatusCancelled
			spa.TaskID = ""
			if err := tx.Save(spa).Error; err != nil {
				return fmt.Errorf("保存计划动作失败: %w", err)
			}
		}

		job.Status = JobStatusCancelled
		if err := tx.Save(&job).Error; err != nil {
			return fmt.Errorf("保存计划任务失败: %w", err)
		}

		log := ActivityLog{
			ActionType:     ActivityJobCancelled,
			ScheduledJobID: &job.ID,
			UserID:         performerID,
			Details: datatypes.JSONMap{
				"process_id": job.ProcessID,
				"object_id":  job.ObjectID,
			},
		}
		if err := tx.Create(&log).Error; err != nil {
			return fmt.Errorf("写入活动日志失败: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("取消计划任务失败", zap.Uint("job_id", jobID), zap.Error(err))
		JobControlOpsTotal.WithLabelValues("cancel", "false").Inc()
		return false, "取消失败"
	}

	JobControlOpsTotal.WithLabelValues("cancel", "true").Inc()
	return true, "任务已取消"
}

// RunJobNow 立即执行仍处于 scheduled 状态的任务
// 其余状态的任务拒绝执行并说明原因
func (s *ProcessService) RunJobNow(jobID uint, performerID *uint) (bool, string) {
	return s.runJob(jobID, performerID, "run_now", JobStatusScheduled,
		"只有待执行的任务可以立即运行")
}

// RunJobAgain 重跑已完成的任务
// 所有动作（含已完成/已失败）重新进入 pending 并立即分发
func (s *ProcessService) RunJobAgain(jobID uint, performerID *uint) (bool, string) {
	return s.runJob(jobID, performerID, "run_again", JobStatusCompleted,
		"只有已完成的任务可以重新运行")
}

func (s *ProcessService) runJob(jobID uint, performerID *uint, op, wantStatus, rejectMsg string) (bool, string) {
	var rejected bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var job ScheduledJob
		err := lockForUpdate(tx).
			Scopes(common.NotDeleted()).
			First(&job, jobID).Error
		if err != nil {
			return fmt.Errorf("查询计划任务失败: %w", err)
		}

		if job.Status != wantStatus {
			rejected = true
			return nil
		}

		var actions []ScheduledProcessAction
		if err := tx.Where("scheduled_job_id = ?", job.ID).Find(&actions).Error; err != nil {
			return fmt.Errorf("查询计划动作失败: %w", err)
		}

		now := time.Now().UTC()
		for i := range actions {
			spa := &actions[i]
			if spa.TaskID != "" {
				if err := s.dispatcher.Revoke(spa.TaskID); err != nil {
					s.logger.Warn("撤销任务失败",
						zap.String("task_id", spa.TaskID),
						zap.Error(err))
				}
			}

			taskID, err := s.dispatcher.EnqueueProcessAction(tasks.ExecuteProcessActionPayload{
				ScheduledActionID: spa.ID,
				PerformerID:       derefUint(performerID),
			}, time.Time{})
			if err != nil {
				return fmt.Errorf("分发计划动作失败: %w", err)
			}

			spa.Status = ActionStatusPending
			spa.TaskID = taskID
			spa.ErrorMessage = ""
			if err := tx.Save(spa).Error; err != nil {
				return fmt.Errorf("保存计划动作失败: %w", err)
			}
		}

		// 立即触发即视为本轮执行完成，逐动作的终态由执行器回写
		job.Status = JobStatusCompleted
		job.RunTime = now
		job.RunLogs = &RunLog{
			ID:             uuid.New().String()[:8],
			RunDatetimeUTC: now.Format("2006-01-02 15:04:05"),
		}
		if err := tx.Save(&job).Error; err != nil {
			return fmt.Errorf("保存计划任务失败: %w", err)
		}

		log := ActivityLog{
			ActionType:     ActivityJobRun,
			ScheduledJobID: &job.ID,
			UserID:         performerID,
			Details: datatypes.JSONMap{
				"process_id": job.ProcessID,
				"object_id":  job.ObjectID,
				"operation":  op,
			},
		}
		if err := tx.Create(&log).Error; err != nil {
			return fmt.Errorf("写入活动日志失败: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("运行计划任务失败",
			zap.Uint("job_id", jobID),
			zap.String("op", op),
			zap.Error(err))
		JobControlOpsTotal.WithLabelValues(op, "false").Inc()
		return false, "运行失败"
	}
	if rejected {
		JobControlOpsTotal.WithLabelValues(op, "false").Inc()
		return false, rejectMsg
	}

	JobControlOpsTotal.WithLabelValues(op, "true").Inc()
	return true, "任务已提交执行"
}

func derefUint(p *uint) uint {
	if p == nil {
		return 0
	}
	return *p
}
