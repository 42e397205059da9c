package process

import (
	"fmt"
	"strconv"
	"time"

	"bookflow/internal/common"
	"bookflow/internal/infra/queue"
	"bookflow/internal/worker/tasks"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProcessService 流程触发与任务调度
type ProcessService struct {
	db         *gorm.DB
	dispatcher queue.Dispatcher
	evaluator  *ConditionEvaluator
	logger     *zap.Logger
}

// NewProcessService 创建流程服务
func NewProcessService(db *gorm.DB, dispatcher queue.Dispatcher, logger *zap.Logger) *ProcessService {
	return &ProcessService{
		db:         db,
		dispatcher: dispatcher,
		evaluator:  NewConditionEvaluator(logger),
		logger:     logger,
	}
}

// TriggerInput 一次领域事件触发
// Changes 的键为字段名，引用型字段（service/agent）的值为对象 ID
type TriggerInput struct {
	EventType string
	EventTime time.Time
	Changes   map[string]FieldChange

	Booking     *BookingRef
	Customer    *CustomerRef
	Transaction *TransactionRef
	WaitingList *WaitingListRef

	// RunNow 为真时忽略流程的时间偏移，立即执行
	RunNow bool

	// Context 额外的求值/渲染上下文，覆盖自动构建的同名键
	Context map[string]any
}

// Trigger 以领域事件驱动全部匹配流程
// 逐个流程独立评估与调度，单个流程的调度失败不影响其余流程
func (s *ProcessService) Trigger(input TriggerInput) error {
	var processes []Process
	err := s.db.Scopes(common.NotDeleted(), common.ActiveOnly()).
		Where("event_type = ?", input.EventType).
		Preload("Actions").
		Find(&processes).Error
	if err != nil {
		return fmt.Errorf("查询流程失败: %w", err)
	}

	if len(processes) == 0 {
		return nil
	}

	eventCtx := map[string]any{}
	if !contextFreeEvents[input.EventType] {
		eventCtx = BuildEventContext(DomainRefs{
			Booking:     input.Booking,
			Customer:    input.Customer,
			Transaction: input.Transaction,
			WaitingList: input.WaitingList,
		}, input.Changes)
	}
	for k, v := range input.Context {
		eventCtx[k] = v
	}

	var firstErr error
	for i := range processes {
		proc := &processes[i]

		matched := true
		if proc.IsConditional {
			matched = s.evaluator.Evaluate(proc.Condition, eventCtx)
		}
		ProcessTriggersTotal.WithLabelValues(input.EventType, strconv.FormatBool(matched)).Inc()
		if !matched {
			s.logger.Debug("流程条件不满足，跳过",
				zap.Uint("process_id", proc.ID),
				zap.String("event_type", input.EventType))
			continue
		}

		objectID, ok := s.resolveObjectID(input)
		if !ok {
			s.logger.Warn("事件缺少可关联的领域对象，跳过调度",
				zap.Uint("process_id", proc.ID),
				zap.String("event_type", input.EventType))
			continue
		}

		runTime := input.EventTime
		if runTime.IsZero() {
			runTime = time.Now().UTC()
		}
		// run_now 只影响派发时机，记录的 run_time 仍按偏移计算
		if proc.HasTimeOffset {
			runTime = proc.TimeOffset.Apply(runTime)
		}

		if err := s.scheduleOrUpdate(proc, objectID, runTime, input.RunNow, eventCtx); err != nil {
			s.logger.Error("流程调度失败",
				zap.Uint("process_id", proc.ID),
				zap.Uint("object_id", objectID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// resolveObjectID 按事件族确定任务关联的对象
func (s *ProcessService) resolveObjectID(input TriggerInput) (uint, bool) {
	switch input.EventType {
	case EventBookingCreated, EventBookingUpdated, EventBookingStart, EventBookingEnd,
		EventTimeSlotReleased, EventWaitingListSubscribe, EventWaitingListUnsubscribe:
		if input.Booking != nil {
			return input.Booking.ID, true
		}
	case EventCustomerCreated, EventCustomerCreatedFromDashboard:
		if input.Customer != nil {
			return input.Customer.ID, true
		}
	case EventTransactionCreated, EventTransactionUpdated:
		if input.Transaction != nil {
			return input.Transaction.ID, true
		}
	}
	return 0, false
}

// scheduleOrUpdate 幂等调度：同一（流程, 对象）复用既有任务
// 重复触发时覆盖运行时间并撤销旧分发后重新入队，
// 已撤销/已完成的任务被重新置为 scheduled（对象状态又一次满足流程即重新生效）
func (s *ProcessService) scheduleOrUpdate(proc *Process, objectID uint, runTime time.Time, runNow bool, eventCtx map[string]any) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var job ScheduledJob
		err := lockForUpdate(tx).
			Scopes(common.NotDeleted()).
			Where("process_id = ? AND object_id = ?", proc.ID, objectID).
			First(&job).Error
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return fmt.Errorf("查询计划任务失败: %w", err)
			}
			job = ScheduledJob{ProcessID: proc.ID, ObjectID: objectID}
			if err := tx.Create(&job).Error; err != nil {
				return fmt.Errorf("创建计划任务失败: %w", err)
			}
		}

		job.Status = JobStatusScheduled
		job.RunTime = runTime
		job.RunLogs = &RunLog{
			ID:             uuid.New().String()[:8],
			RunDatetimeUTC: runTime.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := tx.Save(&job).Error; err != nil {
			return fmt.Errorf("保存计划任务失败: %w", err)
		}

		for i := range proc.Actions {
			action := &proc.Actions[i]
			if action.Status != StatusActive || action.IsDeleted() {
				continue
			}

			var spa ScheduledProcessAction
			err := tx.Where(ScheduledProcessAction{
				ScheduledJobID:  job.ID,
				ProcessActionID: action.ID,
			}).FirstOrCreate(&spa).Error
			if err != nil {
				return fmt.Errorf("创建计划动作失败: %w", err)
			}

			// 撤销上一次分发；已执行或已过期的句柄按无操作处理
			if spa.TaskID != "" {
				if err := s.dispatcher.Revoke(spa.TaskID); err != nil {
					s.logger.Warn("撤销旧任务失败",
						zap.String("task_id", spa.TaskID),
						zap.Error(err))
				}
			}

			eta := runTime
			if runNow {
				eta = time.Time{}
			}
			taskID, err := s.dispatcher.EnqueueProcessAction(tasks.ExecuteProcessActionPayload{
				ScheduledActionID: spa.ID,
				Context:           eventCtx,
			}, eta)
			if err != nil {
				return fmt.Errorf("分发计划动作失败: %w", err)
			}

			spa.Status = ActionStatusPending
			spa.TaskID = taskID
			spa.ErrorMessage = ""
			if err := tx.Save(&spa).Error; err != nil {
				return fmt.Errorf("保存计划动作失败: %w", err)
			}

			ScheduledActionsTotal.WithLabelValues(action.ActionType, ActionStatusPending).Inc()
		}

		s.logger.Info("流程任务已调度",
			zap.Uint("process_id", proc.ID),
			zap.Uint("job_id", job.ID),
			zap.Uint("object_id", objectID),
			zap.Time("run_time", runTime))
		return nil
	})
}

// lockForUpdate 事务内行级锁，sqlite 方言无该语法时退化为普通查询
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
