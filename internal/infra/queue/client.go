package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookflow/internal/config"
	"bookflow/internal/worker/tasks"

	"github.com/hibiken/asynq"
)

// QueueProcess 流程动作专用队列
const QueueProcess = "process"

// Dispatcher 延迟任务分发器接口
// 对应关系：提交返回任务句柄，句柄可用于尽力而为的撤销
type Dispatcher interface {
	// EnqueueProcessAction 提交计划动作执行任务
	// eta 为零值时立即执行，否则在 eta 时刻执行
	EnqueueProcessAction(payload tasks.ExecuteProcessActionPayload, eta time.Time) (string, error)
	// Revoke 撤销尚未执行的任务，未知或已执行的句柄视为无操作
	Revoke(taskID string) error
	Close() error
}

type asynqDispatcher struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewDispatcher 创建基于 asynq 的任务分发器
func NewDispatcher(cfg config.RedisConfig) Dispatcher {
	opt := asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	return &asynqDispatcher{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
	}
}

func (d *asynqDispatcher) EnqueueProcessAction(payload tasks.ExecuteProcessActionPayload, eta time.Time) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(tasks.TypeExecuteProcessAction, data)

	// 失败不自动重试：failed 为终态，重跑由操作员 run-again 决定
	opts := []asynq.Option{
		asynq.Queue(QueueProcess),
		asynq.MaxRetry(0),
		asynq.Timeout(5 * time.Minute),
	}
	if !eta.IsZero() && eta.After(time.Now()) {
		opts = append(opts, asynq.ProcessAt(eta))
	}

	info, err := d.client.Enqueue(task, opts...)
	if err != nil {
		return "", fmt.Errorf("enqueue task failed: %w", err)
	}

	return info.ID, nil
}

// Revoke 撤销任务
// 已在执行中的任务无法保证停止（见调度器的已知竞态说明），
// 已完成或不存在的任务按无操作处理
func (d *asynqDispatcher) Revoke(taskID string) error {
	if taskID == "" {
		return nil
	}

	// 若任务正在执行，请求取消（尽力而为）
	_ = d.inspector.CancelProcessing(taskID)

	err := d.inspector.DeleteTask(QueueProcess, taskID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, asynq.ErrTaskNotFound), errors.Is(err, asynq.ErrQueueNotFound):
		return nil
	default:
		return fmt.Errorf("delete task failed: %w", err)
	}
}

func (d *asynqDispatcher) Close() error {
	_ = d.inspector.Close()
	return d.client.Close()
}
