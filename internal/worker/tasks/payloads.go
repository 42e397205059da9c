package tasks

// Task Types
const (
	TypeExecuteProcessAction = "process:execute_action"
)

// ExecuteProcessActionPayload 计划动作执行任务载荷
type ExecuteProcessActionPayload struct {
	ScheduledActionID uint           `json:"scheduled_action_id"`
	Context           map[string]any `json:"context,omitempty"`
	PerformerID       uint           `json:"performer_id,omitempty"` // 0 表示系统触发
}
