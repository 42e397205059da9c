package process

import (
	"time"

	"bookflow/internal/common"

	"gorm.io/datatypes"
)

// 流程与动作状态
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// 计划任务状态
const (
	JobStatusScheduled = "scheduled"
	JobStatusCompleted = "completed"
	JobStatusCancelled = "cancelled"
)

// 计划动作状态
const (
	ActionStatusPending   = "pending"
	ActionStatusCompleted = "completed"
	ActionStatusFailed    = "failed"
	ActionStatusCancelled = "cancelled"
)

// 执行轨迹状态
const (
	TrackStatusSuccess = "success"
	TrackStatusFailed  = "failed"
)

// 事件类型
const (
	EventBookingCreated               = "booking_created"
	EventBookingUpdated               = "booking_updated"
	EventBookingStart                 = "booking_start"
	EventBookingEnd                   = "booking_end"
	EventTimeSlotReleased             = "time_slot_released"
	EventWaitingListSubscribe         = "waiting_list_subscribe"
	EventWaitingListUnsubscribe       = "waiting_list_unsubscribe"
	EventCustomerCreated              = "customer_created"
	EventCustomerCreatedFromDashboard = "customer_created_from_dashboard"
	EventTransactionCreated           = "transaction_created"
	EventTransactionUpdated           = "transaction_updated"
)

// 动作类型
const (
	ActionSendEmail            = "send_email"
	ActionSendSMS              = "send_sms"
	ActionSendWhatsApp         = "tx_send_whatsapp"
	ActionSendPushNotification = "tx_send_push_notification"
	ActionTriggerWebhook       = "trigger_webhook"
	ActionAddToMailchimpList   = "add_to_mailchimp_list"
)

// 活动日志事件类型
const (
	ActivityEmailSent             = "email_sent"
	ActivitySMSSent               = "sms_sent"
	ActivityMailchimpContactAdded = "mailchimp_contact_added_to_list"
	ActivityJobRun                = "process_job_run"
	ActivityJobCancelled          = "process_job_cancelled"
)

// ConditionClause 单条条件子句
// 子句按声明顺序做短路 AND 求值
type ConditionClause struct {
	Comparison  string `json:"comparison"`
	TargetProps string `json:"target_props"`
	Value       any    `json:"value"`
}

// TimeOffset 相对时间偏移
// 字段名沿用配置数据的既有键名
type TimeOffset struct {
	Value     int    `json:"time_offset_value"`
	Unit      string `json:"time_offset_unit"`         // minutes, hours, days
	Direction string `json:"time_offset_after_before"` // before, after
}

// RunLog 最近一次调度记录
// 每次（重新）调度都会整体覆盖，不做历史追加；
// 持久化的执行历史见 ScheduledActionTrack / ActivityLog
type RunLog struct {
	ID             string `json:"id"`
	RunDatetimeUTC string `json:"run_datetime_utc"`
}

// Process 自动化流程规则
type Process struct {
	ID            uint              `json:"id" gorm:"primaryKey"`
	Name          string            `json:"name" gorm:"size:255;not null"`
	Status        string            `json:"status" gorm:"size:10;default:active;index"`
	EventType     string            `json:"event_type" gorm:"size:50;index"`
	IsConditional bool              `json:"is_conditional" gorm:"default:false"`
	Condition     []ConditionClause `json:"condition" gorm:"type:jsonb;serializer:json"`
	HasTimeOffset bool              `json:"has_time_offset" gorm:"default:false"`
	TimeOffset    *TimeOffset       `json:"time_offset" gorm:"type:jsonb;serializer:json"`

	Actions []ProcessAction `json:"actions,omitempty" gorm:"foreignKey:ProcessID;constraint:OnDelete:CASCADE"`

	common.TimestampModel
	common.SoftDeleteModel
}

func (Process) TableName() string {
	return "processes"
}

// ProcessAction 流程下的单个动作模板
// subject/content/to_email 均可包含 {{token}} 占位符
type ProcessAction struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	ProcessID  uint   `json:"process_id" gorm:"index;not null"`
	Status     string `json:"status" gorm:"size:10;default:active"`
	ActionType string `json:"action_type" gorm:"size:50"`
	AudienceID string `json:"audience_id" gorm:"size:255"`
	ToEmail    string `json:"to_email" gorm:"size:250"`
	Subject    string `json:"subject" gorm:"size:250"`
	Content    string `json:"content" gorm:"type:text"`

	common.TimestampModel
	common.SoftDeleteModel
}

func (ProcessAction) TableName() string {
	return "process_actions"
}

// ScheduledJob 一次流程实例化
// 约束：每个（process, object_id）最多存在一条未删除记录，
// 同一对象重复触发时更新既有记录而不是新建
type ScheduledJob struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ProcessID uint      `json:"process_id" gorm:"index;not null;uniqueIndex:uniq_job_process_object"`
	ObjectID  uint      `json:"object_id" gorm:"index;uniqueIndex:uniq_job_process_object"`
	Status    string    `json:"status" gorm:"size:10;default:scheduled;index"`
	RunTime   time.Time `json:"run_time"`
	RunLogs   *RunLog   `json:"run_logs" gorm:"type:jsonb;serializer:json"`

	Process Process `json:"process,omitempty" gorm:"foreignKey:ProcessID"`

	common.TimestampModel
	common.SoftDeleteModel
}

func (ScheduledJob) TableName() string {
	return "scheduled_jobs"
}

// ScheduledProcessAction 任务与动作的调度/执行状态
// 约束：每个（scheduled_job, process_action）唯一；
// 首次调度时惰性创建，重新调度时复用并替换任务句柄
type ScheduledProcessAction struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	ScheduledJobID  uint       `json:"scheduled_job_id" gorm:"index;not null;uniqueIndex:uniq_sched_job_action"`
	ProcessActionID uint       `json:"process_action_id" gorm:"not null;uniqueIndex:uniq_sched_job_action"`
	Status          string     `json:"status" gorm:"size:10;default:pending"`
	TaskID          string     `json:"task_id" gorm:"size:255"` // 外部任务句柄，用于撤销待执行的分发
	LastRunTime     *time.Time `json:"last_run_time"`
	ErrorMessage    string     `json:"error_message" gorm:"type:text"`

	ScheduledJob  ScheduledJob  `json:"-" gorm:"foreignKey:ScheduledJobID"`
	ProcessAction ProcessAction `json:"-" gorm:"foreignKey:ProcessActionID"`
}

func (ScheduledProcessAction) TableName() string {
	return "scheduled_process_actions"
}

// ScheduledActionTrack 不可变的单次执行审计记录，只追加
type ScheduledActionTrack struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	Status         string `json:"status" gorm:"size:10"`
	Message        string `json:"message" gorm:"size:250"`
	ActionID       uint   `json:"action_id" gorm:"index"`
	ScheduledJobID uint   `json:"scheduled_job_id" gorm:"index"`

	common.TimestampModel
}

func (ScheduledActionTrack) TableName() string {
	return "scheduled_action_tracks"
}

// ActivityLog 面向人的高层活动审计，只追加
// UserID 为空表示系统触发
type ActivityLog struct {
	ID             uint              `json:"id" gorm:"primaryKey"`
	ActionType     string            `json:"action_type" gorm:"size:200;index"`
	ActionViewLink string            `json:"action_view_link" gorm:"size:350"`
	ScheduledJobID *uint             `json:"scheduled_job_id" gorm:"index"`
	UserID         *uint             `json:"user_id" gorm:"index"`
	Details        datatypes.JSONMap `json:"details" gorm:"type:jsonb"`

	common.TimestampModel
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// AllModels 返回本包需要迁移的全部模型
func AllModels() []any {
	return []any{
		&Process{},
		&ProcessAction{},
		&ScheduledJob{},
		&ScheduledProcessAction{},
		&ScheduledActionTrack{},
		&ActivityLog{},
	}
}
