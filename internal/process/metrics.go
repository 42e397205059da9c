package process

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 流程调度指标
var (
	// ProcessTriggersTotal 事件触发总数
	ProcessTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookflow_process_triggers_total",
			Help: "事件触发总数",
		},
		[]string{"event_type", "matched"},
	)

	// ScheduledActionsTotal 计划动作执行总数
	ScheduledActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookflow_scheduled_actions_total",
			Help: "计划动作执行总数",
		},
		[]string{"action_type", "status"},
	)

	// JobControlOpsTotal 操作员控制操作总数
	JobControlOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookflow_job_control_ops_total",
			Help: "操作员控制操作总数（cancel/run_now/run_again）",
		},
		[]string{"op", "accepted"},
	)

	// DeliveriesTotal 投递通道调用总数
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookflow_deliveries_total",
			Help: "投递通道调用总数",
		},
		[]string{"channel", "outcome"},
	)
)
