package processes

import (
	"strconv"
	"time"

	"bookflow/internal/common"
	"bookflow/internal/process"

	"github.com/gin-gonic/gin"
)

// Handler 流程与计划任务 Handler
type Handler struct {
	service *process.ProcessService
}

// NewHandler 创建 Handler
func NewHandler(service *process.ProcessService) *Handler {
	return &Handler{service: service}
}

// TriggerRequest 领域事件触发请求
// 由预约/客户/交易子系统在领域事件发生时调用
type TriggerRequest struct {
	EventType string                         `json:"event_type" binding:"required"`
	EventTime *time.Time                     `json:"event_time"`
	Changes   map[string]process.FieldChange `json:"changes"`

	Booking     *process.BookingRef     `json:"booking"`
	Customer    *process.CustomerRef    `json:"customer"`
	Transaction *process.TransactionRef `json:"transaction"`
	WaitingList *process.WaitingListRef `json:"waiting_list"`

	RunNow  bool           `json:"run_now"`
	Context map[string]any `json:"context"`
}

// Trigger 投递领域事件，驱动匹配的流程调度
func (h *Handler) Trigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseError(c, common.CodeInvalidRequest, err.Error())
		return
	}

	input := process.TriggerInput{
		EventType:   req.EventType,
		Changes:     req.Changes,
		Booking:     req.Booking,
		Customer:    req.Customer,
		Transaction: req.Transaction,
		WaitingList: req.WaitingList,
		RunNow:      req.RunNow,
		Context:     req.Context,
	}
	if req.EventTime != nil {
		input.EventTime = *req.EventTime
	}

	if err := h.service.Trigger(input); err != nil {
		common.ResponseError(c, common.CodeInternalError, "流程触发失败")
		return
	}
	common.ResponseSuccessMessage(c, "事件已处理", nil)
}

// ListJobsRequest 计划任务列表查询
type ListJobsRequest struct {
	common.PaginationRequest
	Status    string `form:"status"`
	ProcessID uint   `form:"process_id"`
}

// ListJobs 分页查询计划任务
func (h *Handler) ListJobs(c *gin.Context) {
	var req ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		common.ResponseError(c, common.CodeInvalidRequest, err.Error())
		return
	}

	jobs, total, err := h.service.ListJobs(req.Status, req.ProcessID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		common.ResponseError(c, common.CodeInternalError, "查询计划任务失败")
		return
	}
	common.ResponseList(c, jobs, total, &req.PaginationRequest)
}

// ControlRequest 任务控制操作请求
type ControlRequest struct {
	PerformerID *uint `json:"performer_id"`
}

// CancelJob 取消计划任务
func (h *Handler) CancelJob(c *gin.Context) {
	h.control(c, h.service.CancelJob)
}

// RunJobNow 立即执行计划任务
func (h *Handler) RunJobNow(c *gin.Context) {
	h.control(c, h.service.RunJobNow)
}

// RunJobAgain 重跑已完成的计划任务
func (h *Handler) RunJobAgain(c *gin.Context) {
	h.control(c, h.service.RunJobAgain)
}

func (h *Handler) control(c *gin.Context, op func(uint, *uint) (bool, string)) {
	jobID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.ResponseError(c, common.CodeInvalidRequest, "无效的任务ID")
		return
	}

	var req ControlRequest
	// 请求体可为空
	_ = c.ShouldBindJSON(&req)

	ok, message := op(uint(jobID), req.PerformerID)
	if !ok {
		common.ResponseError(c, common.CodeInvalidTransition, message)
		return
	}
	common.ResponseSuccessMessage(c, message, nil)
}

// ListTracks 查询任务的执行轨迹
func (h *Handler) ListTracks(c *gin.Context) {
	jobID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.ResponseError(c, common.CodeInvalidRequest, "无效的任务ID")
		return
	}

	tracks, err := h.service.ListTracks(uint(jobID))
	if err != nil {
		common.ResponseError(c, common.CodeInternalError, "查询执行轨迹失败")
		return
	}
	common.ResponseSuccess(c, tracks)
}

// ListActivityLogsRequest 活动日志查询
type ListActivityLogsRequest struct {
	common.PaginationRequest
	ActionType     string `form:"action_type"`
	ScheduledJobID uint   `form:"scheduled_job_id"`
}

// ListActivityLogs 分页查询活动日志
func (h *Handler) ListActivityLogs(c *gin.Context) {
	var req ListActivityLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		common.ResponseError(c, common.CodeInvalidRequest, err.Error())
		return
	}

	logs, total, err := h.service.ListActivityLogs(req.ActionType, req.ScheduledJobID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		common.ResponseError(c, common.CodeInternalError, "查询活动日志失败")
		return
	}
	common.ResponseList(c, logs, total, &req.PaginationRequest)
}
