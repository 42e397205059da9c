package process

import (
	"context"
	"fmt"

	"bookflow/internal/delivery"
	"bookflow/internal/settings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// trackMessageLimit 执行轨迹消息长度上限，超出部分截断
const trackMessageLimit = 250

// ObjectResolver 按 ID 取回事件关联的领域对象快照
// 由各领域子系统实现，本包不反查业务表
type ObjectResolver interface {
	ResolveBooking(ctx context.Context, id uint) (*BookingRef, error)
	ResolveCustomer(ctx context.Context, id uint) (*CustomerRef, error)
	ResolveTransaction(ctx context.Context, id uint) (*TransactionRef, error)
	ResolveWaitingList(ctx context.Context, id uint) (*WaitingListRef, error)
}

// ActionService 计划动作执行器
type ActionService struct {
	db       *gorm.DB
	registry *delivery.Registry
	settings *settings.Service
	resolver ObjectResolver
	logger   *zap.Logger
}

// NewActionService 创建动作执行器
func NewActionService(db *gorm.DB, registry *delivery.Registry, settingsSvc *settings.Service, resolver ObjectResolver, logger *zap.Logger) *ActionService {
	return &ActionService{
		db:       db,
		registry: registry,
		settings: settingsSvc,
		resolver: resolver,
		logger:   logger,
	}
}

// RunAction 执行单个计划动作
// 无论成败都写入执行轨迹和活动日志，再把投递错误返回给调用方；
// 调用方据此决定计划动作的终态
func (s *ActionService) RunAction(ctx context.Context, job *ScheduledJob, action *ProcessAction, execCtx map[string]any, performerID *uint) error {
	refs, err := s.resolveRefs(ctx, job)
	if err != nil {
		s.logger.Warn("解析领域对象失败，使用空数据渲染",
			zap.Uint("job_id", job.ID),
			zap.Uint("object_id", job.ObjectID),
			zap.Error(err))
	}

	modelData := s.buildModelData(ctx, refs, execCtx)
	renderer := NewTemplateRenderer(modelData)

	content := renderer.Render(action.Content)
	toEmail := renderer.Render(action.ToEmail)
	subject := renderer.Render(action.Subject)

	payload := delivery.Payload{
		To:         toEmail,
		Subject:    subject,
		Content:    content,
		AudienceID: action.AudienceID,
	}
	if customer := primaryCustomer(refs); customer != nil {
		payload.FirstName = customer.FirstName
		payload.LastName = customer.LastName
	}

	channel, ok := s.registry.Get(action.ActionType)
	if !ok {
		// 未知动作类型按失败落档，不做任何投递
		err := fmt.Errorf("未知动作类型: %s", action.ActionType)
		s.logger.Error("动作类型没有对应的投递通道",
			zap.Uint("action_id", action.ID),
			zap.String("action_type", action.ActionType))
		s.recordResult(job, action, err, performerID)
		return err
	}

	deliverErr := channel.Execute(ctx, payload)
	s.recordResult(job, action, deliverErr, performerID)

	if deliverErr != nil {
		DeliveriesTotal.WithLabelValues(action.ActionType, "failed").Inc()
		s.logger.Error("动作投递失败",
			zap.Uint("job_id", job.ID),
			zap.Uint("action_id", action.ID),
			zap.String("action_type", action.ActionType),
			zap.Error(deliverErr))
		return deliverErr
	}

	DeliveriesTotal.WithLabelValues(action.ActionType, "success").Inc()
	s.logger.Info("动作投递成功",
		zap.Uint("job_id", job.ID),
		zap.Uint("action_id", action.ID),
		zap.String("action_type", action.ActionType))
	return nil
}

// resolveRefs 按事件族取回任务关联对象
func (s *ActionService) resolveRefs(ctx context.Context, job *ScheduledJob) (DomainRefs, error) {
	var refs DomainRefs
	if s.resolver == nil || job.ObjectID == 0 {
		return refs, nil
	}

	switch job.Process.EventType {
	case EventBookingCreated, EventBookingUpdated, EventBookingStart, EventBookingEnd:
		booking, err := s.resolver.ResolveBooking(ctx, job.ObjectID)
		if err != nil {
			return refs, fmt.Errorf("获取预约失败: %w", err)
		}
		refs.Booking = booking
		if booking != nil {
			refs.Customer = booking.Customer
		}
	case EventCustomerCreated, EventCustomerCreatedFromDashboard:
		customer, err := s.resolver.ResolveCustomer(ctx, job.ObjectID)
		if err != nil {
			return refs, fmt.Errorf("获取客户失败: %w", err)
		}
		refs.Customer = customer
	case EventTransactionCreated, EventTransactionUpdated:
		tx, err := s.resolver.ResolveTransaction(ctx, job.ObjectID)
		if err != nil {
			return refs, fmt.Errorf("获取交易失败: %w", err)
		}
		refs.Transaction = tx
		if tx != nil && tx.Booking != nil {
			refs.Booking = tx.Booking
			refs.Customer = tx.Booking.Customer
		}
	case EventTimeSlotReleased, EventWaitingListSubscribe, EventWaitingListUnsubscribe:
		wl, err := s.resolver.ResolveWaitingList(ctx, job.ObjectID)
		if err != nil {
			return refs, fmt.Errorf("获取候补记录失败: %w", err)
		}
		refs.WaitingList = wl
		if wl != nil {
			refs.Customer = wl.Customer
		}
	}
	return refs, nil
}

// recordResult 写入执行轨迹与对应的活动日志
// 两条记录都是尽力而为，写入失败只记日志不反悔投递结果
func (s *ActionService) recordResult(job *ScheduledJob, action *ProcessAction, deliverErr error, performerID *uint) {
	status := TrackStatusSuccess
	message := "动作执行成功"
	if deliverErr != nil {
		status = TrackStatusFailed
		message = truncate(deliverErr.Error(), trackMessageLimit)
	}

	track := ScheduledActionTrack{
		Status:         status,
		Message:        message,
		ActionID:       action.ID,
		ScheduledJobID: job.ID,
	}
	if err := s.db.Create(&track).Error; err != nil {
		s.logger.Error("写入执行轨迹失败",
			zap.Uint("job_id", job.ID),
			zap.Uint("action_id", action.ID),
			zap.Error(err))
	}

	activityType := activityTypeFor(action.ActionType)
	if activityType == "" {
		return
	}

	log := ActivityLog{
		ActionType:     activityType,
		ScheduledJobID: &job.ID,
		UserID:         performerID,
	}
	if err := s.db.Create(&log).Error; err != nil {
		s.logger.Error("写入活动日志失败",
			zap.Uint("job_id", job.ID),
			zap.String("activity_type", activityType),
			zap.Error(err))
	}
}

// activityTypeFor 动作类型到活动日志类型的映射
// 未列出的动作类型不产生活动日志
func activityTypeFor(actionType string) string {
	switch actionType {
	case ActionSendEmail:
		return ActivityEmailSent
	case ActionSendSMS:
		return ActivitySMSSent
	case ActionAddToMailchimpList:
		return ActivityMailchimpContactAdded
	default:
		return ""
	}
}

// primaryCustomer 找出与事件最直接关联的客户
func primaryCustomer(refs DomainRefs) *CustomerRef {
	if refs.Customer != nil {
		return refs.Customer
	}
	if refs.Booking != nil && refs.Booking.Customer != nil {
		return refs.Booking.Customer
	}
	if refs.WaitingList != nil && refs.WaitingList.Customer != nil {
		return refs.WaitingList.Customer
	}
	return nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
