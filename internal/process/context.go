package process

import "time"

// FieldChange 字段变更（旧值/新值）
// session/agent 等引用型字段的旧值由调用方给出其 ID
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// BookingRef 触发事件携带的预约快照
// 由预约子系统在调用 Trigger 时提供，本包只读
type BookingRef struct {
	ID                  uint
	Code                string
	Status              string
	PaymentStatus       string
	PaymentPortion      string
	PaymentMethod       string
	Subtotal            float64
	TotalPrice          float64
	Duration            string
	TotalAttendees      int
	StartDatetime       *time.Time
	EndDatetime         *time.Time
	ServiceID           uint
	ServiceName         string
	ServiceCategory     string
	AgentID             uint
	AgentEmail          string
	AgentFirstName      string
	AgentLastName       string
	AgentPhone          string
	AgentDisplayName    string
	LocationName        string
	LocationDisplayName string
	LocationAddress     string
	LocationEmail       string
	LocationPhone       string

	Customer *CustomerRef
}

// CustomerRef 客户快照
type CustomerRef struct {
	ID                uint
	Email             string
	FirstName         string
	LastName          string
	Phone             string
	Notes             string
	HasReferrer       bool
	BookingCount      int
	ReferrerEmail     string
	ReferrerFirstName string
	ReferrerLastName  string
}

// TransactionRef 交易快照
type TransactionRef struct {
	ID               uint
	ConfirmationCode string
	Amount           float64
	Processor        string
	Method           string
	FundStatus       string
	Status           string
	Notes            string
	PaymentPortion   string

	Booking *BookingRef
}

// WaitingListRef 候补名单快照
type WaitingListRef struct {
	ID             uint
	TotalAttendees int
	ServiceName    string
	LocationName   string
	AgentName      string
	RoomName       string
	CreatedAt      *time.Time

	Customer *CustomerRef
}

// DomainRefs 事件涉及的领域对象引用
type DomainRefs struct {
	Booking     *BookingRef
	Customer    *CustomerRef
	Transaction *TransactionRef
	WaitingList *WaitingListRef
}

// contextFreeEvents 这些事件不构建条件上下文（条件求值无意义）
var contextFreeEvents = map[string]bool{
	EventTimeSlotReleased:       true,
	EventWaitingListSubscribe:   true,
	EventWaitingListUnsubscribe: true,
}

// BuildEventContext 由领域快照和变更集构建条件求值上下文
// 派生规则：
//   - service 字段别名映射到 session 键
//   - start_datetime 变更额外置 start_time_changed 标记
//   - 变更集为每个已知字段置 {field}_changed 与 old_{field}
func BuildEventContext(refs DomainRefs, changes map[string]FieldChange) map[string]any {
	booking := refs.Booking
	tx := refs.Transaction
	customer := refs.Customer

	ctx := map[string]any{
		"status":             "",
		"session":            "",
		"agent":              "",
		"payment_status":     "",
		"payment_method":     "",
		"payment_portion":    "",
		"fund_status":        "",
		"transaction_status": "",

		"start_time_changed":     false,
		"session_changed":        false,
		"agent_changed":          false,
		"status_changed":         false,
		"payment_status_changed": false,

		"old_session":        "",
		"old_agent":          "",
		"old_status":         "",
		"old_payment_status": "",
	}

	if booking != nil {
		ctx["status"] = booking.Status
		ctx["session"] = booking.ServiceID
		ctx["agent"] = booking.AgentID
		ctx["payment_status"] = booking.PaymentStatus
	}
	if tx != nil {
		ctx["payment_method"] = tx.Method
		ctx["payment_portion"] = tx.PaymentPortion
		ctx["fund_status"] = tx.FundStatus
		ctx["transaction_status"] = tx.Status
	}

	if customer != nil {
		ctx["referrer"] = customer.HasReferrer
	}
	if booking != nil && booking.Customer != nil {
		ctx["referrer_customer"] = booking.Customer.HasReferrer
		ctx["customer_first_booking"] = booking.Customer.BookingCount == 1
	}

	for field, change := range changes {
		if field == "service" {
			field = "session"
		}

		if field == "start_datetime" {
			ctx["start_time_changed"] = true
		}

		if _, ok := ctx[field+"_changed"]; ok {
			ctx[field+"_changed"] = true
		}

		if _, ok := ctx["old_"+field]; ok {
			ctx["old_"+field] = change.Old
		}
	}

	return ctx
}
