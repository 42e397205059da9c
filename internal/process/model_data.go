package process

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookflow/internal/settings"
)

// buildModelData 汇总模板渲染可用的全部占位符数据
// 键集合是对外契约：流程配置者在动作模板里引用这些名字
func (s *ActionService) buildModelData(ctx context.Context, refs DomainRefs, extra map[string]any) map[string]any {
	data := map[string]any{}

	loc := time.UTC
	if tz := s.settings.GetBookingSetting(ctx, "time_zone"); tz != "" {
		if parsed, err := time.LoadLocation(tz); err == nil {
			loc = parsed
		}
	}
	dateLayout := settings.DateLayout(s.settings.GetBookingSetting(ctx, "date_format"))
	timeSystem := s.settings.GetBookingSetting(ctx, "time_system")
	dashboardURL := s.settings.GetDashboardURL(ctx)
	frontEndURL := s.settings.GetFrontEndURL(ctx)

	if info := s.settings.GetBusinessInfo(ctx); info != nil {
		logo := s.settings.GetCompanyLogoURL(ctx)
		logoImage := ""
		if logo != "" {
			logoImage = fmt.Sprintf(`<img style="height: 50px; width: auto;" src="%s"/>`, logo)
		}
		data["business_logo_url"] = logo
		data["business_logo_image"] = logoImage
		data["business_name"] = stringOrEmpty(info["company_name"])
		data["business_phone"] = stringOrEmpty(info["business_phone"])
		data["business_address"] = stringOrEmpty(info["business_address"])
	}

	if booking := refs.Booking; booking != nil {
		data["booking_id"] = booking.ID
		data["booking_code"] = booking.Code
		data["start_date"] = formatDate(booking.StartDatetime, loc, dateLayout)
		data["end_date"] = formatDate(booking.EndDatetime, loc, dateLayout)
		data["start_time"] = formatTime(booking.StartDatetime, loc, timeSystem)
		data["end_time"] = formatTime(booking.EndDatetime, loc, timeSystem)
		data["service_name"] = booking.ServiceName
		data["service_category"] = booking.ServiceCategory
		data["booking_duration"] = booking.Duration
		data["booking_status"] = booking.Status
		data["total_attendees"] = booking.TotalAttendees
		data["agent_email"] = booking.AgentEmail
		data["agent_full_name"] = fullName(booking.AgentFirstName, booking.AgentLastName)
		data["agent_first_name"] = booking.AgentFirstName
		data["agent_last_name"] = booking.AgentLastName
		data["agent_phone"] = booking.AgentPhone
		data["agent_display_name"] = booking.AgentDisplayName
		data["location_name"] = booking.LocationName
		data["location_display_name"] = booking.LocationDisplayName
		data["location_full_address"] = booking.LocationAddress
		data["location_email"] = booking.LocationEmail
		data["location_phone"] = booking.LocationPhone
		data["booking_payment_status"] = booking.PaymentStatus
		data["booking_payment_portion"] = booking.PaymentPortion
		data["booking_payment_method"] = booking.PaymentMethod
		data["booking_payment_amount"] = formatAmount(booking.Subtotal)
		data["booking_price"] = formatAmount(booking.TotalPrice)
		data["manage_booking_url_customer"] = fmt.Sprintf("%s/?bookingId=%d", dashboardURL, booking.ID)
		data["manage_booking_url_agent"] = fmt.Sprintf("%s/dashboard/bookings/%d", frontEndURL, booking.ID)
	}

	if customer := refs.Customer; customer != nil {
		data["customer_email"] = customer.Email
		data["customer_full_name"] = fullName(customer.FirstName, customer.LastName)
		data["customer_first_name"] = customer.FirstName
		data["customer_last_name"] = customer.LastName
		data["customer_phone"] = customer.Phone
		data["customer_notes"] = customer.Notes
		data["referrer_email"] = customer.ReferrerEmail
		data["referrer_first_name"] = customer.ReferrerFirstName
		data["referrer_last_name"] = customer.ReferrerLastName
	}

	if tx := refs.Transaction; tx != nil {
		data["transaction_token"] = tx.ConfirmationCode
		data["transaction_amount"] = tx.Amount
		data["transaction_processor"] = tx.Processor
		data["transaction_payment_method"] = tx.Method
		data["transaction_funds_status"] = tx.FundStatus
		data["transaction_status"] = tx.Status
		data["transaction_notes"] = tx.Notes
		data["transaction_payment_portion"] = tx.PaymentPortion
	}

	if wl := refs.WaitingList; wl != nil {
		data["waiting_list_id"] = wl.ID
		data["total_attendees"] = wl.TotalAttendees
		data["service_name"] = wl.ServiceName
		data["location_name"] = wl.LocationName
		data["agent_name"] = wl.AgentName
		data["room_name"] = wl.RoomName
		if wl.CreatedAt != nil {
			data["created_at"] = wl.CreatedAt.Format("2006-01-02 15:04:05")
		} else {
			data["created_at"] = ""
		}
		if wl.Customer != nil {
			data["customer_name"] = fullName(wl.Customer.FirstName, wl.Customer.LastName)
			data["customer_email"] = wl.Customer.Email
		}
	}

	// 调用方上下文最后合并，允许覆盖自动汇总的同名键
	for k, v := range extra {
		data[k] = v
	}

	return data
}

func stringOrEmpty(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func fullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

func formatAmount(v float64) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", v)
}

func formatDate(t *time.Time, loc *time.Location, layout string) string {
	if t == nil {
		return ""
	}
	if layout == "" {
		layout = "2006-01-02"
	}
	return t.In(loc).Format(layout)
}

// formatTime 按 12/24 小时制格式化时刻，12 小时制输出小写 am/pm
func formatTime(t *time.Time, loc *time.Location, timeSystem string) string {
	if t == nil {
		return ""
	}
	local := t.In(loc)
	if timeSystem == "12" {
		return strings.ToLower(local.Format("03:04PM"))
	}
	return local.Format("15:04")
}
