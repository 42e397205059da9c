package settings

import (
	"context"

	"gorm.io/gorm"
)

// Service 全局设置读取服务
// 配置缺失时各读取方法返回零值，调用方按空值处理
type Service struct {
	db *gorm.DB
}

// NewService 创建设置服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) load(ctx context.Context) *GeneralSetting {
	var setting GeneralSetting
	err := s.db.WithContext(ctx).Order("id").First(&setting).Error
	if err != nil {
		return nil
	}
	return &setting
}

// GetBusinessInfo 获取商家信息（名称、地址、电话）
func (s *Service) GetBusinessInfo(ctx context.Context) map[string]any {
	setting := s.load(ctx)
	if setting == nil || setting.BusinessInformation == nil {
		return nil
	}
	return setting.BusinessInformation
}

// GetCompanyLogoURL 获取商家 Logo 地址
func (s *Service) GetCompanyLogoURL(ctx context.Context) string {
	setting := s.load(ctx)
	if setting == nil {
		return ""
	}
	return setting.CompanyLogoURL
}

// GetBookingSetting 按键读取预约设置（time_zone, date_format, time_system 等）
func (s *Service) GetBookingSetting(ctx context.Context, name string) string {
	setting := s.load(ctx)
	if setting == nil || setting.BookingSettings == nil {
		return ""
	}
	if v, ok := setting.BookingSettings[name].(string); ok {
		return v
	}
	return ""
}

// GetDashboardURL 获取客户端控制台地址
func (s *Service) GetDashboardURL(ctx context.Context) string {
	setting := s.load(ctx)
	if setting == nil || setting.SetupPages == nil {
		return ""
	}
	if v, ok := setting.SetupPages["page_url_customer_dashboard"].(string); ok {
		return v
	}
	return ""
}

// GetFrontEndURL 获取后台前端地址
func (s *Service) GetFrontEndURL(ctx context.Context) string {
	setting := s.load(ctx)
	if setting == nil || setting.SetupPages == nil {
		return ""
	}
	if v, ok := setting.SetupPages["front_end_url"].(string); ok {
		return v
	}
	return ""
}

// dateLayoutMap 配置值到 Go 时间布局的映射
var dateLayoutMap = map[string]string{
	"mm/dd/yyyy": "01/02/2006",
	"mm.dd.yyyy": "01.02.2006",
	"dd/mm/yyyy": "02/01/2006",
	"dd.mm.yyyy": "02.01.2006",
	"yyyy-mm-dd": "2006-01-02",
}

// DateLayout 将 date_format 设置值转换为 Go 时间布局
// 未知取值返回空串，调用方不做日期格式化
func DateLayout(value string) string {
	return dateLayoutMap[value]
}
