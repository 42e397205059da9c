package settings

import (
	"bookflow/internal/common"

	"gorm.io/datatypes"
)

// GeneralSetting 全局业务设置
// 单行配置表，各配置段以 jsonb 存储
type GeneralSetting struct {
	ID                  uint              `json:"id" gorm:"primaryKey"`
	BusinessInformation datatypes.JSONMap `json:"business_information" gorm:"type:jsonb"`
	BookingSettings     datatypes.JSONMap `json:"booking_settings" gorm:"type:jsonb"`
	SetupPages          datatypes.JSONMap `json:"setup_pages" gorm:"type:jsonb"`
	CompanyLogoURL      string            `json:"company_logo_url" gorm:"size:500"`

	common.TimestampModel
}

func (GeneralSetting) TableName() string {
	return "general_settings"
}
