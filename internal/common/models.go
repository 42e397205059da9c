package common

import "time"

// TimestampModel 时间戳基础模型
type TimestampModel struct {
	CreatedAt time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;autoUpdateTime"`
}

// SoftDeleteModel 软删除基础模型
// 软删除通过 Scopes 显式过滤，见 scopes.go
type SoftDeleteModel struct {
	DeletedAt *time.Time `json:"deleted_at,omitempty" gorm:"index"`
}

// IsDeleted 检查记录是否已被软删除
func (m *SoftDeleteModel) IsDeleted() bool {
	return m.DeletedAt != nil
}

// SoftDelete 执行软删除操作
func (m *SoftDeleteModel) SoftDelete() {
	now := time.Now().UTC()
	m.DeletedAt = &now
}
