package common

import "gorm.io/gorm"

// NotDeleted 过滤已软删除的记录
// 使用方法：db.Scopes(common.NotDeleted()).Find(&jobs)
func NotDeleted() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("deleted_at IS NULL")
	}
}

// ActiveOnly 仅查询活跃状态的记录
func ActiveOnly() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ?", "active")
	}
}
