package infra

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormLogger "gorm.io/gorm/logger"
)

// GormZapLogger GORM 日志适配器（输出到 Zap）
// 级别固定为 Warn：只记录错误与慢查询，SQL 明细噪音太大不落日志
type GormZapLogger struct {
	ZapLogger                 *zap.Logger
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// LogMode 级别固定，忽略 GORM 的调整请求
func (l *GormZapLogger) LogMode(gormLogger.LogLevel) gormLogger.Interface {
	return l
}

func (l *GormZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	// Warn 级别下不输出
}

func (l *GormZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.ZapLogger.Sugar().Warnf(msg, data...)
}

func (l *GormZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.ZapLogger.Sugar().Errorf(msg, data...)
}

// Trace 记录 SQL 执行错误与慢查询
func (l *GormZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	if err != nil && (!errors.Is(err, gormLogger.ErrRecordNotFound) || !l.IgnoreRecordNotFoundError) {
		sql, rows := fc()
		l.ZapLogger.Error("SQL 执行错误",
			zap.Duration("elapsed", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Error(err))
		return
	}

	if l.SlowThreshold > 0 && elapsed > l.SlowThreshold {
		sql, rows := fc()
		l.ZapLogger.Warn("SQL 慢查询",
			zap.Duration("elapsed", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows))
	}
}
