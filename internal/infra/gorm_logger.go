package infra

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormLogger "gorm.io/gorm/logger"
)

// SQLLogger GORM 日志适配器，把 SQL 执行日志落到 Zap
// 级别与慢查询阈值来自数据库配置，找不到记录不算错误
type SQLLogger struct {
	base          *zap.Logger
	level         gormLogger.LogLevel
	slowThreshold time.Duration
}

// NewSQLLogger 按配置构建 SQL 日志器
// level 取 silent/error/warn/info，未识别按 warn 处理
func NewSQLLogger(base *zap.Logger, level string, slowThreshold time.Duration) *SQLLogger {
	return &SQLLogger{
		base:          base,
		level:         parseGormLogLevel(level),
		slowThreshold: slowThreshold,
	}
}

func parseGormLogLevel(level string) gormLogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormLogger.Silent
	case "error":
		return gormLogger.Error
	case "info":
		return gormLogger.Info
	default:
		return gormLogger.Warn
	}
}

// LogMode 设置日志级别
func (l *SQLLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info 日志
func (l *SQLLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Info {
		l.base.Sugar().Infof(msg, data...)
	}
}

// Warn 日志
func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Warn {
		l.base.Sugar().Warnf(msg, data...)
	}
}

// Error 日志
func (l *SQLLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Error {
		l.base.Sugar().Errorf(msg, data...)
	}
}

// Trace SQL 执行日志：错误、慢查询、调试三档
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}

	switch {
	case err != nil && !errors.Is(err, gormLogger.ErrRecordNotFound) && l.level >= gormLogger.Error:
		l.base.Error("SQL 执行错误", append(fields, zap.Error(err))...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormLogger.Warn:
		l.base.Warn("慢查询", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	case l.level >= gormLogger.Info:
		l.base.Debug("SQL 执行", fields...)
	}
}
