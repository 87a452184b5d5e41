// Package audit 操作审计：每个命令一行，谁在何时对什么做了什么
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"backend/internal/logger"
)

// Log 审计日志行
type Log struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`

	ActorID   string `json:"actorId" gorm:"size:100;not null;index"`
	ActorName string `json:"actorName" gorm:"size:255"`

	Action     string `json:"action" gorm:"size:100;not null;index"` // workflow.create, instance.approve ...
	TargetType string `json:"targetType" gorm:"size:50;not null"`    // workflow, instance, attachment
	TargetID   string `json:"targetId" gorm:"size:100;index"`

	Details datatypes.JSON `json:"details,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime;index"`
}

// TableName 指定表名
func (Log) TableName() string {
	return "audit_logs"
}

// Service 审计服务
// 审计失败只记日志，永远不让业务操作失败
type Service struct {
	db *gorm.DB
}

// NewService 创建审计服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Record 写入一条审计记录
func (s *Service) Record(ctx context.Context, actorID, actorName, action, targetType, targetID string, details datatypes.JSON) {
	entry := &Log{
		ID:         uuid.New().String(),
		ActorID:    actorID,
		ActorName:  actorName,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.Warn("写入审计日志失败",
			zap.String("action", action),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
	}
}

// ListByTarget 某对象的审计轨迹
func (s *Service) ListByTarget(ctx context.Context, targetType, targetID string, limit int) ([]*Log, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	var logs []*Log
	err := s.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
