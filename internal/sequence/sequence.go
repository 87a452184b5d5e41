// Package sequence 序列号与实例参考号生成
package sequence

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter 按前缀递增的序列计数器
type Counter struct {
	Prefix    string    `json:"prefix" gorm:"primaryKey;size:50"`
	Value     int64     `json:"value" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 指定表名
func (Counter) TableName() string {
	return "sequence_counters"
}

// Generator 数据库支撑的序列生成器，实现 expr.SequenceProvider
type Generator struct {
	db *gorm.DB
}

// NewGenerator 创建序列生成器
func NewGenerator(db *gorm.DB) *Generator {
	return &Generator{db: db}
}

// Next 取下一个序列号，格式 PREFIX-000001
// 行级更新保证并发安全
func (g *Generator) Next(prefix string) (string, error) {
	if prefix == "" {
		prefix = "SEQ"
	}
	var value int64
	err := g.db.Transaction(func(tx *gorm.DB) error {
		var counter Counter
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("prefix = ?", prefix).
			First(&counter).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			counter = Counter{Prefix: prefix, Value: 0}
			if err := tx.Create(&counter).Error; err != nil {
				return fmt.Errorf("创建序列计数器失败: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("读取序列计数器失败: %w", err)
		}
		counter.Value++
		if err := tx.Model(&Counter{}).
			Where("prefix = ?", prefix).
			Update("value", counter.Value).Error; err != nil {
			return fmt.Errorf("更新序列计数器失败: %w", err)
		}
		value = counter.Value
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", prefix, value), nil
}

// NextWithContext 带上下文取号
func (g *Generator) NextWithContext(ctx context.Context, prefix string) (string, error) {
	return NewGenerator(g.db.WithContext(ctx)).Next(prefix)
}

// DefaultReferenceTimeFormat 参考号时间戳的默认格式
const DefaultReferenceTimeFormat = "20060102150405"

// Reference 生成实例参考号：CODE-时间戳-4 位随机数
// 唯一性由实例表的唯一索引兜底
func Reference(code string, now time.Time, timeFormat string) string {
	if timeFormat == "" {
		timeFormat = DefaultReferenceTimeFormat
	}
	return fmt.Sprintf("%s-%s-%04d", code, now.Format(timeFormat), rand.Intn(10000))
}
