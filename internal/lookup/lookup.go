// Package lookup LOOKUP() 函数的默认数据源：按 (source, key) 取值的字典表
package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/common"
)

// Entry 字典条目
type Entry struct {
	ID     string `json:"id" gorm:"primaryKey;type:uuid"`
	Source string `json:"source" gorm:"size:100;not null;uniqueIndex:idx_lookup_source_key"`
	Key    string `json:"key" gorm:"size:255;not null;uniqueIndex:idx_lookup_source_key"`
	Value  string `json:"value" gorm:"type:text;not null"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 指定表名
func (Entry) TableName() string {
	return "lookup_entries"
}

// Provider 数据库支撑的查找器，实现 expr.LookupProvider
type Provider struct {
	db *gorm.DB
}

// NewProvider 创建查找器
func NewProvider(db *gorm.DB) *Provider {
	return &Provider{db: db}
}

// Lookup 按数据源与键取值，未命中返回 NotFound
func (p *Provider) Lookup(source, key string) (any, error) {
	var entry Entry
	if err := p.db.
		Where("source = ? AND key = ?", source, key).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewErrorf(common.KindNotFound, "查找数据源 %s 中不存在键 %s", source, key)
		}
		return nil, fmt.Errorf("查找失败: %w", err)
	}
	return entry.Value, nil
}

// Upsert 写入或覆盖条目
func (p *Provider) Upsert(ctx context.Context, source, key, value string) error {
	var entry Entry
	err := p.db.WithContext(ctx).
		Where("source = ? AND key = ?", source, key).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p.db.WithContext(ctx).Create(&Entry{
			ID: uuid.New().String(), Source: source, Key: key, Value: value,
		}).Error
	}
	if err != nil {
		return fmt.Errorf("查询条目失败: %w", err)
	}
	return p.db.WithContext(ctx).
		Model(&entry).
		Update("value", value).Error
}
