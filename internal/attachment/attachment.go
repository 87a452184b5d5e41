// Package attachment 实例附件元数据：只管元数据，不碰字节流
package attachment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/common"
)

// Attachment 附件元数据
type Attachment struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid"`
	InstanceID string `json:"instanceId" gorm:"type:uuid;not null;index"`
	FieldName  string `json:"fieldName" gorm:"size:255"` // 所属 FILE 字段

	FileName    string `json:"fileName" gorm:"size:500;not null"`
	ContentType string `json:"contentType" gorm:"size:255"`
	SizeBytes   int64  `json:"sizeBytes" gorm:"not null;default:0"`
	// 外部存储的定位引用（对象键、URL 等），本核心不解释其内容
	StorageRef string `json:"storageRef" gorm:"size:1000"`

	UploadedBy string    `json:"uploadedBy" gorm:"size:100"`
	CreatedAt  time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// TableName 指定表名
func (Attachment) TableName() string {
	return "workflow_attachments"
}

// Service 附件元数据服务
type Service struct {
	db *gorm.DB
}

// NewService 创建附件服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// AddRequest 登记附件请求
type AddRequest struct {
	InstanceID  string
	FieldName   string
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageRef  string
	UploadedBy  string
}

// Add 登记一条附件元数据
func (s *Service) Add(ctx context.Context, req *AddRequest) (*Attachment, error) {
	if req.InstanceID == "" {
		return nil, common.NewError(common.KindValidation, "附件必须关联实例")
	}
	if req.FileName == "" {
		return nil, common.NewError(common.KindValidation, "附件文件名不能为空")
	}
	att := &Attachment{
		ID:          uuid.New().String(),
		InstanceID:  req.InstanceID,
		FieldName:   req.FieldName,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		StorageRef:  req.StorageRef,
		UploadedBy:  req.UploadedBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(att).Error; err != nil {
		return nil, fmt.Errorf("登记附件失败: %w", err)
	}
	return att, nil
}

// ListByInstance 实例的全部附件
func (s *Service) ListByInstance(ctx context.Context, instanceID string) ([]*Attachment, error) {
	var attachments []*Attachment
	if err := s.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("created_at ASC").
		Find(&attachments).Error; err != nil {
		return nil, fmt.Errorf("查询附件失败: %w", err)
	}
	return attachments, nil
}

// Get 查询单个附件
func (s *Service) Get(ctx context.Context, attachmentID string) (*Attachment, error) {
	var att Attachment
	if err := s.db.WithContext(ctx).
		Where("id = ?", attachmentID).
		First(&att).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewErrorf(common.KindNotFound, "附件不存在: %s", attachmentID)
		}
		return nil, fmt.Errorf("查询附件失败: %w", err)
	}
	return &att, nil
}

// Remove 删除附件元数据（仅登记者或超级用户）
func (s *Service) Remove(ctx context.Context, attachmentID, operatorID string, superUser bool) error {
	att, err := s.Get(ctx, attachmentID)
	if err != nil {
		return err
	}
	if att.UploadedBy != operatorID && !superUser {
		return common.NewError(common.KindPrecondition, "只有上传者可以删除附件")
	}
	if err := s.db.WithContext(ctx).Delete(att).Error; err != nil {
		return fmt.Errorf("删除附件失败: %w", err)
	}
	return nil
}
