package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkflowService 审批流定义管理服务
type WorkflowService struct {
	db        *gorm.DB
	validator *Validator
}

// NewWorkflowService 创建 WorkflowService 实例
func NewWorkflowService(db *gorm.DB) *WorkflowService {
	return &WorkflowService{db: db, validator: NewValidator()}
}

// ListWorkflowsRequest 查询定义列表请求
type ListWorkflowsRequest struct {
	Category      Category
	PublishedOnly bool
	CreatedBy     string
	Keyword       string
	Page          int
	PageSize      int
}

// ListWorkflowsResponse 查询定义列表响应
type ListWorkflowsResponse struct {
	Workflows  []*Workflow `json:"workflows"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// ListWorkflows 查询定义列表
func (s *WorkflowService) ListWorkflows(ctx context.Context, req *ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	query := s.db.WithContext(ctx).
		Model(&Workflow{}).
		Scopes(common.NotDeleted())

	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}
	if req.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if req.CreatedBy != "" {
		query = query.Where("created_by = ?", req.CreatedBy)
	}
	if req.Keyword != "" {
		keyword := "%" + req.Keyword + "%"
		query = query.Where("name LIKE ? OR code LIKE ?", keyword, keyword)
	}

	// 统计总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计工作流数量失败: %w", err)
	}

	// 分页
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var workflows []*Workflow
	if err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&workflows).Error; err != nil {
		return nil, fmt.Errorf("查询工作流列表失败: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &ListWorkflowsResponse{
		Workflows:  workflows,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetWorkflow 按 ID 查询定义
func (s *WorkflowService) GetWorkflow(ctx context.Context, workflowID string) (*Workflow, error) {
	var workflow Workflow
	if err := s.db.WithContext(ctx).
		Scopes(common.NotDeleted()).
		Where("id = ?", workflowID).
		First(&workflow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewErrorf(common.KindNotFound, "工作流不存在: %s", workflowID)
		}
		return nil, fmt.Errorf("查询工作流失败: %w", err)
	}
	return &workflow, nil
}

// GetWorkflowByCode 按编码查询定义
func (s *WorkflowService) GetWorkflowByCode(ctx context.Context, code string) (*Workflow, error) {
	var workflow Workflow
	if err := s.db.WithContext(ctx).
		Scopes(common.NotDeleted()).
		Where("code = ?", code).
		First(&workflow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewErrorf(common.KindNotFound, "工作流不存在: %s", code)
		}
		return nil, fmt.Errorf("查询工作流失败: %w", err)
	}
	return &workflow, nil
}

// CreateWorkflowRequest 创建定义请求
type CreateWorkflowRequest struct {
	Code        string
	Name        string
	Description string
	Category    Category
	Definition  WorkflowDefinition
	CreatedBy   string
}

// CreateWorkflow 创建审批流定义
func (s *WorkflowService) CreateWorkflow(ctx context.Context, req *CreateWorkflowRequest) (*Workflow, error) {
	code := strings.TrimSpace(strings.ToUpper(req.Code))
	if code == "" {
		return nil, common.NewError(common.KindValidation, "工作流编码不能为空")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, common.NewError(common.KindValidation, "工作流名称不能为空")
	}
	category := req.Category
	if category == "" {
		category = CategoryNonFinancial
	}
	req.Definition.Category = category

	// 定义不变量校验
	if err := s.validator.Validate(&req.Definition); err != nil {
		return nil, err
	}

	// 编码唯一
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&Workflow{}).
		Scopes(common.NotDeleted()).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("检查工作流编码失败: %w", err)
	}
	if count > 0 {
		return nil, common.NewErrorf(common.KindValidation, "工作流编码已存在: %s", code)
	}

	workflow := &Workflow{
		ID:          uuid.New().String(),
		Code:        code,
		Name:        req.Name,
		Description: req.Description,
		Category:    category,
		Definition:  req.Definition,
		IsPublished: false,
		IsActive:    true,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(workflow).Error; err != nil {
		return nil, fmt.Errorf("创建工作流失败: %w", err)
	}
	return workflow, nil
}

// UpdateWorkflowRequest 更新定义请求（nil 表示不修改）
type UpdateWorkflowRequest struct {
	Name        *string
	Description *string
	Definition  *WorkflowDefinition
	IsActive    *bool
}

// UpdateWorkflow 更新审批流定义
func (s *WorkflowService) UpdateWorkflow(ctx context.Context, workflowID string, req *UpdateWorkflowRequest) (*Workflow, error) {
	workflow, err := s.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if req.Definition != nil {
		req.Definition.Category = workflow.Category
		if err := s.validator.Validate(req.Definition); err != nil {
			return nil, err
		}
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Definition != nil {
		updates["definition"] = *req.Definition
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	updates["updated_at"] = time.Now().UTC()

	if err := s.db.WithContext(ctx).
		Model(workflow).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新工作流失败: %w", err)
	}

	return s.GetWorkflow(ctx, workflowID)
}

// PublishWorkflow 发布定义：发布后可发起实例
// 发布前再走一次完整校验，且审批链不能为空
func (s *WorkflowService) PublishWorkflow(ctx context.Context, workflowID string) (*Workflow, error) {
	workflow, err := s.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(&workflow.Definition); err != nil {
		return nil, err
	}
	if len(workflow.Definition.ApproverLevels) == 0 {
		return nil, common.NewError(common.KindConfiguration, "审批链为空，无法发布")
	}

	if err := s.db.WithContext(ctx).
		Model(workflow).
		Updates(map[string]any{
			"is_published": true,
			"updated_at":   time.Now().UTC(),
		}).Error; err != nil {
		return nil, fmt.Errorf("发布工作流失败: %w", err)
	}
	workflow.IsPublished = true
	return workflow, nil
}

// DeleteWorkflow 软删除定义
func (s *WorkflowService) DeleteWorkflow(ctx context.Context, workflowID string) error {
	workflow, err := s.GetWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).
		Model(workflow).
		Updates(map[string]any{
			"deleted_at": time.Now().UTC(),
			"is_active":  false,
		}).Error; err != nil {
		return fmt.Errorf("删除工作流失败: %w", err)
	}
	return nil
}
