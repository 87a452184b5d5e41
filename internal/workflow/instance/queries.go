package instance

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"backend/internal/common"
)

// ListRequest 实例列表查询请求
type ListRequest struct {
	WorkflowID string
	Status     Status
	Initiator  string
	Page       int
	PageSize   int
}

// ListResponse 实例列表查询响应
type ListResponse struct {
	Instances  []*Instance `json:"instances"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// List 按条件查询实例列表
func (s *Service) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	query := s.db.WithContext(ctx).
		Model(&Instance{}).
		Where("is_active = ?", true)

	if req.WorkflowID != "" {
		query = query.Where("workflow_id = ?", req.WorkflowID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Initiator != "" {
		query = query.Where("initiator_id = ?", req.Initiator)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计实例数量失败: %w", err)
	}

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

	var instances []*Instance
	if err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("查询实例列表失败: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &ListResponse{
		Instances:  instances,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// MySubmissions 我发起的实例
func (s *Service) MySubmissions(ctx context.Context, userID string, page, pageSize int) (*ListResponse, error) {
	return s.List(ctx, &ListRequest{Initiator: userID, Page: page, PageSize: pageSize})
}

// PendingApprovals 待我审批的实例
func (s *Service) PendingApprovals(ctx context.Context, approverID string, page, pageSize int) (*ListResponse, error) {
	query := s.db.WithContext(ctx).
		Model(&Instance{}).
		Where("is_active = ? AND status = ? AND current_approver_id = ?", true, StatusPending, approverID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计待办数量失败: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var instances []*Instance
	if err := query.
		Order("submitted_at ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("查询待办列表失败: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &ListResponse{
		Instances:  instances,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetByReferenceNumber 按参考号查询实例
func (s *Service) GetByReferenceNumber(ctx context.Context, referenceNumber string) (*Instance, error) {
	var inst Instance
	if err := s.db.WithContext(ctx).
		Where("reference_number = ? AND is_active = ?", referenceNumber, true).
		First(&inst).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewErrorf(common.KindNotFound, "审批实例不存在: %s", referenceNumber)
		}
		return nil, fmt.Errorf("查询审批实例失败: %w", err)
	}
	return &inst, nil
}

// History 实例的完整审批历史，按时间正序
func (s *Service) History(ctx context.Context, instanceID string) ([]*HistoryEntry, error) {
	var entries []*HistoryEntry
	if err := s.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("action_date ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("查询审批历史失败: %w", err)
	}
	return entries, nil
}

// StatusCounts 按状态统计某工作流下的实例数量
func (s *Service) StatusCounts(ctx context.Context, workflowID string) (map[Status]int64, error) {
	type row struct {
		Status Status
		Count  int64
	}
	var rows []row
	query := s.db.WithContext(ctx).
		Model(&Instance{}).
		Select("status, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("status")
	if workflowID != "" {
		query = query.Where("workflow_id = ?", workflowID)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("统计实例状态失败: %w", err)
	}
	counts := make(map[Status]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
