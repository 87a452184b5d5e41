package workflows

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"backend/internal/audit"
	"backend/internal/common"
	"backend/internal/workflow/instance"
)

// InstanceHandler 审批流实例 Handler
type InstanceHandler struct {
	service *instance.Service
	audits  *audit.Service
}

// NewInstanceHandler 创建 InstanceHandler 实例
func NewInstanceHandler(service *instance.Service, audits *audit.Service) *InstanceHandler {
	return &InstanceHandler{service: service, audits: audits}
}

// record 写审计记录
func (h *InstanceHandler) record(c *gin.Context, action, instanceID string, details map[string]any) {
	actor := actorFrom(c)
	var payload datatypes.JSON
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			payload = raw
		}
	}
	h.audits.Record(c.Request.Context(), actor.ID, actor.Name, action, "instance", instanceID, payload)
}

// CreateInstance 创建实例
// @Summary 创建审批实例（草稿或直接提交）
// @Tags Instances
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body CreateInstanceBody true "实例内容"
// @Success 201 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Router /api/instances [post]
func (h *InstanceHandler) CreateInstance(c *gin.Context) {
	var body CreateInstanceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "请求体格式错误: "+err.Error())
		return
	}

	inst, err := h.service.Create(c.Request.Context(), actorFrom(c), &instance.CreateRequest{
		WorkflowID:  body.WorkflowID,
		FieldValues: body.FieldValues,
		Submit:      body.Submit,
	})
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	h.record(c, "instance.create", inst.ID, map[string]any{"workflow_id": body.WorkflowID, "submitted": body.Submit})
	common.ResponseCreated(c, inst)
}

// GetInstance 查询实例详情
// @Summary 查询审批实例详情
// @Tags Instances
// @Security BearerAuth
// @Produce json
// @Param id path string true "实例 ID"
// @Success 200 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Router /api/instances/{id} [get]
func (h *InstanceHandler) GetInstance(c *gin.Context) {
	inst, err := h.service.GetInstance(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, inst)
}

// UpdateDraft 编辑草稿
// @Summary 编辑草稿字段值
// @Tags Instances
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "实例 ID"
// @Param body body UpdateInstanceBody true "字段值"
// @Success 200 {object} common.APIResponse
// @Router /api/instances/{id} [put]
func (h *InstanceHandler) UpdateDraft(c *gin.Context) {
	var body UpdateInstanceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "请求体格式错误: "+err.Error())
		return
	}
	inst, err := h.service.UpdateDraft(c.Request.Context(), actorFrom(c), c.Param("id"), body.FieldValues)
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, inst)
}

// SubmitInstance 提交草稿
// @Summary 提交草稿进入审批链
// @Tags Instances
// @Security BearerAuth
// @Produce json
// @Param id path string true "实例 ID"
// @Success 200 {object} common.APIResponse
// @Router /api/instances/{id}/submit [post]
func (h *InstanceHandler) SubmitInstance(c *gin.Context) {
	inst, err := h.service.Submit(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	h.record(c, "instance.submit", inst.ID, nil)
	common.ResponseSuccess(c, inst)
}

// ApproveInstance 批准
// @Summary 当班审批人批准
// @Tags Instances
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "实例 ID"
// @Param body body ActionBody false "审批意见"
// @Success 200 {object} common.APIResponse
// @Failure 409 {object} common.APIResponse
// @Router /api/instances/{id}/approve [post]
func (h *InstanceHandler) ApproveInstance(c *gin.Context) {
	var body ActionBody
	_ = c.ShouldBindJSON(&body)

	inst, err := h.service.Approve(c.Request.Context(), actorFrom(c), c.Param("id"), body.Comments)
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	h.record(c, "instance.approve", inst.ID, map[string]any{"comments": body.Comments})
	common.ResponseSuccess(c, inst)
}

// RejectInstance 驳回
// @Summary 当班审批人驳回
// @Tags Instances
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "实例 ID"
// @Param body body ActionBody false "审批意见"
// @Success 200 {object} common.APIResponse
// @Router /api/instances/{id}/reject [post]
func (h *InstanceHandler) RejectInstance(c *gin.Context) {
	var body ActionBody
	_ = c.ShouldBindJSON(&body)

	inst, err := h.service.Reject(c.Request.Context(), actorFrom(c), c.Param("id"), body.Comments)
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	h.record(c, "instance.reject", inst.ID, map[string]any{"comments": body.Comments})
	common.ResponseSuccess(c, inst)
}

// EscalateInstance 手动升级
// @Summary 当班审批人手动升级到下一级
// @Tags Instances
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "实例 ID"
// @Param body body ActionBody false "审批意见"
// @Success 200 {object} common.APIResponse
// @Router /api/instances/{id}/escalate [post]
func (h *InstanceHandler) EscalateInstance(c *gin.Context) {
	var body ActionBody
	_ = c.ShouldBindJSON(&body)

	inst, err := h.service.Escalate(c.Request.Context(), actorFrom(c), c.Param("id"), body.Comments)
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	h.record(c, "instance.escalate", inst.ID, map[string]any{"comments": body.Comments})
	common.ResponseSuccess(c, inst)
}

// RecallInstance 撤回
// @Summary 发起人撤回审批中的实例
// @Tags Instances
// @Security BearerAuth
// @Produce json
// @Param id path string true "实例 ID"
// @Success 200 {object} common.APIResponse
// @Router /api/instances/{id}/recall [post]
func (h *InstanceHandler) RecallInstance(c *gin.Context) {
	inst, err := h.service.Recall(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	h.record(c, "instance.recall", inst.ID, nil)
	common.ResponseSuccess(c, inst)
}

// ResubmitInstance 重新提交
// @Summary 驳回或撤回后重新提交
// @Tags Instances
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "实例 ID"
// @Param body body ResubmitBody false "修改后的字段值"
// @Success 200 {object} common.APIResponse
// @Router /api/instances/{id}/resubmit [post]
func (h *InstanceHandler) ResubmitInstance(c *gin.Context) {
	var body ResubmitBody
	_ = c.ShouldBindJSON(&body)

	inst, err := h.service.Resubmit(c.Request.Context(), actorFrom(c), c.Param("id"), body.FieldValues)
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	h.record(c, "instance.resubmit", inst.ID, nil)
	common.ResponseSuccess(c, inst)
}

// CancelInstance 取消
// @Summary 取消非终态实例
// @Tags Instances
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "实例 ID"
// @Param body body ActionBody false "取消原因"
// @Success 200 {object} common.APIResponse
// @Router /api/instances/{id}/cancel [post]
func (h *InstanceHandler) CancelInstance(c *gin.Context) {
	var body ActionBody
	_ = c.ShouldBindJSON(&body)

	inst, err := h.service.Cancel(c.Request.Context(), actorFrom(c), c.Param("id"), body.Comments)
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	h.record(c, "instance.cancel", inst.ID, map[string]any{"comments": body.Comments})
	common.ResponseSuccess(c, inst)
}

// DeleteInstance 删除实例
// @Summary 删除草稿/已撤回/已取消的实例
// @Tags Instances
// @Security BearerAuth
// @Param id path string true "实例 ID"
// @Success 204
// @Router /api/instances/{id} [delete]
func (h *InstanceHandler) DeleteInstance(c *gin.Context) {
	instanceID := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), actorFrom(c), instanceID); err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	h.record(c, "instance.delete", instanceID, nil)
	common.ResponseNoContent(c)
}

// ListInstances 查询实例列表
// @Summary 按条件查询实例列表
// @Tags Instances
// @Security BearerAuth
// @Produce json
// @Param workflow_id query string false "定义 ID"
// @Param status query string false "状态"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} common.APIResponse
// @Router /api/instances [get]
func (h *InstanceHandler) ListInstances(c *gin.Context) {
	req := &instance.ListRequest{
		WorkflowID: c.Query("workflow_id"),
		Status:     instance.Status(c.Query("status")),
		Initiator:  c.Query("initiator"),
	}
	if page := c.Query("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil {
			req.Page = p
		}
	}
	if pageSize := c.Query("page_size"); pageSize != "" {
		if ps, err := strconv.Atoi(pageSize); err == nil {
			req.PageSize = ps
		}
	}

	resp, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, resp)
}

// MySubmissions 我发起的实例
// @Summary 我发起的实例
// @Tags Instances
// @Security BearerAuth
// @Produce json
// @Success 200 {object} common.APIResponse
// @Router /api/instances/mine [get]
func (h *InstanceHandler) MySubmissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	resp, err := h.service.MySubmissions(c.Request.Context(), actorFrom(c).ID, page, pageSize)
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, resp)
}

// PendingApprovals 待我审批
// @Summary 待我审批的实例
// @Tags Instances
// @Security BearerAuth
// @Produce json
// @Success 200 {object} common.APIResponse
// @Router /api/instances/pending [get]
func (h *InstanceHandler) PendingApprovals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	resp, err := h.service.PendingApprovals(c.Request.Context(), actorFrom(c).ID, page, pageSize)
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, resp)
}

// GetByReference 按参考号查询实例
// @Summary 按参考号查询审批实例
// @Tags Instances
// @Security BearerAuth
// @Produce json
// @Param ref path string true "参考号"
// @Success 200 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Router /api/instances/ref/{ref} [get]
func (h *InstanceHandler) GetByReference(c *gin.Context) {
	inst, err := h.service.GetByReferenceNumber(c.Request.Context(), c.Param("ref"))
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, inst)
}

// StatusCounts 实例状态统计
// @Summary 按状态统计实例数量
// @Tags Instances
// @Security BearerAuth
// @Produce json
// @Param workflow_id query string false "定义 ID"
// @Success 200 {object} common.APIResponse
// @Router /api/instances/counts [get]
func (h *InstanceHandler) StatusCounts(c *gin.Context) {
	counts, err := h.service.StatusCounts(c.Request.Context(), c.Query("workflow_id"))
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, counts)
}

// InstanceAuditTrail 操作审计轨迹
// @Summary 实例的操作审计记录（与审批历史分开，含发起/编辑/删除等全部命令）
// @Tags Instances
// @Security BearerAuth
// @Produce json
// @Param id path string true "实例 ID"
// @Param limit query int false "返回条数上限"
// @Success 200 {object} common.APIResponse
// @Router /api/instances/{id}/audit [get]
func (h *InstanceHandler) InstanceAuditTrail(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := h.audits.ListByTarget(c.Request.Context(), "instance", c.Param("id"), limit)
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, logs)
}

// InstanceHistory 审批历史
// @Summary 实例的完整审批历史
// @Tags Instances
// @Security BearerAuth
// @Produce json
// @Param id path string true "实例 ID"
// @Success 200 {object} common.APIResponse
// @Router /api/instances/{id}/history [get]
func (h *InstanceHandler) InstanceHistory(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, entries)
}
