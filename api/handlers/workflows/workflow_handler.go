package workflows

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"backend/internal/auth"
	"backend/internal/common"
	"backend/internal/workflow"
)

// WorkflowHandler 审批流定义管理 Handler
type WorkflowHandler struct {
	service *workflow.WorkflowService
}

// NewWorkflowHandler 创建 WorkflowHandler 实例
func NewWorkflowHandler(service *workflow.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{service: service}
}

// ListWorkflows 查询定义列表
// @Summary 查询审批流定义列表
// @Tags Workflows
// @Security BearerAuth
// @Produce json
// @Param category query string false "类别 FINANCIAL | NON_FINANCIAL"
// @Param published query bool false "只看已发布"
// @Param keyword query string false "名称/编码模糊匹配"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} common.APIResponse
// @Router /api/workflows [get]
func (h *WorkflowHandler) ListWorkflows(c *gin.Context) {
	req := &workflow.ListWorkflowsRequest{
		Category:      workflow.Category(c.Query("category")),
		PublishedOnly: c.Query("published") == "true",
		Keyword:       c.Query("keyword"),
		CreatedBy:     c.Query("created_by"),
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

	resp, err := h.service.ListWorkflows(c.Request.Context(), req)
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, resp)
}

// GetWorkflow 查询定义详情
// @Summary 查询审批流定义详情
// @Tags Workflows
// @Security BearerAuth
// @Produce json
// @Param id path string true "定义 ID"
// @Success 200 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Router /api/workflows/{id} [get]
func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	wf, err := h.service.GetWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, wf)
}

// GetWorkflowByCode 按编码查询定义
// @Summary 按编码查询审批流定义
// @Tags Workflows
// @Security BearerAuth
// @Produce json
// @Param code path string true "定义编码"
// @Success 200 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Router /api/workflows/code/{code} [get]
func (h *WorkflowHandler) GetWorkflowByCode(c *gin.Context) {
	wf, err := h.service.GetWorkflowByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, wf)
}

// CreateWorkflow 创建定义
// @Summary 创建审批流定义
// @Tags Workflows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body CreateWorkflowBody true "定义内容"
// @Success 201 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Router /api/workflows [post]
func (h *WorkflowHandler) CreateWorkflow(c *gin.Context) {
	var body CreateWorkflowBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "请求体格式错误: "+err.Error())
		return
	}

	wf, err := h.service.CreateWorkflow(c.Request.Context(), &workflow.CreateWorkflowRequest{
		Code:        body.Code,
		Name:        body.Name,
		Description: body.Description,
		Category:    body.Category,
		Definition:  body.Definition,
		CreatedBy:   c.GetString(auth.ContextUserID),
	})
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseCreated(c, wf)
}

// UpdateWorkflow 更新定义
// @Summary 更新审批流定义
// @Tags Workflows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "定义 ID"
// @Param body body UpdateWorkflowBody true "修改内容"
// @Success 200 {object} common.APIResponse
// @Router /api/workflows/{id} [put]
func (h *WorkflowHandler) UpdateWorkflow(c *gin.Context) {
	var body UpdateWorkflowBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "请求体格式错误: "+err.Error())
		return
	}

	wf, err := h.service.UpdateWorkflow(c.Request.Context(), c.Param("id"), &workflow.UpdateWorkflowRequest{
		Name:        body.Name,
		Description: body.Description,
		Definition:  body.Definition,
		IsActive:    body.IsActive,
	})
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, wf)
}

// PublishWorkflow 发布定义
// @Summary 发布审批流定义
// @Description 发布后才能发起实例，发布前执行完整定义校验
// @Tags Workflows
// @Security BearerAuth
// @Produce json
// @Param id path string true "定义 ID"
// @Success 200 {object} common.APIResponse
// @Router /api/workflows/{id}/publish [post]
func (h *WorkflowHandler) PublishWorkflow(c *gin.Context) {
	wf, err := h.service.PublishWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, wf)
}

// DeleteWorkflow 删除定义
// @Summary 删除审批流定义
// @Tags Workflows
// @Security BearerAuth
// @Param id path string true "定义 ID"
// @Success 204
// @Router /api/workflows/{id} [delete]
func (h *WorkflowHandler) DeleteWorkflow(c *gin.Context) {
	if err := h.service.DeleteWorkflow(c.Request.Context(), c.Param("id")); err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseNoContent(c)
}
