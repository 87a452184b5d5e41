package workflows

import (
	"github.com/gin-gonic/gin"

	"backend/internal/attachment"
	"backend/internal/common"
)

// AttachmentHandler 附件元数据 Handler
// 只登记元数据，字节流由外部存储负责
type AttachmentHandler struct {
	service *attachment.Service
}

// NewAttachmentHandler 创建 AttachmentHandler 实例
func NewAttachmentHandler(service *attachment.Service) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

// AttachmentBody 登记附件请求体
type AttachmentBody struct {
	FieldName   string `json:"field_name"`
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageRef  string `json:"storage_ref"`
}

// AddAttachment 登记附件
// @Summary 给实例登记一条附件元数据
// @Tags Attachments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "实例 ID"
// @Param body body AttachmentBody true "附件元数据"
// @Success 201 {object} common.APIResponse
// @Router /api/instances/{id}/attachments [post]
func (h *AttachmentHandler) AddAttachment(c *gin.Context) {
	var body AttachmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "请求体格式错误: "+err.Error())
		return
	}

	att, err := h.service.Add(c.Request.Context(), &attachment.AddRequest{
		InstanceID:  c.Param("id"),
		FieldName:   body.FieldName,
		FileName:    body.FileName,
		ContentType: body.ContentType,
		SizeBytes:   body.SizeBytes,
		StorageRef:  body.StorageRef,
		UploadedBy:  actorFrom(c).ID,
	})
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseCreated(c, att)
}

// ListAttachments 实例附件列表
// @Summary 实例的全部附件元数据
// @Tags Attachments
// @Security BearerAuth
// @Produce json
// @Param id path string true "实例 ID"
// @Success 200 {object} common.APIResponse
// @Router /api/instances/{id}/attachments [get]
func (h *AttachmentHandler) ListAttachments(c *gin.Context) {
	attachments, err := h.service.ListByInstance(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, attachments)
}

// DeleteAttachment 删除附件
// @Summary 删除一条附件元数据
// @Tags Attachments
// @Security BearerAuth
// @Param id path string true "附件 ID"
// @Success 204
// @Router /api/attachments/{id} [delete]
func (h *AttachmentHandler) DeleteAttachment(c *gin.Context) {
	actor := actorFrom(c)
	if err := h.service.Remove(c.Request.Context(), c.Param("id"), actor.ID, actor.SuperUser); err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseNoContent(c)
}
