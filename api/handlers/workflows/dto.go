package workflows

import (
	"github.com/gin-gonic/gin"

	"backend/internal/auth"
	"backend/internal/workflow"
	"backend/internal/workflow/instance"
)

// CreateWorkflowBody 创建定义请求体
type CreateWorkflowBody struct {
	Code        string                      `json:"code" binding:"required"`
	Name        string                      `json:"name" binding:"required"`
	Description string                      `json:"description"`
	Category    workflow.Category           `json:"category"`
	Definition  workflow.WorkflowDefinition `json:"definition"`
}

// UpdateWorkflowBody 更新定义请求体（nil 字段不修改）
type UpdateWorkflowBody struct {
	Name        *string                      `json:"name"`
	Description *string                      `json:"description"`
	Definition  *workflow.WorkflowDefinition `json:"definition"`
	IsActive    *bool                        `json:"is_active"`
}

// CreateInstanceBody 创建实例请求体
type CreateInstanceBody struct {
	WorkflowID  string         `json:"workflow_id" binding:"required"`
	FieldValues map[string]any `json:"field_values"`
	Submit      bool           `json:"submit"`
}

// UpdateInstanceBody 编辑草稿请求体
type UpdateInstanceBody struct {
	FieldValues map[string]any `json:"field_values" binding:"required"`
}

// ActionBody 审批动作请求体
type ActionBody struct {
	Comments string `json:"comments"`
}

// ResubmitBody 重新提交请求体
type ResubmitBody struct {
	FieldValues map[string]any `json:"field_values"`
}

// EvaluateBody 表达式求值请求体
type EvaluateBody struct {
	Expression  string         `json:"expression" binding:"required"`
	FieldValues map[string]any `json:"field_values"`
}

// CheckSyntaxBody 表达式语法检查请求体
type CheckSyntaxBody struct {
	Expression string `json:"expression" binding:"required"`
}

// actorFrom 从请求上下文取当前用户身份
func actorFrom(c *gin.Context) instance.Actor {
	return instance.Actor{
		ID:        c.GetString(auth.ContextUserID),
		Name:      c.GetString(auth.ContextUserName),
		Email:     c.GetString(auth.ContextUserEmail),
		SuperUser: c.GetBool(auth.ContextSuperUser),
	}
}
