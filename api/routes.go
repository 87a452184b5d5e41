package api

import (
	"backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, container *AppContainer, handlers *Handlers) {
	api := router.Group("/api")
	api.Use(auth.Middleware(container.JWTService))

	// 审批流定义管理
	registerWorkflowRoutes(api, handlers)

	// 审批实例与动作
	registerInstanceRoutes(api, handlers)

	// 表达式测试面板
	registerExpressionRoutes(api, handlers)
}

func registerWorkflowRoutes(apiGroup *gin.RouterGroup, h *Handlers) {
	wfs := apiGroup.Group("/workflows")
	{
		wfs.GET("", h.Workflow.ListWorkflows)
		wfs.POST("", h.Workflow.CreateWorkflow)
		wfs.GET("/code/:code", h.Workflow.GetWorkflowByCode)
		wfs.GET("/:id", h.Workflow.GetWorkflow)
		wfs.PUT("/:id", h.Workflow.UpdateWorkflow)
		wfs.DELETE("/:id", h.Workflow.DeleteWorkflow)
		wfs.POST("/:id/publish", h.Workflow.PublishWorkflow)
	}
}

func registerInstanceRoutes(apiGroup *gin.RouterGroup, h *Handlers) {
	insts := apiGroup.Group("/instances")
	{
		insts.GET("", h.Instance.ListInstances)
		insts.POST("", h.Instance.CreateInstance)
		insts.GET("/mine", h.Instance.MySubmissions)
		insts.GET("/pending", h.Instance.PendingApprovals)
		insts.GET("/counts", h.Instance.StatusCounts)
		insts.GET("/ref/:ref", h.Instance.GetByReference)
		insts.GET("/:id", h.Instance.GetInstance)
		insts.PUT("/:id", h.Instance.UpdateDraft)
		insts.DELETE("/:id", h.Instance.DeleteInstance)
		insts.GET("/:id/history", h.Instance.InstanceHistory)
		insts.GET("/:id/audit", h.Instance.InstanceAuditTrail)

		// 状态机动作
		insts.POST("/:id/submit", h.Instance.SubmitInstance)
		insts.POST("/:id/approve", h.Instance.ApproveInstance)
		insts.POST("/:id/reject", h.Instance.RejectInstance)
		insts.POST("/:id/escalate", h.Instance.EscalateInstance)
		insts.POST("/:id/recall", h.Instance.RecallInstance)
		insts.POST("/:id/resubmit", h.Instance.ResubmitInstance)
		insts.POST("/:id/cancel", h.Instance.CancelInstance)

		// 附件元数据
		insts.POST("/:id/attachments", h.Attachment.AddAttachment)
		insts.GET("/:id/attachments", h.Attachment.ListAttachments)
	}
	apiGroup.DELETE("/attachments/:id", h.Attachment.DeleteAttachment)
}

func registerExpressionRoutes(apiGroup *gin.RouterGroup, h *Handlers) {
	exprs := apiGroup.Group("/expressions")
	{
		exprs.POST("/evaluate", h.Expression.Evaluate)
		exprs.POST("/check", h.Expression.CheckSyntax)
		exprs.GET("/functions", h.Expression.ListFunctions)
	}
}
