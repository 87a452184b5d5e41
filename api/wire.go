package api

import (
	"fmt"
	"os"
	"strings"

	"backend/api/handlers/workflows"
	"backend/internal/attachment"
	"backend/internal/audit"
	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/infra"
	"backend/internal/logger"
	"backend/internal/lookup"
	"backend/internal/sequence"
	workflowSvc "backend/internal/workflow"
	"backend/internal/workflow/instance"

	"gorm.io/gorm"
)

// AppContainer 应用容器，集中管理所有服务依赖
type AppContainer struct {
	// 基础设施
	DB     *gorm.DB
	Config *config.Config

	// 认证相关
	JWTService *auth.JWTService

	// 核心服务
	WorkflowService   *workflowSvc.WorkflowService
	InstanceService   *instance.Service
	AttachmentService *attachment.Service
	AuditService      *audit.Service
	LookupProvider    *lookup.Provider
	SequenceGenerator *sequence.Generator
}

// Handlers 全部 HTTP Handler
type Handlers struct {
	Workflow   *workflows.WorkflowHandler
	Instance   *workflows.InstanceHandler
	Expression *workflows.ExpressionHandler
	Attachment *workflows.AttachmentHandler
}

// InitContainer 构建应用容器
func InitContainer(db *gorm.DB, cfg *config.Config) (*AppContainer, error) {
	c := &AppContainer{DB: db, Config: cfg}

	if cfg.Database.AutoMigrate {
		if err := infra.AutoMigrate(db,
			&workflowSvc.Workflow{},
			&instance.Instance{},
			&instance.HistoryEntry{},
			&attachment.Attachment{},
			&audit.Log{},
			&lookup.Entry{},
			&sequence.Counter{},
		); err != nil {
			return nil, fmt.Errorf("自动迁移失败: %w", err)
		}
		logger.Info("数据库表结构迁移完成")
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET_KEY"))
	if jwtSecret == "" {
		jwtSecret = cfg.JWT.Secret
	}
	if jwtSecret == "" {
		if strings.EqualFold(cfg.Server.Mode, "release") {
			return nil, fmt.Errorf("JWT 密钥未配置，生产环境禁止使用默认密钥")
		}
		jwtSecret = "default_jwt_secret_key_change_in_production"
		logger.Warn("JWT 密钥未配置，已回退为开发默认值，请在生产环境设置强随机密钥")
	}
	c.JWTService = auth.NewJWTService(jwtSecret, cfg.JWT.Issuer)

	c.LookupProvider = lookup.NewProvider(db)
	c.SequenceGenerator = sequence.NewGenerator(db)
	c.AuditService = audit.NewService(db)
	c.AttachmentService = attachment.NewService(db)
	c.WorkflowService = workflowSvc.NewWorkflowService(db)

	c.InstanceService = instance.NewService(db)
	c.InstanceService.SetLookupProvider(c.LookupProvider)
	c.InstanceService.SetSettings(instance.Settings{
		SkipUnauthorizedApprovers: cfg.Workflow.SkipUnauthorizedApprovers,
		ReferenceTimeFormat:       cfg.Workflow.ReferenceTimeFormat,
	})

	return c, nil
}

// InitHandlers 构建 HTTP Handler
func (c *AppContainer) InitHandlers() *Handlers {
	return &Handlers{
		Workflow:   workflows.NewWorkflowHandler(c.WorkflowService),
		Instance:   workflows.NewInstanceHandler(c.InstanceService, c.AuditService),
		Expression: workflows.NewExpressionHandler(c.LookupProvider, c.SequenceGenerator),
		Attachment: workflows.NewAttachmentHandler(c.AttachmentService),
	}
}
