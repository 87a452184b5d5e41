package api

import (
	"strings"

	"backend/internal/config"
	"backend/internal/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter 组装 gin 引擎：容器、Handler、路由、健康检查
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, error) {
	if strings.EqualFold(cfg.Server.Mode, "release") {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(), CORS())

	container, err := InitContainer(db, cfg)
	if err != nil {
		return nil, err
	}
	handlers := container.InitHandlers()

	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(db))

	RegisterRoutes(router, container, handlers)

	logger.Info("路由注册完成")
	return router, nil
}

// HealthCheck 健康检查
// @Summary 服务存活检查
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func HealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "approval-workflow",
		})
	}
}

// ReadinessCheck 就绪检查
// @Summary 服务就绪检查
// @Description 包含数据库连通性结果，用于判断可接收请求
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func ReadinessCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(503, gin.H{
				"status": "not_ready",
				"reason": "database connection error",
			})
			return
		}
		if err := sqlDB.Ping(); err != nil {
			c.JSON(503, gin.H{
				"status": "not_ready",
				"reason": "database ping failed",
			})
			return
		}
		c.JSON(200, gin.H{
			"status":   "ready",
			"database": "connected",
		})
	}
}
