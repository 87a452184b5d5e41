package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"backend/internal/common"
)

// 上下文键：下游处理器从 gin.Context 取当前用户
const (
	ContextUserID    = "user_id"
	ContextUserName  = "user_name"
	ContextUserEmail = "user_email"
	ContextSuperUser = "is_super_user"
)

// Middleware Bearer 令牌鉴权中间件
// 解析成功后把用户身份放入请求上下文
func Middleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			common.ResponseUnauthorized(c, "缺少 Authorization 头")
			c.Abort()
			return
		}
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			common.ResponseUnauthorized(c, "Authorization 头格式错误")
			c.Abort()
			return
		}

		claims, err := jwtService.ParseToken(tokenString)
		if err != nil {
			common.ResponseUnauthorized(c, "令牌无效或已过期")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserName, claims.UserName)
		c.Set(ContextUserEmail, claims.UserEmail)
		c.Set(ContextSuperUser, claims.SuperUser)
		c.Next()
	}
}
