package middleware

import (
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func AuthMiddleware(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.Secret)
		if err != nil {
			logger.Log.Debug("JWT parse failed", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set(util.ContextUserKey, claims)
		c.Next()
	}
}

// RoleMiddleware 校验角色，管理员拥有全部权限
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := user.Role == model.RoleAdmin
		for _, role := range roles {
			if user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
