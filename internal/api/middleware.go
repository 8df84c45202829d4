package api

import (
	"net/http"
	"strings"

	"tour-service/internal/models"
	"tour-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const actorKey = "actor"

// requireAuth resolves the bearer token (or jwt cookie) into the request's actor
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "fail",
				"message": "you are not logged in, please log in to get access",
			})
			return
		}

		claims, err := h.verifier.ParseValidate(token)
		if err != nil {
			h.logger.Debug("Rejected access token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "fail",
				"message": "invalid or expired token, please log in again",
			})
			return
		}

		role := claims.Role
		if role == "" {
			role = models.RoleUser
		}
		c.Set(actorKey, service.Actor{ID: claims.Sub, Role: role})
		c.Next()
	}
}

// requireRole lets only the given roles through; it must run after requireAuth
func requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentActor(c)
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"status":  "fail",
			"message": "you do not have permission to perform this action",
		})
	}
}

func currentActor(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(service.Actor); ok {
			return actor
		}
	}
	return service.Actor{}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie("jwt"); err == nil && cookie != "loggedout" {
		return cookie
	}
	return ""
}
