package middleware

import (
	"context"
	"net/http"
	"strings"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"
	"subtrack-api/internal/response"
	"subtrack-api/internal/services"
	"subtrack-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by Auth
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextEmail  = "email"
)

// UserLoader resolves the account behind a token
type UserLoader interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

// Auth validates the bearer access token, reloads the account and stores the
// caller in the context. Role and email come from the stored user, not the claims.
func Auth(tokens *services.TokenService, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			logging.L().Debug("missing bearer token", zap.String("path", c.Request.URL.Path))
			response.AbortJSON(c, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims, err := tokens.Parse(token, services.TokenTypeAccess)
		if err != nil {
			message := "Invalid token"
			if appErr, ok := apperror.As(err); ok {
				message = appErr.Message
			}
			response.AbortJSON(c, http.StatusUnauthorized, message)
			return
		}

		user, err := users.Get(c.Request.Context(), claims.UserID)
		if err != nil && !apperror.IsKind(err, apperror.KindNotFound) {
			logging.L().Error("failed to load token user", zap.Uint("user_id", claims.UserID), zap.Error(err))
			response.AbortJSON(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		if user == nil {
			response.AbortJSON(c, http.StatusUnauthorized, "User not found")
			return
		}
		if !user.IsActive {
			response.AbortJSON(c, http.StatusUnauthorized, "Account is deactivated")
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextRole, user.Role)
		c.Set(ContextEmail, user.Email)
		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		response.AbortJSON(c, http.StatusForbidden, "Insufficient permissions")
	}
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// UserID returns the authenticated user's id, zero when absent
func UserID(c *gin.Context) uint {
	id, _ := c.Get(ContextUserID)
	uid, _ := id.(uint)
	return uid
}

// Role returns the authenticated user's role
func Role(c *gin.Context) models.Role {
	v, _ := c.Get(ContextRole)
	role, _ := v.(models.Role)
	return role
}

// IsStaff reports whether the caller is admin or internal
func IsStaff(c *gin.Context) bool {
	return Role(c).IsStaff()
}
