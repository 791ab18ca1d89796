package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"callqa-backend/internal/shared/auth"
	"callqa-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userRoleKey  = "userRole"
	companyIDKey = "companyId"
)

const (
	RoleAdmin          = "admin"
	RoleCompanyManager = "company_manager"
	RoleAgent          = "agent"
)

// Auth validates bearer tokens and stores identity in context.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Set(userEmailKey, claims.Email)
		c.Set(userRoleKey, claims.Role)
		c.Set(companyIDKey, claims.CompanyID)
		c.Next()
	}
}

// RequireManager allows only company managers and admins through.
func RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := UserRoleFromContext(c)
		if role != RoleAdmin && role != RoleCompanyManager {
			respond.Error(c, http.StatusForbidden, "forbidden", "company manager access required", nil)
			return
		}
		c.Next()
	}
}

// UserIDFromContext fetches the numeric user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) int64 {
	if c == nil {
		return 0
	}
	val, _ := c.Get(userIDKey)
	raw, ok := val.(string)
	if !ok {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// UserRoleFromContext fetches the role set by the auth middleware.
func UserRoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userRoleKey)
	if role, ok := val.(string); ok {
		return role
	}
	return ""
}

// CompanyIDFromContext fetches the company scope set by the auth middleware.
func CompanyIDFromContext(c *gin.Context) int64 {
	if c == nil {
		return 0
	}
	val, _ := c.Get(companyIDKey)
	if id, ok := val.(int64); ok {
		return id
	}
	return 0
}

// IsAdmin reports whether the authenticated user has the admin role.
func IsAdmin(c *gin.Context) bool {
	return UserRoleFromContext(c) == RoleAdmin
}
