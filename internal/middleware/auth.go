package middleware

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/safeshipper/hazard-assessment-service/internal/config"
	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/utils"
)

const (
	ContextUserID    = "user_id"
	ContextUserRole  = "user_role"
	ContextCompanyID = "company_id"
)

// AuthMiddleware verifies Casdoor-issued JWTs and enforces role capabilities.
type AuthMiddleware struct {
	logger utils.Logger
}

func NewAuthMiddleware(cfg *config.Config, logger utils.Logger) *AuthMiddleware {
	casdoorsdk.InitConfig(
		cfg.CasdoorEndpoint,
		cfg.CasdoorClientID,
		cfg.CasdoorClientSecret,
		cfg.CasdoorCertificate,
		cfg.CasdoorOrganization,
		cfg.CasdoorApplication,
	)
	return &AuthMiddleware{logger: logger}
}

// Authenticate parses the Bearer token and stores the caller's identity in
// the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing or malformed authorization header",
			})
			return
		}

		claims, err := casdoorsdk.ParseJwtToken(token)
		if err != nil {
			m.logger.Warn("Token verification failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}

		role := models.UserRole(claims.User.Tag)
		if role == "" {
			role = models.RoleDriver
		}

		c.Set(ContextUserID, claims.User.Id)
		c.Set(ContextUserRole, role)
		c.Set(ContextCompanyID, claims.User.Owner)
		c.Next()
	}
}

// RequireCompletionCapability gates the mobile completion flow endpoints.
func (m *AuthMiddleware) RequireCompletionCapability() gin.HandlerFunc {
	return m.requireRole(func(u *models.User) bool {
		return u.CanCompleteAssessments()
	}, "role cannot complete assessments")
}

// RequireOverrideReview gates the manager override review endpoints.
func (m *AuthMiddleware) RequireOverrideReview() gin.HandlerFunc {
	return m.requireRole(func(u *models.User) bool {
		return u.CanReviewOverrides()
	}, "role cannot review overrides")
}

// RequireManagement gates template administration endpoints.
func (m *AuthMiddleware) RequireManagement() gin.HandlerFunc {
	return m.requireRole(func(u *models.User) bool {
		return u.Role == models.RoleManager || u.Role == models.RoleAdmin
	}, "role cannot manage templates")
}

func (m *AuthMiddleware) requireRole(allowed func(*models.User) bool, reason string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextUserRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthenticated",
			})
			return
		}
		user := &models.User{Role: role.(models.UserRole)}
		if !allowed(user) {
			m.logger.Warn("Capability check failed",
				"user_id", CurrentUserID(c),
				"role", user.Role,
				"reason", reason)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": reason,
			})
			return
		}
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// CurrentUserID returns the authenticated user's id, empty when unauthenticated.
func CurrentUserID(c *gin.Context) string {
	if id, exists := c.Get(ContextUserID); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// CurrentCompanyID returns the authenticated user's organization id.
func CurrentCompanyID(c *gin.Context) string {
	if id, exists := c.Get(ContextCompanyID); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
