package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwt "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/jwt"
	rbac "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/rbac"
	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"

	"github.com/gin-gonic/gin"
)

// Key types for request context
type contextKey string

const (
	UserIDContextKey   contextKey = "user_id"
	UserRoleContextKey contextKey = "user_role"
	TokenIDContextKey  contextKey = "token_id"
)

// UserLookup resolves the account behind a token
type UserLookup interface {
	GetByID(ctx context.Context, userID string) (*auth_models.User, error)
}

// AuthMiddleware provides middleware functions for authentication and authorization
type AuthMiddleware struct {
	jwtService  *jwt.Service
	rbacService *rbac.Service
	users       UserLookup
	config      Config
}

// Config holds middleware configuration
type Config struct {
	AccessTokenHeader string
}

// DefaultConfig returns a default middleware configuration
func DefaultConfig() Config {
	return Config{AccessTokenHeader: "Authorization"}
}

// NewAuthMiddleware creates a new auth middleware. When users is set, the
// role is read from the stored account on every request so role changes
// apply without re-issuing tokens.
func NewAuthMiddleware(jwtService *jwt.Service, rbacService *rbac.Service, users UserLookup, config Config) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		rbacService: rbacService,
		users:       users,
		config:      config,
	}
}

func extractToken(r *http.Request, headerName string) string {
	token := strings.TrimSpace(r.Header.Get(headerName))
	return strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// Authenticate middleware verifies the access token
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := extractToken(c.Request, m.config.AccessTokenHeader)
		if accessToken == "" {
			abort(c, http.StatusUnauthorized, "No token, authorization denied")
			return
		}

		claims, err := m.jwtService.ValidateAccessToken(accessToken)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		role := claims.Role
		if m.users != nil {
			user, err := m.users.GetByID(c.Request.Context(), claims.UserID)
			switch {
			case errors.Is(err, interfaces.ErrNotFound), errors.Is(err, interfaces.ErrInvalidID):
				abort(c, http.StatusNotFound, "User not found")
				return
			case err != nil:
				abort(c, http.StatusInternalServerError, "Server error")
				return
			}
			role = user.Role
		}

		c.Set(string(UserIDContextKey), claims.UserID)
		c.Set(string(UserRoleContextKey), role)
		c.Set(string(TokenIDContextKey), claims.ID)

		c.Next()
	}
}

// RequirePermission ensures the authenticated user's role grants perm
func (m *AuthMiddleware) RequirePermission(perm rbac.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetRoleFromGinContext(c)
		if err != nil || !m.rbacService.Can(role, perm) {
			abort(c, http.StatusForbidden, "Access denied. You do not have permission to access this resource.")
			return
		}
		c.Next()
	}
}

// GetUserFromGinContext retrieves user ID from Gin context
func GetUserFromGinContext(c *gin.Context) (string, error) {
	userIDVal, exists := c.Get(string(UserIDContextKey))
	if !exists {
		return "", errors.New("user not found in context")
	}

	userID, ok := userIDVal.(string)
	if !ok || userID == "" {
		return "", errors.New("invalid user ID format in context")
	}

	return userID, nil
}

// GetRoleFromGinContext retrieves user role from Gin context
func GetRoleFromGinContext(c *gin.Context) (string, error) {
	roleVal, exists := c.Get(string(UserRoleContextKey))
	if !exists {
		return "", errors.New("role not found in context")
	}

	role, ok := roleVal.(string)
	if !ok {
		return "", errors.New("invalid role format in context")
	}

	return role, nil
}
