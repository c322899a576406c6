package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Permissions checked on import routes when running with local JWT auth
const (
	PermissionCatalogRead   = "catalog:read"
	PermissionCatalogImport = "catalog:import"
)

// Roles that pass every permission check
var adminRoles = map[string]bool{
	"super_admin": true,
	"owner":       true,
	"admin":       true,
}

// Claims represents the JWT claims
type Claims struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	TenantID    string   `json:"tenant_id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
	c.Abort()
}

// AuthMiddleware validates HMAC-signed bearer tokens. Paths listed in
// skipPaths (prefix match) are passed through.
func AuthMiddleware(jwtSecret string, skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range skipPaths {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header is required")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN_FORMAT", "Authorization header must be in format: Bearer <token>")
			return
		}

		token, err := jwt.ParseWithClaims(tokenParts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
			// Make sure token method is HMAC
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid || claims.UserID == "" {
			abortWithError(c, http.StatusUnauthorized, "INVALID_CLAIMS", "Invalid token claims")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("user_roles", claims.Roles)
		c.Set("user_permissions", claims.Permissions)

		// Override tenant_id from token if available
		if claims.TenantID != "" {
			c.Set("tenant_id", claims.TenantID)
		}

		c.Next()
	}
}

// RequirePermission rejects callers whose token carries neither the
// permission nor an admin role
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hasPermission(c, permission) {
			c.Next()
			return
		}
		abortWithError(c, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS", fmt.Sprintf("Required permission: %s", permission))
	}
}

func hasPermission(c *gin.Context, permission string) bool {
	if roles, ok := c.Get("user_roles"); ok {
		if userRoles, ok := roles.([]string); ok {
			for _, role := range userRoles {
				if adminRoles[role] {
					return true
				}
			}
		}
	}
	if perms, ok := c.Get("user_permissions"); ok {
		if granted, ok := perms.([]string); ok {
			for _, p := range granted {
				if p == permission {
					return true
				}
			}
		}
	}
	return false
}
