package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TenantMiddleware resolves the tenant for the request
// SECURITY: No default tenant fallback - requests without tenant context are rejected
// NOTE: A tenant set by IstioAuth or AuthMiddleware takes precedence over headers
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetString("tenant_id")

		// Legacy header, then the platform's vendor header
		if tenantID == "" {
			tenantID = c.GetHeader("X-Tenant-ID")
		}
		if tenantID == "" {
			tenantID = c.GetHeader("X-Vendor-ID")
		}

		if tenantID == "" {
			abortWithError(c, http.StatusUnauthorized, "TENANT_REQUIRED", "Tenant/Vendor ID is required. Include X-Vendor-ID or X-Tenant-ID header.")
			return
		}

		c.Set("tenant_id", tenantID)
		c.Next()
	}
}

// GetTenantID retrieves the tenant ID from gin context
func GetTenantID(c *gin.Context) string {
	return c.GetString("tenant_id")
}

// GetUserID retrieves the caller's user ID from gin context
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}
