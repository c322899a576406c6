package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func setupRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tenant": GetTenantID(c),
			"user":   GetUserID(c),
		})
	})
	router.GET("/health", handlers...)
	router.GET("/api/v1/categories/import/template", handlers...)
	return router
}

func TestAuthMiddleware(t *testing.T) {
	valid := signToken(t, Claims{UserID: "user-1", TenantID: "tenant-1"}, testSecret)
	expired := signToken(t, Claims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}, testSecret)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"skipped path", "/health", "", http.StatusOK, `"user":""`},
		{"missing header", "/api/v1/categories/import/template", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"not bearer", "/api/v1/categories/import/template", "Basic abc", http.StatusUnauthorized, "INVALID_TOKEN_FORMAT"},
		{"wrong secret", "/api/v1/categories/import/template", "Bearer " + signToken(t, Claims{UserID: "u"}, "other"), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"expired", "/api/v1/categories/import/template", "Bearer " + expired, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"no user", "/api/v1/categories/import/template", "Bearer " + signToken(t, Claims{TenantID: "t"}, testSecret), http.StatusUnauthorized, "INVALID_CLAIMS"},
		{"valid", "/api/v1/categories/import/template", "Bearer " + valid, http.StatusOK, `"tenant":"tenant-1"`},
	}

	router := setupRouter(AuthMiddleware(testSecret, "/health"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name       string
		claims     Claims
		wantStatus int
	}{
		{"granted", Claims{UserID: "u", Permissions: []string{PermissionCatalogImport}}, http.StatusOK},
		{"admin role", Claims{UserID: "u", Roles: []string{"admin"}}, http.StatusOK},
		{"other permission", Claims{UserID: "u", Permissions: []string{PermissionCatalogRead}}, http.StatusForbidden},
		{"nothing", Claims{UserID: "u"}, http.StatusForbidden},
	}

	router := setupRouter(AuthMiddleware(testSecret), RequirePermission(PermissionCatalogImport))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/categories/import/template", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, tt.claims, testSecret))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestTenantMiddleware(t *testing.T) {
	router := setupRouter(TenantMiddleware())

	t.Run("vendor header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Vendor-ID", "vendor-9")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"tenant":"vendor-9"`)
	})

	t.Run("missing tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TENANT_REQUIRED")
	})

	t.Run("token tenant wins", func(t *testing.T) {
		router := setupRouter(AuthMiddleware(testSecret), TenantMiddleware())
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, Claims{UserID: "u", TenantID: "from-token"}, testSecret))
		req.Header.Set("X-Tenant-ID", "from-header")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Contains(t, w.Body.String(), `"tenant":"from-token"`)
	})
}
