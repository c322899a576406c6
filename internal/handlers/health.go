package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const serviceName = "catalog-import-service"

var db *gorm.DB

// SetDB sets the database connection for readiness checks
func SetDB(database *gorm.DB) {
	db = database
}

// HealthCheck provides a health check endpoint
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} gin.H
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC(),
	})
}

// ReadinessCheck reports ready once the database answers a ping
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} gin.H
// @Failure 503 {object} gin.H
// @Router /ready [get]
func ReadinessCheck(c *gin.Context) {
	if db != nil {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"service":   serviceName,
				"timestamp": time.Now().UTC(),
				"error":     "database connection failed",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"service":   serviceName,
		"timestamp": time.Now().UTC(),
		"checks": gin.H{
			"database": "connected",
		},
	})
}
