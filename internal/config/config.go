package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"catalog-import-service/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Tesseract-Nexus/go-shared/secrets"
)

// Authentication modes
const (
	AuthModeIstio = "istio"
	AuthModeJWT   = "jwt"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Server
	Port        string
	Environment string
	CORSOrigins []string

	// Auth
	AuthMode  string
	JWTSecret string

	// Services
	RedisURL        string
	NATSURL         string
	StaffServiceURL string

	// Import
	MaxCategories      int
	ProductConcurrency int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: secrets.GetDBPassword(),
		DBName:     getEnv("DB_NAME", "categories_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Server
		Port:        getEnv("PORT", "8083"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		// Auth
		AuthMode:  strings.ToLower(getEnv("AUTH_MODE", AuthModeIstio)),
		JWTSecret: secrets.GetJWTSecret(),

		// Services
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		NATSURL:         os.Getenv("NATS_URL"),
		StaffServiceURL: getEnv("STAFF_SERVICE_URL", "http://staff-service:8080"),

		// Import
		MaxCategories:      getEnvInt("IMPORT_MAX_CATEGORIES", 100),
		ProductConcurrency: getEnvInt("IMPORT_PRODUCT_CONCURRENCY", 4),
	}
}

// DSN returns the postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run auto-migration to ensure schema is up to date
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}, &models.ProductVariant{}, &models.ProductImage{}); err != nil {
		log.Printf("Warning: Auto-migration failed: %v", err)
		// Don't fail startup, just log the warning
	} else {
		log.Println("✓ Database schema migration completed")
	}

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt falls back to the default for missing, malformed or
// non-positive values
func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
