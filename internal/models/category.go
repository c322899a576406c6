package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryStatusEnum represents the possible states of a category
type CategoryStatusEnum string

const (
	StatusDraft    CategoryStatusEnum = "DRAFT"
	StatusActive   CategoryStatusEnum = "ACTIVE"
	StatusInactive CategoryStatusEnum = "INACTIVE"
)

// JSON type for PostgreSQL JSONB
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Category represents a product category
type Category struct {
	ID          uuid.UUID          `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    string             `json:"tenantId" gorm:"not null;index;uniqueIndex:idx_tenant_slug"`
	CreatedByID string             `json:"createdById" gorm:"not null"`
	UpdatedByID string             `json:"updatedById" gorm:"not null"`
	Name        string             `json:"name" gorm:"not null"`
	Slug        string             `json:"slug" gorm:"not null;uniqueIndex:idx_tenant_slug"`
	Description *string            `json:"description,omitempty"`
	ImageURL    *string            `json:"imageUrl,omitempty"`
	SortOrder   int                `json:"sortOrder" gorm:"not null;default:0"`
	IsActive    bool               `json:"isActive" gorm:"not null"`
	Status      CategoryStatusEnum `json:"status" gorm:"not null;default:'DRAFT'"`
	Metadata    *JSON              `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	DeletedAt   *gorm.DeletedAt    `json:"deletedAt,omitempty" gorm:"index"`

	Products []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Error represents error details
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details *JSON  `json:"details,omitempty"`
}

// TableName returns the table name for the Category model
func (Category) TableName() string {
	return "categories"
}
