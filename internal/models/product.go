package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusDraft  ProductStatus = "DRAFT"
	ProductStatusActive ProductStatus = "ACTIVE"
)

// Product represents a product entity
type Product struct {
	ID              uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID        string            `json:"tenantId" gorm:"not null;index:idx_products_tenant_id;index:idx_products_tenant_sku,unique"`
	CategoryID      uuid.UUID         `json:"categoryId" gorm:"type:uuid;not null;index"`
	CreatedByID     *string           `json:"createdById,omitempty"`
	Name            string            `json:"name" gorm:"not null"`
	SKU             string            `json:"sku" gorm:"not null;index:idx_products_tenant_sku,unique"`
	Barcode         *string           `json:"barcode,omitempty"`
	Description     *string           `json:"description,omitempty"`
	Price           string            `json:"price" gorm:"not null"`
	CostPrice       *string           `json:"costPrice,omitempty"`
	ComparePrice    *string           `json:"comparePrice,omitempty"`
	SalePrice       *string           `json:"salePrice,omitempty"`
	SaleEndDate     *time.Time        `json:"saleEndDate,omitempty"`
	IsFeatured      bool              `json:"isFeatured" gorm:"default:false"`
	IsOnSale        bool              `json:"isOnSale" gorm:"default:false"`
	Weight          *string           `json:"weight,omitempty"`
	Dimensions      datatypes.JSON    `json:"dimensions,omitempty" gorm:"type:jsonb"`
	Tags            datatypes.JSON    `json:"tags,omitempty" gorm:"type:jsonb"`
	MetaTitle       *string           `json:"metaTitle,omitempty"`
	MetaDescription *string           `json:"metaDescription,omitempty"`
	Status          ProductStatus     `json:"status" gorm:"not null;default:'DRAFT'"`
	Variants        []*ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Images          []*ProductImage   `json:"images,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	DeletedAt       *gorm.DeletedAt   `json:"deletedAt,omitempty" gorm:"index"`
}

// ProductVariant represents a product variant
type ProductVariant struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  string    `json:"tenantId" gorm:"not null;index"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	SKU       string    `json:"sku" gorm:"not null;index"`
	Size      *string   `json:"size,omitempty"`
	Color     *string   `json:"color,omitempty"`
	ColorCode *string   `json:"colorCode,omitempty"`
	Stock     int       `json:"stock" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductImage represents a product image
type ProductImage struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  string    `json:"tenantId" gorm:"not null;index"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	URL       string    `json:"url" gorm:"not null"`
	Alt       *string   `json:"alt,omitempty"`
	Color     *string   `json:"color,omitempty"`
	SortOrder int       `json:"sortOrder" gorm:"not null;default:0"`
	IsPrimary bool      `json:"isPrimary" gorm:"default:false"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the ProductVariant model
func (ProductVariant) TableName() string {
	return "product_variants"
}

// TableName returns the table name for the ProductImage model
func (ProductImage) TableName() string {
	return "product_images"
}
