package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Product is a catalog entry. When Variations exist, Stock is the sum of their stock.
type Product struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Name          string                `gorm:"column:name;not null"`
	Description   *string               `gorm:"column:description"`
	Category      enums.ProductCategory `gorm:"column:category;not null;index"`
	Price         decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPrice *decimal.Decimal      `gorm:"column:discount_price;type:numeric(12,2)"`
	Stock         int                   `gorm:"column:stock;not null;default:0"`
	Images        []string              `gorm:"column:images;type:jsonb;serializer:json"`
	IsActive      bool                  `gorm:"column:is_active;not null"`
	Variations    []ProductVariation    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ProductVariation is one attribute combination of a product with its own stock.
type ProductVariation struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	Attributes    types.Attributes `gorm:"column:attributes;type:jsonb;serializer:json;not null"`
	Stock         int              `gorm:"column:stock;not null;default:0"`
	Price         *decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	DiscountPrice *decimal.Decimal `gorm:"column:discount_price;type:numeric(12,2)"`
	Images        []string         `gorm:"column:images;type:jsonb;serializer:json"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariation) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// ListPrice is the price a customer may not exceed for this product or variation.
func (p *Product) ListPrice(variation *ProductVariation) decimal.Decimal {
	if variation != nil && variation.Price != nil {
		return *variation.Price
	}
	return p.Price
}

// FindVariation returns the first variation whose attributes satisfy the selection.
func (p *Product) FindVariation(selection types.Attributes) *ProductVariation {
	for i := range p.Variations {
		if p.Variations[i].Attributes.Matches(selection) {
			return &p.Variations[i]
		}
	}
	return nil
}

// HasVariations reports whether stock is tracked per variation.
func (p *Product) HasVariations() bool {
	return len(p.Variations) > 0
}

// PrimaryImage returns the first image, preferring the variation's own.
func (p *Product) PrimaryImage(variation *ProductVariation) *string {
	if variation != nil && len(variation.Images) > 0 {
		img := variation.Images[0]
		return &img
	}
	if len(p.Images) > 0 {
		img := p.Images[0]
		return &img
	}
	return nil
}
