package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID            uuid.UUID             `json:"id"`
	Name          string                `json:"name"`
	Description   *string               `json:"description,omitempty"`
	Category      enums.ProductCategory `json:"category"`
	Price         decimal.Decimal       `json:"price"`
	DiscountPrice *decimal.Decimal      `json:"discount_price,omitempty"`
	Stock         int                   `json:"stock"`
	Images        []string              `json:"images"`
	IsActive      bool                  `json:"is_active"`
	Variations    []VariationDTO        `json:"variations"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// VariationDTO exposes one variation; attributes serialize as a plain JSON object.
type VariationDTO struct {
	ID            uuid.UUID        `json:"id"`
	Attributes    types.Attributes `json:"attributes"`
	Stock         int              `json:"stock"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	Images        []string         `json:"images"`
}

// ProductListResult is one page of the catalog.
type ProductListResult = types.Page[ProductDTO]

// VariationInput describes a variation on create or replace.
type VariationInput struct {
	Attributes    types.Attributes `json:"attributes" validate:"required,min=1"`
	Stock         int              `json:"stock" validate:"gte=0"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	Images        []string         `json:"images,omitempty" validate:"omitempty,dive,url"`
}

// CreateProductInput is the admin create payload. Stock is ignored when variations are present.
type CreateProductInput struct {
	Name          string                `json:"name" validate:"required,notblank,max=200"`
	Description   *string               `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category      enums.ProductCategory `json:"category" validate:"required"`
	Price         decimal.Decimal       `json:"price"`
	DiscountPrice *decimal.Decimal      `json:"discount_price,omitempty"`
	Stock         int                   `json:"stock" validate:"gte=0"`
	Images        []string              `json:"images,omitempty" validate:"omitempty,dive,url"`
	IsActive      *bool                 `json:"is_active,omitempty"`
	Variations    []VariationInput      `json:"variations,omitempty" validate:"omitempty,dive"`
}

// UpdateProductInput carries optional changes. A non-nil Variations replaces the whole set.
type UpdateProductInput struct {
	Name          *string                `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description   *string                `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category      *enums.ProductCategory `json:"category,omitempty"`
	Price         *decimal.Decimal       `json:"price,omitempty"`
	DiscountPrice *decimal.Decimal       `json:"discount_price,omitempty"`
	ClearDiscount bool                   `json:"clear_discount,omitempty"`
	Images        *[]string              `json:"images,omitempty"`
	IsActive      *bool                  `json:"is_active,omitempty"`
	Variations    *[]VariationInput      `json:"variations,omitempty"`
}

// SetStockInput overwrites a stock figure. VariationID is required for products with variations.
type SetStockInput struct {
	VariationID *uuid.UUID `json:"variation_id,omitempty"`
	Stock       int        `json:"stock" validate:"gte=0"`
}

// ListProductsInput captures catalog browse filters.
type ListProductsInput struct {
	Category        *enums.ProductCategory
	Search          string
	IncludeInactive bool
	Limit           int
	Cursor          string
}

// NewProductDTO maps the persisted product.
func NewProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:            product.ID,
		Name:          product.Name,
		Description:   product.Description,
		Category:      product.Category,
		Price:         product.Price,
		DiscountPrice: product.DiscountPrice,
		Stock:         product.Stock,
		Images:        append([]string{}, product.Images...),
		IsActive:      product.IsActive,
		Variations:    make([]VariationDTO, 0, len(product.Variations)),
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}
	for _, v := range product.Variations {
		attrs := v.Attributes.Clone()
		if attrs == nil {
			attrs = types.Attributes{}
		}
		dto.Variations = append(dto.Variations, VariationDTO{
			ID:            v.ID,
			Attributes:    attrs,
			Stock:         v.Stock,
			Price:         v.Price,
			DiscountPrice: v.DiscountPrice,
			Images:        append([]string{}, v.Images...),
		})
	}
	return dto
}
