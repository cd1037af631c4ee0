package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes catalog management.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID, includeInactive bool) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	SetStock(ctx context.Context, productID uuid.UUID, input SetStockInput) (*ProductDTO, error)
}

// service implements the catalog service.
type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// CreateProduct stores the product; with variations the aggregate stock is their sum.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", input.Category))
	}
	if err := validatePricing(input.Price, input.DiscountPrice); err != nil {
		return nil, err
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	variations, err := buildVariations(input.Variations)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:          name,
		Description:   trimmedPtr(input.Description),
		Category:      input.Category,
		Price:         input.Price,
		DiscountPrice: input.DiscountPrice,
		Stock:         input.Stock,
		Images:        append([]string{}, input.Images...),
		IsActive:      input.IsActive == nil || *input.IsActive,
		Variations:    variations,
	}
	if len(variations) > 0 {
		product.Stock = sumStock(variations)
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return NewProductDTO(product), nil
}

// UpdateProduct applies the provided fields; replacing variations recomputes the aggregate.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := loadProduct(ctx, repo, productID)
		if err != nil {
			return err
		}
		if err := applyUpdateToProduct(product, input); err != nil {
			return err
		}
		if err := repo.Update(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		if input.Variations != nil {
			variations, err := buildVariations(*input.Variations)
			if err != nil {
				return err
			}
			if err := repo.ReplaceVariations(ctx, product.ID, variations); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace variations")
			}
			if len(variations) > 0 {
				if _, err := repo.RecomputeAggregate(ctx, product.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute product stock")
				}
			}
		}
		updated, err = loadProduct(ctx, repo, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return NewProductDTO(updated), nil
}

func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, productID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
		}
		return nil
	})
}

// GetProduct returns a product; inactive ones are hidden unless includeInactive is set.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID, includeInactive bool) (*ProductDTO, error) {
	product, err := loadProduct(ctx, s.repo, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive && !includeInactive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return NewProductDTO(product), nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if input.Category != nil && !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", *input.Category))
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, ListQuery{
		Category:        input.Category,
		Search:          input.Search,
		IncludeInactive: input.IncludeInactive,
		Limit:           input.Limit,
		Cursor:          cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	result := &ProductListResult{Items: make([]ProductDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		result.Items = append(result.Items, *NewProductDTO(&rows[i]))
	}
	return result, nil
}

// SetStock overwrites the aggregate, or one variation followed by the aggregate recomputation.
func (s *service) SetStock(ctx context.Context, productID uuid.UUID, input SetStockInput) (*ProductDTO, error) {
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := loadProduct(ctx, repo, productID)
		if err != nil {
			return err
		}
		switch {
		case product.HasVariations() && input.VariationID == nil:
			return pkgerrors.New(pkgerrors.CodeValidation, "variation_id is required for products with variations")
		case !product.HasVariations() && input.VariationID != nil:
			return pkgerrors.New(pkgerrors.CodeVariationNotFound, "product has no variations")
		case input.VariationID != nil:
			if !hasVariation(product, *input.VariationID) {
				return pkgerrors.New(pkgerrors.CodeVariationNotFound, "variation not found")
			}
			if err := repo.SetVariationStock(ctx, *input.VariationID, input.Stock); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set variation stock")
			}
			if _, err := repo.RecomputeAggregate(ctx, product.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute product stock")
			}
		default:
			if err := repo.SetStock(ctx, product.ID, input.Stock); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set product stock")
			}
		}
		updated, err = loadProduct(ctx, repo, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return NewProductDTO(updated), nil
}

func loadProduct(ctx context.Context, repo *Repository, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = trimmedPtr(input.Description)
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", *input.Category))
		}
		product.Category = *input.Category
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.ClearDiscount {
		product.DiscountPrice = nil
	} else if input.DiscountPrice != nil {
		discount := *input.DiscountPrice
		product.DiscountPrice = &discount
	}
	if input.Images != nil {
		product.Images = append([]string{}, (*input.Images)...)
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	return validatePricing(product.Price, product.DiscountPrice)
}

func buildVariations(inputs []VariationInput) ([]models.ProductVariation, error) {
	out := make([]models.ProductVariation, 0, len(inputs))
	for i, in := range inputs {
		attrs := in.Attributes.Normalize()
		if len(attrs) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variations[%d] needs at least one attribute", i))
		}
		if in.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variations[%d] stock must be non-negative", i))
		}
		if in.Price != nil {
			if err := validatePricing(*in.Price, in.DiscountPrice); err != nil {
				return nil, err
			}
		}
		for j := range out {
			if out[j].Attributes.Equal(attrs) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate variation %s", attrs.String()))
			}
		}
		out = append(out, models.ProductVariation{
			Attributes:    attrs,
			Stock:         in.Stock,
			Price:         in.Price,
			DiscountPrice: in.DiscountPrice,
			Images:        append([]string{}, in.Images...),
		})
	}
	return out, nil
}

func validatePricing(price decimal.Decimal, discount *decimal.Decimal) error {
	if !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	if discount != nil && (discount.IsNegative() || discount.GreaterThanOrEqual(price)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_price must be below price")
	}
	return nil
}

func sumStock(variations []models.ProductVariation) int {
	total := 0
	for _, v := range variations {
		total += v.Stock
	}
	return total
}

func hasVariation(product *models.Product, id uuid.UUID) bool {
	for _, v := range product.Variations {
		if v.ID == id {
			return true
		}
	}
	return false
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
