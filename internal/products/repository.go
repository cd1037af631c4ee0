package product

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ListQuery filters the catalog listing.
type ListQuery struct {
	Category        *enums.ProductCategory
	Search          string
	IncludeInactive bool
	Limit           int
	Cursor          *pagination.Cursor
}

// Repository wires together all product-related persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads the product with its variations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads products keyed by id. Missing ids are simply absent from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// List returns one page of products, newest first, plus the cursor of the next page.
func (r *Repository) List(ctx context.Context, query ListQuery) ([]models.Product, string, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if !query.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if query.Category != nil {
		q = q.Where("category = ?", *query.Category)
	}
	if term := strings.TrimSpace(query.Search); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}

	var rows []models.Product
	err := q.Scopes(pagination.Scope(pagination.Params{Limit: query.Limit}, query.Cursor)).
		Preload("Variations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}
	page, next := pagination.Trim(rows, query.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return page, next, nil
}

// Create inserts the product together with its variations.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update persists scalar product columns. Variations are managed by ReplaceVariations.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(product).
		Select("name", "description", "category", "price", "discount_price", "images", "is_active", "updated_at").
		Updates(product).Error
}

// ReplaceVariations swaps the variation set of a product.
func (r *Repository) ReplaceVariations(ctx context.Context, productID uuid.UUID, variations []models.ProductVariation) error {
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.ProductVariation{}).Error; err != nil {
		return err
	}
	if len(variations) == 0 {
		return nil
	}
	for i := range variations {
		variations[i].ProductID = productID
	}
	return r.db.WithContext(ctx).Create(&variations).Error
}

// Delete removes the product with its variations and any cart lines pointing at it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Where("product_id = ?", id).Delete(&models.ProductVariation{}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock takes qty from the aggregate when enough is available.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
UPDATE products
SET stock = stock - @q,
    updated_at = @now
WHERE id = @pid
  AND stock >= @q
`, map[string]any{"pid": productID, "q": qty, "now": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

// IncrementStock returns qty to the aggregate.
func (r *Repository) IncrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
UPDATE products
SET stock = stock + @q,
    updated_at = @now
WHERE id = @pid
`, map[string]any{"pid": productID, "q": qty, "now": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

// DecrementVariationStock takes qty from one variation when enough is available.
func (r *Repository) DecrementVariationStock(ctx context.Context, variationID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
UPDATE product_variations
SET stock = stock - @q,
    updated_at = @now
WHERE id = @vid
  AND stock >= @q
`, map[string]any{"vid": variationID, "q": qty, "now": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

// IncrementVariationStock returns qty to one variation.
func (r *Repository) IncrementVariationStock(ctx context.Context, variationID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
UPDATE product_variations
SET stock = stock + @q,
    updated_at = @now
WHERE id = @vid
`, map[string]any{"vid": variationID, "q": qty, "now": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

// SetStock overwrites the aggregate of a product without variations.
func (r *Repository) SetStock(ctx context.Context, productID uuid.UUID, stock int) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{"stock": stock, "updated_at": time.Now().UTC()}).Error
}

// SetVariationStock overwrites one variation's stock.
func (r *Repository) SetVariationStock(ctx context.Context, variationID uuid.UUID, stock int) error {
	return r.db.WithContext(ctx).Model(&models.ProductVariation{}).
		Where("id = ?", variationID).
		Updates(map[string]any{"stock": stock, "updated_at": time.Now().UTC()}).Error
}

// RecomputeAggregate sets products.stock to the sum of its variation stock and returns the new value.
func (r *Repository) RecomputeAggregate(ctx context.Context, productID uuid.UUID) (int, error) {
	err := r.db.WithContext(ctx).Exec(`
UPDATE products
SET stock = (SELECT COALESCE(SUM(stock), 0) FROM product_variations WHERE product_id = @pid),
    updated_at = @now
WHERE id = @pid
`, map[string]any{"pid": productID, "now": time.Now().UTC()}).Error
	if err != nil {
		return 0, err
	}
	return r.CurrentStock(ctx, productID)
}

// CurrentStock reads the aggregate stock.
func (r *Repository) CurrentStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var stock int
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("stock").
		Where("id = ?", productID).
		Scan(&stock).Error
	return stock, err
}

// CurrentVariationStock reads one variation's stock.
func (r *Repository) CurrentVariationStock(ctx context.Context, variationID uuid.UUID) (int, error) {
	var stock int
	err := r.db.WithContext(ctx).Model(&models.ProductVariation{}).
		Select("stock").
		Where("id = ?", variationID).
		Scan(&stock).Error
	return stock, err
}
