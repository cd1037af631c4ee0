package localsales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ListQuery filters local sales by creation time.
type ListQuery struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Cursor *pagination.Cursor
}

// Repository persists local sales.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.LocalSale) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LocalSale, error)
	List(ctx context.Context, query ListQuery) ([]models.LocalSale, string, error)
	ListRange(ctx context.Context, from, to time.Time) ([]models.LocalSale, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a local sale repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sale *models.LocalSale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LocalSale, error) {
	var sale models.LocalSale
	if err := r.db.WithContext(ctx).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.LocalSale, string, error) {
	q := r.db.WithContext(ctx).Model(&models.LocalSale{})
	if query.From != nil {
		q = q.Where("created_at >= ?", *query.From)
	}
	if query.To != nil {
		q = q.Where("created_at < ?", *query.To)
	}
	var rows []models.LocalSale
	if err := q.Scopes(pagination.Scope(pagination.Params{Limit: query.Limit}, query.Cursor)).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	page, next := pagination.Trim(rows, query.Limit, func(s models.LocalSale) pagination.Cursor {
		return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
	})
	return page, next, nil
}

// ListRange returns every sale in [from, to) oldest first.
func (r *repository) ListRange(ctx context.Context, from, to time.Time) ([]models.LocalSale, error) {
	var rows []models.LocalSale
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.LocalSale{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
