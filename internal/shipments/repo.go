package shipments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ListQuery filters shipment listings. A nil UserID lists all shipments.
type ListQuery struct {
	UserID *uuid.UUID
	Status *enums.ShipmentStatus
	Limit  int
	Cursor *pagination.Cursor
}

// Repository persists shipment records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	List(ctx context.Context, query ListQuery) ([]models.Shipment, string, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ShipmentStatus, stamps map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a shipment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).First(&shipment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Shipment, string, error) {
	q := r.db.WithContext(ctx).Model(&models.Shipment{})
	if query.UserID != nil {
		q = q.Where("user_id = ?", *query.UserID)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	var rows []models.Shipment
	if err := q.Scopes(pagination.Scope(pagination.Params{Limit: query.Limit}, query.Cursor)).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	page, next := pagination.Trim(rows, query.Limit, func(s models.Shipment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
	})
	return page, next, nil
}

// UpdateStatus sets the status together with the timestamp columns in stamps.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ShipmentStatus, stamps map[string]any) error {
	updates := map[string]any{"status": status, "updated_at": time.Now().UTC()}
	for k, v := range stamps {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.Shipment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
