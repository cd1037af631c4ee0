package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ListQuery filters return listings. A nil UserID lists every customer's returns.
type ListQuery struct {
	UserID *uuid.UUID
	Status *enums.ReturnStatus
	Limit  int
	Cursor *pagination.Cursor
}

// Repository persists return requests and reads their sources.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ReturnRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	List(ctx context.Context, query ListQuery) ([]models.ReturnRequest, string, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ReturnStatus, note *string) error
	HasOpen(ctx context.Context, sourceType enums.ReturnSourceType, sourceID uuid.UUID) (bool, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindShipment(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a return request repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.ReturnRequest, string, error) {
	q := r.db.WithContext(ctx).Model(&models.ReturnRequest{})
	if query.UserID != nil {
		q = q.Where("user_id = ?", *query.UserID)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	var rows []models.ReturnRequest
	if err := q.Scopes(pagination.Scope(pagination.Params{Limit: query.Limit}, query.Cursor)).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	page, next := pagination.Trim(rows, query.Limit, func(rr models.ReturnRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rr.CreatedAt, ID: rr.ID}
	})
	return page, next, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ReturnStatus, note *string) error {
	updates := map[string]any{"status": status, "updated_at": time.Now().UTC()}
	if note != nil {
		updates["admin_note"] = *note
	}
	res := r.db.WithContext(ctx).Model(&models.ReturnRequest{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// HasOpen reports whether the source already has a pending, approved or received request.
func (r *repository) HasOpen(ctx context.Context, sourceType enums.ReturnSourceType, sourceID uuid.UUID) (bool, error) {
	column := "order_id"
	if sourceType == enums.ReturnSourceShipment {
		column = "shipment_id"
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReturnRequest{}).
		Where("order_type = ?", sourceType).
		Where(column+" = ?", sourceID).
		Where("status IN ?", enums.OpenReturnStatuses).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindShipment(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).First(&shipment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}
