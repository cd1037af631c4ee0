package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Repository defines persistence operations for orders and the shipment rows they migrate into.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, query ListQuery) ([]models.Order, string, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindShipmentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error)
	CreateShipment(ctx context.Context, shipment *models.Shipment) error
	DeleteShipmentByOrderID(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// ListQuery filters order listings. A nil UserID lists every customer's orders.
type ListQuery struct {
	UserID *uuid.UUID
	Status *enums.OrderStatus
	Limit  int
	Cursor *pagination.Cursor
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StockLedger is the subset of the product ledger orders rely on.
type StockLedger interface {
	CheckAvailability(ctx context.Context, productID uuid.UUID, qty int, selector types.Attributes) error
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, selector types.Attributes) error
	ReleaseVariation(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variationID *uuid.UUID, qty int, selector types.Attributes) error
}

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// CartSource supplies the fallback items of an order and is emptied once the order exists.
type CartSource interface {
	Items(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}
