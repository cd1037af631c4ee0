package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ReturnItem is one returned line; ItemIndex points into the source's item list.
type ReturnItem struct {
	ItemIndex         int              `json:"item_index"`
	ProductID         uuid.UUID        `json:"product_id"`
	Name              string           `json:"name"`
	Quantity          int              `json:"quantity"`
	Price             decimal.Decimal  `json:"price"`
	SelectedVariation types.Attributes `json:"selected_variation,omitempty"`
}

// ReturnRequest points at either an order or a shipment, never both.
type ReturnRequest struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	SourceType  enums.ReturnSourceType `gorm:"column:order_type;not null"`
	OrderID     *uuid.UUID             `gorm:"column:order_id;type:uuid;index"`
	ShipmentID  *uuid.UUID             `gorm:"column:shipment_id;type:uuid;index"`
	UserID      uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	OrderNumber string                 `gorm:"column:order_number;not null"`
	Items       []ReturnItem           `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Reason      enums.ReturnReason     `gorm:"column:reason;not null"`
	Description *string                `gorm:"column:description"`
	Status      enums.ReturnStatus     `gorm:"column:status;not null;default:pending;index"`
	RefundTotal decimal.Decimal        `gorm:"column:refund_total;type:numeric(12,2);not null"`
	AdminNote   *string                `gorm:"column:admin_note"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ReturnRequest) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// SourceID returns whichever source reference is set.
func (r *ReturnRequest) SourceID() uuid.UUID {
	if r.SourceType == enums.ReturnSourceShipment && r.ShipmentID != nil {
		return *r.ShipmentID
	}
	if r.OrderID != nil {
		return *r.OrderID
	}
	return uuid.Nil
}
