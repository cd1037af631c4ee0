package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Shipment is the fulfilment record created when an order is accepted. The order row is gone by then.
type Shipment struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	OrderNumber     string               `gorm:"column:order_number;not null;uniqueIndex"`
	UserID          uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	CustomerName    string               `gorm:"column:customer_name;not null"`
	CustomerEmail   string               `gorm:"column:customer_email;not null"`
	CustomerPhone   *string              `gorm:"column:customer_phone"`
	ShippingAddress types.Address        `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	PaymentMethod   enums.PaymentMethod  `gorm:"column:payment_method;not null"`
	PaymentStatus   enums.PaymentStatus  `gorm:"column:payment_status;not null"`
	TotalPrice      decimal.Decimal      `gorm:"column:total_price;type:numeric(12,2);not null"`
	Items           []OrderItem          `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Status          enums.ShipmentStatus `gorm:"column:status;not null;default:accepted;index"`
	OrderedAt       time.Time            `gorm:"column:ordered_at;not null"`
	AcceptedAt      time.Time            `gorm:"column:accepted_at;not null"`
	ShippedAt       *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time           `gorm:"column:delivered_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Shipment) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
