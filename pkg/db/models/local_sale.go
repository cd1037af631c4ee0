package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type LocalSaleItem struct {
	ProductID         uuid.UUID        `json:"product_id"`
	VariationID       *uuid.UUID       `json:"variation_id,omitempty"`
	Name              string           `json:"name"`
	Quantity          int              `json:"quantity"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	LineTotal         decimal.Decimal  `json:"line_total"`
	SelectedVariation types.Attributes `json:"selected_variation,omitempty"`
}

// LocalSale is a point-of-sale invoice.
type LocalSale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceNumber string              `gorm:"column:invoice_number;not null;uniqueIndex"`
	CustomerName  string              `gorm:"column:customer_name;not null"`
	CustomerPhone *string             `gorm:"column:customer_phone"`
	CustomerEmail *string             `gorm:"column:customer_email"`
	Items         []LocalSaleItem     `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxRate       decimal.Decimal     `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	Tax           decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	Discount      decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	AmountPaid    *decimal.Decimal    `gorm:"column:amount_paid;type:numeric(12,2)"`
	ChangeDue     *decimal.Decimal    `gorm:"column:change_due;type:numeric(12,2)"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	QRCode        *string             `gorm:"column:qr_code"`
	Notes         *string             `gorm:"column:notes"`
	CreatedBy     uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *LocalSale) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
