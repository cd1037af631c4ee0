package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once an order and its stock deductions are committed.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	CustomerEmail string              `json:"customer_email"`
	CustomerName  string              `json:"customer_name"`
	ItemCount     int                 `json:"item_count"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
}

// OrderStatusChangedEvent covers accept, decline and the inert approve/deny.
// ShipmentID is set when the order was accepted and migrated.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	UserID         uuid.UUID         `json:"user_id"`
	CustomerEmail  string            `json:"customer_email"`
	CustomerName   string            `json:"customer_name"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
	ShipmentID     *uuid.UUID        `json:"shipment_id,omitempty"`
}

// OrderDeletedEvent records an administrative delete and whether stock was returned.
type OrderDeletedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	StockRestored bool      `json:"stock_restored"`
}

// ShipmentStatusChangedEvent follows a shipment through shipped and delivered.
type ShipmentStatusChangedEvent struct {
	ShipmentID     uuid.UUID            `json:"shipment_id"`
	OrderNumber    string               `json:"order_number"`
	UserID         uuid.UUID            `json:"user_id"`
	CustomerEmail  string               `json:"customer_email"`
	CustomerName   string               `json:"customer_name"`
	PreviousStatus enums.ShipmentStatus `json:"previous_status"`
	Status         enums.ShipmentStatus `json:"status"`
}

// ReturnRequestedEvent is emitted when a customer opens a return.
type ReturnRequestedEvent struct {
	ReturnID    uuid.UUID              `json:"return_id"`
	SourceType  enums.ReturnSourceType `json:"order_type"`
	SourceID    uuid.UUID              `json:"source_id"`
	OrderNumber string                 `json:"order_number"`
	UserID      uuid.UUID              `json:"user_id"`
	Reason      enums.ReturnReason     `json:"reason"`
	RefundTotal decimal.Decimal        `json:"refund_total"`
}

// ReturnStatusChangedEvent follows a return through review and refund.
type ReturnStatusChangedEvent struct {
	ReturnID       uuid.UUID          `json:"return_id"`
	OrderNumber    string             `json:"order_number"`
	UserID         uuid.UUID          `json:"user_id"`
	PreviousStatus enums.ReturnStatus `json:"previous_status"`
	Status         enums.ReturnStatus `json:"status"`
	RefundTotal    decimal.Decimal    `json:"refund_total"`
}

// StockLowEvent mirrors the low stock email as a durable admin notification.
type StockLowEvent struct {
	ProductID   uuid.UUID  `json:"product_id"`
	ProductName string     `json:"product_name"`
	VariationID *uuid.UUID `json:"variation_id,omitempty"`
	Variation   string     `json:"variation,omitempty"`
	Remaining   int        `json:"remaining"`
	Threshold   int        `json:"threshold"`
}

// LocalSaleCreatedEvent is emitted for every point-of-sale invoice.
type LocalSaleCreatedEvent struct {
	SaleID        uuid.UUID           `json:"sale_id"`
	InvoiceNumber string              `json:"invoice_number"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	CreatedBy     uuid.UUID           `json:"created_by"`
}
