package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ItemInput is one requested order line. Price is the client's price and is clamped to the list price.
type ItemInput struct {
	ProductID         uuid.UUID        `json:"product_id"`
	Quantity          int              `json:"quantity"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	SelectedVariation types.Attributes `json:"selected_variation,omitempty"`
}

// CreateOrderInput places an order. Without items the customer's cart is used.
type CreateOrderInput struct {
	Items           []ItemInput         `json:"items" validate:"omitempty,max=100"`
	ShippingAddress *types.Address      `json:"shipping_address" validate:"required"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method" validate:"required"`
	Notes           *string             `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// UpdateStatusInput carries an admin status change.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	Status      string
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// UpdatePaymentInput carries an admin payment status change.
type UpdatePaymentInput struct {
	OrderID       uuid.UUID
	PaymentStatus string
	ActorUserID   uuid.UUID
	ActorRole     enums.UserRole
}

// StatusRequest is the request body of both status endpoints.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PaymentRequest is the request body of the payment endpoint.
type PaymentRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

// ListOrdersInput holds the query string of order listings.
type ListOrdersInput struct {
	UserID *uuid.UUID
	Status string
	Limit  int
	Cursor string
}

// Viewer identifies who reads an order; customers only see their own.
type Viewer struct {
	UserID uuid.UUID
	Admin  bool
}

// OrderItemDTO is one priced order line.
type OrderItemDTO struct {
	ProductID         uuid.UUID        `json:"product_id"`
	VariationID       *uuid.UUID       `json:"variation_id,omitempty"`
	Name              string           `json:"name"`
	Image             *string          `json:"image,omitempty"`
	Quantity          int              `json:"quantity"`
	Price             decimal.Decimal  `json:"price"`
	LineTotal         decimal.Decimal  `json:"line_total"`
	SelectedVariation types.Attributes `json:"selected_variation,omitempty"`
}

// OrderDTO is the API representation of an order.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          uuid.UUID           `json:"user_id"`
	Items           []OrderItemDTO      `json:"items"`
	ShippingAddress *types.Address      `json:"shipping_address,omitempty"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	TotalPrice      decimal.Decimal     `json:"total_price"`
	Status          enums.OrderStatus   `json:"status"`
	Notes           *string             `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// OrderList is one page of orders.
type OrderList = types.Page[OrderDTO]

// StatusUpdateResult reports the outcome of a status change. An accepted order no longer exists,
// so only ShipmentID is set in that case.
type StatusUpdateResult struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	Order       *OrderDTO         `json:"order,omitempty"`
	ShipmentID  *uuid.UUID        `json:"shipment_id,omitempty"`
}

// NewOrderDTO maps the model to its API shape.
func NewOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		Items:           make([]OrderItemDTO, 0, len(order.Items)),
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		PaymentStatus:   order.PaymentStatus,
		TotalPrice:      order.TotalPrice,
		Status:          order.Status,
		Notes:           order.Notes,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, newOrderItemDTO(item))
	}
	return dto
}

func newOrderItemDTO(item models.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		ProductID:         item.ProductID,
		VariationID:       item.VariationID,
		Name:              item.Name,
		Image:             item.Image,
		Quantity:          item.Quantity,
		Price:             item.Price,
		LineTotal:         item.LineTotal(),
		SelectedVariation: item.SelectedVariation,
	}
}
