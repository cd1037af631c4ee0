package shipments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// UpdateStatusInput carries an admin shipment status change.
type UpdateStatusInput struct {
	ShipmentID  uuid.UUID
	Status      string
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// ListShipmentsInput holds the query string of shipment listings.
type ListShipmentsInput struct {
	UserID *uuid.UUID
	Status string
	Limit  int
	Cursor string
}

// Viewer identifies who reads a shipment.
type Viewer struct {
	UserID uuid.UUID
	Admin  bool
}

// ShipmentItemDTO is one shipped line.
type ShipmentItemDTO struct {
	ProductID         uuid.UUID        `json:"product_id"`
	Name              string           `json:"name"`
	Image             *string          `json:"image,omitempty"`
	Quantity          int              `json:"quantity"`
	Price             decimal.Decimal  `json:"price"`
	SelectedVariation types.Attributes `json:"selected_variation,omitempty"`
}

// ShipmentDTO is the API shape of a shipment record.
type ShipmentDTO struct {
	ID              uuid.UUID            `json:"id"`
	OrderID         uuid.UUID            `json:"order_id"`
	OrderNumber     string               `json:"order_number"`
	UserID          uuid.UUID            `json:"user_id"`
	CustomerName    string               `json:"customer_name"`
	CustomerEmail   string               `json:"customer_email"`
	CustomerPhone   *string              `json:"customer_phone,omitempty"`
	ShippingAddress types.Address        `json:"shipping_address"`
	PaymentMethod   enums.PaymentMethod  `json:"payment_method"`
	PaymentStatus   enums.PaymentStatus  `json:"payment_status"`
	TotalPrice      decimal.Decimal      `json:"total_price"`
	Items           []ShipmentItemDTO    `json:"items"`
	Status          enums.ShipmentStatus `json:"status"`
	OrderedAt       time.Time            `json:"ordered_at"`
	AcceptedAt      time.Time            `json:"accepted_at"`
	ShippedAt       *time.Time           `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time           `json:"delivered_at,omitempty"`
}

// ShipmentList is one page of shipments.
type ShipmentList = types.Page[ShipmentDTO]

func newShipmentDTO(s *models.Shipment) *ShipmentDTO {
	dto := &ShipmentDTO{
		ID:              s.ID,
		OrderID:         s.OrderID,
		OrderNumber:     s.OrderNumber,
		UserID:          s.UserID,
		CustomerName:    s.CustomerName,
		CustomerEmail:   s.CustomerEmail,
		CustomerPhone:   s.CustomerPhone,
		ShippingAddress: s.ShippingAddress,
		PaymentMethod:   s.PaymentMethod,
		PaymentStatus:   s.PaymentStatus,
		TotalPrice:      s.TotalPrice,
		Items:           make([]ShipmentItemDTO, 0, len(s.Items)),
		Status:          s.Status,
		OrderedAt:       s.OrderedAt,
		AcceptedAt:      s.AcceptedAt,
		ShippedAt:       s.ShippedAt,
		DeliveredAt:     s.DeliveredAt,
	}
	for _, item := range s.Items {
		dto.Items = append(dto.Items, ShipmentItemDTO{
			ProductID:         item.ProductID,
			Name:              item.Name,
			Image:             item.Image,
			Quantity:          item.Quantity,
			Price:             item.Price,
			SelectedVariation: item.SelectedVariation,
		})
	}
	return dto
}
