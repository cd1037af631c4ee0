package returns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ReturnLineInput selects a source line by index.
type ReturnLineInput struct {
	ItemIndex int `json:"item_index" validate:"gte=0"`
	Quantity  int `json:"quantity" validate:"gt=0"`
}

// CreateReturnInput opens a return against a delivered order or shipment record.
type CreateReturnInput struct {
	OrderType   string            `json:"order_type" validate:"required"`
	SourceID    uuid.UUID         `json:"order_id" validate:"required"`
	Items       []ReturnLineInput `json:"items" validate:"required,min=1,dive"`
	Reason      string            `json:"reason" validate:"required"`
	Description *string           `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// StatusRequest is the body of the admin status endpoint.
type StatusRequest struct {
	Status    string  `json:"status" validate:"required"`
	AdminNote *string `json:"admin_note,omitempty" validate:"omitempty,max=1000"`
}

// UpdateStatusInput carries an admin review decision.
type UpdateStatusInput struct {
	ReturnID    uuid.UUID
	Status      string
	AdminNote   *string
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// ListReturnsInput holds the query string of return listings.
type ListReturnsInput struct {
	UserID *uuid.UUID
	Status string
	Limit  int
	Cursor string
}

// Viewer identifies who reads a return request.
type Viewer struct {
	UserID uuid.UUID
	Admin  bool
}

// ReturnItemDTO is one returned line.
type ReturnItemDTO struct {
	ItemIndex         int              `json:"item_index"`
	ProductID         uuid.UUID        `json:"product_id"`
	Name              string           `json:"name"`
	Quantity          int              `json:"quantity"`
	Price             decimal.Decimal  `json:"price"`
	SelectedVariation types.Attributes `json:"selected_variation,omitempty"`
}

// ReturnDTO is the API shape of a return request.
type ReturnDTO struct {
	ID          uuid.UUID              `json:"id"`
	OrderType   enums.ReturnSourceType `json:"order_type"`
	SourceID    uuid.UUID              `json:"order_id"`
	UserID      uuid.UUID              `json:"user_id"`
	OrderNumber string                 `json:"order_number"`
	Items       []ReturnItemDTO        `json:"items"`
	Reason      enums.ReturnReason     `json:"reason"`
	Description *string                `json:"description,omitempty"`
	Status      enums.ReturnStatus     `json:"status"`
	RefundTotal decimal.Decimal        `json:"refund_total"`
	AdminNote   *string                `json:"admin_note,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// ReturnList is one page of return requests.
type ReturnList = types.Page[ReturnDTO]

func newReturnDTO(r *models.ReturnRequest) *ReturnDTO {
	dto := &ReturnDTO{
		ID:          r.ID,
		OrderType:   r.SourceType,
		SourceID:    r.SourceID(),
		UserID:      r.UserID,
		OrderNumber: r.OrderNumber,
		Items:       make([]ReturnItemDTO, 0, len(r.Items)),
		Reason:      r.Reason,
		Description: r.Description,
		Status:      r.Status,
		RefundTotal: r.RefundTotal,
		AdminNote:   r.AdminNote,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, item := range r.Items {
		dto.Items = append(dto.Items, ReturnItemDTO(item))
	}
	return dto
}
