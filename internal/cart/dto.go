package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// AddItemInput adds a product, optionally a specific variation, to the cart.
type AddItemInput struct {
	ProductID         uuid.UUID        `json:"product_id" validate:"required"`
	Quantity          int              `json:"quantity" validate:"required,gt=0,lte=1000"`
	SelectedVariation types.Attributes `json:"selected_variation,omitempty"`
}

// UpdateItemInput sets a line quantity; zero removes the line.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=1000"`
}

// CartDTO is the cart as shown to the customer, priced at current list prices.
type CartDTO struct {
	ID       uuid.UUID       `json:"id"`
	Items    []CartItemDTO   `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// CartItemDTO is one cart line.
type CartItemDTO struct {
	ID                uuid.UUID        `json:"id"`
	ProductID         uuid.UUID        `json:"product_id"`
	Name              string           `json:"name"`
	Image             *string          `json:"image,omitempty"`
	Quantity          int              `json:"quantity"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	LineTotal         decimal.Decimal  `json:"line_total"`
	SelectedVariation types.Attributes `json:"selected_variation,omitempty"`
	Available         bool             `json:"available"`
}

func newCartDTO(cart *models.Cart) *CartDTO {
	dto := &CartDTO{Items: []CartItemDTO{}, Subtotal: decimal.Zero}
	if cart == nil {
		return dto
	}
	dto.ID = cart.ID
	for _, item := range cart.Items {
		line := CartItemDTO{
			ID:                item.ID,
			ProductID:         item.ProductID,
			Quantity:          item.Quantity,
			SelectedVariation: item.SelectedVariation,
		}
		if item.Product != nil {
			variation := item.Product.FindVariation(item.SelectedVariation)
			line.Name = item.Product.Name
			line.Image = item.Product.PrimaryImage(variation)
			line.UnitPrice = item.Product.ListPrice(variation)
			line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			stock := item.Product.Stock
			if variation != nil {
				stock = variation.Stock
			}
			line.Available = item.Product.IsActive && stock >= item.Quantity
			dto.Subtotal = dto.Subtotal.Add(line.LineTotal)
		}
		dto.Items = append(dto.Items, line)
	}
	return dto
}
