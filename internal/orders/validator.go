package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Validation is the priced, availability-checked outcome of Validate.
type Validation struct {
	Items    []models.OrderItem
	Total    decimal.Decimal
	FromCart bool
}

// Validator resolves requested items against the catalog before any stock moves.
type Validator struct {
	products productReader
	cart     CartSource
	ledger   StockLedger
}

// NewValidator builds the order item validator.
func NewValidator(products productReader, cart CartSource, ledger StockLedger) (*Validator, error) {
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if cart == nil {
		return nil, fmt.Errorf("cart source required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	return &Validator{products: products, cart: cart, ledger: ledger}, nil
}

type stockKey struct {
	productID   uuid.UUID
	variationID uuid.UUID
}

type stockDemand struct {
	productID uuid.UUID
	selector  types.Attributes
	qty       int
}

// Validate prices every item and checks that the combined demand is available.
// An empty item list falls back to the user's cart.
func (v *Validator) Validate(ctx context.Context, userID uuid.UUID, raw []ItemInput) (*Validation, error) {
	result := &Validation{Total: decimal.Zero}
	if len(raw) == 0 {
		items, err := v.cartItems(ctx, userID)
		if err != nil {
			return nil, err
		}
		raw = items
		result.FromCart = true
	}

	demand := map[stockKey]*stockDemand{}
	order := make([]stockKey, 0, len(raw))
	for i, in := range raw {
		if in.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].product_id is required", i))
		}
		if in.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].quantity must be positive", i))
		}
		if in.Price != nil && !in.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].price must be positive", i))
		}

		p, err := v.products.FindByID(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": in.ProductID})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !p.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s is no longer available", p.Name)).
				WithDetails(map[string]any{"product_id": in.ProductID})
		}
		variation, err := product.ResolveVariation(p, in.SelectedVariation)
		if err != nil {
			return nil, err
		}

		item := models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.PrimaryImage(variation),
			Quantity:  in.Quantity,
			Price:     unitPrice(in.Price, p.ListPrice(variation)),
		}
		key := stockKey{productID: p.ID}
		if variation != nil {
			id := variation.ID
			item.VariationID = &id
			item.SelectedVariation = variation.Attributes.Clone()
			key.variationID = id
		}
		result.Items = append(result.Items, item)
		result.Total = result.Total.Add(item.LineTotal())

		if d, ok := demand[key]; ok {
			d.qty += in.Quantity
			continue
		}
		demand[key] = &stockDemand{productID: p.ID, selector: item.SelectedVariation, qty: in.Quantity}
		order = append(order, key)
	}

	for _, key := range order {
		d := demand[key]
		if err := v.ledger.CheckAvailability(ctx, d.productID, d.qty, d.selector); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (v *Validator) cartItems(ctx context.Context, userID uuid.UUID) ([]ItemInput, error) {
	items, err := v.cart.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items supplied and the cart is empty")
	}
	out := make([]ItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, ItemInput{
			ProductID:         item.ProductID,
			Quantity:          item.Quantity,
			SelectedVariation: item.SelectedVariation,
		})
	}
	return out, nil
}

// unitPrice keeps the client's price only when it does not exceed the list price.
func unitPrice(requested *decimal.Decimal, list decimal.Decimal) decimal.Decimal {
	if requested != nil && requested.LessThanOrEqual(list) {
		return *requested
	}
	return list
}
