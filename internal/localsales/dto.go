package localsales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// SaleItemInput is one counter line. Without UnitPrice the list price is charged.
type SaleItemInput struct {
	ProductID         uuid.UUID        `json:"product_id" validate:"required"`
	Quantity          int              `json:"quantity" validate:"gt=0"`
	UnitPrice         *decimal.Decimal `json:"unit_price,omitempty"`
	SelectedVariation types.Attributes `json:"selected_variation,omitempty"`
}

// CreateSaleInput records a point-of-sale invoice.
type CreateSaleInput struct {
	CustomerName  string              `json:"customer_name" validate:"required,notblank,max=200"`
	CustomerPhone *string             `json:"customer_phone,omitempty" validate:"omitempty,max=40"`
	CustomerEmail *string             `json:"customer_email,omitempty" validate:"omitempty,email"`
	Items         []SaleItemInput     `json:"items" validate:"required,min=1,dive"`
	TaxRate       *decimal.Decimal    `json:"tax_rate,omitempty"`
	Discount      *decimal.Decimal    `json:"discount,omitempty"`
	AmountPaid    *decimal.Decimal    `json:"amount_paid,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
	IncludeQRCode *bool               `json:"include_qr_code,omitempty"`
	Notes         *string             `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ListSalesInput holds the query string of the sales listing. From and To are dates (YYYY-MM-DD) or RFC 3339.
type ListSalesInput struct {
	From   string
	To     string
	Limit  int
	Cursor string
}

// SaleItemDTO is one invoiced line.
type SaleItemDTO struct {
	ProductID         uuid.UUID        `json:"product_id"`
	VariationID       *uuid.UUID       `json:"variation_id,omitempty"`
	Name              string           `json:"name"`
	Quantity          int              `json:"quantity"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	LineTotal         decimal.Decimal  `json:"line_total"`
	SelectedVariation types.Attributes `json:"selected_variation,omitempty"`
}

// SaleDTO is the API shape of a local sale.
type SaleDTO struct {
	ID            uuid.UUID           `json:"id"`
	InvoiceNumber string              `json:"invoice_number"`
	InvoiceURL    string              `json:"invoice_url"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone *string             `json:"customer_phone,omitempty"`
	CustomerEmail *string             `json:"customer_email,omitempty"`
	Items         []SaleItemDTO       `json:"items"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	TaxRate       decimal.Decimal     `json:"tax_rate"`
	Tax           decimal.Decimal     `json:"tax"`
	Discount      decimal.Decimal     `json:"discount"`
	Total         decimal.Decimal     `json:"total"`
	AmountPaid    *decimal.Decimal    `json:"amount_paid,omitempty"`
	ChangeDue     *decimal.Decimal    `json:"change_due,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	QRCode        *string             `json:"qr_code,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	CreatedBy     uuid.UUID           `json:"created_by"`
	CreatedAt     time.Time           `json:"created_at"`
}

// SaleList is one page of local sales.
type SaleList = types.Page[SaleDTO]

func newSaleDTO(sale *models.LocalSale, invoiceURL string) *SaleDTO {
	dto := &SaleDTO{
		ID:            sale.ID,
		InvoiceNumber: sale.InvoiceNumber,
		InvoiceURL:    invoiceURL,
		CustomerName:  sale.CustomerName,
		CustomerPhone: sale.CustomerPhone,
		CustomerEmail: sale.CustomerEmail,
		Items:         make([]SaleItemDTO, 0, len(sale.Items)),
		Subtotal:      sale.Subtotal,
		TaxRate:       sale.TaxRate,
		Tax:           sale.Tax,
		Discount:      sale.Discount,
		Total:         sale.Total,
		AmountPaid:    sale.AmountPaid,
		ChangeDue:     sale.ChangeDue,
		PaymentMethod: sale.PaymentMethod,
		QRCode:        sale.QRCode,
		Notes:         sale.Notes,
		CreatedBy:     sale.CreatedBy,
		CreatedAt:     sale.CreatedAt,
	}
	for _, item := range sale.Items {
		dto.Items = append(dto.Items, SaleItemDTO(item))
	}
	return dto
}
