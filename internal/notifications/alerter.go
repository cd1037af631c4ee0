package notifications

import (
	"context"
	"fmt"
	"strings"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/mailer"
)

// StockAlerter emails the operations inbox when the ledger reports low stock.
type StockAlerter struct {
	mail mailer.Sender
	to   string
}

// NewStockAlerter returns nil when no operations address is configured.
func NewStockAlerter(mail mailer.Sender, opsEmail string) *StockAlerter {
	opsEmail = strings.TrimSpace(opsEmail)
	if mail == nil || opsEmail == "" {
		return nil
	}
	return &StockAlerter{mail: mail, to: opsEmail}
}

func (a *StockAlerter) NotifyLowStock(ctx context.Context, alert product.LowStockAlert) error {
	variation := ""
	if len(alert.Variation) > 0 {
		variation = alert.Variation.String()
	}
	return a.mail.Send(ctx, mailer.Message{
		To:       a.to,
		Subject:  fmt.Sprintf("Low stock: %s", alert.ProductName),
		Template: mailer.TemplateLowStock,
		Data: map[string]any{
			"ProductName": alert.ProductName,
			"Variation":   variation,
			"Remaining":   alert.Remaining,
			"Threshold":   alert.Threshold,
		},
	})
}
