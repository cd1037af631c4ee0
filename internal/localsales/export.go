package localsales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	exportSheet       = "Sales"
	exportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxExportWindow   = 366 * 24 * time.Hour
)

var exportHeader = []interface{}{
	"Invoice", "Date", "Customer", "Phone", "Items", "Subtotal", "Tax", "Discount", "Total", "Paid", "Change", "Payment method",
}

// Export is a rendered spreadsheet ready to be streamed.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// Export renders the sales of a date range as xlsx. Without bounds it covers the last 30 days.
func (s *service) Export(ctx context.Context, rawFrom, rawTo string) (*Export, error) {
	from, to, err := parseRange(rawFrom, rawTo)
	if err != nil {
		return nil, err
	}
	end := s.now().UTC()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -30)
	if from != nil {
		start = *from
	}
	if end.Sub(start) > maxExportWindow {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "export range cannot exceed one year")
	}

	sales, err := s.repo.ListRange(ctx, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list local sales")
	}
	body, err := renderWorkbook(sales)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render local sales export")
	}
	return &Export{
		Filename:    fmt.Sprintf("local-sales-%s-%s.xlsx", start.Format(dateLayout), end.AddDate(0, 0, -1).Format(dateLayout)),
		ContentType: exportContentType,
		Body:        body,
		Rows:        len(sales),
	}, nil
}

func renderWorkbook(sales []models.LocalSale) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(exportHeader))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", bold); err != nil {
		return nil, err
	}

	for i, sale := range sales {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			sale.InvoiceNumber,
			sale.CreatedAt.UTC().Format(time.RFC3339),
			sale.CustomerName,
			deref(sale.CustomerPhone),
			describeItems(sale.Items),
			sale.Subtotal.StringFixed(2),
			sale.Tax.StringFixed(2),
			sale.Discount.StringFixed(2),
			sale.Total.StringFixed(2),
			fixedOrEmpty(sale.AmountPaid),
			fixedOrEmpty(sale.ChangeDue),
			string(sale.PaymentMethod),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func describeItems(items []models.LocalSaleItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		label := item.Name
		if len(item.SelectedVariation) > 0 {
			label += " (" + item.SelectedVariation.String() + ")"
		}
		parts = append(parts, fmt.Sprintf("%s x%d", label, item.Quantity))
	}
	return strings.Join(parts, "; ")
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func fixedOrEmpty(value *decimal.Decimal) string {
	if value == nil {
		return ""
	}
	return value.StringFixed(2)
}
