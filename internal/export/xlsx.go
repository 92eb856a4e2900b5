package export

import (
	"context"
	"fmt"
	"io"

	"abo/pkg/models"
	"github.com/xuri/excelize/v2"
)

// InvoiceSheetName is the worksheet the xlsx formatter writes to.
const InvoiceSheetName = "Rechnungen"

// InvoiceXLSX writes invoices as an Excel workbook.
type InvoiceXLSX struct{}

// Write implements InvoiceFormatter.
func (InvoiceXLSX) Write(ctx context.Context, invoices []*models.Invoice, w io.Writer, progress chan<- Progress) error {
	const op = "InvoiceXLSX.Write"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", InvoiceSheetName); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	header := make([]interface{}, len(invoiceCSVHeader))
	for i, h := range invoiceCSVHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(InvoiceSheetName, "A1", &header); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for i, inv := range invoices {
		row := invoiceRow(inv)
		values := []interface{}{
			row.RefID,
			row.Number,
			germanDate(row.IssueDate),
			row.Customer,
			row.Value.InexactFloat64(),
			row.ValueLeft.InexactFloat64(),
			germanDate(row.MaturityDate),
			germanDate(row.PeriodStart),
			germanDate(row.PeriodEnd),
			row.Status,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := f.SetSheetRow(InvoiceSheetName, cell, &values); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := sendProgress(ctx, progress, i+1, len(invoices)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
