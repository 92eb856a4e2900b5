package export

import (
	"context"
	"fmt"
	"io"

	"abo/internal/sheets"
	"abo/pkg/models"
)

// SheetsClient is the part of the Google Sheets service the plugins use.
type SheetsClient interface {
	ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error)
	WriteInvoices(ctx context.Context, rows []sheets.InvoiceRow, sheetName string) error
}

// SheetsDialer connects to the configured spreadsheet on first use.
type SheetsDialer func(ctx context.Context) (SheetsClient, error)

// InvoiceSheets appends invoices to the debtors sheet of a spreadsheet.
// Nothing but a summary line is written to w.
type InvoiceSheets struct {
	Dial      SheetsDialer
	SheetName string
}

// Write implements InvoiceFormatter. The rows are appended in one request,
// so progress is reported after it succeeded.
func (s InvoiceSheets) Write(ctx context.Context, invoices []*models.Invoice, w io.Writer, progress chan<- Progress) error {
	const op = "InvoiceSheets.Write"

	client, err := s.Dial(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sheetName := s.SheetName
	if sheetName == "" {
		sheetName = sheets.DebtorsSheet
	}

	rows := make([]sheets.InvoiceRow, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, invoiceRow(inv))
	}
	if err := client.WriteInvoices(ctx, rows, sheetName); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for i := range invoices {
		if err := sendProgress(ctx, progress, i+1, len(invoices)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if _, err := fmt.Fprintf(w, "%d invoices appended to sheet %s\n", len(rows), sheetName); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
