package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DebtorsSheet is the default sheet invoice rows are written to.
const DebtorsSheet = "Debitoren"

// InvoiceHeaders are the column titles of the debtors sheet.
var InvoiceHeaders = []string{
	"Referenz", "Rechnungsnr", "Rechnungsdatum", "Kunde", "Betrag",
	"Offen", "Fälligkeit", "Zeitraum", "Status", "Exportiert",
}

// InvoiceRow represents one invoice line of the debtors sheet
type InvoiceRow struct {
	RefID        string
	Number       int
	IssueDate    time.Time
	Customer     string
	Value        decimal.Decimal
	ValueLeft    decimal.Decimal
	MaturityDate time.Time
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Status       string
}

// WriteInvoices appends invoice rows to sheetName.
func (s *Service) WriteInvoices(ctx context.Context, rows []InvoiceRow, sheetName string) error {
	const op = "WriteInvoices"

	exportedAt := time.Now().Format("02.01.2006 15:04:05")
	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		values = append(values, rowToValues(row, exportedAt))
	}

	if err := s.AppendRows(ctx, sheetName, InvoiceHeaders, values); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// rowToValues converts an InvoiceRow to cell values in header order.
func rowToValues(row InvoiceRow, exportedAt string) []interface{} {
	return []interface{}{
		row.RefID,                                    // A: Referenz
		row.Number,                                   // B: Rechnungsnr
		formatDate(row.IssueDate),                    // C: Rechnungsdatum
		row.Customer,                                 // D: Kunde
		row.Value.InexactFloat64(),                   // E: Betrag
		row.ValueLeft.InexactFloat64(),               // F: Offen
		formatDate(row.MaturityDate),                 // G: Fälligkeit
		formatPeriod(row.PeriodStart, row.PeriodEnd), // H: Zeitraum
		row.Status,                                   // I: Status
		exportedAt,                                   // J: Exportiert
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006")
}

func formatPeriod(start, end time.Time) string {
	if start.IsZero() && end.IsZero() {
		return ""
	}
	return formatDate(start) + " - " + formatDate(end)
}
