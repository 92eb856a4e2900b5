package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"abo/internal/pricing"
	"abo/internal/sheets"
	"abo/pkg/models"
	"github.com/shopspring/decimal"
)

// Invoice status texts.
const (
	StatusOpen = "offen"
	StatusPaid = "bezahlt"
)

var invoiceCSVHeader = []string{
	"Referenz", "Rechnungsnr", "Rechnungsdatum", "Kunde", "Betrag", "Offen",
	"Fälligkeit", "Beginn", "Ende", "Status",
}

var addressCSVHeader = []string{
	"Referenz", "Empfänger", "Straße", "PLZ", "Ort", "Land", "Zahlungsart", "IBAN",
}

// InvoiceCSV writes invoices as semicolon separated text with German
// number and date formats.
type InvoiceCSV struct{}

// Write implements InvoiceFormatter.
func (InvoiceCSV) Write(ctx context.Context, invoices []*models.Invoice, w io.Writer, progress chan<- Progress) error {
	const op = "InvoiceCSV.Write"

	cw := newCSVWriter(w)
	if err := cw.Write(invoiceCSVHeader); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for i, inv := range invoices {
		row := invoiceRow(inv)
		record := []string{
			row.RefID,
			strconv.Itoa(row.Number),
			germanDate(row.IssueDate),
			row.Customer,
			GermanAmount(row.Value),
			GermanAmount(row.ValueLeft),
			germanDate(row.MaturityDate),
			germanDate(row.PeriodStart),
			germanDate(row.PeriodEnd),
			row.Status,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := sendProgress(ctx, progress, i+1, len(invoices)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AddressCSV writes the billing address of each contract.
type AddressCSV struct{}

// Write implements ContractFormatter.
func (AddressCSV) Write(ctx context.Context, contracts []*models.Contract, w io.Writer, progress chan<- Progress) error {
	const op = "AddressCSV.Write"

	cw := newCSVWriter(w)
	if err := cw.Write(addressCSVHeader); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for i, c := range contracts {
		addr := c.BillingAddress
		if addr == nil {
			addr = &models.Address{}
		}
		var iban string
		if c.BankAccount != nil {
			iban = c.BankAccount.IBAN
		}
		record := []string{
			c.RefID, addr.Recipient, addr.Street, addr.Postcode, addr.City, addr.Country,
			string(c.PaymentType), iban,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := sendProgress(ctx, progress, i+1, len(contracts)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func newCSVWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	return cw
}

// invoiceRow flattens an invoice for tabular output. inv.Contract may be
// nil.
func invoiceRow(inv *models.Invoice) sheets.InvoiceRow {
	row := sheets.InvoiceRow{
		Number:       inv.Number,
		IssueDate:    inv.IssueDate,
		Value:        inv.Value(),
		ValueLeft:    inv.ValueLeft(),
		MaturityDate: inv.MaturityDate,
		PeriodStart:  inv.AccountingStart,
		PeriodEnd:    inv.AccountingEnd,
		Status:       StatusOpen,
	}
	if !row.ValueLeft.IsPositive() {
		row.Status = StatusPaid
	}
	if c := inv.Contract; c != nil {
		row.RefID = c.RefID
		if c.Customer != nil {
			row.Customer = c.Customer.Name
		}
	}
	return row
}

// GermanAmount formats d with two decimals and a decimal comma.
func GermanAmount(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(pricing.CentPlaces), ".", ",", 1)
}

func germanDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.GermanDateLayout)
}
