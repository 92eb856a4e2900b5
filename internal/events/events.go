package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"abo/internal/pricing"
	"abo/pkg/models"
	"abo/pkg/services"
)

// Routing keys.
const (
	InvoiceCreatedKey = "invoice.created"
	PaymentBookedKey  = "payment.booked"
)

// InvoiceCreated is emitted after an invoice has been persisted.
type InvoiceCreated struct {
	InvoiceID       string    `json:"invoice_id"`
	ContractID      string    `json:"contract_id"`
	RefID           string    `json:"ref_id"`
	Number          int       `json:"number"`
	Value           string    `json:"value"`
	AccountingStart string    `json:"accounting_start"`
	AccountingEnd   string    `json:"accounting_end"`
	IssueDate       string    `json:"issue_date"`
	MaturityDate    string    `json:"maturity_date"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// PaymentBooked is emitted after a statement record was booked as payment.
type PaymentBooked struct {
	EntryID       string    `json:"entry_id"`
	ContractID    string    `json:"contract_id"`
	RefID         string    `json:"ref_id"`
	InvoiceNumber int       `json:"invoice_number,omitempty"`
	Value         string    `json:"value"`
	BookingDate   string    `json:"booking_date"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewInvoiceCreated describes inv, whose Contract must be set.
func NewInvoiceCreated(inv *models.Invoice) InvoiceCreated {
	e := InvoiceCreated{
		InvoiceID:       inv.ID.String(),
		ContractID:      inv.ContractID.String(),
		Number:          inv.Number,
		Value:           inv.Value().StringFixed(pricing.CentPlaces),
		AccountingStart: inv.AccountingStart.Format(models.DateLayout),
		AccountingEnd:   inv.AccountingEnd.Format(models.DateLayout),
		IssueDate:       inv.IssueDate.Format(models.DateLayout),
		MaturityDate:    inv.MaturityDate.Format(models.DateLayout),
		OccurredAt:      time.Now().UTC(),
	}
	if inv.Contract != nil {
		e.RefID = inv.Contract.RefID
	}
	return e
}

// NewPaymentBooked describes a payment entry. inv may be nil.
func NewPaymentBooked(c *models.Contract, inv *models.Invoice, entry *models.BookkeepingEntry) PaymentBooked {
	e := PaymentBooked{
		EntryID:     entry.ID.String(),
		ContractID:  c.ID.String(),
		RefID:       c.RefID,
		Value:       entry.Value.StringFixed(pricing.CentPlaces),
		BookingDate: entry.Date.Format(models.DateLayout),
		OccurredAt:  time.Now().UTC(),
	}
	if inv != nil {
		e.InvoiceNumber = inv.Number
	}
	return e
}

// Emit marshals event as JSON and publishes it under routingKey.
func Emit(ctx context.Context, pub services.Publisher, routingKey string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", routingKey, err)
	}
	if err := pub.Publish(ctx, routingKey, payload); err != nil {
		return fmt.Errorf("publish %s event: %w", routingKey, err)
	}
	return nil
}
