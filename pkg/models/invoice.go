package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice bills one accounting period of a contract.
type Invoice struct {
	ID         uuid.UUID
	ContractID uuid.UUID
	Contract   *Contract

	Number int // sequential per contract, starting at 1

	// Dates
	AccountingStart time.Time
	AccountingEnd   time.Time
	IssueDate       time.Time
	MaturityDate    time.Time

	Entries []*BookkeepingEntry

	CreatedAt time.Time
}

// Value returns the sum of the positive entries (charges).
func (i *Invoice) Value() decimal.Decimal {
	total := decimal.Zero
	for _, e := range i.Entries {
		if e.Value.IsPositive() {
			total = total.Add(e.Value)
		}
	}
	return total
}

// ValueLeft returns what is still owed: charges minus payments booked
// against this invoice.
func (i *Invoice) ValueLeft() decimal.Decimal {
	total := decimal.Zero
	for _, e := range i.Entries {
		total = total.Add(e.Value)
	}
	return total
}

// BookkeepingEntry is a dated, signed amount on a contract.
// Positive values are charges, negative values are payments received.
type BookkeepingEntry struct {
	ID          uuid.UUID
	ContractID  uuid.UUID
	InvoiceID   *uuid.UUID
	Date        time.Time
	Value       decimal.Decimal
	Description string
	CreatedAt   time.Time
}

// IsPayment reports whether the entry records money received.
func (e *BookkeepingEntry) IsPayment() bool {
	return e.Value.IsNegative()
}
