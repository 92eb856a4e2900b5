package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType is how a contract is paid.
type PaymentType string

const (
	PaymentInvoice          PaymentType = "INVOICE"
	PaymentDirectWithdrawal PaymentType = "DIRECT_WITHDRAWAL"
)

// Customer owns addresses, bank accounts and contracts.
type Customer struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Addresses    []*Address
	BankAccounts []*BankAccount
	Contracts    []*Contract
}

// Address is a postal address of a customer.
type Address struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Recipient  string
	Street     string
	Postcode   string
	City       string
	Country    string
}

// BankAccount holds the direct debit details of a customer.
type BankAccount struct {
	ID               uuid.UUID
	CustomerID       uuid.UUID
	Owner            string
	IBAN             string
	BIC              string
	MandateReference string
	MandateDate      time.Time
}

// Contract binds a customer to a subscription.
type Contract struct {
	ID              uuid.UUID
	RefID           string // 8-character reference code
	Customer        *Customer
	Subscription    *Subscription
	StartDate       time.Time
	EndDate         *time.Time
	Value           decimal.Decimal // price actually charged per period
	PaymentType     PaymentType
	ShippingAddress *Address
	BillingAddress  *Address
	BankAccount     *BankAccount

	// InvoiceCounter is the highest invoice number ever assigned, so that
	// numbers of deleted invoices are never handed out again.
	InvoiceCounter int

	Invoices []*Invoice // ordered by number
}

// Magazine returns the magazine of the contract's subscription, if any.
func (c *Contract) Magazine() *Magazine {
	if c.Subscription == nil {
		return nil
	}
	return c.Subscription.Magazine
}

// LastInvoice returns the invoice with the highest number in invoices.
func LastInvoice(invoices []*Invoice) *Invoice {
	var last *Invoice
	for _, inv := range invoices {
		if last == nil || inv.Number > last.Number {
			last = inv
		}
	}
	return last
}
