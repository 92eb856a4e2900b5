package reconciliation

import (
	"strings"
	"time"

	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/shopspring/decimal"
)

// BankTransaction represents a bank transaction from the Bank sheet
type BankTransaction struct {
	Date         time.Time       // Datum - column A
	Type         string          // Transaktionstyp - column B
	Description  string          // Beschreibung - column C
	EREF         string          // End-to-End Reference - column D
	MREF         string          // Mandate Reference - column E
	CRED         string          // Creditor ID - column F
	SVWZ         string          // Verwendungszweck - column G
	CounterParty string          // Empfänger/Absender - column H
	BIC          string          // Bank Identifier Code - column I
	IBAN         string          // International Bank Account Number - column J
	Amount       decimal.Decimal // Betrag (negative for outgoing, positive for incoming) - column K
}

// IsIncoming returns true if this is an incoming transaction (positive amount)
func (bt *BankTransaction) IsIncoming() bool {
	return bt.Amount.IsPositive()
}

// Record converts the transaction to a statement record. The remittance
// text and the end-to-end reference are searched for reference codes, so
// both end up in the description.
func (bt *BankTransaction) Record() services.StatementRecord {
	var parts []string
	for _, s := range []string{bt.SVWZ, bt.Description, bt.EREF} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return services.StatementRecord{
		BookingDate:  models.Truncate(bt.Date),
		Value:        bt.Amount,
		Description:  strings.Join(parts, " "),
		CounterParty: bt.CounterParty,
		IBAN:         bt.IBAN,
	}
}

// Match is a statement record that was assigned to a contract.
type Match struct {
	Record   services.StatementRecord
	Code     string // reference code the contract was found by
	Contract *models.Contract
	Invoice  *models.Invoice // nil if no invoice number matched
	Entry    *models.BookkeepingEntry
}

// Unmatched is a statement record that could not be assigned.
type Unmatched struct {
	Record services.StatementRecord
	Reason string
}

// Result contains the outcome of a reconciliation run
type Result struct {
	Matched   []Match
	Unmatched []Unmatched
	Warnings  []string
}

// Total sums the booked payments.
func (r *Result) Total() decimal.Decimal {
	total := decimal.Zero
	for _, m := range r.Matched {
		total = total.Add(m.Record.Value)
	}
	return total
}
