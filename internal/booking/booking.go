// Package booking composes the bookkeeping entries attached to contracts:
// the automatic charge lines of an invoice and the payment entries created
// from bank statements.
package booking

import (
	"fmt"
	"strings"
	"time"

	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxDescriptionLength bounds entry texts, like a bank booking text.
const maxDescriptionLength = 140

// ChargeDescription describes the issues billed for one accounting slice,
// e.g. "Gartenfreund Jahresabo: 3 Ausgaben vom 01.01.2024 bis 31.03.2024".
func ChargeDescription(contract *models.Contract, issues int, start, end time.Time) string {
	var b strings.Builder
	if mag := contract.Magazine(); mag != nil {
		b.WriteString(mag.Name)
	}
	if contract.Subscription != nil && contract.Subscription.Name != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(contract.Subscription.Name)
	}

	noun := "Ausgaben"
	if issues == 1 {
		noun = "Ausgabe"
	}
	fmt.Fprintf(&b, ": %d %s vom %s bis %s",
		issues, noun,
		start.Format(models.GermanDateLayout),
		end.Format(models.GermanDateLayout))
	return b.String()
}

// Charge creates the positive entry for one accounting slice, dated at the
// slice end.
func Charge(contract *models.Contract, issues int, start, end time.Time, value decimal.Decimal) *models.BookkeepingEntry {
	return &models.BookkeepingEntry{
		ID:          uuid.New(),
		ContractID:  contract.ID,
		Date:        models.Truncate(end),
		Value:       value,
		Description: ChargeDescription(contract, issues, start, end),
	}
}

// Payment converts a statement record into a bookkeeping entry. Incoming
// money reduces what the customer owes, so its sign is inverted.
func Payment(contract *models.Contract, invoice *models.Invoice, rec services.StatementRecord) *models.BookkeepingEntry {
	entry := &models.BookkeepingEntry{
		ID:          uuid.New(),
		ContractID:  contract.ID,
		Date:        models.Truncate(rec.BookingDate),
		Value:       rec.Value.Neg(),
		Description: paymentDescription(rec),
	}
	if invoice != nil {
		id := invoice.ID
		entry.InvoiceID = &id
	}
	return entry
}

func paymentDescription(rec services.StatementRecord) string {
	text := strings.Join(strings.Fields(rec.Description), " ")
	if rec.CounterParty != "" {
		text = rec.CounterParty + ": " + text
	}
	if text == "" {
		text = "Zahlungseingang"
	}
	if r := []rune(text); len(r) > maxDescriptionLength {
		text = string(r[:maxDescriptionLength])
	}
	return text
}
