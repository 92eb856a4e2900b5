// Package reconciliation reads bank statements and books incoming payments
// against contracts and invoices.
//
// A statement record is assigned to a contract by its explicit reference
// code if that code validates and is known, otherwise by the first valid
// and known code found in the remittance text. An invoice number, if given,
// links the payment to that invoice of the contract.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"abo/internal/booking"
	"abo/internal/events"
	"abo/internal/logger"
	"abo/internal/pricing"
	"abo/internal/refcode"
	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/rs/zerolog"
)

// Reasons reported for unmatched records.
const (
	ReasonZeroValue   = "zero value"
	ReasonNoReference = "no known reference code"
)

// Matcher assigns statement records to contracts and books them.
type Matcher struct {
	repo      services.Repository
	publisher services.Publisher
	codec     *refcode.Codec
	log       zerolog.Logger
}

// NewMatcher creates a matcher using the default reference code codec.
func NewMatcher(repo services.Repository, publisher services.Publisher) *Matcher {
	return &Matcher{
		repo:      repo,
		publisher: publisher,
		codec:     refcode.Default,
		log:       logger.WithComponent("reconciliation"),
	}
}

// Reconcile reads all records from importer and matches them.
func (m *Matcher) Reconcile(ctx context.Context, importer services.Importer, dryRun bool) (*Result, error) {
	const op = "Reconcile"

	records, err := importer.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: read statement: %w", op, err)
	}
	return m.Match(ctx, records, dryRun)
}

// Match books every record that can be assigned to a contract as a
// payment entry. In dry-run mode entries are built but neither saved nor
// published. Repository failures abort the run.
func (m *Matcher) Match(ctx context.Context, records []services.StatementRecord, dryRun bool) (*Result, error) {
	const op = "Match"

	result := &Result{}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%s: %w", op, err)
		}

		if rec.Value.IsZero() {
			result.Unmatched = append(result.Unmatched, Unmatched{Record: rec, Reason: ReasonZeroValue})
			continue
		}

		contract, code, err := m.resolveContract(ctx, rec)
		if errors.Is(err, refcode.ErrNoMatch) {
			m.log.Debug().
				Str("description", rec.Description).
				Str("value", rec.Value.StringFixed(pricing.CentPlaces)).
				Msg("No contract found for statement record")
			result.Unmatched = append(result.Unmatched, Unmatched{Record: rec, Reason: ReasonNoReference})
			continue
		}
		if err != nil {
			return result, fmt.Errorf("%s: %w", op, err)
		}

		inv, err := m.resolveInvoice(ctx, contract, rec.InvoiceNumber)
		if err != nil {
			return result, fmt.Errorf("%s: %w", op, err)
		}
		if rec.InvoiceNumber > 0 && inv == nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: invoice %d not found, payment booked on contract", code, rec.InvoiceNumber))
		}

		entry := booking.Payment(contract, inv, rec)
		match := Match{Record: rec, Code: code, Contract: contract, Invoice: inv, Entry: entry}

		if dryRun {
			result.Matched = append(result.Matched, match)
			continue
		}

		if err := m.repo.SaveEntry(ctx, entry); err != nil {
			return result, fmt.Errorf("%s: save payment for %s: %w", op, code, err)
		}
		result.Matched = append(result.Matched, match)

		m.log.Info().
			Str("ref_id", code).
			Int("invoice", rec.InvoiceNumber).
			Str("value", entry.Value.StringFixed(pricing.CentPlaces)).
			Msg("Payment booked")

		if err := events.Emit(ctx, m.publisher, events.PaymentBookedKey, events.NewPaymentBooked(contract, inv, entry)); err != nil {
			m.log.Warn().Err(err).Str("ref_id", code).Msg("Failed to publish payment event")
			result.Warnings = append(result.Warnings, err.Error())
		}
	}

	m.log.Info().
		Int("records", len(records)).
		Int("matched", len(result.Matched)).
		Int("unmatched", len(result.Unmatched)).
		Bool("dry_run", dryRun).
		Msg("Reconciliation finished")

	return result, nil
}

// resolveContract finds the contract of rec, trying the explicit reference
// code before scanning the description.
func (m *Matcher) resolveContract(ctx context.Context, rec services.StatementRecord) (*models.Contract, string, error) {
	if code := strings.ToUpper(strings.TrimSpace(rec.ReferenceCode)); code != "" && m.codec.Validate(code) {
		contract, err := m.repo.FindContractByReference(ctx, code)
		if err == nil {
			return contract, code, nil
		}
		if !errors.Is(err, services.ErrNotFound) {
			return nil, "", fmt.Errorf("lookup of %s failed: %w", code, err)
		}
	}
	return m.codec.Scan(ctx, rec.Description, m.repo.FindContractByReference)
}

// resolveInvoice returns the invoice with the given number, or nil if
// number is 0 or unknown.
func (m *Matcher) resolveInvoice(ctx context.Context, contract *models.Contract, number int) (*models.Invoice, error) {
	if number <= 0 {
		return nil, nil
	}
	invoices, err := m.repo.InvoicesForContract(ctx, contract.ID)
	if err != nil {
		return nil, fmt.Errorf("load invoices of %s: %w", contract.RefID, err)
	}
	for _, inv := range invoices {
		if inv.Number == number {
			return inv, nil
		}
	}
	return nil, nil
}
