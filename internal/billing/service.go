// Package billing creates and persists invoices. Invoice creation is
// serialized per contract and parallel across contracts.
package billing

import (
	"context"
	"errors"
	"fmt"

	"abo/internal/events"
	"abo/internal/invoice"
	"abo/internal/logger"
	"abo/internal/pricing"
	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Request controls one invoicing run.
type Request struct {
	invoice.Options

	// DryRun builds invoices without persisting or publishing them.
	DryRun bool
}

// Result is a created (or, in dry-run mode, computed) invoice.
type Result struct {
	Invoice  *models.Invoice
	Warnings []string
}

// Service creates invoices for contracts held in a repository.
type Service struct {
	repo       services.Repository
	locker     services.Locker
	publisher  services.Publisher
	builder    *invoice.Builder
	validation *invoice.Validation
	log        zerolog.Logger
}

// NewService creates a billing service. All collaborators are required.
func NewService(repo services.Repository, locker services.Locker, publisher services.Publisher, builder *invoice.Builder) *Service {
	return &Service{
		repo:       repo,
		locker:     locker,
		publisher:  publisher,
		builder:    builder,
		validation: invoice.NewValidation(),
		log:        logger.WithComponent("billing"),
	}
}

// Invoice creates the next invoice of a contract. The contract and its
// invoice history are read under the contract's lock, so concurrent calls
// for the same contract never compute overlapping periods.
func (s *Service) Invoice(ctx context.Context, contractID uuid.UUID, req Request) (*Result, error) {
	const op = "Invoice"

	unlock, err := s.locker.Lock(ctx, lockKey(contractID))
	if err != nil {
		return nil, fmt.Errorf("%s: acquire lock: %w", op, err)
	}
	defer unlock()

	contract, err := s.repo.GetContract(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("%s: load contract: %w", op, err)
	}
	history, err := s.repo.InvoicesForContract(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("%s: load invoices: %w", op, err)
	}

	inv, err := s.builder.Build(contract, history, req.Options)
	if err != nil {
		// Business-rule violations are returned unwrapped for the caller
		// to inspect.
		if invoice.IsInvoiceError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	validation := s.validation.Validate(inv)
	result := &Result{Invoice: inv, Warnings: validation.Warnings}

	if req.DryRun {
		s.log.Info().
			Str("ref_id", contract.RefID).
			Int("number", inv.Number).
			Str("value", inv.Value().StringFixed(pricing.CentPlaces)).
			Msg("Dry run, invoice not saved")
		return result, nil
	}

	if err := s.repo.SaveInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("%s: save invoice: %w", op, err)
	}

	s.log.Info().
		Str("ref_id", contract.RefID).
		Int("number", inv.Number).
		Str("value", inv.Value().StringFixed(pricing.CentPlaces)).
		Str("period_start", inv.AccountingStart.Format(models.DateLayout)).
		Str("period_end", inv.AccountingEnd.Format(models.DateLayout)).
		Int("entries", len(inv.Entries)).
		Msg("Invoice created")

	// The invoice is persisted; a lost event must not undo it.
	if err := events.Emit(ctx, s.publisher, events.InvoiceCreatedKey, events.NewInvoiceCreated(inv)); err != nil {
		s.log.Warn().Err(err).Str("ref_id", contract.RefID).Msg("Failed to publish invoice event")
		result.Warnings = append(result.Warnings, err.Error())
	}

	return result, nil
}

// IsNothingToBill reports whether err means the contract had no billable
// issues in the period, which batch runs treat as a skip.
func IsNothingToBill(err error) bool {
	return errors.Is(err, invoice.ErrZeroValue) || errors.Is(err, invoice.ErrEmptyPeriod)
}

func lockKey(contractID uuid.UUID) string {
	return "contract:" + contractID.String()
}
