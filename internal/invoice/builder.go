package invoice

import (
	"fmt"
	"time"

	"abo/internal/booking"
	"abo/internal/pricing"
	"abo/internal/schedule"
	"abo/pkg/models"
	"github.com/google/uuid"
)

// Builder creates invoices. It holds no per-contract state and is safe for
// concurrent use across different contracts.
type Builder struct {
	now           func() time.Time
	defaultOffset time.Duration
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock sets the clock used for "today" and creation timestamps.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithDefaultMaturityOffset replaces DefaultMaturityOffset.
func WithDefaultMaturityOffset(d time.Duration) BuilderOption {
	return func(b *Builder) { b.defaultOffset = d }
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		now:           time.Now,
		defaultOffset: DefaultMaturityOffset,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build computes the next invoice of contract. history holds the contract's
// existing invoices. The returned invoice is not persisted.
func (b *Builder) Build(contract *models.Contract, history []*models.Invoice, opts Options) (*models.Invoice, error) {
	const op = "Build"

	if contract == nil || contract.Subscription == nil || contract.Magazine() == nil {
		return nil, NewInvoiceError(op, ErrMissingContract, "")
	}
	fail := func(err error, details string) error {
		e := NewInvoiceError(op, err, details)
		e.RefID = contract.RefID
		return e
	}

	issueDate := models.Truncate(opts.IssueDate)
	if issueDate.IsZero() {
		issueDate = models.Truncate(b.now())
	}

	maturity, err := b.resolveMaturity(issueDate, opts)
	if err != nil {
		return nil, fail(err, "")
	}

	end := models.Truncate(opts.AccountingEnd)
	if end.IsZero() {
		end = issueDate
	}

	start, err := resolveStart(contract, history, models.Truncate(opts.AccountingStart))
	if err != nil {
		return nil, fail(err, fmt.Sprintf("start %s", start.Format(models.DateLayout)))
	}

	if !start.Before(end) {
		return nil, fail(ErrEmptyPeriod, fmt.Sprintf("%s to %s",
			start.Format(models.DateLayout), end.Format(models.DateLayout)))
	}

	inv := &models.Invoice{
		ID:              uuid.New(),
		ContractID:      contract.ID,
		Contract:        contract,
		AccountingStart: start,
		AccountingEnd:   end,
		IssueDate:       issueDate,
		MaturityDate:    maturity,
		CreatedAt:       b.now(),
	}

	issuesPerYear := contract.Magazine().IssuesPerYear
	for _, slice := range SplitByYear(start, end) {
		received := schedule.CountReceived(contract, &slice.Start, &slice.End)
		value := pricing.PeriodValue(contract, received, issuesPerYear)
		if value.IsZero() {
			continue
		}
		entry := booking.Charge(contract, received, slice.Start, slice.End, value)
		invoiceID := inv.ID
		entry.InvoiceID = &invoiceID
		inv.Entries = append(inv.Entries, entry)
	}

	if len(inv.Entries) == 0 || inv.Value().IsZero() {
		return nil, fail(ErrZeroValue, fmt.Sprintf("%s to %s",
			start.Format(models.DateLayout), end.Format(models.DateLayout)))
	}

	inv.Number = NextNumber(contract, history)
	return inv, nil
}

func (b *Builder) resolveMaturity(issueDate time.Time, opts Options) (time.Time, error) {
	date := models.Truncate(opts.MaturityDate)
	switch {
	case !date.IsZero() && opts.MaturityOffset != nil:
		return time.Time{}, ErrAmbiguousMaturity
	case !date.IsZero():
		return date, nil
	case opts.MaturityOffset != nil:
		return models.Truncate(issueDate.Add(*opts.MaturityOffset)), nil
	default:
		return models.Truncate(issueDate.Add(b.defaultOffset)), nil
	}
}

// resolveStart determines the accounting start. A zero explicit start means
// "continue after the previous invoice".
func resolveStart(contract *models.Contract, history []*models.Invoice, explicit time.Time) (time.Time, error) {
	previous := models.LastInvoice(history)

	if explicit.IsZero() {
		if previous != nil {
			return models.DayAfter(previous.AccountingEnd), nil
		}
		return models.Truncate(contract.StartDate), nil
	}

	if previous != nil && !explicit.After(previous.AccountingEnd) {
		return explicit, ErrPeriodOverlap
	}
	if explicit.Before(models.Truncate(contract.StartDate)) {
		return explicit, ErrPeriodBeforeContract
	}
	return explicit, nil
}

// SplitByYear cuts [start, end] at calendar year boundaries.
func SplitByYear(start, end time.Time) []Period {
	start, end = models.Truncate(start), models.Truncate(end)
	if start.After(end) {
		return nil
	}

	var out []Period
	for year := start.Year(); year <= end.Year(); year++ {
		p := Period{
			Start: models.Date(year, time.January, 1),
			End:   models.Date(year, time.December, 31),
		}
		if p.Start.Before(start) {
			p.Start = start
		}
		if p.End.After(end) {
			p.End = end
		}
		out = append(out, p)
	}
	return out
}

// NextNumber returns the number for a new invoice: one above the highest
// number ever assigned to the contract.
func NextNumber(contract *models.Contract, history []*models.Invoice) int {
	highest := contract.InvoiceCounter
	for _, inv := range history {
		if inv.Number > highest {
			highest = inv.Number
		}
	}
	return highest + 1
}
