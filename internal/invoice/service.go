// Package invoice turns a contract and a target date into an invoice with
// automatically generated bookkeeping entries.
//
// Invoicing rules:
//   - An accounting period starts the day after the previous invoice's
//     period ended (or at the contract start for the first invoice) and ends
//     at the issue date unless given explicitly.
//   - Explicit starts must not overlap the previous period and must not
//     precede the contract start.
//   - The period is split per calendar year; every year slice with a
//     non-zero value yields one entry dated at the slice end.
//   - An invoice without value is rejected and never returned.
//   - Invoice numbers continue after the highest number ever assigned to the
//     contract.
//
// The Builder performs no I/O. Loading the invoice history and persisting
// the result is up to the caller, which must not build two invoices for the
// same contract concurrently.
package invoice

import (
	"time"
)

// DefaultMaturityOffset is used when neither a maturity date nor an offset
// is supplied.
const DefaultMaturityOffset = 14 * 24 * time.Hour

// Options controls a single Build. Zero dates mean "not supplied".
type Options struct {
	// IssueDate defaults to today.
	IssueDate time.Time

	// MaturityDate and MaturityOffset are mutually exclusive. Without
	// either, the builder's default offset applies.
	MaturityDate   time.Time
	MaturityOffset *time.Duration

	// AccountingStart defaults to the day after the previous invoice's
	// accounting end, or the contract start.
	AccountingStart time.Time

	// AccountingEnd defaults to the issue date.
	AccountingEnd time.Time
}

// Period is an inclusive date range of an accounting period.
type Period struct {
	Start time.Time
	End   time.Time
}
