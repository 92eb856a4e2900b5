package invoice

import (
	"errors"
	"fmt"
)

// Business-rule violations reported by the Builder.
var (
	// ErrMissingContract is returned when the contract, its subscription or
	// its magazine is missing.
	ErrMissingContract = errors.New("contract has no subscription or magazine")

	// ErrAmbiguousMaturity is returned when both a maturity date and a
	// maturity offset are supplied.
	ErrAmbiguousMaturity = errors.New("maturity date and maturity offset are mutually exclusive")

	// ErrPeriodOverlap is returned when the accounting period starts on or
	// before the end of the previous invoice's period.
	ErrPeriodOverlap = errors.New("accounting period overlaps previous invoice")

	// ErrPeriodBeforeContract is returned when the accounting period starts
	// before the contract does.
	ErrPeriodBeforeContract = errors.New("accounting period starts before contract")

	// ErrEmptyPeriod is returned when the accounting start is not before the
	// accounting end.
	ErrEmptyPeriod = errors.New("accounting period is empty")

	// ErrZeroValue is returned when no slice of the period carries a value.
	ErrZeroValue = errors.New("value is zero")
)

// InvoiceError wraps a business-rule violation with context about the
// contract and period that caused it.
type InvoiceError struct {
	// Op is the operation that failed (e.g., "Build", "resolveStart").
	Op string

	// Err is the violated rule.
	Err error

	// Details provides the dates or values involved.
	Details string

	// RefID is the reference code of the contract (if available).
	RefID string
}

// Error implements the error interface.
func (e *InvoiceError) Error() string {
	msg := fmt.Sprintf("invoice: %s failed", e.Op)
	if e.RefID != "" {
		msg += fmt.Sprintf(" (contract: %s)", e.RefID)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %v", msg, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *InvoiceError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *InvoiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewInvoiceError creates a new InvoiceError.
func NewInvoiceError(op string, err error, details string) *InvoiceError {
	return &InvoiceError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// IsInvoiceError reports whether err is a business-rule violation, as opposed
// to an infrastructure failure.
func IsInvoiceError(err error) bool {
	var invErr *InvoiceError
	return errors.As(err, &invErr)
}
