package invoice

import (
	"fmt"

	"abo/internal/logger"
	"abo/internal/pricing"
	"abo/internal/schedule"
	"abo/pkg/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Validation checks a built invoice for inconsistencies that do not violate
// a business rule but deserve attention before the invoice goes out.
type Validation struct {
	log zerolog.Logger
}

// NewValidation creates a new invoice validation service
func NewValidation() *Validation {
	return &Validation{
		log: logger.WithComponent("invoice-validation"),
	}
}

// ValidationResult lists the findings for one invoice.
type ValidationResult struct {
	Warnings       []string
	HasDiscrepancy bool

	// Discrepancy is the difference between the billed value and the
	// per-issue price times the billed issues (rounding residue).
	Discrepancy decimal.Decimal
}

// maxRoundingResidue is the tolerated difference per billed issue.
var maxRoundingResidue = decimal.New(1, -pricing.CentPlaces)

// Validate inspects inv. It never modifies the invoice.
func (v *Validation) Validate(inv *models.Invoice) *ValidationResult {
	result := &ValidationResult{Warnings: []string{}}

	if inv.MaturityDate.Before(inv.IssueDate) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("maturity date %s precedes issue date %s",
			inv.MaturityDate.Format(models.DateLayout), inv.IssueDate.Format(models.DateLayout)))
	}

	for _, entry := range inv.Entries {
		if entry.Date.Before(inv.AccountingStart) || entry.Date.After(inv.AccountingEnd) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry dated %s lies outside the accounting period",
				entry.Date.Format(models.DateLayout)))
		}
		if entry.InvoiceID == nil || *entry.InvoiceID != inv.ID {
			result.Warnings = append(result.Warnings, "entry is not linked to the invoice")
		}
	}

	v.crossValidate(inv, result)

	v.log.Debug().
		Int("number", inv.Number).
		Str("value", inv.Value().StringFixed(pricing.CentPlaces)).
		Bool("has_discrepancy", result.HasDiscrepancy).
		Strs("warnings", result.Warnings).
		Msg("Invoice validation completed")

	return result
}

// crossValidate recomputes the value from the issue count. Full years bill
// the exact contract value, so up to one cent per issue may differ.
func (v *Validation) crossValidate(inv *models.Invoice, result *ValidationResult) {
	contract := inv.Contract
	if contract == nil || contract.Subscription == nil {
		return
	}

	issues := 0
	for _, slice := range SplitByYear(inv.AccountingStart, inv.AccountingEnd) {
		issues += schedule.CountReceived(contract, &slice.Start, &slice.End)
	}
	expected := pricing.Round(pricing.PricePerIssue(contract).Mul(decimal.NewFromInt(int64(issues))))
	diff := inv.Value().Sub(expected).Abs()
	result.Discrepancy = diff

	tolerance := maxRoundingResidue.Mul(decimal.NewFromInt(int64(max(issues, 1))))
	if diff.GreaterThan(tolerance) {
		result.HasDiscrepancy = true
		result.Warnings = append(result.Warnings, fmt.Sprintf("billed %s for %d issues, expected about %s",
			inv.Value().StringFixed(pricing.CentPlaces), issues, expected.StringFixed(pricing.CentPlaces)))

		v.log.Warn().
			Str("ref_id", contract.RefID).
			Int("issues", issues).
			Str("billed", inv.Value().StringFixed(pricing.CentPlaces)).
			Str("expected", expected.StringFixed(pricing.CentPlaces)).
			Msg("Invoice value discrepancy detected")
	}
}
