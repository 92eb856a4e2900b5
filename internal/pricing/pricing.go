// Package pricing computes per-issue prices and period values in exact
// decimal arithmetic, rounding half to even to whole cents.
package pricing

import (
	"abo/pkg/models"
	"github.com/shopspring/decimal"
)

// CentPlaces is the number of decimal places of currency amounts.
const CentPlaces = 2

// Round rounds v to cents using banker's rounding.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.RoundBank(CentPlaces)
}

// PricePerIssue returns the contract value divided by the subscription's
// total number of issues. A subscription without issues yields zero.
func PricePerIssue(contract *models.Contract) decimal.Decimal {
	if contract.Subscription == nil {
		return decimal.Zero
	}
	total := contract.Subscription.TotalNumberOfIssues()
	if total <= 0 {
		return decimal.Zero
	}
	return Round(contract.Value.Div(decimal.NewFromInt(int64(total))))
}

// PeriodValue returns the amount billed for a period in which received of
// total issues were delivered. A full period bills exactly the contract
// value, so rounding of the per-issue price never accumulates.
func PeriodValue(contract *models.Contract, received, total int) decimal.Decimal {
	if received == total {
		return contract.Value
	}
	return Round(PricePerIssue(contract).Mul(decimal.NewFromInt(int64(received))))
}
