package pricing

import (
	"testing"

	"abo/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func contract(value string, issuesPerYear int, override *int) *models.Contract {
	return &models.Contract{
		Value: decimal.RequireFromString(value),
		Subscription: &models.Subscription{
			Magazine:       &models.Magazine{IssuesPerYear: issuesPerYear},
			NumberOfIssues: override,
		},
	}
}

func TestPricePerIssue(t *testing.T) {
	six := 6
	tests := []struct {
		name string
		c    *models.Contract
		want string
	}{
		{"rounds 16.666 up", contract("100.00", 12, &six), "16.67"},
		{"magazine default", contract("120.00", 12, nil), "10"},
		{"half to even down", contract("0.25", 2, nil), "0.12"},
		{"half to even up", contract("0.75", 2, nil), "0.38"},
		{"no issues", contract("10.00", 0, nil), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PricePerIssue(tt.c)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestPeriodValue(t *testing.T) {
	six := 6
	c := contract("100.00", 6, &six)

	t.Run("full period bills the contract value", func(t *testing.T) {
		got := PeriodValue(c, 6, 6)
		assert.True(t, got.Equal(decimal.RequireFromString("100.00")), "got %s", got)
	})

	t.Run("partial period multiplies the rounded price", func(t *testing.T) {
		got := PeriodValue(c, 5, 6)
		assert.True(t, got.Equal(decimal.RequireFromString("83.35")), "got %s", got)
	})

	t.Run("nothing received", func(t *testing.T) {
		assert.True(t, PeriodValue(c, 0, 6).IsZero())
	})
}
