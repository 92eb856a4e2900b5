package dataset

import (
	"context"
	"strings"
	"testing"

	"abo/internal/contract"
	"abo/internal/refcode"
	"abo/internal/store/sqlite"
	"abo/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "magazines": [{
    "key": "garten", "name": "Gartenfreund", "issues_per_year": 4,
    "issues": [
      {"year": 2024, "number": 2, "date": "2024-04-15"},
      {"year": 2024, "number": 1, "date": "2024-01-15"}
    ]
  }],
  "subscriptions": [
    {"key": "jahr", "magazine": "garten", "name": "Jahresabo", "value": "39.90"},
    {"key": "probe", "magazine": "garten", "name": "Probeabo", "value": "5.00", "number_of_issues": 2}
  ],
  "customers": [{
    "key": "erika", "name": "Erika Mustermann", "email": "erika@example.org",
    "addresses": [{"key": "home", "recipient": "Erika Mustermann", "street": "Heidestr. 17", "postcode": "51147", "city": "Köln", "country": "DE"}],
    "bank_accounts": [{"key": "giro", "owner": "Erika Mustermann", "iban": "DE02120300000000202051", "mandate_reference": "M-1", "mandate_date": "2023-12-01"}]
  }],
  "contracts": [
    {"refid": "ABCDEFNB", "customer": "erika", "subscription": "jahr", "start_date": "2024-01-01",
     "shipping_address": "home", "billing_address": "home"},
    {"customer": "erika", "subscription": "probe", "start_date": "2024-01-01", "end_date": "2024-06-30",
     "value": "4.50", "payment_type": "DIRECT_WITHDRAWAL",
     "shipping_address": "home", "billing_address": "home", "bank_account": "giro"}
  ]
}`

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	doc, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	summary, err := Load(ctx, doc, store, contract.NewCreator(store, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Magazines)
	assert.Equal(t, 2, summary.Issues)
	assert.Equal(t, 2, summary.Subscriptions)
	assert.Equal(t, 1, summary.Customers)
	require.Len(t, summary.Contracts, 2)

	assert.Equal(t, "ABCDEFNB", summary.Contracts[0].RefID)
	generated := summary.Contracts[1].RefID
	assert.True(t, refcode.Validate(generated), generated)

	stored, err := store.FindContractByReference(ctx, generated)
	require.NoError(t, err)
	assert.True(t, stored.Value.Equal(decimal.RequireFromString("4.50")))
	assert.Equal(t, models.PaymentDirectWithdrawal, stored.PaymentType)
	require.NotNil(t, stored.EndDate)
	assert.Equal(t, models.Date(2024, 6, 30), *stored.EndDate)
	require.NotNil(t, stored.BankAccount)
	assert.Equal(t, "M-1", stored.BankAccount.MandateReference)
	assert.Equal(t, 2, stored.Subscription.TotalNumberOfIssues())

	first, err := store.FindContractByReference(ctx, "ABCDEFNB")
	require.NoError(t, err)
	assert.True(t, first.Value.Equal(decimal.RequireFromString("39.90")))
	assert.Equal(t, models.PaymentInvoice, first.PaymentType)
	require.Len(t, first.Magazine().Issues, 2)
	assert.Equal(t, 1, first.Magazine().Issues[0].Number)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"unknown field", `{"magazine": []}`, "unknown field"},
		{"unknown magazine", `{"subscriptions": [{"key": "s", "magazine": "x"}]}`, `unknown magazine "x"`},
		{"bad issues per year", `{"magazines": [{"key": "m", "issues_per_year": 0}]}`, "issues_per_year"},
		{"bad issue date", `{"magazines": [{"key": "m", "issues_per_year": 4, "issues": [{"year": 2024, "number": 1, "date": "15.01.2024"}]}]}`, "issue 1/2024"},
		{"unknown customer", `{"contracts": [{"customer": "nobody"}]}`, `unknown customer "nobody"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, err := sqlite.Open(ctx, ":memory:")
			require.NoError(t, err)
			defer store.Close()

			doc, err := Decode(strings.NewReader(tt.doc))
			if err == nil {
				_, err = Load(ctx, doc, store, contract.NewCreator(store, nil))
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
