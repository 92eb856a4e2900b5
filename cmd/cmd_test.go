package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"abo/internal/config"
	"abo/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementSource(t *testing.T) {
	tests := []struct {
		source, path string
		want         string
		wantErr      bool
	}{
		{"", "", "sheets", false},
		{"", "auszug.csv", "csv", false},
		{"", "Auszug.XLSX", "xlsx", false},
		{"xlsx", "export.dat", "xlsx", false},
		{"csv", "", "", true},
		{"sheets", "", "sheets", false},
	}
	for _, tt := range tests {
		got, err := statementSource(tt.source, tt.path)
		if tt.wantErr {
			assert.Error(t, err, tt.source)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestSelectContracts(t *testing.T) {
	addr := &models.Address{Recipient: "Erika Mustermann"}
	newContract := func(ref string, start time.Time, end *time.Time) *models.Contract {
		return &models.Contract{
			ID: uuid.New(), RefID: ref,
			Customer:        &models.Customer{Name: "Erika Mustermann"},
			Subscription:    &models.Subscription{Name: "Jahresabo", Magazine: &models.Magazine{IssuesPerYear: 12}},
			StartDate:       start,
			EndDate:         end,
			Value:           decimal.RequireFromString("48.00"),
			PaymentType:     models.PaymentInvoice,
			BillingAddress:  addr,
			ShippingAddress: addr,
		}
	}
	running := newContract("RUN", models.Date(2024, 1, 1), nil)
	ended := newContract("END", models.Date(2023, 1, 1), models.DatePtr(models.Date(2023, 12, 31)))
	future := newContract("NEW", models.Date(2025, 1, 1), nil)
	draft := newContract("DRA", models.Date(2024, 1, 1), nil)
	draft.BillingAddress = nil

	contracts := []*models.Contract{running, ended, future, draft}
	date := models.Date(2024, 6, 30)

	assert.Equal(t, []*models.Contract{running}, selectContracts(contracts, date, false))
	assert.Equal(t, []*models.Contract{running, ended}, selectContracts(contracts, date, true))
}

func TestInvoiceRequest(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addInvoiceFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--date", "2024-06-30", "--maturity-days", "30", "--dry-run"}))

	req, err := invoiceRequest(cmd)
	require.NoError(t, err)
	assert.Equal(t, models.Date(2024, 6, 30), req.IssueDate)
	require.NotNil(t, req.MaturityOffset)
	assert.Equal(t, 30*24*time.Hour, *req.MaturityOffset)
	assert.True(t, req.MaturityDate.IsZero())
	assert.True(t, req.DryRun)

	bad := &cobra.Command{Use: "bad"}
	addInvoiceFlags(bad)
	require.NoError(t, bad.Flags().Parse([]string{"--start", "01.01.2024"}))
	_, err = invoiceRequest(bad)
	assert.ErrorContains(t, err, "--start")
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "kurz", shorten("kurz", 10))
	assert.Equal(t, "Überwe…", shorten("Überweisung", 7))
}

const testDataset = `{
  "magazines": [{
    "key": "garten", "name": "Gartenfreund", "issues_per_year": 4,
    "issues": [
      {"year": 2024, "number": 1, "date": "2024-01-15"},
      {"year": 2024, "number": 2, "date": "2024-04-15"}
    ]
  }],
  "subscriptions": [{"key": "jahr", "magazine": "garten", "name": "Jahresabo", "value": "39.90"}],
  "customers": [{
    "key": "erika", "name": "Erika Mustermann",
    "addresses": [{"key": "home", "recipient": "Erika Mustermann", "street": "Heidestr. 17", "postcode": "51147", "city": "Köln", "country": "DE"}]
  }],
  "contracts": [{"refid": "ABCDEFNB", "customer": "erika", "subscription": "jahr", "start_date": "2024-01-01",
    "shipping_address": "home", "billing_address": "home"}]
}`

func TestLoadAndInvoiceCommands(t *testing.T) {
	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "stammdaten.json")
	outputPath := filepath.Join(dir, "invoice.json")
	require.NoError(t, os.WriteFile(datasetPath, []byte(testDataset), 0o600))

	previous := appConfig
	appConfig = &config.Config{DatabasePath: filepath.Join(dir, "abo.db"), MaturityDays: 14, BatchWorkers: 2}
	t.Cleanup(func() { appConfig = previous })

	rootCmd.SetArgs([]string{"load", datasetPath})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"invoice", "abcdefnb", "--date", "2024-06-30", "--dry-run", "-o", outputPath})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var out InvoiceOutput
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "ABCDEFNB", out.Invoice.ContractRef)
	assert.Equal(t, "Erika Mustermann", out.Invoice.Customer)
	assert.Equal(t, 1, out.Invoice.Number)
	assert.Equal(t, "2024-01-01", out.Invoice.AccountingStart)
	assert.Equal(t, "2024-06-30", out.Invoice.AccountingEnd)
	assert.Equal(t, "2024-07-14", out.Invoice.MaturityDate)
	assert.NotEmpty(t, out.Invoice.Entries)
	assert.True(t, out.Metadata.DryRun)
}
