package sheets

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9xYz/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9xYz", id)

	_, err = extractSpreadsheetID("https://example.org/not-a-sheet")
	assert.Error(t, err)
}

func TestColumnName(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "A"},
		{10, "J"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{703, "AAA"},
		{0, "A"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, columnName(tt.n), "column %d", tt.n)
	}
	assert.Equal(t, "Debitoren!A:J", columnRange(DebtorsSheet, len(InvoiceHeaders)))
}

func TestRowToValues(t *testing.T) {
	row := InvoiceRow{
		RefID:        "ABCDEFNB",
		Number:       2,
		IssueDate:    time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Customer:     "Erika Mustermann",
		Value:        decimal.RequireFromString("19.96"),
		ValueLeft:    decimal.RequireFromString("9.96"),
		MaturityDate: time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC),
		PeriodStart:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:    time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Status:       "offen",
	}

	values := rowToValues(row, "01.07.2024 10:00:00")
	require.Len(t, values, len(InvoiceHeaders))
	assert.Equal(t, "ABCDEFNB", values[0])
	assert.Equal(t, 2, values[1])
	assert.Equal(t, "01.07.2024", values[2])
	assert.Equal(t, 19.96, values[4])
	assert.Equal(t, 9.96, values[5])
	assert.Equal(t, "15.07.2024", values[6])
	assert.Equal(t, "01.01.2024 - 30.06.2024", values[7])
	assert.Equal(t, "01.07.2024 10:00:00", values[9])

	assert.Equal(t, "", rowToValues(InvoiceRow{}, "")[2])
}
