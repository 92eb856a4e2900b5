package reconciliation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeStatementWorkbook(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", BankSheet))
	rows := [][]interface{}{
		{"Datum", "Typ", "Beschreibung", "EREF", "MREF", "CRED", "SVWZ", "Absender", "BIC", "IBAN", "Betrag", "Saldo"},
		{"01.07.2024", "Gutschrift", "", "", "", "", "Abo ZZZZZZAG", "Max Muster", "", "DE02120300000000202051", "29,90", "1.000,00"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(BankSheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "statement.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestWorkbookImporter(t *testing.T) {
	wb, err := OpenWorkbook(writeStatementWorkbook(t))
	require.NoError(t, err)
	defer wb.Close()

	values, err := wb.ReadRange(context.Background(), "Bank!A:K")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Len(t, values[1], 11)

	records, err := NewDataReader(wb, BankSheet).Read(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Value.Equal(decimal.RequireFromString("29.90")))
	assert.Equal(t, "Abo ZZZZZZAG", records[0].Description)
	assert.Equal(t, "Max Muster", records[0].CounterParty)

	_, err = wb.ReadRange(context.Background(), "Fehlt!A:K")
	assert.Error(t, err)
}

func TestWorkbookStatementSheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Umsätze"))
	path := filepath.Join(t.TempDir(), "umsaetze.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	wb, err := OpenWorkbook(path)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, "Umsätze", wb.StatementSheet())

	wb2, err := OpenWorkbook(writeStatementWorkbook(t))
	require.NoError(t, err)
	defer wb2.Close()
	assert.Equal(t, BankSheet, wb2.StatementSheet())
}
