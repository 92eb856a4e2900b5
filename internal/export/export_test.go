package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"abo/internal/sheets"
	"abo/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testInvoices() []*models.Invoice {
	customer := &models.Customer{Name: "Erika Mustermann"}
	c := &models.Contract{
		ID:          uuid.New(),
		RefID:       "ABCDEFNB",
		Customer:    customer,
		PaymentType: models.PaymentInvoice,
		BillingAddress: &models.Address{
			Recipient: "Erika Mustermann", Street: "Heidestr. 17", Postcode: "51147", City: "Köln", Country: "DE",
		},
	}
	open := &models.Invoice{
		ID: uuid.New(), ContractID: c.ID, Contract: c, Number: 1,
		AccountingStart: models.Date(2024, 1, 1),
		AccountingEnd:   models.Date(2024, 6, 30),
		IssueDate:       models.Date(2024, 7, 1),
		MaturityDate:    models.Date(2024, 7, 15),
		Entries: []*models.BookkeepingEntry{
			{Value: decimal.RequireFromString("19.96")},
			{Value: decimal.RequireFromString("-9.96")},
		},
	}
	paid := &models.Invoice{
		ID: uuid.New(), ContractID: c.ID, Contract: c, Number: 2,
		AccountingStart: models.Date(2024, 7, 1),
		AccountingEnd:   models.Date(2024, 12, 31),
		IssueDate:       models.Date(2025, 1, 2),
		MaturityDate:    models.Date(2025, 1, 16),
		Entries: []*models.BookkeepingEntry{
			{Value: decimal.RequireFromString("1234.5")},
			{Value: decimal.RequireFromString("-1234.5")},
		},
	}
	return []*models.Invoice{open, paid}
}

func TestInvoiceCSV(t *testing.T) {
	invoices := testInvoices()
	progress := make(chan Progress, len(invoices))

	var buf bytes.Buffer
	require.NoError(t, InvoiceCSV{}.Write(context.Background(), invoices, &buf, progress))
	close(progress)

	want := strings.Join([]string{
		"Referenz;Rechnungsnr;Rechnungsdatum;Kunde;Betrag;Offen;Fälligkeit;Beginn;Ende;Status",
		"ABCDEFNB;1;01.07.2024;Erika Mustermann;19,96;10,00;15.07.2024;01.01.2024;30.06.2024;offen",
		"ABCDEFNB;2;02.01.2025;Erika Mustermann;1234,50;0,00;16.01.2025;01.07.2024;31.12.2024;bezahlt",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())

	var got []Progress
	for p := range progress {
		got = append(got, p)
	}
	assert.Equal(t, []Progress{{1, 2}, {2, 2}}, got)
}

func TestInvoiceCSVCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := InvoiceCSV{}.Write(ctx, testInvoices(), &bytes.Buffer{}, make(chan Progress))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAddressCSV(t *testing.T) {
	c := testInvoices()[0].Contract
	withoutAddress := &models.Contract{RefID: "ZZZZZZAG", PaymentType: models.PaymentDirectWithdrawal,
		BankAccount: &models.BankAccount{IBAN: "DE02120300000000202051"}}

	var buf bytes.Buffer
	require.NoError(t, AddressCSV{}.Write(context.Background(), []*models.Contract{c, withoutAddress}, &buf, nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Referenz;Empfänger;Straße;PLZ;Ort;Land;Zahlungsart;IBAN", lines[0])
	assert.Equal(t, "ABCDEFNB;Erika Mustermann;Heidestr. 17;51147;Köln;DE;INVOICE;", lines[1])
	assert.Equal(t, "ZZZZZZAG;;;;;;DIRECT_WITHDRAWAL;DE02120300000000202051", lines[2])
}

func TestInvoiceXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InvoiceXLSX{}.Write(context.Background(), testInvoices(), &buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(InvoiceSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Referenz", rows[0][0])
	assert.Equal(t, "ABCDEFNB", rows[1][0])
	assert.Equal(t, "19.96", rows[1][4])
	assert.Equal(t, "bezahlt", rows[2][9])
}

type fakeSheets struct {
	rows  []sheets.InvoiceRow
	sheet string
	err   error
}

func (f *fakeSheets) ReadRange(context.Context, string) ([][]interface{}, error) {
	return [][]interface{}{
		{"Datum", "Typ", "Beschreibung", "EREF", "MREF", "CRED", "SVWZ", "Absender", "BIC", "IBAN", "Betrag"},
		{"01.07.2024", "", "", "", "", "", "ABCDEFNB", "", "", "", "19,96"},
	}, nil
}

func (f *fakeSheets) WriteInvoices(_ context.Context, rows []sheets.InvoiceRow, sheetName string) error {
	f.rows = rows
	f.sheet = sheetName
	return f.err
}

func TestInvoiceSheets(t *testing.T) {
	client := &fakeSheets{}
	formatter := InvoiceSheets{Dial: func(context.Context) (SheetsClient, error) { return client, nil }}

	var buf bytes.Buffer
	require.NoError(t, formatter.Write(context.Background(), testInvoices(), &buf, nil))
	assert.Equal(t, sheets.DebtorsSheet, client.sheet)
	require.Len(t, client.rows, 2)
	assert.Equal(t, "Erika Mustermann", client.rows[0].Customer)
	assert.Equal(t, StatusOpen, client.rows[0].Status)
	assert.Equal(t, "2 invoices appended to sheet Debitoren\n", buf.String())

	client.err = errors.New("quota exceeded")
	assert.ErrorContains(t, formatter.Write(context.Background(), testInvoices(), &buf, nil), "quota exceeded")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	dial := func(context.Context) (SheetsClient, error) { return &fakeSheets{}, nil }
	require.NoError(t, RegisterBuiltins(r, dial))

	assert.Equal(t, []Key{
		{CategoryAddress, "csv"},
		{CategoryBank, "csv"},
		{CategoryBank, "sheets"},
		{CategoryBank, "xlsx"},
		{CategoryInvoice, "csv"},
		{CategoryInvoice, "sheets"},
		{CategoryInvoice, "xlsx"},
	}, r.List())

	assert.Error(t, r.RegisterInvoiceFormatter("csv", InvoiceCSV{}))

	f, err := r.InvoiceFormatter("csv")
	require.NoError(t, err)
	assert.IsType(t, InvoiceCSV{}, f)

	_, err = r.InvoiceFormatter("pdf")
	assert.ErrorIs(t, err, ErrUnknownPlugin)

	importer, err := r.Importer(context.Background(), "sheets", "")
	require.NoError(t, err)
	records, err := importer.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ABCDEFNB", records[0].Description)

	_, err = r.Importer(context.Background(), "csv", "")
	assert.Error(t, err)
}

func TestRegistryWithoutSheets(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r, nil))

	_, err := r.InvoiceFormatter("sheets")
	assert.ErrorIs(t, err, ErrUnknownPlugin)
	assert.Len(t, r.List(), 5)
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugins.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"enabled": [
		{"category": "invoice", "id": "csv"},
		{"category": "bank", "id": "csv"}
	]}`), 0o600))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Enabled, 2)

	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r, nil))
	require.NoError(t, r.Apply(m))

	assert.Equal(t, []Key{{CategoryBank, "csv"}, {CategoryInvoice, "csv"}}, r.List())
	_, err = r.ContractFormatter("csv")
	assert.ErrorIs(t, err, ErrPluginDisabled)
	_, err = r.InvoiceFormatter("csv")
	assert.NoError(t, err)

	t.Run("unknown plugin", func(t *testing.T) {
		err := r.Apply(&Manifest{Enabled: []Key{{CategoryInvoice, "sepa"}}})
		assert.ErrorIs(t, err, ErrUnknownPlugin)
		assert.Len(t, r.List(), 2)
	})

	t.Run("invalid", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{"enabled": [{"category": "letter", "id": "tex"}]}`), 0o600))
		_, err := LoadManifest(bad)
		assert.ErrorContains(t, err, "invalid category")

		_, err = LoadManifest(filepath.Join(dir, "missing.json"))
		assert.Error(t, err)
	})
}
