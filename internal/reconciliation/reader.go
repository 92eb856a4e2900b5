package reconciliation

import (
	"context"
	"fmt"

	"abo/internal/logger"
	"abo/pkg/services"
	"github.com/rs/zerolog"
)

// BankSheet is the sheet bank transactions are read from by default.
const BankSheet = "Bank"

// bankColumns is the number of columns of the Bank sheet (A to K).
const bankColumns = 11

// RangeReader reads cell values from a spreadsheet range.
type RangeReader interface {
	ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error)
}

// DataReader handles reading bank transactions from Google Sheets
type DataReader struct {
	sheetsService RangeReader
	sheetName     string
	log           zerolog.Logger
}

// NewDataReader creates a new data reader for the given sheet. An empty
// sheetName selects BankSheet.
func NewDataReader(sheetsService RangeReader, sheetName string) *DataReader {
	if sheetName == "" {
		sheetName = BankSheet
	}
	return &DataReader{
		sheetsService: sheetsService,
		sheetName:     sheetName,
		log:           logger.WithComponent("reconciliation-reader"),
	}
}

// Read implements services.Importer.
func (dr *DataReader) Read(ctx context.Context) ([]services.StatementRecord, error) {
	transactions, err := dr.ReadBankTransactions(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]services.StatementRecord, 0, len(transactions))
	for i := range transactions {
		records = append(records, transactions[i].Record())
	}
	return records, nil
}

// ReadBankTransactions reads bank transactions from the sheet
func (dr *DataReader) ReadBankTransactions(ctx context.Context) ([]BankTransaction, error) {
	const op = "ReadBankTransactions"

	dr.log.Info().Str("sheet", dr.sheetName).Msg("Reading bank transactions")

	// Expected columns: A=Datum, B=Transaktionstyp, C=Beschreibung, D=EREF, E=MREF,
	// F=CRED, G=SVWZ, H=Empfänger/Absender, I=BIC, J=IBAN, K=Betrag
	values, err := dr.sheetsService.ReadRange(ctx, dr.sheetName+"!A:K")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s sheet: %w", op, dr.sheetName, err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %s sheet is empty", op, dr.sheetName)
	}

	// Skip header row and parse data
	var transactions []BankTransaction
	for i, row := range values[1:] {
		rowNum := i + 2 // Account for header and 0-based indexing

		if len(row) < bankColumns {
			dr.log.Warn().
				Int("row", rowNum).
				Int("columns", len(row)).
				Msg("Skipping bank transaction row with insufficient columns")
			continue
		}

		transaction, err := parseBankTransaction(row, rowNum)
		if err != nil {
			dr.log.Warn().
				Err(err).
				Int("row", rowNum).
				Msg("Failed to parse bank transaction, skipping")
			continue
		}

		transactions = append(transactions, transaction)
	}

	dr.log.Info().
		Int("total_rows", len(values)-1).
		Int("parsed_transactions", len(transactions)).
		Str("sheet", dr.sheetName).
		Msg("Bank transactions read successfully")

	return transactions, nil
}

// parseBankTransaction parses a single bank transaction row
func parseBankTransaction(row []interface{}, rowNum int) (BankTransaction, error) {
	const op = "parseBankTransaction"

	dateStr := getString(row, 0)
	date, err := parseGermanDate(dateStr)
	if err != nil {
		return BankTransaction{}, fmt.Errorf("%s: invalid date '%s' in row %d: %w", op, dateStr, rowNum, err)
	}

	amountStr := getString(row, 10)
	amount, err := parseGermanAmount(amountStr)
	if err != nil {
		return BankTransaction{}, fmt.Errorf("%s: invalid amount '%s' in row %d: %w", op, amountStr, rowNum, err)
	}

	return BankTransaction{
		Date:         date,
		Type:         getString(row, 1),
		Description:  getString(row, 2),
		EREF:         getString(row, 3),
		MREF:         getString(row, 4),
		CRED:         getString(row, 5),
		SVWZ:         getString(row, 6),
		CounterParty: getString(row, 7),
		BIC:          getString(row, 8),
		IBAN:         getString(row, 9),
		Amount:       amount,
	}, nil
}
