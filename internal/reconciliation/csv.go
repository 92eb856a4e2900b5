package reconciliation

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"abo/internal/logger"
	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/rs/zerolog"
)

// Column order of a statement CSV export. Reference and invoice number are
// optional.
const (
	csvColDate = iota
	csvColValue
	csvColDescription
	csvColReference
	csvColInvoiceNumber
)

// CSVImporter reads statement records from a semicolon separated bank
// export: date; value; description[; reference code[; invoice number]].
// A first line whose date column does not parse is treated as header.
type CSVImporter struct {
	open func() (io.ReadCloser, error)
	name string
	log  zerolog.Logger
}

// NewCSVImporter reads statement records from the file at path.
func NewCSVImporter(path string) *CSVImporter {
	return &CSVImporter{
		open: func() (io.ReadCloser, error) { return os.Open(path) },
		name: path,
		log:  logger.WithComponent("csv-importer"),
	}
}

// NewCSVImporterFromReader reads statement records from r. r is consumed by
// the first Read.
func NewCSVImporterFromReader(r io.Reader) *CSVImporter {
	return &CSVImporter{
		open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
		name: "reader",
		log:  logger.WithComponent("csv-importer"),
	}
}

// Read implements services.Importer.
func (ci *CSVImporter) Read(ctx context.Context) ([]services.StatementRecord, error) {
	const op = "CSVImporter.Read"

	f, err := ci.open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records []services.StatementRecord
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", op, line, err)
		}

		if line == 1 && isHeader(row) {
			continue
		}

		rec, err := parseCSVRecord(row)
		if err != nil {
			ci.log.Warn().
				Err(err).
				Int("line", line).
				Str("source", ci.name).
				Msg("Failed to parse statement line, skipping")
			continue
		}
		records = append(records, rec)
	}

	ci.log.Info().
		Int("records", len(records)).
		Str("source", ci.name).
		Msg("Statement read successfully")

	return records, nil
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	_, err := parseGermanDate(row[csvColDate])
	return err != nil
}

func parseCSVRecord(row []string) (services.StatementRecord, error) {
	if len(row) <= csvColDescription {
		return services.StatementRecord{}, fmt.Errorf("expected at least %d columns, got %d", csvColDescription+1, len(row))
	}

	date, err := parseGermanDate(row[csvColDate])
	if err != nil {
		return services.StatementRecord{}, err
	}
	value, err := parseGermanAmount(row[csvColValue])
	if err != nil {
		return services.StatementRecord{}, err
	}

	rec := services.StatementRecord{
		BookingDate: models.Truncate(date),
		Value:       value,
		Description: strings.TrimSpace(row[csvColDescription]),
	}
	if len(row) > csvColReference {
		rec.ReferenceCode = strings.ToUpper(strings.TrimSpace(row[csvColReference]))
	}
	if len(row) > csvColInvoiceNumber {
		if s := strings.TrimSpace(row[csvColInvoiceNumber]); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return services.StatementRecord{}, fmt.Errorf("invalid invoice number %q: %w", s, err)
			}
			rec.InvoiceNumber = n
		}
	}
	return rec, nil
}
