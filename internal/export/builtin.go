package export

import (
	"context"
	"fmt"

	"abo/internal/reconciliation"
	"abo/pkg/services"
)

// RegisterBuiltins registers the plugins shipped with abo. The Google
// Sheets plugins are only registered if dial is not nil.
func RegisterBuiltins(r *Registry, dial SheetsDialer) error {
	regs := []func() error{
		func() error { return r.RegisterInvoiceFormatter("csv", InvoiceCSV{}) },
		func() error { return r.RegisterInvoiceFormatter("xlsx", InvoiceXLSX{}) },
		func() error { return r.RegisterContractFormatter("csv", AddressCSV{}) },
		func() error { return r.RegisterImporter("csv", csvImporter) },
		func() error { return r.RegisterImporter("xlsx", xlsxImporter) },
	}
	if dial != nil {
		regs = append(regs,
			func() error { return r.RegisterInvoiceFormatter("sheets", InvoiceSheets{Dial: dial}) },
			func() error { return r.RegisterImporter("sheets", sheetsImporter(dial)) },
		)
	}

	for _, reg := range regs {
		if err := reg(); err != nil {
			return err
		}
	}
	return nil
}

func csvImporter(_ context.Context, source string) (services.Importer, error) {
	if source == "" {
		return nil, fmt.Errorf("csv importer: statement file required")
	}
	return reconciliation.NewCSVImporter(source), nil
}

func xlsxImporter(_ context.Context, source string) (services.Importer, error) {
	if source == "" {
		return nil, fmt.Errorf("xlsx importer: statement file required")
	}
	return workbookImporter{path: source}, nil
}

// sheetsImporter reads the Bank sheet, or the sheet named by source.
func sheetsImporter(dial SheetsDialer) ImporterFactory {
	return func(ctx context.Context, source string) (services.Importer, error) {
		client, err := dial(ctx)
		if err != nil {
			return nil, err
		}
		return reconciliation.NewDataReader(client, source), nil
	}
}

// workbookImporter opens the workbook for the duration of one Read.
type workbookImporter struct {
	path string
}

func (wi workbookImporter) Read(ctx context.Context) ([]services.StatementRecord, error) {
	wb, err := reconciliation.OpenWorkbook(wi.path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	return reconciliation.NewDataReader(wb, wb.StatementSheet()).Read(ctx)
}
