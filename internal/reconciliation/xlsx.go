package reconciliation

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook serves ranges of a local Excel statement export, so that
// DataReader parses it like the Bank sheet.
type Workbook struct {
	file *excelize.File
}

// OpenWorkbook opens the .xlsx file at path.
func OpenWorkbook(path string) (*Workbook, error) {
	const op = "OpenWorkbook"

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Workbook{file: f}, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// StatementSheet returns BankSheet if the workbook has it, otherwise its
// first sheet.
func (w *Workbook) StatementSheet() string {
	list := w.file.GetSheetList()
	for _, name := range list {
		if name == BankSheet {
			return name
		}
	}
	if len(list) == 0 {
		return BankSheet
	}
	return list[0]
}

// ReadRange returns the rows of a range such as "Bank!A:K". Only the sheet
// name and the last column are honoured; all rows are returned.
func (w *Workbook) ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error) {
	const op = "Workbook.ReadRange"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sheet, cols, _ := strings.Cut(rangeSpec, "!")
	limit := 0
	if _, last, ok := strings.Cut(cols, ":"); ok {
		n, err := excelize.ColumnNameToNumber(last)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid range %s: %w", op, rangeSpec, err)
		}
		limit = n
	}

	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read sheet %s: %w", op, sheet, err)
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		if limit > 0 && len(row) > limit {
			row = row[:limit]
		}
		cells := make([]interface{}, len(row))
		for i, c := range row {
			cells[i] = c
		}
		values = append(values, cells)
	}
	return values, nil
}
