package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"abo/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoicesForContract returns the contract's invoices ordered by number,
// each with all entries linked to it (charges and payments).
func (s *Store) InvoicesForContract(ctx context.Context, contractID uuid.UUID) ([]*models.Invoice, error) {
	const op = "InvoicesForContract"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, accounting_start, accounting_end, issue_date, maturity_date, created_at
		FROM invoices WHERE contract_id = ? ORDER BY number
	`, contractID.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var invoices []*models.Invoice
	byID := make(map[uuid.UUID]*models.Invoice)
	for rows.Next() {
		var id, start, end, issued, maturity, created string
		inv := &models.Invoice{ContractID: contractID}
		if err := rows.Scan(&id, &inv.Number, &start, &end, &issued, &maturity, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := parseInvoice(inv, id, start, end, issued, maturity, created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		invoices = append(invoices, inv)
		byID[inv.ID] = inv
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows.Close()

	entries, err := s.entries(ctx, `WHERE contract_id = ? AND invoice_id IS NOT NULL`, contractID.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, e := range entries {
		if inv, ok := byID[*e.InvoiceID]; ok {
			inv.Entries = append(inv.Entries, e)
		}
	}
	return invoices, nil
}

// EntriesForContract returns all bookkeeping entries of a contract ordered
// by date, including payments not linked to an invoice.
func (s *Store) EntriesForContract(ctx context.Context, contractID uuid.UUID) ([]*models.BookkeepingEntry, error) {
	entries, err := s.entries(ctx, `WHERE contract_id = ?`, contractID.String())
	if err != nil {
		return nil, fmt.Errorf("EntriesForContract: %w", err)
	}
	return entries, nil
}

// SaveInvoice inserts the invoice and its entries and raises the contract's
// invoice counter, all in one transaction.
func (s *Store) SaveInvoice(ctx context.Context, inv *models.Invoice) error {
	const op = "SaveInvoice"

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}

	err := s.inTx(ctx, op, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoices (id, contract_id, number, accounting_start, accounting_end, issue_date, maturity_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, inv.ID.String(), inv.ContractID.String(), inv.Number,
			formatDate(inv.AccountingStart), formatDate(inv.AccountingEnd),
			formatDate(inv.IssueDate), formatDate(inv.MaturityDate),
			inv.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			if isUniqueViolation(err, "invoices.contract_id") {
				return fmt.Errorf("invoice number %d already exists: %w", inv.Number, err)
			}
			return err
		}

		for _, e := range inv.Entries {
			id := inv.ID
			e.InvoiceID = &id
			if err := insertEntry(ctx, tx, e); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE contracts SET invoice_counter = MAX(invoice_counter, ?) WHERE id = ?
		`, inv.Number, inv.ContractID.String())
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("contract %s does not exist", inv.ContractID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if inv.Contract != nil && inv.Number > inv.Contract.InvoiceCounter {
		inv.Contract.InvoiceCounter = inv.Number
	}
	return nil
}

// SaveEntry inserts a single bookkeeping entry.
func (s *Store) SaveEntry(ctx context.Context, e *models.BookkeepingEntry) error {
	if err := insertEntry(ctx, s.db, e); err != nil {
		return fmt.Errorf("SaveEntry: %w", err)
	}
	return nil
}

func insertEntry(ctx context.Context, q querier, e *models.BookkeepingEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	var invoiceID any
	if e.InvoiceID != nil {
		invoiceID = e.InvoiceID.String()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO bookkeeping_entries (id, contract_id, invoice_id, date, value, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID.String(), e.ContractID.String(), invoiceID, formatDate(e.Date), e.Value.String(),
		e.Description, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) entries(ctx context.Context, where string, args ...any) ([]*models.BookkeepingEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, invoice_id, date, value, description, created_at
		FROM bookkeeping_entries `+where+` ORDER BY date, created_at
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.BookkeepingEntry
	for rows.Next() {
		var (
			id, contractID, date, value, created string
			invoiceID                            sql.NullString
		)
		e := &models.BookkeepingEntry{}
		if err := rows.Scan(&id, &contractID, &invoiceID, &date, &value, &e.Description, &created); err != nil {
			return nil, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if e.ContractID, err = uuid.Parse(contractID); err != nil {
			return nil, err
		}
		if invID, ok, err := parseNullID(invoiceID); err != nil {
			return nil, err
		} else if ok {
			e.InvoiceID = &invID
		}
		if e.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if e.Value, err = decimal.NewFromString(value); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func parseInvoice(inv *models.Invoice, id, start, end, issued, maturity, created string) error {
	var err error
	if inv.ID, err = uuid.Parse(id); err != nil {
		return err
	}
	if inv.AccountingStart, err = parseDate(start); err != nil {
		return err
	}
	if inv.AccountingEnd, err = parseDate(end); err != nil {
		return err
	}
	if inv.IssueDate, err = parseDate(issued); err != nil {
		return err
	}
	if inv.MaturityDate, err = parseDate(maturity); err != nil {
		return err
	}
	inv.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	return err
}
