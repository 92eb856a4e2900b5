package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const contractColumns = `
	id, refid, customer_id, subscription_id, start_date, end_date, value, payment_type,
	shipping_address_id, billing_address_id, bank_account_id, invoice_counter
`

// contractRow is a contracts row before its references are resolved.
type contractRow struct {
	id, refID, customerID, subscriptionID, startDate, value, paymentType string

	endDate, shippingID, billingID, bankID sql.NullString
	invoiceCounter                         int
}

func (r *contractRow) scanFrom(scan func(dest ...any) error) error {
	return scan(&r.id, &r.refID, &r.customerID, &r.subscriptionID, &r.startDate, &r.endDate, &r.value,
		&r.paymentType, &r.shippingID, &r.billingID, &r.bankID, &r.invoiceCounter)
}

// FindContractByReference returns the contract with the given reference code.
func (s *Store) FindContractByReference(ctx context.Context, refID string) (*models.Contract, error) {
	const op = "FindContractByReference"

	var row contractRow
	err := row.scanFrom(s.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE refid = ?`, refID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %s: %w", op, refID, services.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := newLoader(s.db).contract(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// ReferenceExists reports whether refID is taken.
func (s *Store) ReferenceExists(ctx context.Context, refID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contracts WHERE refid = ?`, refID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("ReferenceExists: %w", err)
	}
	return n > 0, nil
}

// GetContract loads a contract by ID.
func (s *Store) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	const op = "GetContract"

	var row contractRow
	err := row.scanFrom(s.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id.String()).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %s: %w", op, id, services.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := newLoader(s.db).contract(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// ListContracts returns all contracts ordered by reference code. Contracts
// of the same customer share one Customer value listing all of them.
func (s *Store) ListContracts(ctx context.Context) ([]*models.Contract, error) {
	const op = "ListContracts"

	rows, err := s.db.QueryContext(ctx, `SELECT `+contractColumns+` FROM contracts ORDER BY refid`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Rows are collected first: the single connection cannot serve the
	// follow-up queries while the result set is open.
	var pending []*contractRow
	for rows.Next() {
		row := &contractRow{}
		if err := row.scanFrom(rows.Scan); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		pending = append(pending, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows.Close()

	l := newLoader(s.db)
	contracts := make([]*models.Contract, 0, len(pending))
	for _, row := range pending {
		c, err := l.contract(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, row.refID, err)
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

// SaveContract upserts a contract. A reference code already used by
// another contract yields services.ErrDuplicateReference.
func (s *Store) SaveContract(ctx context.Context, c *models.Contract) error {
	const op = "SaveContract"

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Customer == nil || c.Subscription == nil {
		return fmt.Errorf("%s: contract %s lacks customer or subscription", op, c.RefID)
	}

	var shippingID, billingID, bankID any
	if c.ShippingAddress != nil {
		shippingID = nullID(c.ShippingAddress.ID)
	}
	if c.BillingAddress != nil {
		billingID = nullID(c.BillingAddress.ID)
	}
	if c.BankAccount != nil {
		bankID = nullID(c.BankAccount.ID)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contracts (`+contractColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			refid = excluded.refid,
			customer_id = excluded.customer_id,
			subscription_id = excluded.subscription_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			value = excluded.value,
			payment_type = excluded.payment_type,
			shipping_address_id = excluded.shipping_address_id,
			billing_address_id = excluded.billing_address_id,
			bank_account_id = excluded.bank_account_id,
			invoice_counter = MAX(contracts.invoice_counter, excluded.invoice_counter)
	`, c.ID.String(), c.RefID, c.Customer.ID.String(), c.Subscription.ID.String(),
		formatDate(c.StartDate), nullDate(c.EndDate), c.Value.String(), string(c.PaymentType),
		shippingID, billingID, bankID, c.InvoiceCounter)
	if err != nil {
		if isUniqueViolation(err, "contracts.refid") {
			return fmt.Errorf("%s: %s: %w", op, c.RefID, services.ErrDuplicateReference)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// contract resolves the references of row.
func (l *loader) contract(ctx context.Context, row *contractRow) (*models.Contract, error) {
	c := &models.Contract{
		RefID:          row.refID,
		PaymentType:    models.PaymentType(row.paymentType),
		InvoiceCounter: row.invoiceCounter,
	}

	var err error
	if c.ID, err = uuid.Parse(row.id); err != nil {
		return nil, err
	}
	if c.StartDate, err = parseDate(row.startDate); err != nil {
		return nil, err
	}
	if c.EndDate, err = parseNullDate(row.endDate); err != nil {
		return nil, err
	}
	if c.Value, err = decimal.NewFromString(row.value); err != nil {
		return nil, err
	}

	customerID, err := uuid.Parse(row.customerID)
	if err != nil {
		return nil, err
	}
	if c.Customer, err = l.customer(ctx, customerID); err != nil {
		return nil, err
	}
	c.Customer.Contracts = append(c.Customer.Contracts, c)

	subscriptionID, err := uuid.Parse(row.subscriptionID)
	if err != nil {
		return nil, err
	}
	if c.Subscription, err = l.subscription(ctx, subscriptionID); err != nil {
		return nil, err
	}

	if id, ok, err := parseNullID(row.shippingID); err != nil {
		return nil, err
	} else if ok {
		c.ShippingAddress = findAddress(c.Customer, id)
	}
	if id, ok, err := parseNullID(row.billingID); err != nil {
		return nil, err
	} else if ok {
		c.BillingAddress = findAddress(c.Customer, id)
	}
	if id, ok, err := parseNullID(row.bankID); err != nil {
		return nil, err
	} else if ok {
		for _, b := range c.Customer.BankAccounts {
			if b.ID == id {
				c.BankAccount = b
			}
		}
	}
	return c, nil
}

func findAddress(c *models.Customer, id uuid.UUID) *models.Address {
	for _, a := range c.Addresses {
		if a.ID == id {
			return a
		}
	}
	return nil
}
