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

// SaveMagazine upserts a magazine together with its issues.
func (s *Store) SaveMagazine(ctx context.Context, m *models.Magazine) error {
	const op = "SaveMagazine"

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return s.inTx(ctx, op, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO magazines (id, name, issues_per_year) VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				issues_per_year = excluded.issues_per_year
		`, m.ID.String(), m.Name, m.IssuesPerYear)
		if err != nil {
			return err
		}

		for _, issue := range m.Issues {
			if issue.ID == uuid.Nil {
				issue.ID = uuid.New()
			}
			issue.MagazineID = m.ID
			_, err := tx.ExecContext(ctx, `
				INSERT INTO issues (id, magazine_id, year, number, date) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					year = excluded.year,
					number = excluded.number,
					date = excluded.date
			`, issue.ID.String(), m.ID.String(), issue.Year, issue.Number, formatDate(issue.Date))
			if err != nil {
				return fmt.Errorf("issue %d/%d: %w", issue.Year, issue.Number, err)
			}
		}
		return nil
	})
}

// SaveSubscription upserts a subscription. Its magazine must exist.
func (s *Store) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	const op = "SaveSubscription"

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.Magazine != nil {
		sub.MagazineID = sub.Magazine.ID
	}

	var numberOfIssues any
	if sub.NumberOfIssues != nil {
		numberOfIssues = *sub.NumberOfIssues
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, magazine_id, name, value, value_changeable, number_of_issues)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			magazine_id = excluded.magazine_id,
			name = excluded.name,
			value = excluded.value,
			value_changeable = excluded.value_changeable,
			number_of_issues = excluded.number_of_issues
	`, sub.ID.String(), sub.MagazineID.String(), sub.Name, sub.Value.String(), boolToInt(sub.ValueChangeable), numberOfIssues)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SaveCustomer upserts a customer with addresses and bank accounts.
// Contracts are saved separately.
func (s *Store) SaveCustomer(ctx context.Context, c *models.Customer) error {
	const op = "SaveCustomer"

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return s.inTx(ctx, op, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO customers (id, name, email) VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, email = excluded.email
		`, c.ID.String(), c.Name, c.Email)
		if err != nil {
			return err
		}

		for _, a := range c.Addresses {
			if a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			a.CustomerID = c.ID
			_, err := tx.ExecContext(ctx, `
				INSERT INTO addresses (id, customer_id, recipient, street, postcode, city, country)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					recipient = excluded.recipient,
					street = excluded.street,
					postcode = excluded.postcode,
					city = excluded.city,
					country = excluded.country
			`, a.ID.String(), c.ID.String(), a.Recipient, a.Street, a.Postcode, a.City, a.Country)
			if err != nil {
				return fmt.Errorf("address: %w", err)
			}
		}

		for _, b := range c.BankAccounts {
			if b.ID == uuid.Nil {
				b.ID = uuid.New()
			}
			b.CustomerID = c.ID
			_, err := tx.ExecContext(ctx, `
				INSERT INTO bank_accounts (id, customer_id, owner, iban, bic, mandate_reference, mandate_date)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					owner = excluded.owner,
					iban = excluded.iban,
					bic = excluded.bic,
					mandate_reference = excluded.mandate_reference,
					mandate_date = excluded.mandate_date
			`, b.ID.String(), c.ID.String(), b.Owner, b.IBAN, b.BIC, b.MandateReference, nullDate(&b.MandateDate))
			if err != nil {
				return fmt.Errorf("bank account: %w", err)
			}
		}
		return nil
	})
}

// inTx runs fn in a transaction and commits if it succeeds.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// loader assembles contracts and shares magazines, subscriptions and
// customers between them.
type loader struct {
	q             querier
	magazines     map[uuid.UUID]*models.Magazine
	subscriptions map[uuid.UUID]*models.Subscription
	customers     map[uuid.UUID]*models.Customer
}

func newLoader(q querier) *loader {
	return &loader{
		q:             q,
		magazines:     make(map[uuid.UUID]*models.Magazine),
		subscriptions: make(map[uuid.UUID]*models.Subscription),
		customers:     make(map[uuid.UUID]*models.Customer),
	}
}

func (l *loader) magazine(ctx context.Context, id uuid.UUID) (*models.Magazine, error) {
	if m, ok := l.magazines[id]; ok {
		return m, nil
	}

	m := &models.Magazine{ID: id}
	err := l.q.QueryRowContext(ctx, `SELECT name, issues_per_year FROM magazines WHERE id = ?`, id.String()).
		Scan(&m.Name, &m.IssuesPerYear)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("magazine %s: %w", id, services.ErrNotFound)
		}
		return nil, err
	}

	rows, err := l.q.QueryContext(ctx, `
		SELECT id, year, number, date FROM issues WHERE magazine_id = ? ORDER BY date, year, number
	`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var issueID, date string
		issue := &models.Issue{MagazineID: id}
		if err := rows.Scan(&issueID, &issue.Year, &issue.Number, &date); err != nil {
			return nil, err
		}
		if issue.ID, err = uuid.Parse(issueID); err != nil {
			return nil, err
		}
		if issue.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		m.Issues = append(m.Issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	l.magazines[id] = m
	return m, nil
}

func (l *loader) subscription(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	if sub, ok := l.subscriptions[id]; ok {
		return sub, nil
	}

	var (
		magazineID, value string
		changeable        int
		numberOfIssues    sql.NullInt64
	)
	sub := &models.Subscription{ID: id}
	err := l.q.QueryRowContext(ctx, `
		SELECT magazine_id, name, value, value_changeable, number_of_issues FROM subscriptions WHERE id = ?
	`, id.String()).Scan(&magazineID, &sub.Name, &value, &changeable, &numberOfIssues)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subscription %s: %w", id, services.ErrNotFound)
		}
		return nil, err
	}

	if sub.MagazineID, err = uuid.Parse(magazineID); err != nil {
		return nil, err
	}
	if sub.Value, err = decimal.NewFromString(value); err != nil {
		return nil, err
	}
	sub.ValueChangeable = changeable != 0
	if numberOfIssues.Valid {
		n := int(numberOfIssues.Int64)
		sub.NumberOfIssues = &n
	}
	if sub.Magazine, err = l.magazine(ctx, sub.MagazineID); err != nil {
		return nil, err
	}

	l.subscriptions[id] = sub
	return sub, nil
}

func (l *loader) customer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if c, ok := l.customers[id]; ok {
		return c, nil
	}

	c := &models.Customer{ID: id}
	err := l.q.QueryRowContext(ctx, `SELECT name, email FROM customers WHERE id = ?`, id.String()).
		Scan(&c.Name, &c.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer %s: %w", id, services.ErrNotFound)
		}
		return nil, err
	}

	if err := l.addresses(ctx, c); err != nil {
		return nil, err
	}
	if err := l.bankAccounts(ctx, c); err != nil {
		return nil, err
	}

	l.customers[id] = c
	return c, nil
}

func (l *loader) addresses(ctx context.Context, c *models.Customer) error {
	rows, err := l.q.QueryContext(ctx, `
		SELECT id, recipient, street, postcode, city, country FROM addresses WHERE customer_id = ? ORDER BY rowid
	`, c.ID.String())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		a := &models.Address{CustomerID: c.ID}
		if err := rows.Scan(&id, &a.Recipient, &a.Street, &a.Postcode, &a.City, &a.Country); err != nil {
			return err
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return err
		}
		c.Addresses = append(c.Addresses, a)
	}
	return rows.Err()
}

func (l *loader) bankAccounts(ctx context.Context, c *models.Customer) error {
	rows, err := l.q.QueryContext(ctx, `
		SELECT id, owner, iban, bic, mandate_reference, mandate_date FROM bank_accounts WHERE customer_id = ? ORDER BY rowid
	`, c.ID.String())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          string
			mandateDate sql.NullString
		)
		b := &models.BankAccount{CustomerID: c.ID}
		if err := rows.Scan(&id, &b.Owner, &b.IBAN, &b.BIC, &b.MandateReference, &mandateDate); err != nil {
			return err
		}
		if b.ID, err = uuid.Parse(id); err != nil {
			return err
		}
		d, err := parseNullDate(mandateDate)
		if err != nil {
			return err
		}
		if d != nil {
			b.MandateDate = *d
		}
		c.BankAccounts = append(c.BankAccounts, b)
	}
	return rows.Err()
}
