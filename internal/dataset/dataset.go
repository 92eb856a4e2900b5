// Package dataset loads master data (magazines, subscriptions, customers
// and contracts) from a JSON document. Records reference each other by a
// document-local key.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"abo/internal/logger"
	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document is the JSON layout read by Load.
type Document struct {
	Magazines     []Magazine     `json:"magazines"`
	Subscriptions []Subscription `json:"subscriptions"`
	Customers     []Customer     `json:"customers"`
	Contracts     []Contract     `json:"contracts"`
}

type Magazine struct {
	Key           string  `json:"key"`
	Name          string  `json:"name"`
	IssuesPerYear int     `json:"issues_per_year"`
	Issues        []Issue `json:"issues"`
}

type Issue struct {
	Year   int    `json:"year"`
	Number int    `json:"number"`
	Date   string `json:"date"`
}

type Subscription struct {
	Key             string          `json:"key"`
	Magazine        string          `json:"magazine"`
	Name            string          `json:"name"`
	Value           decimal.Decimal `json:"value"`
	ValueChangeable bool            `json:"value_changeable"`
	NumberOfIssues  *int            `json:"number_of_issues,omitempty"`
}

type Customer struct {
	Key          string        `json:"key"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Addresses    []Address     `json:"addresses"`
	BankAccounts []BankAccount `json:"bank_accounts"`
}

type Address struct {
	Key       string `json:"key"`
	Recipient string `json:"recipient"`
	Street    string `json:"street"`
	Postcode  string `json:"postcode"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

type BankAccount struct {
	Key              string `json:"key"`
	Owner            string `json:"owner"`
	IBAN             string `json:"iban"`
	BIC              string `json:"bic"`
	MandateReference string `json:"mandate_reference"`
	MandateDate      string `json:"mandate_date"`
}

type Contract struct {
	RefID           string             `json:"refid,omitempty"`
	Customer        string             `json:"customer"`
	Subscription    string             `json:"subscription"`
	StartDate       string             `json:"start_date"`
	EndDate         string             `json:"end_date,omitempty"`
	Value           *decimal.Decimal   `json:"value,omitempty"` // default: subscription value
	PaymentType     models.PaymentType `json:"payment_type"`
	ShippingAddress string             `json:"shipping_address"`
	BillingAddress  string             `json:"billing_address"`
	BankAccount     string             `json:"bank_account,omitempty"`
}

// ContractCreator stores a new contract, assigning a reference code if it
// has none.
type ContractCreator interface {
	Create(ctx context.Context, c *models.Contract) error
}

// Summary counts the stored records.
type Summary struct {
	Magazines     int
	Issues        int
	Subscriptions int
	Customers     int
	Contracts     []*models.Contract
}

// Decode parses a document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &doc, nil
}

// Load stores all records of doc. Records are stored in dependency order;
// the first failure aborts the load, leaving earlier records stored.
func Load(ctx context.Context, doc *Document, catalog services.CatalogRepository, creator ContractCreator) (*Summary, error) {
	const op = "Load"

	log := logger.WithComponent("dataset")
	l := &linker{
		magazines:     make(map[string]*models.Magazine),
		subscriptions: make(map[string]*models.Subscription),
		customers:     make(map[string]*customerRefs),
	}
	summary := &Summary{}

	for _, m := range doc.Magazines {
		mag, err := l.magazine(m)
		if err != nil {
			return summary, fmt.Errorf("%s: magazine %q: %w", op, m.Key, err)
		}
		if err := catalog.SaveMagazine(ctx, mag); err != nil {
			return summary, fmt.Errorf("%s: magazine %q: %w", op, m.Key, err)
		}
		summary.Magazines++
		summary.Issues += len(mag.Issues)
	}

	for _, s := range doc.Subscriptions {
		sub, err := l.subscription(s)
		if err != nil {
			return summary, fmt.Errorf("%s: subscription %q: %w", op, s.Key, err)
		}
		if err := catalog.SaveSubscription(ctx, sub); err != nil {
			return summary, fmt.Errorf("%s: subscription %q: %w", op, s.Key, err)
		}
		summary.Subscriptions++
	}

	for _, c := range doc.Customers {
		customer, err := l.customer(c)
		if err != nil {
			return summary, fmt.Errorf("%s: customer %q: %w", op, c.Key, err)
		}
		if err := catalog.SaveCustomer(ctx, customer); err != nil {
			return summary, fmt.Errorf("%s: customer %q: %w", op, c.Key, err)
		}
		summary.Customers++
	}

	for i, c := range doc.Contracts {
		contract, err := l.contract(c)
		if err != nil {
			return summary, fmt.Errorf("%s: contract %d: %w", op, i+1, err)
		}
		if err := creator.Create(ctx, contract); err != nil {
			return summary, fmt.Errorf("%s: contract %d: %w", op, i+1, err)
		}
		summary.Contracts = append(summary.Contracts, contract)
	}

	log.Info().
		Int("magazines", summary.Magazines).
		Int("issues", summary.Issues).
		Int("subscriptions", summary.Subscriptions).
		Int("customers", summary.Customers).
		Int("contracts", len(summary.Contracts)).
		Msg("Dataset loaded")

	return summary, nil
}

type customerRefs struct {
	customer *models.Customer
	address  map[string]*models.Address
	bank     map[string]*models.BankAccount
}

// linker resolves document keys to the models built so far.
type linker struct {
	magazines     map[string]*models.Magazine
	subscriptions map[string]*models.Subscription
	customers     map[string]*customerRefs
}

func (l *linker) magazine(m Magazine) (*models.Magazine, error) {
	if m.Key == "" {
		return nil, fmt.Errorf("key is required")
	}
	if _, dup := l.magazines[m.Key]; dup {
		return nil, fmt.Errorf("duplicate key")
	}
	if m.IssuesPerYear <= 0 {
		return nil, fmt.Errorf("issues_per_year must be positive")
	}

	mag := &models.Magazine{ID: uuid.New(), Name: m.Name, IssuesPerYear: m.IssuesPerYear}
	for _, is := range m.Issues {
		date, err := models.ParseDate(is.Date)
		if err != nil {
			return nil, fmt.Errorf("issue %d/%d: %w", is.Number, is.Year, err)
		}
		mag.AddIssue(&models.Issue{ID: uuid.New(), Year: is.Year, Number: is.Number, Date: date})
	}
	l.magazines[m.Key] = mag
	return mag, nil
}

func (l *linker) subscription(s Subscription) (*models.Subscription, error) {
	if _, dup := l.subscriptions[s.Key]; dup || s.Key == "" {
		return nil, fmt.Errorf("missing or duplicate key")
	}
	mag, ok := l.magazines[s.Magazine]
	if !ok {
		return nil, fmt.Errorf("unknown magazine %q", s.Magazine)
	}
	if s.NumberOfIssues != nil && *s.NumberOfIssues <= 0 {
		return nil, fmt.Errorf("number_of_issues must be positive")
	}

	sub := &models.Subscription{
		ID:              uuid.New(),
		MagazineID:      mag.ID,
		Magazine:        mag,
		Name:            s.Name,
		Value:           s.Value,
		ValueChangeable: s.ValueChangeable,
		NumberOfIssues:  s.NumberOfIssues,
	}
	l.subscriptions[s.Key] = sub
	return sub, nil
}

func (l *linker) customer(c Customer) (*models.Customer, error) {
	if _, dup := l.customers[c.Key]; dup || c.Key == "" {
		return nil, fmt.Errorf("missing or duplicate key")
	}

	customer := &models.Customer{ID: uuid.New(), Name: c.Name, Email: c.Email}
	refs := &customerRefs{
		customer: customer,
		address:  make(map[string]*models.Address),
		bank:     make(map[string]*models.BankAccount),
	}
	for _, a := range c.Addresses {
		addr := &models.Address{
			ID: uuid.New(), CustomerID: customer.ID,
			Recipient: a.Recipient, Street: a.Street, Postcode: a.Postcode, City: a.City, Country: a.Country,
		}
		customer.Addresses = append(customer.Addresses, addr)
		refs.address[a.Key] = addr
	}
	for _, b := range c.BankAccounts {
		account := &models.BankAccount{
			ID: uuid.New(), CustomerID: customer.ID,
			Owner: b.Owner, IBAN: b.IBAN, BIC: b.BIC, MandateReference: b.MandateReference,
		}
		if b.MandateDate != "" {
			date, err := models.ParseDate(b.MandateDate)
			if err != nil {
				return nil, fmt.Errorf("bank account %q: %w", b.Key, err)
			}
			account.MandateDate = date
		}
		customer.BankAccounts = append(customer.BankAccounts, account)
		refs.bank[b.Key] = account
	}
	l.customers[c.Key] = refs
	return customer, nil
}

func (l *linker) contract(c Contract) (*models.Contract, error) {
	refs, ok := l.customers[c.Customer]
	if !ok {
		return nil, fmt.Errorf("unknown customer %q", c.Customer)
	}
	sub, ok := l.subscriptions[c.Subscription]
	if !ok {
		return nil, fmt.Errorf("unknown subscription %q", c.Subscription)
	}
	start, err := models.ParseDate(c.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}

	contract := &models.Contract{
		ID:              uuid.New(),
		RefID:           c.RefID,
		Customer:        refs.customer,
		Subscription:    sub,
		StartDate:       start,
		Value:           sub.Value,
		PaymentType:     c.PaymentType,
		ShippingAddress: refs.address[c.ShippingAddress],
		BillingAddress:  refs.address[c.BillingAddress],
	}
	if contract.PaymentType == "" {
		contract.PaymentType = models.PaymentInvoice
	}
	if c.Value != nil {
		contract.Value = *c.Value
	}
	if c.EndDate != "" {
		end, err := models.ParseDate(c.EndDate)
		if err != nil {
			return nil, fmt.Errorf("end_date: %w", err)
		}
		contract.EndDate = &end
	}
	if c.BankAccount != "" {
		account, ok := refs.bank[c.BankAccount]
		if !ok {
			return nil, fmt.Errorf("unknown bank account %q", c.BankAccount)
		}
		contract.BankAccount = account
	}

	refs.customer.Contracts = append(refs.customer.Contracts, contract)
	return contract, nil
}
