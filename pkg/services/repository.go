package services

import (
	"context"
	"errors"

	"abo/pkg/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned by a Repository when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateReference is returned when a contract reference code is
// already taken.
var ErrDuplicateReference = errors.New("duplicate contract reference code")

// Repository defines the persistence operations the billing core relies on.
type Repository interface {
	// FindContractByReference returns the contract with the given
	// reference code, or ErrNotFound.
	FindContractByReference(ctx context.Context, refID string) (*models.Contract, error)

	// ReferenceExists reports whether a contract already uses refID.
	ReferenceExists(ctx context.Context, refID string) (bool, error)

	// GetContract loads a contract with its customer, subscription,
	// magazine issues and addresses.
	GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error)

	// ListContracts returns all contracts, ordered by reference code.
	ListContracts(ctx context.Context) ([]*models.Contract, error)

	// InvoicesForContract returns the contract's invoices ordered by number.
	InvoicesForContract(ctx context.Context, contractID uuid.UUID) ([]*models.Invoice, error)

	// SaveContract inserts or updates a contract.
	SaveContract(ctx context.Context, contract *models.Contract) error

	// SaveInvoice persists an invoice together with its entries and
	// advances the contract's invoice counter, as one unit.
	SaveInvoice(ctx context.Context, invoice *models.Invoice) error

	// SaveEntry persists a single bookkeeping entry.
	SaveEntry(ctx context.Context, entry *models.BookkeepingEntry) error
}

// CatalogRepository persists master data that the billing core only reads.
type CatalogRepository interface {
	SaveMagazine(ctx context.Context, magazine *models.Magazine) error
	SaveSubscription(ctx context.Context, subscription *models.Subscription) error
	SaveCustomer(ctx context.Context, customer *models.Customer) error
}
