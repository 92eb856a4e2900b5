package sqlite

import (
	"context"
	"testing"
	"time"

	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedContract stores a monthly magazine, a capped subscription, a customer
// and one contract.
func seedContract(t *testing.T, s *Store, refID string) *models.Contract {
	t.Helper()
	ctx := context.Background()

	mag := &models.Magazine{Name: "Gartenfreund", IssuesPerYear: 12}
	for m := time.January; m <= time.December; m++ {
		mag.AddIssue(&models.Issue{Year: 2024, Number: int(m), Date: models.Date(2024, m, 15)})
	}
	require.NoError(t, s.SaveMagazine(ctx, mag))

	six := 6
	sub := &models.Subscription{Magazine: mag, Name: "Halbjahresabo", Value: decimal.RequireFromString("29.90"), NumberOfIssues: &six}
	require.NoError(t, s.SaveSubscription(ctx, sub))

	addr := &models.Address{Recipient: "Erika Mustermann", Street: "Heidestr. 17", Postcode: "51147", City: "Köln", Country: "DE"}
	bank := &models.BankAccount{Owner: "Erika Mustermann", IBAN: "DE02120300000000202051", MandateReference: "M-1", MandateDate: models.Date(2023, 12, 1)}
	customer := &models.Customer{Name: "Erika Mustermann", Email: "erika@example.org", Addresses: []*models.Address{addr}, BankAccounts: []*models.BankAccount{bank}}
	require.NoError(t, s.SaveCustomer(ctx, customer))

	c := &models.Contract{
		RefID:           refID,
		Customer:        customer,
		Subscription:    sub,
		StartDate:       models.Date(2024, 1, 1),
		EndDate:         models.DatePtr(models.Date(2024, 12, 31)),
		Value:           decimal.RequireFromString("29.90"),
		PaymentType:     models.PaymentDirectWithdrawal,
		ShippingAddress: addr,
		BillingAddress:  addr,
		BankAccount:     bank,
	}
	require.NoError(t, s.SaveContract(ctx, c))
	return c
}

func TestStoreContractRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	want := seedContract(t, s, "ABCDEFNB")

	got, err := s.FindContractByReference(ctx, "ABCDEFNB")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.StartDate, got.StartDate)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, *want.EndDate, *got.EndDate)
	assert.True(t, want.Value.Equal(got.Value))
	assert.Equal(t, models.PaymentDirectWithdrawal, got.PaymentType)

	require.NotNil(t, got.Subscription)
	require.NotNil(t, got.Subscription.NumberOfIssues)
	assert.Equal(t, 6, *got.Subscription.NumberOfIssues)
	require.NotNil(t, got.Magazine())
	assert.Len(t, got.Magazine().Issues, 12)

	require.NotNil(t, got.BillingAddress)
	assert.Equal(t, "Köln", got.BillingAddress.City)
	require.NotNil(t, got.BankAccount)
	assert.Equal(t, models.Date(2023, 12, 1), got.BankAccount.MandateDate)
	require.Len(t, got.Customer.Contracts, 1)
	assert.Same(t, got, got.Customer.Contracts[0])

	byID, err := s.GetContract(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFNB", byID.RefID)
}

func TestStoreNotFound(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.FindContractByReference(ctx, "ZZZZZZAG")
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = s.GetContract(ctx, uuid.New())
	assert.ErrorIs(t, err, services.ErrNotFound)

	exists, err := s.ReferenceExists(ctx, "ZZZZZZAG")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStoreDuplicateReference(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	first := seedContract(t, s, "ABCDEFNB")

	exists, err := s.ReferenceExists(ctx, "ABCDEFNB")
	require.NoError(t, err)
	assert.True(t, exists)

	second := *first
	second.ID = uuid.New()
	err = s.SaveContract(ctx, &second)
	assert.ErrorIs(t, err, services.ErrDuplicateReference)

	// Updating the same contract keeps its code.
	first.Value = decimal.RequireFromString("31.00")
	require.NoError(t, s.SaveContract(ctx, first))
}

func TestStoreListContracts(t *testing.T) {
	s := setupTestStore(t)
	seedContract(t, s, "ZZZZZZAG")
	seedContract(t, s, "ABCDEFNB")

	contracts, err := s.ListContracts(context.Background())
	require.NoError(t, err)
	require.Len(t, contracts, 2)
	assert.Equal(t, "ABCDEFNB", contracts[0].RefID)
	assert.Equal(t, "ZZZZZZAG", contracts[1].RefID)
}

func TestStoreSaveInvoice(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	c := seedContract(t, s, "ABCDEFNB")

	inv := &models.Invoice{
		ID:              uuid.New(),
		ContractID:      c.ID,
		Contract:        c,
		Number:          3,
		AccountingStart: models.Date(2024, 1, 1),
		AccountingEnd:   models.Date(2024, 3, 31),
		IssueDate:       models.Date(2024, 4, 1),
		MaturityDate:    models.Date(2024, 4, 15),
		Entries: []*models.BookkeepingEntry{{
			ContractID:  c.ID,
			Date:        models.Date(2024, 3, 31),
			Value:       decimal.RequireFromString("14.95"),
			Description: "Gartenfreund Halbjahresabo: 3 Ausgaben vom 01.01.2024 bis 31.03.2024",
		}},
	}
	require.NoError(t, s.SaveInvoice(ctx, inv))
	assert.Equal(t, 3, c.InvoiceCounter)

	payment := &models.BookkeepingEntry{
		ContractID:  c.ID,
		InvoiceID:   &inv.ID,
		Date:        models.Date(2024, 4, 10),
		Value:       decimal.RequireFromString("-14.95"),
		Description: "Zahlungseingang",
	}
	require.NoError(t, s.SaveEntry(ctx, payment))

	invoices, err := s.InvoicesForContract(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	got := invoices[0]
	assert.Equal(t, 3, got.Number)
	assert.Equal(t, models.Date(2024, 4, 15), got.MaturityDate)
	require.Len(t, got.Entries, 2)
	assert.True(t, got.Value().Equal(decimal.RequireFromString("14.95")))
	assert.True(t, got.ValueLeft().IsZero())

	reloaded, err := s.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.InvoiceCounter)

	t.Run("duplicate number rolls back", func(t *testing.T) {
		dup := *inv
		dup.ID = uuid.New()
		dup.Entries = []*models.BookkeepingEntry{{ContractID: c.ID, Date: models.Date(2024, 6, 30), Value: decimal.NewFromInt(1), Description: "x"}}
		require.Error(t, s.SaveInvoice(ctx, &dup))

		entries, err := s.EntriesForContract(ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})
}
