package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StatementRecord is one booking line of a bank statement, as produced by
// an Importer.
type StatementRecord struct {
	BookingDate   time.Time
	Value         decimal.Decimal // positive for incoming money
	Description   string
	ReferenceCode string // contract reference code, if the bank provided one
	InvoiceNumber int    // 0 if unknown
	CounterParty  string
	IBAN          string
}

// Importer reads bank statement records from some source.
type Importer interface {
	Read(ctx context.Context) ([]StatementRecord, error)
}

// Locker serializes work per key (one invoice creation in flight per
// contract).
type Locker interface {
	// Lock blocks until the key is acquired or ctx is done. The returned
	// function releases the lock.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Publisher sends domain events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}
