package payment

import (
	"context"
	"time"

	"repayment-engine/internal/domain/customer"

	"github.com/jackc/pgx/v5"
)

// MutateFunc edits the locked transaction and customer in place. Returning
// an error rolls back the whole unit.
type MutateFunc func(txn *Transaction, cust *customer.Customer) error

type ListFilter struct {
	CustomerID int64
	Status     Status
	Limit      int
	Offset     int
}

type Repository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error

	// GetActiveCustomerByPhoneInTx reads the active customer with a shared
	// row lock held until tx ends.
	GetActiveCustomerByPhoneInTx(ctx context.Context, tx pgx.Tx, phoneNumber string) (*customer.Customer, error)

	// CreateTransactionInTx inserts txn and fills its ID. A duplicate
	// transaction code yields ErrAlreadyExists.
	CreateTransactionInTx(ctx context.Context, tx pgx.Tx, txn *Transaction) error

	GetTransactionByCode(ctx context.Context, transactionCode string) (*Transaction, error)

	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)

	ListStalePendingCodes(ctx context.Context, olderThan time.Time, limit int) ([]string, error)

	// AtomicUpdate locks the transaction row and then its customer row, runs
	// fn and persists both in one commit. The customer row is only written
	// when its financial fields changed.
	AtomicUpdate(ctx context.Context, transactionCode string, fn MutateFunc) (*Transaction, *customer.Customer, error)
}
