package payment_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"repayment-engine/internal/domain/customer"
	"repayment-engine/internal/domain/payment"
	"repayment-engine/internal/event"
	"repayment-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

// memLedger is an in-memory Repository. AtomicUpdate takes a per-transaction
// lock and then a per-customer lock, like the row locks in Postgres.
type memLedger struct {
	mu        sync.Mutex
	customers map[int64]*customer.Customer
	txns      map[string]*payment.Transaction
	nextTxnID int64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	customerWrites int
}

var _ payment.Repository = (*memLedger)(nil)

func newMemLedger(customers ...*customer.Customer) *memLedger {
	l := &memLedger{
		customers: make(map[int64]*customer.Customer),
		txns:      make(map[string]*payment.Transaction),
		locks:     make(map[string]*sync.Mutex),
	}
	for _, c := range customers {
		cp := *c
		l.customers[c.ID] = &cp
	}
	return l
}

func (l *memLedger) lockFor(key string) *sync.Mutex {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

func (l *memLedger) customerSnapshot(id int64) customer.Customer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.customers[id]
}

func (l *memLedger) deactivate(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.customers[id].IsActive = false
}

func (l *memLedger) writes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.customerWrites
}

func (l *memLedger) transaction(code string) *payment.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.txns[code].Clone()
}

func (l *memLedger) BeginTx(context.Context) (pgx.Tx, error)  { return nil, nil }
func (l *memLedger) CommitTx(context.Context, pgx.Tx) error   { return nil }
func (l *memLedger) RollbackTx(context.Context, pgx.Tx) error { return nil }

func (l *memLedger) GetActiveCustomerByPhoneInTx(_ context.Context, _ pgx.Tx, phone string) (*customer.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.customers {
		if c.PhoneNumber == phone && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (l *memLedger) CreateTransactionInTx(_ context.Context, _ pgx.Tx, txn *payment.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.txns[txn.TransactionCode]; exists {
		return fmt.Errorf("%w: transaction code %s", apperrors.ErrAlreadyExists, txn.TransactionCode)
	}
	l.nextTxnID++
	txn.ID = l.nextTxnID
	l.txns[txn.TransactionCode] = txn.Clone()
	return nil
}

func (l *memLedger) GetTransactionByCode(_ context.Context, code string) (*payment.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	txn, ok := l.txns[code]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return txn.Clone(), nil
}

func (l *memLedger) ListTransactions(_ context.Context, filter payment.ListFilter) ([]*payment.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*payment.Transaction
	for _, txn := range l.txns {
		if filter.CustomerID != 0 && txn.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && txn.Status != filter.Status {
			continue
		}
		out = append(out, txn.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Offset >= len(out) {
		return []*payment.Transaction{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (l *memLedger) ListStalePendingCodes(_ context.Context, olderThan time.Time, limit int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var codes []string
	for code, txn := range l.txns {
		if txn.Status == payment.StatusPending && txn.CreatedAt.Before(olderThan) {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	if len(codes) > limit {
		codes = codes[:limit]
	}
	return codes, nil
}

func (l *memLedger) AtomicUpdate(_ context.Context, code string, fn payment.MutateFunc) (*payment.Transaction, *customer.Customer, error) {
	txnLock := l.lockFor("txn:" + code)
	txnLock.Lock()
	defer txnLock.Unlock()

	l.mu.Lock()
	stored, ok := l.txns[code]
	if !ok {
		l.mu.Unlock()
		return nil, nil, apperrors.ErrNotFound
	}
	customerID := stored.CustomerID
	l.mu.Unlock()

	custLock := l.lockFor(fmt.Sprintf("cus:%d", customerID))
	custLock.Lock()
	defer custLock.Unlock()

	l.mu.Lock()
	txn := l.txns[code].Clone()
	before := *l.customers[customerID]
	l.mu.Unlock()

	cust := before
	if err := fn(txn, &cust); err != nil {
		return nil, nil, err
	}

	l.mu.Lock()
	l.txns[code] = txn.Clone()
	if !before.SameFinancials(&cust) {
		stored := cust
		l.customers[customerID] = &stored
		l.customerWrites++
	}
	l.mu.Unlock()

	out := cust
	return txn, &out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.PaymentEvent
}

var _ event.EventPublisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) PublishPaymentEvent(_ context.Context, evt event.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) PublishCustomerEvent(context.Context, event.CustomerEvent) error {
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
