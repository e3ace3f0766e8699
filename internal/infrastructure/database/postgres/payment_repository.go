package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"repayment-engine/internal/domain/customer"
	"repayment-engine/internal/domain/payment"
	"repayment-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, transaction_code, customer_id, description, amount, phone_number,
        loan_balance_before, loan_balance_after, arrears_before, arrears_after,
        status, pin_attempts, mpesa_receipt_number, error_message, processed_at, created_at, updated_at`

const (
	selectActiveCustomerByPhoneForShareSQL = `SELECT ` + customerColumns + `
        FROM customers
        WHERE phone_number = $1 AND is_active = TRUE
        FOR SHARE`

	insertTransactionSQL = `
        INSERT INTO payment_transactions (transaction_code, customer_id, description, amount, phone_number,
            loan_balance_before, loan_balance_after, arrears_before, arrears_after,
            status, pin_attempts, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
        ON CONFLICT (transaction_code) DO NOTHING
        RETURNING id, created_at, updated_at`

	selectTransactionByCodeSQL = `SELECT ` + transactionColumns + `
        FROM payment_transactions
        WHERE transaction_code = $1`

	selectTransactionForUpdateSQL = selectTransactionByCodeSQL + `
        FOR UPDATE`

	selectCustomerForUpdateSQL = selectCustomerByIDSQL + `
        FOR UPDATE`

	selectTransactionsSQL = `SELECT ` + transactionColumns + `
        FROM payment_transactions`

	selectStalePendingCodesSQL = `
        SELECT transaction_code
        FROM payment_transactions
        WHERE status = 'PENDING' AND created_at < $1
        ORDER BY created_at ASC
        LIMIT $2`

	updateTransactionStateSQL = `
        UPDATE payment_transactions
        SET status = $1,
            pin_attempts = $2,
            mpesa_receipt_number = $3,
            error_message = $4,
            processed_at = $5,
            updated_at = NOW()
        WHERE id = $6`

	updateCustomerFinancialsSQL = `
        UPDATE customers
        SET loan_balance = $1,
            arrears = $2,
            total_repayments = $3,
            last_payment_date = $4,
            updated_at = NOW()
        WHERE id = $5`
)

type PaymentRepository struct {
	txManager
	db     DBPool
	logger *slog.Logger
}

var _ payment.Repository = (*PaymentRepository)(nil)

func NewPaymentRepository(db DBPool, logger *slog.Logger) *PaymentRepository {
	if db == nil {
		panic("DBPool cannot be nil for PaymentRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewPaymentRepository, using default stderr handler")
	}
	logger = logger.With("component", "PaymentRepository")
	return &PaymentRepository{
		txManager: txManager{db: db, logger: logger},
		db:        db,
		logger:    logger,
	}
}

func scanTransaction(row rowScanner) (*payment.Transaction, error) {
	var (
		txn    payment.Transaction
		status string
	)
	err := row.Scan(
		&txn.ID,
		&txn.TransactionCode,
		&txn.CustomerID,
		&txn.Description,
		&txn.Amount,
		&txn.PhoneNumber,
		&txn.LoanBalanceBefore,
		&txn.LoanBalanceAfter,
		&txn.ArrearsBefore,
		&txn.ArrearsAfter,
		&status,
		&txn.PinAttempts,
		&txn.MpesaReceiptNumber,
		&txn.ErrorMessage,
		&txn.ProcessedAt,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.Status = payment.Status(status)
	return &txn, nil
}

func (r *PaymentRepository) GetActiveCustomerByPhoneInTx(ctx context.Context, tx pgx.Tx, phoneNumber string) (*customer.Customer, error) {
	start := time.Now()
	cust, err := scanCustomer(tx.QueryRow(ctx, selectActiveCustomerByPhoneForShareSQL, phoneNumber))
	recordQuery("GetActiveCustomerByPhoneForShare", start, err)

	if err != nil {
		translated := translateDBError(err, r.logger)
		if errors.Is(translated, apperrors.ErrNotFound) {
			r.logger.WarnContext(ctx, "No active customer for phone number", slog.String("phoneNumber", phoneNumber))
		}
		return nil, translated
	}
	return cust, nil
}

func (r *PaymentRepository) CreateTransactionInTx(ctx context.Context, tx pgx.Tx, txn *payment.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction cannot be nil", apperrors.ErrInvalidArgument)
	}
	logCtx := r.logger.With(slog.String("transactionCode", txn.TransactionCode))

	start := time.Now()
	err := tx.QueryRow(ctx, insertTransactionSQL,
		txn.TransactionCode,
		txn.CustomerID,
		txn.Description,
		txn.Amount,
		txn.PhoneNumber,
		txn.LoanBalanceBefore,
		txn.LoanBalanceAfter,
		txn.ArrearsBefore,
		txn.ArrearsAfter,
		string(txn.Status),
		txn.PinAttempts,
		txn.CreatedAt,
	).Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt)
	recordQuery("InsertTransaction", start, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logCtx.WarnContext(ctx, "Transaction code already in use")
			return fmt.Errorf("%w: transaction code %s", apperrors.ErrAlreadyExists, txn.TransactionCode)
		}
		logCtx.ErrorContext(ctx, "Failed to insert transaction", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}

	logCtx.InfoContext(ctx, "Transaction inserted", slog.Int64("transactionID", txn.ID))
	return nil
}

func (r *PaymentRepository) GetTransactionByCode(ctx context.Context, transactionCode string) (*payment.Transaction, error) {
	start := time.Now()
	txn, err := scanTransaction(r.db.QueryRow(ctx, selectTransactionByCodeSQL, transactionCode))
	recordQuery("GetTransactionByCode", start, err)

	if err != nil {
		translated := translateDBError(err, r.logger)
		if !errors.Is(translated, apperrors.ErrNotFound) {
			r.logger.ErrorContext(ctx, "Failed to get transaction", slog.String("transactionCode", transactionCode), slog.Any("error", err))
		}
		return nil, translated
	}
	return txn, nil
}

func buildListTransactionsQuery(filter payment.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.CustomerID != 0 {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := selectTransactionsSQL
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return query, args
}

func (r *PaymentRepository) ListTransactions(ctx context.Context, filter payment.ListFilter) ([]*payment.Transaction, error) {
	query, args := buildListTransactionsQuery(filter)

	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		recordQuery("ListTransactions", start, err)
		r.logger.ErrorContext(ctx, "Failed to query transactions", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query transactions: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	txns := make([]*payment.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			recordQuery("ListTransactions", start, err)
			r.logger.ErrorContext(ctx, "Failed to scan transaction row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan transaction row: %w", apperrors.ErrDatabase, err)
		}
		txns = append(txns, txn)
	}

	err = rows.Err()
	recordQuery("ListTransactions", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error iterating transaction rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating transaction rows: %w", apperrors.ErrDatabase, err)
	}
	return txns, nil
}

func (r *PaymentRepository) ListStalePendingCodes(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	logCtx := r.logger.With(slog.String("operation", "ListStalePendingCodes"))
	logCtx.DebugContext(ctx, "Attempting to list stale pending transactions", slog.Time("olderThan", olderThan))

	start := time.Now()
	rows, err := r.db.Query(ctx, selectStalePendingCodesSQL, olderThan, limit)
	if err != nil {
		recordQuery("ListStalePendingCodes", start, err)
		logCtx.ErrorContext(ctx, "Failed to query stale pending transactions", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query stale pending transactions: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			recordQuery("ListStalePendingCodes", start, err)
			return nil, fmt.Errorf("%w: failed to scan transaction code: %w", apperrors.ErrDatabase, err)
		}
		codes = append(codes, code)
	}

	err = rows.Err()
	recordQuery("ListStalePendingCodes", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: error iterating stale pending rows: %w", apperrors.ErrDatabase, err)
	}

	logCtx.DebugContext(ctx, "Listed stale pending transactions", slog.Int("count", len(codes)))
	return codes, nil
}

// AtomicUpdate locks the transaction row and then its customer row in one
// database transaction, runs fn and writes back whatever it changed.
func (r *PaymentRepository) AtomicUpdate(ctx context.Context, transactionCode string, fn payment.MutateFunc) (txn *payment.Transaction, cust *customer.Customer, err error) {
	logCtx := r.logger.With(slog.String("transactionCode", transactionCode))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			logCtx.ErrorContext(ctx, "Panic inside atomic update, rolling back", slog.Any("error", p))
			_ = r.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = r.RollbackTx(ctx, tx)
		}
	}()

	start := time.Now()
	txn, err = scanTransaction(tx.QueryRow(ctx, selectTransactionForUpdateSQL, transactionCode))
	recordQuery("LockTransaction", start, err)
	if err != nil {
		return nil, nil, translateDBError(err, r.logger)
	}

	start = time.Now()
	before, err := scanCustomer(tx.QueryRow(ctx, selectCustomerForUpdateSQL, txn.CustomerID))
	recordQuery("LockCustomer", start, err)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to lock customer for transaction", slog.Int64("customerID", txn.CustomerID), slog.Any("error", err))
		return nil, nil, translateDBError(err, r.logger)
	}

	working := *before
	if err = fn(txn, &working); err != nil {
		return nil, nil, err
	}

	start = time.Now()
	_, err = tx.Exec(ctx, updateTransactionStateSQL,
		string(txn.Status),
		txn.PinAttempts,
		txn.MpesaReceiptNumber,
		txn.ErrorMessage,
		txn.ProcessedAt,
		txn.ID,
	)
	recordQuery("UpdateTransactionState", start, err)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to update transaction state", slog.Any("error", err))
		return nil, nil, translateDBError(err, r.logger)
	}

	if !before.SameFinancials(&working) {
		start = time.Now()
		_, err = tx.Exec(ctx, updateCustomerFinancialsSQL,
			working.LoanBalance,
			working.Arrears,
			working.TotalRepayments,
			working.LastPaymentDate,
			working.ID,
		)
		recordQuery("UpdateCustomerFinancials", start, err)
		if err != nil {
			logCtx.ErrorContext(ctx, "Failed to update customer balances", slog.Int64("customerID", working.ID), slog.Any("error", err))
			return nil, nil, translateDBError(err, r.logger)
		}
	}

	if err = r.CommitTx(ctx, tx); err != nil {
		return nil, nil, err
	}

	logCtx.InfoContext(ctx, "Atomic update committed", slog.String("status", string(txn.Status)), slog.Int("pinAttempts", txn.PinAttempts))
	return txn, &working, nil
}
