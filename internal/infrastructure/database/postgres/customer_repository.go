package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"repayment-engine/internal/domain/customer"
	"repayment-engine/internal/pkg/apperrors"
)

const customerColumns = `id, customer_code, full_name, email, national_id, phone_number,
        loan_balance, arrears, total_repayments, last_payment_date, is_active, created_at, updated_at`

const (
	insertCustomerSQL = `
        INSERT INTO customers (customer_code, full_name, email, national_id, phone_number,
            loan_balance, arrears, total_repayments, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	updateCustomerContactSQL = `
        UPDATE customers
        SET full_name = $1,
            email = $2,
            national_id = $3,
            phone_number = $4,
            updated_at = NOW()
        WHERE id = $5`

	selectCustomerByIDSQL = `SELECT ` + customerColumns + `
        FROM customers
        WHERE id = $1`

	selectCustomerByCodeSQL = `SELECT ` + customerColumns + `
        FROM customers
        WHERE customer_code = $1`

	selectCustomerByPhoneSQL = `SELECT ` + customerColumns + `
        FROM customers
        WHERE phone_number = $1 AND ($2 = FALSE OR is_active)
        ORDER BY is_active DESC, id DESC
        LIMIT 1`

	selectCustomersSQL = `SELECT ` + customerColumns + `
        FROM customers`

	setCustomerActiveSQL = `UPDATE customers SET is_active = $1, updated_at = NOW() WHERE id = $2`
)

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository"),
	}
}

func scanCustomer(row rowScanner) (*customer.Customer, error) {
	var cust customer.Customer
	err := row.Scan(
		&cust.ID,
		&cust.CustomerCode,
		&cust.FullName,
		&cust.Email,
		&cust.NationalID,
		&cust.PhoneNumber,
		&cust.LoanBalance,
		&cust.Arrears,
		&cust.TotalRepayments,
		&cust.LastPaymentDate,
		&cust.IsActive,
		&cust.CreatedAt,
		&cust.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cust, nil
}

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}

	if cust.ID == 0 {
		return r.createCustomer(ctx, cust)
	}
	return r.updateContact(ctx, cust)
}

func (r *CustomerRepository) createCustomer(ctx context.Context, cust *customer.Customer) error {
	r.logger.InfoContext(ctx, "Attempting to insert new customer", slog.String("customerCode", cust.CustomerCode))

	start := time.Now()
	err := r.db.QueryRow(ctx, insertCustomerSQL,
		cust.CustomerCode,
		cust.FullName,
		cust.Email,
		cust.NationalID,
		cust.PhoneNumber,
		cust.LoanBalance,
		cust.Arrears,
		cust.TotalRepayments,
		cust.IsActive,
	).Scan(
		&cust.ID,
		&cust.CreatedAt,
		&cust.UpdatedAt,
	)
	recordQuery("InsertCustomer", start, err)

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert customer due to unique constraint violation", slog.String("phoneNumber", cust.PhoneNumber))
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert customer: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Customer inserted successfully", slog.Int64("customerID", cust.ID))
	return nil
}

func (r *CustomerRepository) updateContact(ctx context.Context, cust *customer.Customer) error {
	logCtx := r.logger.With(slog.Int64("customerID", cust.ID))
	logCtx.InfoContext(ctx, "Attempting to update customer contact details")

	start := time.Now()
	cmdTag, err := r.db.Exec(ctx, updateCustomerContactSQL,
		cust.FullName,
		cust.Email,
		cust.NationalID,
		cust.PhoneNumber,
		cust.ID,
	)
	recordQuery("UpdateCustomerContact", start, err)

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			logCtx.WarnContext(ctx, "Failed to update customer due to unique constraint violation", slog.Any("error", err))
			return translatedErr
		}
		logCtx.ErrorContext(ctx, "Failed to update customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update customer: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		logCtx.WarnContext(ctx, "Update affected zero rows, customer likely not found")
		return apperrors.ErrNotFound
	}

	logCtx.InfoContext(ctx, "Customer updated successfully")
	return nil
}

func (r *CustomerRepository) findOne(ctx context.Context, queryName, query string, args ...any) (*customer.Customer, error) {
	start := time.Now()
	cust, err := scanCustomer(r.db.QueryRow(ctx, query, args...))
	recordQuery(queryName, start, err)

	if err != nil {
		translated := translateDBError(err, r.logger)
		if errors.Is(translated, apperrors.ErrNotFound) {
			r.logger.WarnContext(ctx, "Customer not found", slog.String("query", queryName))
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan customer", slog.String("query", queryName), slog.Any("error", err))
		return nil, translated
	}
	return cust, nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	return r.findOne(ctx, "FindCustomerByID", selectCustomerByIDSQL, customerID)
}

func (r *CustomerRepository) FindByCode(ctx context.Context, customerCode string) (*customer.Customer, error) {
	return r.findOne(ctx, "FindCustomerByCode", selectCustomerByCodeSQL, customerCode)
}

func (r *CustomerRepository) FindByPhone(ctx context.Context, phoneNumber string, activeOnly bool) (*customer.Customer, error) {
	return r.findOne(ctx, "FindCustomerByPhone", selectCustomerByPhoneSQL, phoneNumber, activeOnly)
}

func (r *CustomerRepository) FindAll(ctx context.Context, activeOnly bool) ([]*customer.Customer, error) {
	r.logger.InfoContext(ctx, "Attempting to find all customers", slog.Bool("activeOnly", activeOnly))

	args := []any{}
	query := selectCustomersSQL
	if activeOnly {
		query += " WHERE is_active = $1"
		args = append(args, true)
	}
	query += " ORDER BY id ASC"

	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		recordQuery("FindAllCustomers", start, err)
		r.logger.ErrorContext(ctx, "Failed to query customers", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query customers: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	customers := make([]*customer.Customer, 0)
	for rows.Next() {
		cust, err := scanCustomer(rows)
		if err != nil {
			recordQuery("FindAllCustomers", start, err)
			r.logger.ErrorContext(ctx, "Failed to scan customer row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan customer row: %w", apperrors.ErrDatabase, err)
		}
		customers = append(customers, cust)
	}

	err = rows.Err()
	recordQuery("FindAllCustomers", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error iterating customer rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating customer rows: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Finished finding customers", slog.Int("count", len(customers)))
	return customers, nil
}

// SetActiveStatus flips the soft-delete flag. Reactivating a customer whose
// phone number is now used by another active customer yields ErrAlreadyExists.
func (r *CustomerRepository) SetActiveStatus(ctx context.Context, customerID int64, isActive bool) error {
	logCtx := r.logger.With(slog.Int64("customerID", customerID), slog.Bool("isActive", isActive))
	logCtx.InfoContext(ctx, "Attempting to set active status")

	start := time.Now()
	cmdTag, err := r.db.Exec(ctx, setCustomerActiveSQL, isActive, customerID)
	recordQuery("SetCustomerActive", start, err)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to execute update active status", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}

	if cmdTag.RowsAffected() == 0 {
		logCtx.WarnContext(ctx, "Update active status affected zero rows, customer likely not found")
		return apperrors.ErrNotFound
	}

	logCtx.InfoContext(ctx, "Customer active status updated successfully")
	return nil
}
