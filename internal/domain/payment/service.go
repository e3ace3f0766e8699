package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"repayment-engine/internal/domain/customer"
	"repayment-engine/internal/event"
	"repayment-engine/internal/infrastructure/monitoring"
	"repayment-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

const (
	maxCodeCollisionRetries = 3
	defaultListLimit        = 50
	maxListLimit            = 200
)

type InitiateRequest struct {
	PhoneNumber string
	Amount      string
	Description string
}

type ConfirmationResult struct {
	Transaction    *Transaction
	Status         Status
	ReceiptNumber  string
	NewLoanBalance decimal.Decimal
	NewArrears     decimal.Decimal
	AttemptsLeft   int
	Message        string
}

type PaymentService interface {
	// Initiate creates a PENDING transaction for the active customer owning
	// the phone number. The customer is not mutated until confirmation.
	Initiate(ctx context.Context, req InitiateRequest) (*Transaction, error)

	// Confirm submits a PIN for a PENDING transaction. A rejected PIN is not
	// an error: the result carries the remaining attempts, or FAILED once
	// they run out.
	Confirm(ctx context.Context, transactionCode, submittedCode string) (*ConfirmationResult, error)

	Cancel(ctx context.Context, transactionCode string) (*Transaction, error)

	// Expire fails a transaction that was never confirmed. reason defaults
	// to MsgExpired.
	Expire(ctx context.Context, transactionCode, reason string) (*Transaction, error)

	GetTransaction(ctx context.Context, transactionCode string) (*Transaction, error)

	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
}

var _ PaymentService = (*paymentService)(nil)

type paymentService struct {
	repo     Repository
	factory  *Factory
	verifier Verifier
	pub      event.EventPublisher
	logger   *slog.Logger
}

func NewPaymentService(repo Repository, factory *Factory, verifier Verifier, publisher event.EventPublisher, logger *slog.Logger) PaymentService {
	if repo == nil {
		panic("payment repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewPaymentService, using default stderr handler")
	}
	if factory == nil {
		factory = NewFactory("")
	}
	if verifier == nil {
		verifier = FormatVerifier{}
	}
	if publisher == nil {
		publisher = event.NewNoopPublisher(logger)
	}
	return &paymentService{
		repo:     repo,
		factory:  factory,
		verifier: verifier,
		pub:      publisher,
		logger:   logger.With(slog.String("component", "paymentService")),
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, apperrors.NewValidationError("amount", "amount is required")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError("amount", fmt.Sprintf("'%s' is not a valid amount", raw))
	}
	if !amount.IsPositive() {
		return decimal.Zero, apperrors.NewValidationError("amount", "amount must be greater than zero")
	}
	if !amount.Equal(amount.Truncate(2)) {
		return decimal.Zero, apperrors.NewValidationError("amount", "amount cannot have more than two decimal places")
	}
	return amount, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func rejectionStatus(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return "rejected_validation"
	case errors.Is(err, apperrors.ErrNotFound):
		return "rejected_not_found"
	case errors.Is(err, apperrors.ErrBalance):
		return "rejected_balance"
	case errors.Is(err, apperrors.ErrInvalidState):
		return "rejected_state"
	case errors.Is(err, apperrors.ErrAttemptsExceeded):
		return "rejected_attempts"
	case errors.Is(err, apperrors.ErrVerificationUnavailable):
		return "verification_unavailable"
	default:
		return "failure_internal"
	}
}

func newPaymentEventPayload(txn *Transaction) event.PaymentEventPayload {
	p := event.PaymentEventPayload{
		TransactionCode:  txn.TransactionCode,
		CustomerID:       txn.CustomerID,
		PhoneNumber:      txn.PhoneNumber,
		Amount:           txn.Amount,
		Status:           string(txn.Status),
		PinAttempts:      txn.PinAttempts,
		LoanBalanceAfter: txn.LoanBalanceAfter,
		ArrearsAfter:     txn.ArrearsAfter,
		ProcessedAt:      txn.ProcessedAt,
	}
	if txn.MpesaReceiptNumber != nil {
		p.MpesaReceiptNumber = *txn.MpesaReceiptNumber
	}
	if txn.ErrorMessage != nil {
		p.ErrorMessage = *txn.ErrorMessage
	}
	return p
}

func (s *paymentService) publish(ctx context.Context, routingKey string, txn *Transaction) {
	if err := s.pub.PublishPaymentEvent(ctx, event.NewPaymentEvent(routingKey, newPaymentEventPayload(txn))); err != nil {
		s.logger.ErrorContext(ctx, "Payment change committed, but failed to publish event",
			slog.String("routingKey", routingKey), slog.String("transactionCode", txn.TransactionCode), slog.Any("error", err))
	}
}

func (s *paymentService) Initiate(ctx context.Context, req InitiateRequest) (txn *Transaction, err error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		monitoring.RecordPayment(rejectionStatus(err))
		return nil, err
	}
	phone := s.factory.FormatPhoneNumber(req.PhoneNumber)
	if phone == "" {
		monitoring.RecordPayment(rejectionStatus(apperrors.ErrValidation))
		return nil, apperrors.NewValidationError("phoneNumber", "phone number is required")
	}

	logCtx := s.logger.With(slog.String("phoneNumber", phone), slog.String("amount", amount.StringFixed(2)))
	logCtx.InfoContext(ctx, "Initiating STK push repayment")

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		monitoring.RecordPayment(rejectionStatus(err))
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			logCtx.ErrorContext(ctx, "Panic occurred while initiating payment", slog.Any("error", p))
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			monitoring.RecordPayment(rejectionStatus(err))
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	cust, err := s.repo.GetActiveCustomerByPhoneInTx(ctx, tx, phone)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logCtx.WarnContext(ctx, "No active customer for phone number")
			return nil, fmt.Errorf("%w: no active customer with phone %s", apperrors.ErrNotFound, phone)
		}
		logCtx.ErrorContext(ctx, "Failed to load customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	if amount.GreaterThan(cust.LoanBalance) {
		logCtx.WarnContext(ctx, "Amount exceeds loan balance", slog.String("loanBalance", cust.LoanBalance.StringFixed(2)))
		return nil, fmt.Errorf("%w: amount %s exceeds loan balance %s",
			apperrors.ErrBalance, amount.StringFixed(2), cust.LoanBalance.StringFixed(2))
	}

	created := s.factory.NewPendingTransaction(cust, amount, req.Description)
	for attempt := 1; ; attempt++ {
		err = s.repo.CreateTransactionInTx(ctx, tx, created)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrAlreadyExists) || attempt >= maxCodeCollisionRetries {
			logCtx.ErrorContext(ctx, "Failed to create transaction", slog.Int("attempt", attempt), slog.Any("error", err))
			return nil, fmt.Errorf("failed to create transaction: %w", err)
		}
		logCtx.WarnContext(ctx, "Transaction code collision, regenerating", slog.String("transactionCode", created.TransactionCode))
		created.TransactionCode = s.factory.NewTransactionCode()
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		logCtx.ErrorContext(ctx, "Failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	monitoring.RecordPayment("initiated")
	s.publish(ctx, event.RoutingKeyPaymentInitiated, created)
	logCtx.InfoContext(ctx, "STK push initiated", slog.String("transactionCode", created.TransactionCode), slog.Int64("customerID", cust.ID))
	return created, nil
}

func (s *paymentService) loadTransaction(ctx context.Context, code string) (*Transaction, error) {
	txn, err := s.repo.GetTransactionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Transaction not found", slog.String("transactionCode", code))
			return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, code)
		}
		s.logger.ErrorContext(ctx, "Repository error finding transaction", slog.String("transactionCode", code), slog.Any("error", err))
		return nil, fmt.Errorf("failed to get transaction %s: %w", code, err)
	}
	return txn, nil
}

func (s *paymentService) atomicUpdate(ctx context.Context, code string, fn MutateFunc) (*Transaction, *customer.Customer, error) {
	txn, cust, err := s.repo.AtomicUpdate(ctx, code, fn)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			return nil, nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, code)
		case errors.Is(err, apperrors.ErrInvalidState), errors.Is(err, apperrors.ErrAttemptsExceeded):
			s.logger.WarnContext(ctx, "Transaction rejected update", slog.String("transactionCode", code), slog.Any("error", err))
			return nil, nil, err
		default:
			s.logger.ErrorContext(ctx, "Atomic update failed", slog.String("transactionCode", code), slog.Any("error", err))
			return nil, nil, fmt.Errorf("failed to update transaction %s: %w", code, err)
		}
	}
	return txn, cust, nil
}

type confirmOutcome int

const (
	outcomePinRejected confirmOutcome = iota
	outcomeAttemptsExhausted
	outcomeInsufficientBalance
	outcomeSucceeded
)

func (s *paymentService) Confirm(ctx context.Context, transactionCode, submittedCode string) (*ConfirmationResult, error) {
	code := normalizeCode(transactionCode)
	if code == "" {
		return nil, apperrors.NewValidationError("transactionCode", "transaction code is required")
	}
	logCtx := s.logger.With(slog.String("transactionCode", code))

	current, err := s.loadTransaction(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := current.CheckConfirmable(); err != nil {
		logCtx.WarnContext(ctx, "Transaction cannot be confirmed", slog.Any("error", err))
		monitoring.RecordPayment(rejectionStatus(err))
		return nil, err
	}

	verified, err := s.verifier.Verify(ctx, current, strings.TrimSpace(submittedCode))
	if err != nil {
		if !errors.Is(err, apperrors.ErrVerificationUnavailable) {
			err = fmt.Errorf("%w: %v", apperrors.ErrVerificationUnavailable, err)
		}
		logCtx.ErrorContext(ctx, "PIN verification unavailable, attempt not consumed", slog.Any("error", err))
		monitoring.RecordPayment(rejectionStatus(err))
		return nil, err
	}

	receipt := s.factory.NewReceiptNumber()
	var outcome confirmOutcome
	txn, cust, err := s.atomicUpdate(ctx, code, func(t *Transaction, c *customer.Customer) error {
		if err := t.CheckConfirmable(); err != nil {
			return err
		}
		if !c.IsActive {
			return fmt.Errorf("%w: customer %s was deactivated", apperrors.ErrInvalidState, c.CustomerCode)
		}
		now := s.factory.Now()

		if !verified {
			failed, err := t.RecordFailedAttempt(now)
			if err != nil {
				return err
			}
			outcome = outcomePinRejected
			if failed {
				outcome = outcomeAttemptsExhausted
			}
			return nil
		}

		if t.Amount.GreaterThan(c.LoanBalance) {
			outcome = outcomeInsufficientBalance
			return t.MarkFailed(MsgInsufficientAtConfirm, now)
		}

		newLoan, newArrears := ComputePostPaymentBalances(c, t.Amount)
		c.ApplyPayment(t.Amount, newLoan, newArrears, now)
		outcome = outcomeSucceeded
		return t.MarkSucceeded(receipt, now)
	})
	if err != nil {
		monitoring.RecordPayment(rejectionStatus(err))
		return nil, err
	}

	result := &ConfirmationResult{
		Transaction:  txn,
		Status:       txn.Status,
		AttemptsLeft: txn.AttemptsLeft(),
	}

	switch outcome {
	case outcomeSucceeded:
		if txn.MpesaReceiptNumber != nil {
			result.ReceiptNumber = *txn.MpesaReceiptNumber
		}
		result.NewLoanBalance = cust.LoanBalance
		result.NewArrears = cust.Arrears
		result.Message = "Payment confirmed"
		monitoring.RecordPayment("success")
		monitoring.RecordPaymentAmount("success", txn.Amount)
		s.publish(ctx, event.RoutingKeyPaymentSucceeded, txn)
		logCtx.InfoContext(ctx, "Payment confirmed",
			slog.String("receipt", result.ReceiptNumber),
			slog.String("newLoanBalance", cust.LoanBalance.StringFixed(2)),
			slog.String("newArrears", cust.Arrears.StringFixed(2)))
		return result, nil

	case outcomeInsufficientBalance:
		monitoring.RecordPayment("failed_balance")
		s.publish(ctx, event.RoutingKeyPaymentFailed, txn)
		logCtx.WarnContext(ctx, "Loan balance dropped below amount before confirmation, transaction failed",
			slog.String("amount", txn.Amount.StringFixed(2)), slog.String("loanBalance", cust.LoanBalance.StringFixed(2)))
		return nil, fmt.Errorf("%w: amount %s exceeds current loan balance %s, transaction %s failed",
			apperrors.ErrBalance, txn.Amount.StringFixed(2), cust.LoanBalance.StringFixed(2), code)

	case outcomeAttemptsExhausted:
		result.Message = MsgMaxAttemptsExceeded
		monitoring.RecordPayment("failed_attempts")
		s.publish(ctx, event.RoutingKeyPaymentFailed, txn)
		logCtx.WarnContext(ctx, "PIN attempts exhausted, transaction failed")
		return result, nil

	default:
		result.Message = fmt.Sprintf("Invalid PIN. %d attempt(s) remaining", result.AttemptsLeft)
		monitoring.RecordPayment("pin_rejected")
		logCtx.InfoContext(ctx, "PIN rejected", slog.Int("attemptsLeft", result.AttemptsLeft))
		return result, nil
	}
}

func (s *paymentService) Cancel(ctx context.Context, transactionCode string) (*Transaction, error) {
	code := normalizeCode(transactionCode)
	if code == "" {
		return nil, apperrors.NewValidationError("transactionCode", "transaction code is required")
	}

	txn, _, err := s.atomicUpdate(ctx, code, func(t *Transaction, _ *customer.Customer) error {
		return t.MarkCancelled(s.factory.Now())
	})
	if err != nil {
		monitoring.RecordPayment(rejectionStatus(err))
		return nil, err
	}

	monitoring.RecordPayment("cancelled")
	s.publish(ctx, event.RoutingKeyPaymentCancelled, txn)
	s.logger.InfoContext(ctx, "Transaction cancelled", slog.String("transactionCode", code))
	return txn, nil
}

func (s *paymentService) Expire(ctx context.Context, transactionCode, reason string) (*Transaction, error) {
	code := normalizeCode(transactionCode)
	if code == "" {
		return nil, apperrors.NewValidationError("transactionCode", "transaction code is required")
	}
	if strings.TrimSpace(reason) == "" {
		reason = MsgExpired
	}

	txn, _, err := s.atomicUpdate(ctx, code, func(t *Transaction, _ *customer.Customer) error {
		return t.MarkFailed(reason, s.factory.Now())
	})
	if err != nil {
		return nil, err
	}

	monitoring.RecordPayment("expired")
	monitoring.RecordExpiredTransaction()
	s.publish(ctx, event.RoutingKeyPaymentExpired, txn)
	s.logger.InfoContext(ctx, "Transaction expired", slog.String("transactionCode", code))
	return txn, nil
}

func (s *paymentService) GetTransaction(ctx context.Context, transactionCode string) (*Transaction, error) {
	code := normalizeCode(transactionCode)
	if code == "" {
		return nil, apperrors.NewValidationError("transactionCode", "transaction code is required")
	}
	return s.loadTransaction(ctx, code)
}

func (s *paymentService) ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("status", fmt.Sprintf("unknown status '%s'", filter.Status))
	}
	if filter.Offset < 0 {
		return nil, apperrors.NewValidationError("offset", "offset cannot be negative")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	txns, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing transactions", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}
