package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"repayment-engine/internal/event"
	"repayment-engine/internal/infrastructure/monitoring"
	"repayment-engine/internal/pkg/apperrors"
	"repayment-engine/internal/pkg/msisdn"

	"github.com/shopspring/decimal"
)

const customerNotFound = "Customer not found by repository"

type CreateCustomerInput struct {
	FullName    string
	PhoneNumber string
	Email       string
	NationalID  string
	LoanBalance decimal.Decimal
	Arrears     decimal.Decimal
}

type UpdateContactInput struct {
	FullName    *string
	PhoneNumber *string
	Email       *string
	NationalID  *string
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (*Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
	GetCustomerByCode(ctx context.Context, customerCode string) (*Customer, error)
	GetCustomerByPhone(ctx context.Context, rawPhone string) (*Customer, error)
	ListCustomers(ctx context.Context, activeOnly bool) ([]*Customer, error)
	UpdateContactDetails(ctx context.Context, customerID int64, input UpdateContactInput) (*Customer, error)
	DeactivateCustomer(ctx context.Context, customerID int64) error
	ReactivateCustomer(ctx context.Context, customerID int64) error
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo        CustomerRepository
	pub         event.EventPublisher
	countryCode string
	logger      *slog.Logger
}

func NewCustomerService(repo CustomerRepository, publisher event.EventPublisher, countryCode string, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerService, using default stderr handler")
	}
	if publisher == nil {
		publisher = event.NewNoopPublisher(logger)
	}
	if countryCode == "" {
		countryCode = msisdn.DefaultCountryCode
	}

	return &customerService{
		repo:        repo,
		pub:         publisher,
		countryCode: countryCode,
		logger:      logger.With(slog.String("component", "customerService")),
	}
}

func newCustomerEventPayload(c *Customer) event.CustomerEventPayload {
	return event.CustomerEventPayload{
		CustomerID:   c.ID,
		CustomerCode: c.CustomerCode,
		FullName:     c.FullName,
		PhoneNumber:  c.PhoneNumber,
		LoanBalance:  c.LoanBalance,
		Arrears:      c.Arrears,
		IsActive:     c.IsActive,
	}
}

func (s *customerService) publish(ctx context.Context, routingKey string, c *Customer) {
	if err := s.pub.PublishCustomerEvent(ctx, event.NewCustomerEvent(routingKey, newCustomerEventPayload(c))); err != nil {
		s.logger.ErrorContext(ctx, "Customer change committed, but failed to publish event",
			slog.String("routingKey", routingKey), slog.Int64("customerID", c.ID), slog.Any("error", err))
	}
}

func (s *customerService) normalizePhone(raw string) (string, error) {
	phone := msisdn.Normalize(raw, s.countryCode)
	if phone == "" {
		return "", apperrors.NewValidationError("phoneNumber", "phone number is required")
	}
	if !msisdn.Valid(phone) {
		return "", apperrors.NewValidationError("phoneNumber", fmt.Sprintf("'%s' is not a valid phone number", raw))
	}
	return phone, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to create new customer")

	name := strings.TrimSpace(input.FullName)
	if name == "" {
		s.logger.WarnContext(ctx, "Validation failed: name is empty")
		return nil, apperrors.NewValidationError("fullName", "full name cannot be empty")
	}
	phone, err := s.normalizePhone(input.PhoneNumber)
	if err != nil {
		s.logger.WarnContext(ctx, "Validation failed: phone number", slog.Any("error", err))
		return nil, err
	}
	if input.LoanBalance.IsNegative() {
		return nil, apperrors.NewValidationError("loanBalance", "loan balance cannot be negative")
	}
	if input.Arrears.IsNegative() {
		return nil, apperrors.NewValidationError("arrears", "arrears cannot be negative")
	}
	if input.Arrears.GreaterThan(input.LoanBalance) {
		return nil, apperrors.NewValidationError("arrears", "arrears cannot exceed the loan balance")
	}

	cust := NewCustomer(name, phone, input.LoanBalance, input.Arrears)
	cust.Email = strings.TrimSpace(input.Email)
	cust.NationalID = strings.TrimSpace(input.NationalID)

	if err := s.repo.Save(ctx, cust); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			s.logger.WarnContext(ctx, "Active customer with phone number already exists", slog.String("phoneNumber", phone))
			return nil, fmt.Errorf("%w: an active customer with phone %s already exists", apperrors.ErrAlreadyExists, phone)
		}
		s.logger.ErrorContext(ctx, "Repository failed to save new customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}

	monitoring.RecordCustomerCreated()
	s.publish(ctx, event.RoutingKeyCustomerCreated, cust)
	s.logger.InfoContext(ctx, "Successfully created new customer", slog.Int64("customerID", cust.ID), slog.String("customerCode", cust.CustomerCode))
	return cust, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound, slog.Int64("customerID", customerID))
			return nil, fmt.Errorf("%w: customer %d", apperrors.ErrNotFound, customerID)
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %d: %w", customerID, err)
	}
	return cust, nil
}

func (s *customerService) GetCustomerByCode(ctx context.Context, customerCode string) (*Customer, error) {
	code := strings.ToUpper(strings.TrimSpace(customerCode))
	if code == "" {
		return nil, apperrors.NewValidationError("customerCode", "customer code is required")
	}

	cust, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound, slog.String("customerCode", code))
			return nil, fmt.Errorf("%w: customer %s", apperrors.ErrNotFound, code)
		}
		return nil, fmt.Errorf("failed to get customer %s: %w", code, err)
	}
	return cust, nil
}

func (s *customerService) GetCustomerByPhone(ctx context.Context, rawPhone string) (*Customer, error) {
	phone, err := s.normalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}

	cust, err := s.repo.FindByPhone(ctx, phone, true)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound, slog.String("phoneNumber", phone))
			return nil, fmt.Errorf("%w: no active customer with phone %s", apperrors.ErrNotFound, phone)
		}
		return nil, fmt.Errorf("failed to get customer by phone: %w", err)
	}
	return cust, nil
}

func (s *customerService) ListCustomers(ctx context.Context, activeOnly bool) ([]*Customer, error) {
	customers, err := s.repo.FindAll(ctx, activeOnly)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved customers", slog.Int("count", len(customers)), slog.Bool("activeOnly", activeOnly))
	return customers, nil
}

func (s *customerService) UpdateContactDetails(ctx context.Context, customerID int64, input UpdateContactInput) (*Customer, error) {
	logCtx := s.logger.With(slog.Int64("customerID", customerID))
	logCtx.InfoContext(ctx, "Attempting to update customer contact details")

	cust, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, apperrors.NewValidationError("fullName", "full name cannot be empty")
		}
		cust.FullName = name
	}
	if input.PhoneNumber != nil {
		phone, err := s.normalizePhone(*input.PhoneNumber)
		if err != nil {
			return nil, err
		}
		cust.PhoneNumber = phone
	}
	if input.Email != nil {
		cust.Email = strings.TrimSpace(*input.Email)
	}
	if input.NationalID != nil {
		cust.NationalID = strings.TrimSpace(*input.NationalID)
	}

	if err := s.repo.Save(ctx, cust); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: an active customer with phone %s already exists", apperrors.ErrAlreadyExists, cust.PhoneNumber)
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			logCtx.ErrorContext(ctx, "Customer disappeared before save completed")
			return nil, fmt.Errorf("%w: customer %d", apperrors.ErrNotFound, customerID)
		}
		logCtx.ErrorContext(ctx, "Repository failed to save contact details", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save contact details for customer %d: %w", customerID, err)
	}

	logCtx.InfoContext(ctx, "Successfully updated customer contact details")
	return cust, nil
}

func (s *customerService) DeactivateCustomer(ctx context.Context, customerID int64) error {
	if err := s.setActive(ctx, customerID, false); err != nil {
		return err
	}

	cust, fetchErr := s.repo.FindByID(ctx, customerID)
	if fetchErr != nil {
		s.logger.ErrorContext(ctx, "Customer deactivated, but failed to re-fetch customer for event publishing", slog.Any("error", fetchErr))
		return nil
	}
	s.publish(ctx, event.RoutingKeyCustomerDeactivated, cust)
	return nil
}

func (s *customerService) ReactivateCustomer(ctx context.Context, customerID int64) error {
	return s.setActive(ctx, customerID, true)
}

func (s *customerService) setActive(ctx context.Context, customerID int64, active bool) error {
	logCtx := s.logger.With(slog.Int64("customerID", customerID), slog.Bool("isActive", active))
	logCtx.InfoContext(ctx, "Calling repository SetActiveStatus")

	err := s.repo.SetActiveStatus(ctx, customerID, active)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logCtx.WarnContext(ctx, customerNotFound)
			return fmt.Errorf("%w: customer %d", apperrors.ErrNotFound, customerID)
		}
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return fmt.Errorf("%w: another active customer uses this phone number", apperrors.ErrAlreadyExists)
		}
		logCtx.ErrorContext(ctx, "Repository error updating active status", slog.Any("error", err))
		return fmt.Errorf("failed to update active status for customer %d: %w", customerID, err)
	}

	logCtx.InfoContext(ctx, "Customer active status updated")
	return nil
}
