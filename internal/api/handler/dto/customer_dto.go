package dto

import (
	"encoding/json"
	"strings"
	"time"

	"repayment-engine/internal/domain/customer"
	"repayment-engine/internal/pkg/apperrors"
)

type CreateCustomerRequest struct {
	FullName    string      `json:"fullName"`
	PhoneNumber string      `json:"phoneNumber"`
	Email       string      `json:"email,omitempty"`
	NationalID  string      `json:"nationalId,omitempty"`
	LoanBalance json.Number `json:"loanBalance"`
	Arrears     json.Number `json:"arrears,omitempty"`
}

func (r *CreateCustomerRequest) Validate() error {
	if strings.TrimSpace(r.FullName) == "" {
		return apperrors.NewValidationError("fullName", "full name cannot be empty")
	}
	if strings.TrimSpace(r.PhoneNumber) == "" {
		return apperrors.NewValidationError("phoneNumber", "phone number cannot be empty")
	}
	if _, err := parseMoney("loanBalance", r.LoanBalance); err != nil {
		return err
	}
	if _, err := parseMoney("arrears", r.Arrears); err != nil {
		return err
	}
	return nil
}

// ToInput converts the request after Validate has passed. Range checks on
// the balances are left to the customer service.
func (r *CreateCustomerRequest) ToInput() (customer.CreateCustomerInput, error) {
	loanBalance, err := parseMoney("loanBalance", r.LoanBalance)
	if err != nil {
		return customer.CreateCustomerInput{}, err
	}
	arrears, err := parseMoney("arrears", r.Arrears)
	if err != nil {
		return customer.CreateCustomerInput{}, err
	}
	return customer.CreateCustomerInput{
		FullName:    r.FullName,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		NationalID:  r.NationalID,
		LoanBalance: loanBalance,
		Arrears:     arrears,
	}, nil
}

type UpdateCustomerRequest struct {
	FullName    *string `json:"fullName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Email       *string `json:"email,omitempty"`
	NationalID  *string `json:"nationalId,omitempty"`
}

func (r *UpdateCustomerRequest) Validate() error {
	if r.FullName == nil && r.PhoneNumber == nil && r.Email == nil && r.NationalID == nil {
		return apperrors.NewValidationError("", "at least one field must be provided")
	}
	if r.FullName != nil && strings.TrimSpace(*r.FullName) == "" {
		return apperrors.NewValidationError("fullName", "full name cannot be empty")
	}
	if r.PhoneNumber != nil && strings.TrimSpace(*r.PhoneNumber) == "" {
		return apperrors.NewValidationError("phoneNumber", "phone number cannot be empty")
	}
	return nil
}

func (r *UpdateCustomerRequest) ToInput() customer.UpdateContactInput {
	return customer.UpdateContactInput{
		FullName:    r.FullName,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		NationalID:  r.NationalID,
	}
}

type CustomerResponse struct {
	ID              int64      `json:"id"`
	CustomerCode    string     `json:"customerCode"`
	FullName        string     `json:"fullName"`
	Email           string     `json:"email,omitempty"`
	NationalID      string     `json:"nationalId,omitempty"`
	PhoneNumber     string     `json:"phoneNumber"`
	LoanBalance     string     `json:"loanBalance"`
	Arrears         string     `json:"arrears"`
	TotalRepayments string     `json:"totalRepayments"`
	LastPaymentDate *time.Time `json:"lastPaymentDate,omitempty"`
	IsActive        bool       `json:"isActive"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}
	return CustomerResponse{
		ID:              cust.ID,
		CustomerCode:    cust.CustomerCode,
		FullName:        cust.FullName,
		Email:           cust.Email,
		NationalID:      cust.NationalID,
		PhoneNumber:     cust.PhoneNumber,
		LoanBalance:     formatMoney(cust.LoanBalance),
		Arrears:         formatMoney(cust.Arrears),
		TotalRepayments: formatMoney(cust.TotalRepayments),
		LastPaymentDate: cust.LastPaymentDate,
		IsActive:        cust.IsActive,
		CreatedAt:       cust.CreatedAt,
		UpdatedAt:       cust.UpdatedAt,
	}
}

func NewCustomerListResponse(customers []*customer.Customer) []CustomerResponse {
	resp := make([]CustomerResponse, len(customers))
	for i, cust := range customers {
		resp[i] = NewCustomerResponse(cust)
	}
	return resp
}
