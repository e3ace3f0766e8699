package customer

import (
	"context"
)

type CustomerRepository interface {
	// Save inserts a new customer when ID is zero, otherwise updates contact
	// details. Balance fields are only written on insert.
	Save(ctx context.Context, customer *Customer) error

	FindByID(ctx context.Context, customerID int64) (*Customer, error)

	FindByCode(ctx context.Context, customerCode string) (*Customer, error)

	FindByPhone(ctx context.Context, phoneNumber string, activeOnly bool) (*Customer, error)

	FindAll(ctx context.Context, activeOnly bool) ([]*Customer, error)

	SetActiveStatus(ctx context.Context, customerID int64, isActive bool) error
}
