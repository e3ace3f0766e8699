package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoutingKeyPaymentInitiated    = "payment.initiated"
	RoutingKeyPaymentSucceeded    = "payment.succeeded"
	RoutingKeyPaymentFailed       = "payment.failed"
	RoutingKeyPaymentCancelled    = "payment.cancelled"
	RoutingKeyPaymentExpired      = "payment.expired"
	RoutingKeyCustomerCreated     = "customer.created"
	RoutingKeyCustomerDeactivated = "customer.deactivated"

	publisherAppID = "repayment-engine"
)

type PaymentEventPayload struct {
	TransactionCode    string          `json:"transactionCode"`
	CustomerID         int64           `json:"customerId"`
	PhoneNumber        string          `json:"phoneNumber"`
	Amount             decimal.Decimal `json:"amount"`
	Status             string          `json:"status"`
	PinAttempts        int             `json:"pinAttempts"`
	MpesaReceiptNumber string          `json:"mpesaReceiptNumber,omitempty"`
	LoanBalanceAfter   decimal.Decimal `json:"loanBalanceAfter"`
	ArrearsAfter       decimal.Decimal `json:"arrearsAfter"`
	ErrorMessage       string          `json:"errorMessage,omitempty"`
	ProcessedAt        *time.Time      `json:"processedAt,omitempty"`
}

type PaymentEvent struct {
	EventID    string              `json:"eventId"`
	Type       string              `json:"type"`
	OccurredAt time.Time           `json:"occurredAt"`
	Payload    PaymentEventPayload `json:"payload"`
}

type CustomerEventPayload struct {
	CustomerID   int64           `json:"customerId"`
	CustomerCode string          `json:"customerCode"`
	FullName     string          `json:"fullName"`
	PhoneNumber  string          `json:"phoneNumber"`
	LoanBalance  decimal.Decimal `json:"loanBalance"`
	Arrears      decimal.Decimal `json:"arrears"`
	IsActive     bool            `json:"isActive"`
}

type CustomerEvent struct {
	EventID    string               `json:"eventId"`
	Type       string               `json:"type"`
	OccurredAt time.Time            `json:"occurredAt"`
	Payload    CustomerEventPayload `json:"payload"`
}

func NewPaymentEvent(routingKey string, payload PaymentEventPayload) PaymentEvent {
	return PaymentEvent{
		EventID:    uuid.NewString(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

func NewCustomerEvent(routingKey string, payload CustomerEventPayload) CustomerEvent {
	return CustomerEvent{
		EventID:    uuid.NewString(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
