package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"repayment-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

const DefaultVerifierTimeout = 10 * time.Second

var wellFormedCode = regexp.MustCompile(`^\d{4,6}$`)

// IsWellFormedCode reports whether code looks like a PIN the network would
// accept: four to six digits.
func IsWellFormedCode(code string) bool {
	return wellFormedCode.MatchString(code)
}

// Verifier decides whether the code submitted for txn confirms the payment.
// An error means no decision was reached and must not consume an attempt.
type Verifier interface {
	Verify(ctx context.Context, txn *Transaction, code string) (bool, error)
}

type FormatVerifier struct{}

var _ Verifier = FormatVerifier{}

func (FormatVerifier) Verify(_ context.Context, _ *Transaction, code string) (bool, error) {
	return IsWellFormedCode(code), nil
}

type verifyRequest struct {
	TransactionCode string          `json:"transactionCode"`
	PhoneNumber     string          `json:"phoneNumber"`
	Amount          decimal.Decimal `json:"amount"`
	Code            string          `json:"code"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

// HTTPVerifier asks a payment network endpoint to verify the code.
type HTTPVerifier struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

var _ Verifier = (*HTTPVerifier)(nil)

func NewHTTPVerifier(url string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = DefaultVerifierTimeout
	}
	return &HTTPVerifier{
		URL:     url,
		Timeout: timeout,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, txn *Transaction, code string) (bool, error) {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultVerifierTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(verifyRequest{
		TransactionCode: txn.TransactionCode,
		PhoneNumber:     txn.PhoneNumber,
		Amount:          txn.Amount,
		Code:            code,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.URL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("%w: failed to build request: %v", apperrors.ErrVerificationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", apperrors.ErrVerificationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("%w: verifier returned status %d", apperrors.ErrVerificationUnavailable, resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("%w: malformed verifier response: %v", apperrors.ErrVerificationUnavailable, err)
	}
	return out.Verified, nil
}
