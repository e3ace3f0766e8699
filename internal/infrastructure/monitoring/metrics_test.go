package monitoring

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRecordPayment(t *testing.T) {
	Business.PaymentsTotal.Reset()

	RecordPayment("success")
	RecordPayment("success")
	RecordPayment("failure_pin")

	expected := `
		# HELP repayment_engine_payments_total Payment state machine outcomes by status.
		# TYPE repayment_engine_payments_total counter
		repayment_engine_payments_total{status="failure_pin"} 1
		repayment_engine_payments_total{status="success"} 2
	`
	assert.NoError(t, testutil.CollectAndCompare(Business.PaymentsTotal, strings.NewReader(expected)))
}

func TestRecordPaymentAmount(t *testing.T) {
	Business.PaymentAmountTotal.Reset()

	RecordPaymentAmount("success", decimal.RequireFromString("20000.50"))
	RecordPaymentAmount("success", decimal.RequireFromString("0.50"))

	assert.Equal(t, 20001.0, testutil.ToFloat64(Business.PaymentAmountTotal.WithLabelValues("success")))
}

func TestRecordEventPublished(t *testing.T) {
	Business.EventsPublishedTotal.Reset()

	RecordEventPublished("payment.succeeded", nil)
	RecordEventPublished("payment.succeeded", errors.New("channel closed"))

	assert.Equal(t, 1.0, testutil.ToFloat64(Business.EventsPublishedTotal.WithLabelValues("payment.succeeded", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(Business.EventsPublishedTotal.WithLabelValues("payment.succeeded", "error")))
}

func TestRecordDBQuery(t *testing.T) {
	DB.QueryDuration.Reset()

	RecordDBQuery("GetTransactionByCode", "success", 3*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(DB.QueryDuration))
}
