package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	PaymentsTotal        *prometheus.CounterVec
	PaymentAmountTotal   *prometheus.CounterVec
	EventsPublishedTotal *prometheus.CounterVec
	ExpiredTransactions  prometheus.Counter
	CustomersCreated     prometheus.Counter
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "repayment_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repayment_engine_payments_total",
				Help: "Payment state machine outcomes by status.",
			},
			[]string{"status"},
		),
		PaymentAmountTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repayment_engine_payment_amount_total",
				Help: "Sum of payment amounts by status.",
			},
			[]string{"status"},
		),
		EventsPublishedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repayment_engine_events_published_total",
				Help: "Domain events published to the message broker.",
			},
			[]string{"routing_key", "result"},
		),
		ExpiredTransactions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "repayment_engine_expired_transactions_total",
				Help: "Pending transactions failed by the expiry job.",
			},
		),
		CustomersCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "repayment_engine_customers_created_total",
				Help: "Total number of customers created.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordPaymentAmount(status string, amount decimal.Decimal) {
	Business.PaymentAmountTotal.WithLabelValues(status).Add(amount.InexactFloat64())
}

func RecordEventPublished(routingKey string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	Business.EventsPublishedTotal.WithLabelValues(routingKey, result).Inc()
}

func RecordExpiredTransaction() {
	Business.ExpiredTransactions.Inc()
}

func RecordCustomerCreated() {
	Business.CustomersCreated.Inc()
}
