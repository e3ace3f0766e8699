package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

const currencyLabel = "KES"

// Notifier delivers a text message to a subscriber.
type Notifier interface {
	Notify(ctx context.Context, phoneNumber, message string) error
}

// LogNotifier writes notifications to the log instead of an SMS gateway.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "LogNotifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, phoneNumber, message string) error {
	n.logger.InfoContext(ctx, "Customer notification", slog.String("phoneNumber", phoneNumber), slog.String("message", message))
	return nil
}

type PaymentNotificationHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewPaymentNotificationHandler(notifier Notifier, logger *slog.Logger) *PaymentNotificationHandler {
	return &PaymentNotificationHandler{
		notifier: notifier,
		logger:   logger.With("component", "PaymentNotificationHandler"),
	}
}

func (h *PaymentNotificationHandler) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	logCtx := h.logger.With(slog.Uint64("deliveryTag", d.DeliveryTag), slog.String("routingKey", d.RoutingKey))

	var evt PaymentEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		logCtx.ErrorContext(ctx, "Failed to unmarshal payment event", "error", err, "body", string(d.Body))
		_ = d.Nack(false, false)
		return
	}
	if evt.Type == "" {
		evt.Type = d.RoutingKey
	}

	message, ok := RenderPaymentMessage(evt)
	if !ok {
		logCtx.WarnContext(ctx, "Received message with unknown routing key. Discarding.")
		_ = d.Reject(false)
		return
	}

	logCtx = logCtx.With(slog.String("transactionCode", evt.Payload.TransactionCode))
	if err := h.notifier.Notify(ctx, evt.Payload.PhoneNumber, message); err != nil {
		logCtx.ErrorContext(ctx, "Failed to deliver notification, requeueing", "error", err)
		_ = d.Nack(false, true)
		return
	}

	if err := d.Ack(false); err != nil {
		logCtx.ErrorContext(ctx, "Failed to ack message", "error", err)
		return
	}
	logCtx.InfoContext(ctx, "Notification delivered")
}

// RenderPaymentMessage builds the customer-facing text for a payment event.
func RenderPaymentMessage(evt PaymentEvent) (string, bool) {
	p := evt.Payload
	amount := currencyLabel + " " + p.Amount.StringFixed(2)

	switch evt.Type {
	case RoutingKeyPaymentInitiated:
		return fmt.Sprintf("Enter your PIN to pay %s towards your loan. Ref %s.", amount, p.TransactionCode), true
	case RoutingKeyPaymentSucceeded:
		return fmt.Sprintf("%s Confirmed. %s received for loan repayment. New loan balance %s %s, arrears %s %s.",
			p.MpesaReceiptNumber, amount,
			currencyLabel, p.LoanBalanceAfter.StringFixed(2),
			currencyLabel, p.ArrearsAfter.StringFixed(2)), true
	case RoutingKeyPaymentFailed:
		return fmt.Sprintf("Your loan repayment of %s (Ref %s) failed: %s.", amount, p.TransactionCode, p.ErrorMessage), true
	case RoutingKeyPaymentCancelled:
		return fmt.Sprintf("Your loan repayment request of %s (Ref %s) was cancelled.", amount, p.TransactionCode), true
	case RoutingKeyPaymentExpired:
		return fmt.Sprintf("Your loan repayment request of %s (Ref %s) expired before confirmation.", amount, p.TransactionCode), true
	default:
		return "", false
	}
}
