package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records checkout and webhook outcomes.
type PaymentMetrics struct {
	checkouts *prometheus.CounterVec
	webhooks  *prometheus.CounterVec
	quotes    *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment-flow metrics on the provided
// registerer. A nil registerer yields a no-op recorder for tests.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout settlement attempts by result.",
	}, []string{"result"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment webhook notifications by provider status and outcome.",
	}, []string{"status", "outcome"})
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_quote_requests_total",
		Help: "Courier quotation requests by result.",
	}, []string{"result"})
	reg.MustRegister(checkouts, webhooks, quotes)
	return &PaymentMetrics{
		checkouts: checkouts,
		webhooks:  webhooks,
		quotes:    quotes,
	}
}

// ObserveCheckout counts one settlement attempt.
func (m *PaymentMetrics) ObserveCheckout(result string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
}

// ObserveWebhook counts one webhook notification.
func (m *PaymentMetrics) ObserveWebhook(status, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(status, outcome).Inc()
}

// ObserveQuote counts one courier quotation request.
func (m *PaymentMetrics) ObserveQuote(result string) {
	if m == nil || m.quotes == nil {
		return
	}
	m.quotes.WithLabelValues(result).Inc()
}
