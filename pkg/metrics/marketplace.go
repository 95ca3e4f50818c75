package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// MarketplaceMetrics counts checkout and payment activity.
type MarketplaceMetrics struct {
	ordersPlaced   prometheus.Counter
	orderAmount    prometheus.Histogram
	carbonSavedKg  prometheus.Counter
	paymentIntents *prometheus.CounterVec
	webhookEvents  *prometheus.CounterVec
}

func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	m := &MarketplaceMetrics{
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders created by checkout.",
		}),
		orderAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "order_total_amount",
			Help:    "Order totals in currency units.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		carbonSavedKg: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carbon_saved_kg_total",
			Help: "Kilograms of CO2 saved across placed orders.",
		}),
		paymentIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Payment intent creation attempts by result.",
		}, []string{"result"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Processor webhook events by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	reg.MustRegister(m.ordersPlaced, m.orderAmount, m.carbonSavedKg, m.paymentIntents, m.webhookEvents)
	return m
}

// OrderPlaced records a committed order.
func (m *MarketplaceMetrics) OrderPlaced(total, carbon decimal.Decimal) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.orderAmount.Observe(total.InexactFloat64())
	if carbon.IsPositive() {
		m.carbonSavedKg.Add(carbon.InexactFloat64())
	}
}

// PaymentIntent records a create-intent attempt; result is e.g. created, rejected, unconfigured, failed.
func (m *MarketplaceMetrics) PaymentIntent(result string) {
	if m == nil || m.paymentIntents == nil {
		return
	}
	m.paymentIntents.WithLabelValues(normalizeLabel(result)).Inc()
}

// WebhookEvent records how a processor event was handled.
func (m *MarketplaceMetrics) WebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
