package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики жизненного цикла заказов и кредитного контроля.
type OrderMetrics struct {
	// Счётчики операций
	ordersCreated  prometheus.Counter
	ordersCanceled prometheus.Counter
	ordersDeleted  prometheus.Counter

	// Исходы кредитного контроля
	creditAllowed  prometheus.Counter
	creditRejected prometheus.Counter

	// Гистограмма времени создания заказа
	createDuration prometheus.Histogram
}

// NewOrderMetrics создаёт новый экземпляр метрик заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "vendas_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersCanceled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "vendas_orders_canceled_total",
			Help: "Total number of orders canceled",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "vendas_orders_deleted_total",
			Help: "Total number of orders deleted",
		}),
		creditAllowed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "vendas_credit_authorizations_allowed_total",
			Help: "Total number of orders that passed the credit check",
		}),
		creditRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "vendas_credit_authorizations_rejected_total",
			Help: "Total number of orders rejected by the credit check",
		}),
		createDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "vendas_order_create_duration_seconds",
			Help:    "Duration of order creation in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderCanceled увеличивает счётчик отменённых заказов.
func (m *OrderMetrics) RecordOrderCanceled() {
	m.ordersCanceled.Inc()
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов.
func (m *OrderMetrics) RecordOrderDeleted() {
	m.ordersDeleted.Inc()
}

// RecordCreditAllowed увеличивает счётчик пропущенных кредитным контролем заказов.
func (m *OrderMetrics) RecordCreditAllowed() {
	m.creditAllowed.Inc()
}

// RecordCreditRejected увеличивает счётчик отклонённых кредитным контролем заказов.
func (m *OrderMetrics) RecordCreditRejected() {
	m.creditRejected.Inc()
}

// RecordCreateDuration записывает время создания заказа.
func (m *OrderMetrics) RecordCreateDuration(duration time.Duration) {
	m.createDuration.Observe(duration.Seconds())
}
