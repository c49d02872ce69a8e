package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewOrderMetrics(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("newOrderMetricsWithRegisterer should not return nil")
	}

	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}

	if metrics.ordersCanceled == nil {
		t.Error("ordersCanceled counter should not be nil")
	}

	if metrics.ordersDeleted == nil {
		t.Error("ordersDeleted counter should not be nil")
	}

	if metrics.creditAllowed == nil {
		t.Error("creditAllowed counter should not be nil")
	}

	if metrics.creditRejected == nil {
		t.Error("creditRejected counter should not be nil")
	}

	if metrics.createDuration == nil {
		t.Error("createDuration histogram should not be nil")
	}
}

func TestNewOrderMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newOrderMetricsWithRegisterer(reg)
	second := newOrderMetricsWithRegisterer(reg)

	// Повторная регистрация возвращает уже зарегистрированные коллекторы.
	if first.ordersCreated != second.ordersCreated {
		t.Error("expected the same ordersCreated collector on re-registration")
	}

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	metric := &dto.Metric{}
	if err := first.ordersCreated.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCreditOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()

	creditAllowed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_credit_allowed_total",
		Help: "Test counter",
	})
	creditRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_credit_rejected_total",
		Help: "Test counter",
	})

	reg.MustRegister(creditAllowed, creditRejected)

	metrics := &OrderMetrics{
		creditAllowed:  creditAllowed,
		creditRejected: creditRejected,
	}

	metrics.RecordCreditAllowed()
	metrics.RecordCreditAllowed()
	metrics.RecordCreditRejected()

	metric := &dto.Metric{}
	if err := creditAllowed.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected allowed counter 2.0, got %f", metric.Counter.GetValue())
	}

	metric = &dto.Metric{}
	if err := creditRejected.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected rejected counter 1.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCreateDuration(t *testing.T) {
	reg := prometheus.NewRegistry()

	createDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_order_create_duration_seconds",
		Help:    "Test histogram",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(createDuration)

	metrics := &OrderMetrics{createDuration: createDuration}
	metrics.RecordCreateDuration(150 * time.Millisecond)

	metric := &dto.Metric{}
	if err := createDuration.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}

	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("expected one observation, got %d", metric.Histogram.GetSampleCount())
	}
}
