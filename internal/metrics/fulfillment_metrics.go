package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics содержит метрики саги исполнения заказа.
type FulfillmentMetrics struct {
	// Счётчики операций
	ordersPlaced    prometheus.Counter
	ordersCancelled prometheus.Counter
	paymentsOK      prometheus.Counter
	paymentsFailed  prometheus.Counter

	// Счётчики компенсаций
	compensationsStarted prometheus.Counter
	compensationsLogged  prometheus.Counter

	// Ретраи журнала сбоев
	retryAttempts *prometheus.CounterVec
	pendingLogs   prometheus.Gauge

	// Гистограмма времени обработки события
	handlerDuration *prometheus.HistogramVec
}

// NewFulfillmentMetrics создаёт и регистрирует метрики в default registerer.
func NewFulfillmentMetrics() *FulfillmentMetrics {
	return newFulfillmentMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newFulfillmentMetricsWithRegisterer(registerer prometheus.Registerer) *FulfillmentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &FulfillmentMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flowershop_orders_placed_total",
			Help: "Total number of orders placed",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flowershop_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		}),
		paymentsOK: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flowershop_payments_completed_total",
			Help: "Total number of payments completed successfully",
		}),
		paymentsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flowershop_payments_failed_total",
			Help: "Total number of payments rejected or failed",
		}),
		compensationsStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flowershop_compensations_started_total",
			Help: "Total number of compensation flows triggered",
		}),
		compensationsLogged: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flowershop_compensations_logged_total",
			Help: "Total number of failed compensations persisted to the failure log",
		}),
		retryAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "flowershop_failure_retry_attempts_total",
			Help: "Total number of failure log retry attempts grouped by result",
		}, []string{"result"}),
		pendingLogs: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "flowershop_failure_logs_pending",
			Help: "Current number of pending rows in the failure log",
		}),
		handlerDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "flowershop_event_handler_duration_seconds",
			Help:    "Duration of saga event handlers in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"event_kind"}),
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

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderPlaced увеличивает счётчик оформленных заказов.
func (m *FulfillmentMetrics) RecordOrderPlaced() { m.ordersPlaced.Inc() }

// RecordOrderCancelled увеличивает счётчик отменённых заказов.
func (m *FulfillmentMetrics) RecordOrderCancelled() { m.ordersCancelled.Inc() }

// RecordPaymentCompleted увеличивает счётчик успешных оплат.
func (m *FulfillmentMetrics) RecordPaymentCompleted() { m.paymentsOK.Inc() }

// RecordPaymentFailed увеличивает счётчик отклонённых оплат.
func (m *FulfillmentMetrics) RecordPaymentFailed() { m.paymentsFailed.Inc() }

// RecordCompensationStarted увеличивает счётчик запущенных компенсаций.
func (m *FulfillmentMetrics) RecordCompensationStarted() { m.compensationsStarted.Inc() }

// RecordCompensationLogged учитывает компенсацию, ушедшую в журнал сбоев.
func (m *FulfillmentMetrics) RecordCompensationLogged() { m.compensationsLogged.Inc() }

// RecordRetryAttempt учитывает попытку повтора с меткой результата.
func (m *FulfillmentMetrics) RecordRetryAttempt(result string) {
	m.retryAttempts.WithLabelValues(result).Inc()
}

// SetPendingFailureLogs публикует размер backlog журнала сбоев.
func (m *FulfillmentMetrics) SetPendingFailureLogs(n int) {
	m.pendingLogs.Set(float64(n))
}

// ObserveHandlerDuration записывает время обработчика события данного типа.
// Сигнатура совместима с eventbus.Observer.
func (m *FulfillmentMetrics) ObserveHandlerDuration(eventKind string, d time.Duration) {
	m.handlerDuration.WithLabelValues(eventKind).Observe(d.Seconds())
}
