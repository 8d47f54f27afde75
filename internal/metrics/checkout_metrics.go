package metrics

import (
	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CheckoutMetrics интерфейс для метрик checkout-моста
type CheckoutMetrics interface {
	IncCheckoutCreated(currency string)
	IncPaymentStatus(status string)
	IncOrderCreated()
	IncOrderFailed()
	IncPartialSuccess()
	ObserveCheckoutAmount(amount float64, currency string)
}

type checkoutMetrics struct {
	log              *logger.Logger
	checkoutsCreated *prometheus.CounterVec
	paymentsStatus   *prometheus.CounterVec
	ordersCreated    prometheus.Counter
	ordersFailed     prometheus.Counter
	partialSuccesses prometheus.Counter
	checkoutAmount   *prometheus.HistogramVec
}

// NewCheckoutMetrics создает новые метрики checkout-моста
func NewCheckoutMetrics(registry *prometheus.Registry, log *logger.Logger) CheckoutMetrics {
	checkoutsCreated := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_created_total",
			Help: "The total number of created checkout sessions",
		},
		[]string{"currency"},
	)

	paymentsStatus := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_status_total",
			Help: "The total number of payments by terminal status",
		},
		[]string{"status"},
	)

	ordersCreated := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "The total number of commerce orders created",
		},
	)

	ordersFailed := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "orders_failed_total",
			Help: "The total number of failed commerce order creations",
		},
	)

	partialSuccesses := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "partial_successes_total",
			Help: "Confirmed payments whose order creation failed and needs reconciliation",
		},
	)

	checkoutAmount := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_amount",
			Help:    "Checkout amounts distribution in major units",
			Buckets: prometheus.ExponentialBuckets(1, 10, 6), // 1, 10, 100, 1000, 10000, 100000
		},
		[]string{"currency"},
	)

	return &checkoutMetrics{
		log:              log,
		checkoutsCreated: checkoutsCreated,
		paymentsStatus:   paymentsStatus,
		ordersCreated:    ordersCreated,
		ordersFailed:     ordersFailed,
		partialSuccesses: partialSuccesses,
		checkoutAmount:   checkoutAmount,
	}
}

// IncCheckoutCreated увеличивает счетчик созданных сессий
func (m *checkoutMetrics) IncCheckoutCreated(currency string) {
	m.checkoutsCreated.WithLabelValues(currency).Inc()
}

// IncPaymentStatus увеличивает счетчик платежей по терминальному статусу
func (m *checkoutMetrics) IncPaymentStatus(status string) {
	m.paymentsStatus.WithLabelValues(status).Inc()
}

// IncOrderCreated увеличивает счетчик созданных заказов
func (m *checkoutMetrics) IncOrderCreated() {
	m.ordersCreated.Inc()
}

// IncOrderFailed увеличивает счетчик неудачных созданий заказов
func (m *checkoutMetrics) IncOrderFailed() {
	m.ordersFailed.Inc()
}

// IncPartialSuccess увеличивает счетчик частичных успехов
func (m *checkoutMetrics) IncPartialSuccess() {
	m.partialSuccesses.Inc()
}

// ObserveCheckoutAmount добавляет сумму сессии в гистограмму
func (m *checkoutMetrics) ObserveCheckoutAmount(amount float64, currency string) {
	m.checkoutAmount.WithLabelValues(currency).Observe(amount)
}

// NoOpMetrics заглушка метрик (используется в тестах)
type NoOpMetrics struct{}

func (NoOpMetrics) IncCheckoutCreated(string)             {}
func (NoOpMetrics) IncPaymentStatus(string)               {}
func (NoOpMetrics) IncOrderCreated()                      {}
func (NoOpMetrics) IncOrderFailed()                       {}
func (NoOpMetrics) IncPartialSuccess()                    {}
func (NoOpMetrics) ObserveCheckoutAmount(float64, string) {}
