package services

import (
	"context"
	"time"

	"github.com/Dhoini/checkout-bridge/internal/domain"
	"github.com/Dhoini/checkout-bridge/internal/integration/sumup"
	"github.com/Dhoini/checkout-bridge/pkg/logger"
)

const (
	// defaultPollInterval интервал между опросами провайдера
	defaultPollInterval = 2 * time.Second

	// defaultPollTimeout окно ожидания терминального статуса
	defaultPollTimeout = 120 * time.Second
)

// Poller — явная отменяемая задача опроса статуса: ограниченное число
// попыток с фиксированным интервалом и наблюдаемый терминальный исход.
type Poller struct {
	provider PaymentProvider
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger
}

// NewPoller создает новый поллер; нулевые длительности заменяются значениями
// по умолчанию (2 секунды интервал, 120 секунд окно)
func NewPoller(provider PaymentProvider, interval, timeout time.Duration, log *logger.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	return &Poller{
		provider: provider,
		interval: interval,
		timeout:  timeout,
		log:      log,
	}
}

// WaitForTerminal опрашивает провайдера до терминального нормализованного
// статуса или исчерпания окна. По таймауту возвращает последний известный
// статус и ErrTimeoutExceeded: мягкая остановка, сессия может разрешиться
// позже вне этого цикла. Отмена контекста прекращает опрос немедленно.
func (p *Poller) WaitForTerminal(ctx context.Context, sessionID string) (*sumup.Checkout, string, error) {
	deadline := time.Now().Add(p.timeout)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last *sumup.Checkout
	lastStatus := sumup.StatusPending

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return last, lastStatus, ctx.Err()
		case <-ticker.C:
		}

		if !time.Now().Before(deadline) {
			break
		}

		checkout, err := p.provider.GetCheckout(ctx, sessionID)
		if err != nil {
			// Разовый сбой опроса не терминален, продолжаем до дедлайна
			p.log.Warnw("Status poll failed", "sessionID", sessionID, "attempt", attempt, "error", err)
			continue
		}

		last = checkout
		lastStatus = sumup.NormalizedStatus(checkout)
		if sumup.IsTerminal(lastStatus) {
			p.log.Debugw("Terminal status observed", "sessionID", sessionID, "status", lastStatus, "attempt", attempt)
			return last, lastStatus, nil
		}
	}

	return last, lastStatus, domain.ErrTimeoutExceeded
}
