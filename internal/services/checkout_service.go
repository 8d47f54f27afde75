package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dhoini/checkout-bridge/internal/domain"
	"github.com/Dhoini/checkout-bridge/internal/events"
	"github.com/Dhoini/checkout-bridge/internal/integration/shopify"
	"github.com/Dhoini/checkout-bridge/internal/integration/sumup"
	"github.com/Dhoini/checkout-bridge/internal/metrics"
	"github.com/Dhoini/checkout-bridge/internal/store"
	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/google/uuid"
)

// PaymentProvider определяет контракт платежного провайдера (SumUp)
type PaymentProvider interface {
	OpenCheckout(ctx context.Context, params sumup.OpenCheckoutParams) (*sumup.Checkout, error)
	GetCheckout(ctx context.Context, checkoutID string) (*sumup.Checkout, error)
}

// CommerceClient определяет контракт платформы коммерции (Shopify)
type CommerceClient interface {
	CreateOrder(ctx context.Context, req domain.OrderMaterializationRequest) (*shopify.Order, error)
}

// CheckoutService оркестрирует жизненный цикл платежной сессии: создание,
// опрос статуса, подтверждение и материализацию заказа ровно один раз.
type CheckoutService struct {
	store    store.SessionStore
	provider PaymentProvider
	commerce CommerceClient
	events   events.Producer
	metrics  metrics.CheckoutMetrics
	poller   *Poller
	log      *logger.Logger

	// Защелки на сессию: конкурирующие запросы подтверждения для одного
	// sessionID сериализуются, чтобы заказ не создался дважды. confirmed
	// хранит пройденное одностороннее ребро в памяти процесса: оно действует
	// и для неотслеживаемых сессий, у которых нет записи в хранилище.
	mu        sync.Mutex
	latches   map[string]*sync.Mutex
	confirmed map[string]struct{}
}

// NewCheckoutService создает новый оркестратор
func NewCheckoutService(
	sessionStore store.SessionStore,
	provider PaymentProvider,
	commerce CommerceClient,
	producer events.Producer,
	m metrics.CheckoutMetrics,
	poller *Poller,
	log *logger.Logger,
) *CheckoutService {
	return &CheckoutService{
		store:     sessionStore,
		provider:  provider,
		commerce:  commerce,
		events:    producer,
		metrics:   m,
		poller:    poller,
		log:       log,
		latches:   make(map[string]*sync.Mutex),
		confirmed: make(map[string]struct{}),
	}
}

// CreateCheckoutInput параметры создания checkout-сессии
type CreateCheckoutInput struct {
	AmountMinor    int64
	Currency       string
	OrderReference string
	ReturnURL      string
	Cart           *domain.CartSnapshot
}

// CreateCheckoutOutput привязка checkout-поверхности: идентификатор сессии,
// корзина для эха клиентом при подтверждении и адрес возврата
type CreateCheckoutOutput struct {
	SessionID string
	Reference string
	ReturnURL string
	Cart      *domain.CartSnapshot
}

// CreateCheckout создает платежную сессию у провайдера и локальную запись.
// Валидация выполняется до любого исходящего вызова; при ошибке провайдера
// сессия не персистится. Анонимные сессии (без order reference) не
// отслеживаются локально.
func (s *CheckoutService) CreateCheckout(ctx context.Context, input CreateCheckoutInput) (*CreateCheckoutOutput, error) {
	if input.AmountMinor <= 0 {
		return nil, domain.ValidationErrors{{Field: "amount", Message: "must be greater than zero"}}
	}
	currency, err := domain.NormalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	reference := buildReference(input.OrderReference)

	checkout, err := s.provider.OpenCheckout(ctx, sumup.OpenCheckoutParams{
		Reference:   reference,
		AmountMinor: input.AmountMinor,
		Currency:    currency,
		Description: "Order " + reference,
	})
	if err != nil {
		s.log.Errorw("Failed to open provider session", "reference", reference, "error", err)
		return nil, err
	}

	// Отслеживаем только сессии с пользовательским order reference
	if input.OrderReference != "" {
		session := &domain.CheckoutSession{
			SessionID:      checkout.ID,
			OrderReference: input.OrderReference,
			AmountMinor:    input.AmountMinor,
			Currency:       currency,
			ReturnURL:      input.ReturnURL,
			Cart:           input.Cart,
			CreatedAt:      time.Now().UTC(),
			Status:         domain.SessionCreated,
		}
		if err := s.store.Put(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to track session: %w", err)
		}
	}

	s.metrics.IncCheckoutCreated(currency)
	s.metrics.ObserveCheckoutAmount(float64(input.AmountMinor)/100, currency)
	s.log.Infow("Checkout session created",
		"sessionID", checkout.ID, "reference", reference, "currency", currency, "tracked", input.OrderReference != "")

	return &CreateCheckoutOutput{
		SessionID: checkout.ID,
		Reference: reference,
		ReturnURL: input.ReturnURL,
		Cart:      input.Cart,
	}, nil
}

// CheckStatus возвращает нормализованный статус сессии у провайдера и
// отражает нетерминальные переходы в хранилище
func (s *CheckoutService) CheckStatus(ctx context.Context, sessionID string) (string, *sumup.Checkout, error) {
	if sessionID == "" {
		return "", nil, domain.ValidationErrors{{Field: "sessionId", Message: "is required"}}
	}

	checkout, err := s.provider.GetCheckout(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}

	status := sumup.NormalizedStatus(checkout)
	s.reflectProviderStatus(ctx, sessionID, status)
	return status, checkout, nil
}

// ApplyProviderStatus продвигает машину состояний по асинхронному уведомлению
// провайдера (вебхук): статус перечитывается, а не берется из тела уведомления
func (s *CheckoutService) ApplyProviderStatus(ctx context.Context, sessionID string) (string, error) {
	checkout, err := s.provider.GetCheckout(ctx, sessionID)
	if err != nil {
		return "", err
	}

	status := sumup.NormalizedStatus(checkout)
	s.reflectProviderStatus(ctx, sessionID, status)
	return status, nil
}

// reflectProviderStatus отражает статус провайдера в локальной записи.
// CONFIRMED не ставится здесь: одностороннее ребро проходится только в
// ConfirmPayment вместе с материализацией.
func (s *CheckoutService) reflectProviderStatus(ctx context.Context, sessionID, providerStatus string) {
	var next domain.SessionStatus
	switch providerStatus {
	case sumup.StatusFailed:
		next = domain.SessionFailed
	case sumup.StatusPaid:
		return
	default:
		next = domain.SessionPending
	}

	if err := s.store.UpdateStatus(ctx, sessionID, next); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.log.Warnw("Failed to reflect provider status", "sessionID", sessionID, "status", next, "error", err)
	}
}

// latch возвращает защелку для сессии, создавая её при первом обращении
func (s *CheckoutService) latch(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.latches[sessionID]
	if !ok {
		m = &sync.Mutex{}
		s.latches[sessionID] = m
	}
	return m
}

// isConfirmed проверяет, пройдено ли одностороннее ребро подтверждения
func (s *CheckoutService) isConfirmed(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.confirmed[sessionID]
	return ok
}

// markConfirmed фиксирует пройденное ребро подтверждения и освобождает
// защелку: новые запросы для этой сессии дедуплицируются без сериализации
func (s *CheckoutService) markConfirmed(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed[sessionID] = struct{}{}
	delete(s.latches, sessionID)
}

// releaseLatch убирает защелку сессии, достигшей терминального отказа
func (s *CheckoutService) releaseLatch(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latches, sessionID)
}

// buildReference формирует reference сессии: пользовательский order reference
// дополняется меткой времени создания, что гарантирует уникальность при
// повторных попытках оплаты одного заказа. Анонимные сессии получают UUID.
func buildReference(orderReference string) string {
	if orderReference == "" {
		return uuid.NewString()
	}
	return fmt.Sprintf("%s-%d", orderReference, time.Now().UnixMilli())
}
