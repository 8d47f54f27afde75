package services

import (
	"context"
	"errors"

	"github.com/Dhoini/checkout-bridge/internal/domain"
	"github.com/Dhoini/checkout-bridge/internal/events"
	"github.com/Dhoini/checkout-bridge/internal/integration/shopify"
	"github.com/Dhoini/checkout-bridge/internal/integration/sumup"
	"github.com/go-playground/validator/v10"
)

// ConfirmOutcome результат пути подтверждения, видимый клиенту
type ConfirmOutcome string

const (
	// OutcomeSuccess платеж подтвержден, заказ создан
	OutcomeSuccess ConfirmOutcome = "success"

	// OutcomePartialSuccess платеж подтвержден, создание заказа не удалось;
	// списание состоялось, требуется ручная сверка
	OutcomePartialSuccess ConfirmOutcome = "partial_success"

	// OutcomeTrackingOnly платеж подтвержден, корзины нет — материализация
	// пропущена намеренно (именованный режим, а не скрытый fallthrough)
	OutcomeTrackingOnly ConfirmOutcome = "tracking_only"

	// OutcomeFailed платеж завершился отказом, заказ не создается
	OutcomeFailed ConfirmOutcome = "failed"

	// OutcomeTimedOut терминальный статус не получен в пределах окна опроса;
	// мягкая остановка без утверждения об успехе или отказе
	OutcomeTimedOut ConfirmOutcome = "timed_out"
)

// ConfirmInput данные подтверждения платежа от клиента
type ConfirmInput struct {
	SessionID string
	Customer  domain.CustomerRecord
	Cart      *domain.CartSnapshot
}

// ConfirmResult результат пути подтверждения
type ConfirmResult struct {
	Outcome      ConfirmOutcome
	Status       string // Нормализованный статус провайдера
	Order        *shopify.Order
	Deduplicated bool // Повторный запрос для уже подтвержденной сессии
}

// ConfirmPayment выполняет путь подтверждения платежа: валидация данных
// покупателя, ожидание терминального статуса и материализация заказа ровно
// один раз на сессию. Конкурирующие запросы для одного sessionID
// сериализуются защелкой; повторное подтверждение уже подтвержденной сессии
// возвращает успех без создания второго заказа.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, input ConfirmInput) (*ConfirmResult, error) {
	if input.SessionID == "" {
		return nil, domain.ValidationErrors{{Field: "sessionId", Message: "is required"}}
	}

	// Предусловие перехода в SUBMITTED: данные покупателя валидны.
	// При отказе провайдер не вызывается вовсе.
	if err := validateCustomer(input.Customer); err != nil {
		return nil, err
	}

	latch := s.latch(input.SessionID)
	latch.Lock()
	defer latch.Unlock()

	// Одностороннее ребро в памяти процесса: действует и для неотслеживаемых
	// сессий, для которых нет записи в хранилище
	if s.isConfirmed(input.SessionID) {
		s.log.Infow("Duplicate confirmation ignored", "sessionID", input.SessionID)
		return &ConfirmResult{
			Outcome:      OutcomeSuccess,
			Status:       sumup.StatusPaid,
			Deduplicated: true,
		}, nil
	}

	session, err := s.store.Get(ctx, input.SessionID)
	tracked := err == nil
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// То же ребро по хранилищу: переживает перезапуск процесса для
	// отслеживаемых сессий
	if tracked && session.Status == domain.SessionConfirmed {
		s.markConfirmed(input.SessionID)
		s.log.Infow("Duplicate confirmation ignored", "sessionID", input.SessionID)
		return &ConfirmResult{
			Outcome:      OutcomeSuccess,
			Status:       sumup.StatusPaid,
			Deduplicated: true,
		}, nil
	}

	if tracked && session.Status == domain.SessionCreated {
		if err := s.store.UpdateStatus(ctx, input.SessionID, domain.SessionSubmitted); err != nil {
			s.log.Warnw("Failed to mark session submitted", "sessionID", input.SessionID, "error", err)
		}
	}

	checkout, err := s.provider.GetCheckout(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	status := sumup.NormalizedStatus(checkout)

	if !sumup.IsTerminal(status) {
		if tracked {
			if err := s.store.UpdateStatus(ctx, input.SessionID, domain.SessionPending); err != nil {
				s.log.Warnw("Failed to mark session pending", "sessionID", input.SessionID, "error", err)
			}
		}

		checkout, status, err = s.poller.WaitForTerminal(ctx, input.SessionID)
		if errors.Is(err, domain.ErrTimeoutExceeded) {
			if tracked {
				if uerr := s.store.UpdateStatus(ctx, input.SessionID, domain.SessionTimedOut); uerr != nil {
					s.log.Warnw("Failed to mark session timed out", "sessionID", input.SessionID, "error", uerr)
				}
			}
			s.metrics.IncPaymentStatus(string(domain.SessionTimedOut))
			s.log.Warnw("Polling window exceeded", "sessionID", input.SessionID, "lastStatus", status)
			return &ConfirmResult{Outcome: OutcomeTimedOut, Status: status}, nil
		}
		if err != nil {
			return nil, err
		}
	}

	if status == sumup.StatusFailed {
		if tracked {
			if err := s.store.UpdateStatus(ctx, input.SessionID, domain.SessionFailed); err != nil {
				s.log.Warnw("Failed to mark session failed", "sessionID", input.SessionID, "error", err)
			}
		}
		s.metrics.IncPaymentStatus(sumup.StatusFailed)
		s.publishEvent(ctx, events.EventCheckoutFailed, input.SessionID, session, "")
		s.releaseLatch(input.SessionID)
		return &ConfirmResult{Outcome: OutcomeFailed, Status: status}, nil
	}

	// Нормализованный статус PAID: переход в CONFIRMED до материализации,
	// чтобы повторный запрос не создал второй заказ
	if tracked {
		if err := s.store.UpdateStatus(ctx, input.SessionID, domain.SessionConfirmed); err != nil {
			s.log.Warnw("Failed to mark session confirmed", "sessionID", input.SessionID, "error", err)
		}
	}
	s.markConfirmed(input.SessionID)
	s.metrics.IncPaymentStatus(sumup.StatusPaid)

	cart := input.Cart
	if cart.IsEmpty() && tracked {
		cart = session.Cart
	}

	// Режим tracking_only: платеж подтвержден, корзины нет, заказ не создается
	if cart.IsEmpty() {
		s.log.Infow("Payment confirmed without cart data, skipping materialization", "sessionID", input.SessionID)
		s.publishEvent(ctx, events.EventCheckoutConfirmed, input.SessionID, session, "tracking_only")
		return &ConfirmResult{Outcome: OutcomeTrackingOnly, Status: status}, nil
	}

	order, err := s.commerce.CreateOrder(ctx, domain.OrderMaterializationRequest{
		Customer:        input.Customer,
		Cart:            cart,
		SessionID:       input.SessionID,
		TransactionAuth: checkout.AuthorizationCode(),
	})
	if err != nil {
		// Частичный успех: списание состоялось и не отменяется; отказ создания
		// заказа поднимается оператору, но не повторяется автоматически
		s.metrics.IncOrderFailed()
		s.metrics.IncPartialSuccess()
		s.log.Errorw("Payment confirmed but order creation failed, manual reconciliation required",
			"sessionID", input.SessionID, "error", err)
		s.publishEvent(ctx, events.EventOrderReconciliationNeeded, input.SessionID, session, err.Error())
		return &ConfirmResult{Outcome: OutcomePartialSuccess, Status: status}, nil
	}

	s.metrics.IncOrderCreated()
	s.log.Infow("Order materialized", "sessionID", input.SessionID, "orderID", order.ID, "orderNumber", order.OrderNumber)
	s.publishEvent(ctx, events.EventCheckoutConfirmed, input.SessionID, session, "")
	return &ConfirmResult{Outcome: OutcomeSuccess, Status: status, Order: order}, nil
}

// publishEvent публикует событие жизненного цикла; отказ публикации не
// прерывает пользовательский поток
func (s *CheckoutService) publishEvent(ctx context.Context, eventType, sessionID string, session *domain.CheckoutSession, detail string) {
	event := events.Event{
		Type:      eventType,
		SessionID: sessionID,
		Detail:    detail,
	}
	if session != nil {
		event.OrderReference = session.OrderReference
		event.Amount = session.AmountMajor()
		event.Currency = session.Currency
	}

	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Errorw("Failed to publish lifecycle event", "type", eventType, "sessionID", sessionID, "error", err)
	}
}

// validateCustomer проверяет обязательные поля данных покупателя
func validateCustomer(customer domain.CustomerRecord) error {
	validate := validator.New()
	err := validate.Struct(customer)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		var verrs domain.ValidationErrors
		for _, fe := range fieldErrs {
			verrs.Add(fe.Field(), "failed on '"+fe.Tag()+"' validation")
		}
		return verrs
	}
	return domain.ValidationErrors{{Field: "customerData", Message: err.Error()}}
}
