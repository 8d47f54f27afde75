package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus представляет статус платежной сессии в машине состояний
type SessionStatus string

const (
	// SessionCreated сессия создана у провайдера и локально, попытки оплаты не было
	SessionCreated SessionStatus = "CREATED"

	// SessionSubmitted виджет сообщил об отправке платежа, данные клиента валидны
	SessionSubmitted SessionStatus = "SUBMITTED"

	// SessionPending промежуточные статусы провайдера (например, 3-D Secure)
	SessionPending SessionStatus = "PENDING"

	// SessionConfirmed нормализованный статус провайдера PAID, материализация запущена
	SessionConfirmed SessionStatus = "CONFIRMED"

	// SessionFailed нормализованный статус провайдера FAILED, заказ не создается
	SessionFailed SessionStatus = "FAILED"

	// SessionTimedOut терминальный статус не получен в пределах окна опроса;
	// сессия может разрешиться позже вне этого цикла
	SessionTimedOut SessionStatus = "TIMED_OUT"
)

// allowedTransitions задает разрешенные переходы машины состояний.
// Переход в CONFIRMED односторонний: из CONFIRMED и FAILED выхода нет.
// TIMED_OUT не утверждает исход: провайдер может разрешить сессию позже,
// поэтому из него разрешен выход в PENDING и оба терминальных статуса.
var allowedTransitions = map[SessionStatus][]SessionStatus{
	SessionCreated:   {SessionSubmitted, SessionPending, SessionConfirmed, SessionFailed, SessionTimedOut},
	SessionSubmitted: {SessionPending, SessionConfirmed, SessionFailed, SessionTimedOut},
	SessionPending:   {SessionPending, SessionConfirmed, SessionFailed, SessionTimedOut},
	SessionTimedOut:  {SessionPending, SessionConfirmed, SessionFailed},
}

// IsTerminal проверяет, является ли статус терминальным.
// TIMED_OUT терминальным не является: это локальная остановка ожидания,
// а не утверждение об исходе платежа.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionConfirmed, SessionFailed:
		return true
	}
	return false
}

// CanTransitionTo проверяет допустимость перехода в статус next
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CartItem представляет одну позицию корзины
type CartItem struct {
	Title          string `json:"title"`
	Quantity       int    `json:"quantity"`
	UnitPriceMinor int64  `json:"price"` // Цена за единицу в минорных единицах валюты
	VariantRef     string `json:"variant_id,omitempty"`
	SKU            string `json:"sku,omitempty"`
}

// CartSnapshot представляет снимок корзины на момент создания сессии
type CartSnapshot struct {
	Items           []CartItem `json:"items"`
	TotalPriceMinor int64      `json:"total_price"`
	Currency        string     `json:"currency"`
}

// IsEmpty проверяет, пуста ли корзина
func (c *CartSnapshot) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// CheckoutSession представляет локальную запись платежной сессии.
// SessionID назначается провайдером, уникален и неизменяем после создания.
type CheckoutSession struct {
	SessionID      string        `json:"session_id"`
	OrderReference string        `json:"order_reference,omitempty"`
	AmountMinor    int64         `json:"amount_minor"`
	Currency       string        `json:"currency"`
	ReturnURL      string        `json:"return_url,omitempty"`
	Cart           *CartSnapshot `json:"cart,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	Status         SessionStatus `json:"status"`
}

// AmountMajor возвращает сумму сессии в основных единицах валюты ("10.00")
func (s *CheckoutSession) AmountMajor() string {
	return MinorToMajor(s.AmountMinor)
}

// ParseAmountMinor разбирает десятичную сумму ("10.00") в минорные единицы.
// Точность минорных единиц сохраняется; сумма должна быть строго положительной.
func ParseAmountMinor(raw string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, ValidationErrors{{Field: "amount", Message: "must be a decimal number"}}
	}
	if d.Exponent() < -2 {
		return 0, ValidationErrors{{Field: "amount", Message: "at most two decimal places allowed"}}
	}
	if !d.IsPositive() {
		return 0, ValidationErrors{{Field: "amount", Message: "must be greater than zero"}}
	}
	return d.Shift(2).IntPart(), nil
}

// MinorToMajor конвертирует минорные единицы в десятичную строку с двумя знаками
func MinorToMajor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// NormalizeCurrency приводит код валюты к верхнему регистру и проверяет формат ISO 4217
func NormalizeCurrency(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 3 {
		return "", ValidationErrors{{Field: "currency", Message: "must be a three-letter ISO 4217 code"}}
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", ValidationErrors{{Field: "currency", Message: "must be a three-letter ISO 4217 code"}}
		}
	}
	return code, nil
}
