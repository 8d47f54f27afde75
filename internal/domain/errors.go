package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput неверные входные данные
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal внутренняя ошибка
	ErrInternal = errors.New("internal error")

	// ErrTimeoutExceeded превышено время ожидания терминального статуса
	ErrTimeoutExceeded = errors.New("timeout exceeded")

	// ErrExternalServiceUnavailable внешний сервис недоступен
	ErrExternalServiceUnavailable = errors.New("external service unavailable")

	// ErrPaymentFailed платеж не прошел
	ErrPaymentFailed = errors.New("payment failed")

	// ErrEmptyCart корзина пуста, заказ не может быть создан
	ErrEmptyCart = errors.New("cart is empty")

	// ErrSessionAlreadyConfirmed сессия уже подтверждена, повторная материализация запрещена
	ErrSessionAlreadyConfirmed = errors.New("session already confirmed")

	// ErrUnsupportedCurrency неподдерживаемая валюта
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// ValidationError представляет ошибку валидации
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors представляет набор ошибок валидации
type ValidationErrors []ValidationError

// Error реализует интерфейс error
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	if len(e) == 1 {
		return fmt.Sprintf("validation failed: %s - %s", e[0].Field, e[0].Message)
	}

	return fmt.Sprintf("validation failed: %d errors", len(e))
}

// Is позволяет сопоставлять ошибки валидации с ErrInvalidInput
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// Add добавляет ошибку валидации
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors проверяет наличие ошибок
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Fields возвращает список полей с ошибками
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}

// ExternalServiceError представляет ошибку внешнего сервиса.
// StatusCode и Body сохраняют ответ вышестоящего сервиса дословно.
type ExternalServiceError struct {
	Service     string
	StatusCode  int
	Body        string
	OriginalErr error
}

// Error реализует интерфейс error
func (e *ExternalServiceError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s service error [%d]: %s: %v", e.Service, e.StatusCode, e.Body, e.OriginalErr)
	}
	return fmt.Sprintf("%s service error [%d]: %s", e.Service, e.StatusCode, e.Body)
}

// Unwrap возвращает оригинальную ошибку
func (e *ExternalServiceError) Unwrap() error {
	return e.OriginalErr
}

// Is позволяет сопоставлять ошибку с ErrExternalServiceUnavailable
func (e *ExternalServiceError) Is(target error) bool {
	return target == ErrExternalServiceUnavailable
}

// NewExternalServiceError создает новую ошибку внешнего сервиса
func NewExternalServiceError(service string, statusCode int, body string, err error) *ExternalServiceError {
	return &ExternalServiceError{
		Service:     service,
		StatusCode:  statusCode,
		Body:        body,
		OriginalErr: err,
	}
}

// NotFoundError представляет ошибку "не найдено"
type NotFoundError struct {
	Entity string
	ID     string
}

// Error реализует интерфейс error
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

// Is проверяет, является ли ошибка ошибкой типа "не найдено"
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError создает новую ошибку "не найдено"
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}
