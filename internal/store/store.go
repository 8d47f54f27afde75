package store

import (
	"context"

	"github.com/Dhoini/checkout-bridge/internal/domain"
)

// SessionStore определяет контракт хранилища платежных сессий.
// Сессия записывается не более одного раза; после записи изменяется только
// статус, и только оркестратором/поллером. Реализация по умолчанию хранит
// данные в памяти процесса; Redis и Postgres доступны как заменяемые
// долговечные бэкенды.
type SessionStore interface {
	// Put сохраняет новую сессию; повторная запись того же sessionID запрещена
	Put(ctx context.Context, session *domain.CheckoutSession) error

	// Get возвращает сессию по идентификатору; ErrNotFound если сессии нет
	Get(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)

	// UpdateStatus применяет переход статуса; недопустимые переходы отклоняются
	UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error

	// Remove удаляет сессию
	Remove(ctx context.Context, sessionID string) error

	// Close освобождает ресурсы хранилища
	Close() error
}
