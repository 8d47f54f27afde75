package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Dhoini/checkout-bridge/internal/domain"
	"github.com/Dhoini/checkout-bridge/pkg/logger"
)

// MemoryStore реализует SessionStore в памяти процесса.
// Эталонная реализация: время жизни данных ограничено временем жизни процесса.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.CheckoutSession
	log      *logger.Logger
}

// NewMemoryStore создает новое хранилище в памяти
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.CheckoutSession),
		log:      log,
	}
}

// Put сохраняет новую сессию
func (s *MemoryStore) Put(_ context.Context, session *domain.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.SessionID]; exists {
		// SessionID никогда не переиспользуется
		return fmt.Errorf("session %s already stored: %w", session.SessionID, domain.ErrInvalidInput)
	}

	copied := *session
	s.sessions[session.SessionID] = &copied
	s.log.Debugw("Session stored", "sessionID", session.SessionID, "reference", session.OrderReference)
	return nil
}

// Get возвращает копию сессии по идентификатору
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*domain.CheckoutSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, domain.NewNotFoundError("checkout session", sessionID)
	}

	copied := *session
	return &copied, nil
}

// UpdateStatus применяет переход статуса сессии
func (s *MemoryStore) UpdateStatus(_ context.Context, sessionID string, status domain.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return domain.NewNotFoundError("checkout session", sessionID)
	}

	if session.Status == status {
		return nil
	}
	if !session.Status.CanTransitionTo(status) {
		return fmt.Errorf("transition %s -> %s not allowed: %w", session.Status, status, domain.ErrInvalidInput)
	}

	session.Status = status
	s.log.Debugw("Session status updated", "sessionID", sessionID, "status", status)
	return nil
}

// Remove удаляет сессию
func (s *MemoryStore) Remove(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Close освобождает ресурсы (для памяти нет операций)
func (s *MemoryStore) Close() error {
	return nil
}
