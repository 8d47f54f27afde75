package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/checkout-bridge/internal/domain"
	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// sessionKeyPrefix префикс ключей платежных сессий
	sessionKeyPrefix = "checkout_session:"

	// defaultSessionTTL срок хранения сессии в Redis
	defaultSessionTTL = 24 * time.Hour
)

// RedisStore реализует SessionStore поверх Redis.
// Заменяемый долговечный бэкенд: сессии переживают перезапуск процесса.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisStore создает новое Redis-хранилище и проверяет соединение
func NewRedisStore(addr, password string, db int, log *logger.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Infow("Redis session store initialized", "addr", addr, "db", db)
	return &RedisStore{
		client: client,
		ttl:    defaultSessionTTL,
		log:    log,
	}, nil
}

// sessionKey возвращает ключ Redis для сессии
func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Put сохраняет новую сессию
func (s *RedisStore) Put(ctx context.Context, session *domain.CheckoutSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// NX: сессия записывается не более одного раза
	ok, err := s.client.SetNX(ctx, sessionKey(session.SessionID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already stored: %w", session.SessionID, domain.ErrInvalidInput)
	}

	s.log.Debugw("Session stored", "sessionID", session.SessionID, "reference", session.OrderReference)
	return nil
}

// Get возвращает сессию по идентификатору
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.NewNotFoundError("checkout session", sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// UpdateStatus применяет переход статуса сессии
func (s *RedisStore) UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	if session.Status == status {
		return nil
	}
	if !session.Status.CanTransitionTo(status) {
		return fmt.Errorf("transition %s -> %s not allowed: %w", session.Status, status, domain.ErrInvalidInput)
	}

	session.Status = status
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(sessionID), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	s.log.Debugw("Session status updated", "sessionID", sessionID, "status", status)
	return nil
}

// Remove удаляет сессию
func (s *RedisStore) Remove(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (s *RedisStore) Close() error {
	return s.client.Close()
}
