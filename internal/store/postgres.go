package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/checkout-bridge/internal/domain"
	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// createSessionsTable схема таблицы платежных сессий
const createSessionsTable = `
CREATE TABLE IF NOT EXISTS checkout_sessions (
    session_id      TEXT PRIMARY KEY,
    order_reference TEXT,
    amount_minor    BIGINT NOT NULL,
    currency        TEXT NOT NULL,
    return_url      TEXT,
    cart            JSONB,
    status          TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL
)`

// PostgresStore реализует SessionStore поверх PostgreSQL (pgx).
// Второй заменяемый долговечный бэкенд наряду с Redis.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresStore создает новое Postgres-хранилище и готовит схему
func NewPostgresStore(ctx context.Context, dsn string, log *logger.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, createSessionsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	log.Infow("Postgres session store initialized")
	return &PostgresStore{pool: pool, log: log}, nil
}

// Put сохраняет новую сессию
func (s *PostgresStore) Put(ctx context.Context, session *domain.CheckoutSession) error {
	var cart []byte
	if session.Cart != nil {
		var err error
		cart, err = json.Marshal(session.Cart)
		if err != nil {
			return fmt.Errorf("failed to marshal cart: %w", err)
		}
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO checkout_sessions (session_id, order_reference, amount_minor, currency, return_url, cart, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO NOTHING`,
		session.SessionID, session.OrderReference, session.AmountMinor, session.Currency,
		session.ReturnURL, cart, string(session.Status), session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s already stored: %w", session.SessionID, domain.ErrInvalidInput)
	}

	s.log.Debugw("Session stored", "sessionID", session.SessionID, "reference", session.OrderReference)
	return nil
}

// Get возвращает сессию по идентификатору
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	var (
		session domain.CheckoutSession
		cart    []byte
		status  string
	)

	err := s.pool.QueryRow(ctx, `
		SELECT session_id, COALESCE(order_reference, ''), amount_minor, currency, COALESCE(return_url, ''), cart, status, created_at
		FROM checkout_sessions WHERE session_id = $1`, sessionID,
	).Scan(&session.SessionID, &session.OrderReference, &session.AmountMinor, &session.Currency,
		&session.ReturnURL, &cart, &status, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("checkout session", sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.Status = domain.SessionStatus(status)
	if len(cart) > 0 {
		var snapshot domain.CartSnapshot
		if err := json.Unmarshal(cart, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cart: %w", err)
		}
		session.Cart = &snapshot
	}
	return &session, nil
}

// UpdateStatus применяет переход статуса сессии
func (s *PostgresStore) UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
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

	// Условие на текущий статус защищает переход от конкурирующей записи
	tag, err := s.pool.Exec(ctx, `
		UPDATE checkout_sessions SET status = $1 WHERE session_id = $2 AND status = $3`,
		string(status), sessionID, string(session.Status))
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("concurrent status change for session %s: %w", sessionID, domain.ErrInvalidInput)
	}

	s.log.Debugw("Session status updated", "sessionID", sessionID, "status", status)
	return nil
}

// Remove удаляет сессию
func (s *PostgresStore) Remove(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM checkout_sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// Close закрывает пул соединений
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
