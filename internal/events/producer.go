package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Типы событий жизненного цикла платежа
const (
	// EventCheckoutConfirmed платеж подтвержден, заказ создан
	EventCheckoutConfirmed = "checkout_confirmed"

	// EventOrderReconciliationNeeded платеж подтвержден, но создание заказа
	// не удалось; требуется ручная сверка оператором
	EventOrderReconciliationNeeded = "order_reconciliation_needed"

	// EventCheckoutFailed платеж завершился отказом
	EventCheckoutFailed = "checkout_failed"
)

// defaultTopic топик по умолчанию для событий жизненного цикла
const defaultTopic = "checkout_lifecycle"

// Event представляет событие жизненного цикла платежной сессии
type Event struct {
	Type           string    `json:"type"`
	SessionID      string    `json:"session_id"`
	OrderReference string    `json:"order_reference,omitempty"`
	Amount         string    `json:"amount,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Producer определяет интерфейс для публикации событий жизненного цикла.
// Ключ сообщения — SessionID: все события одной сессии попадают в одну
// партицию и сохраняют порядок.
type Producer interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// kafkaProducer реализует Producer, используя segmentio/kafka-go
type kafkaProducer struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewKafkaProducer создает и настраивает новый продюсер Kafka
func NewKafkaProducer(brokers []string, topic string, log *logger.Logger) (Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}
	if topic == "" {
		topic = defaultTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	log.Infow("Kafka producer initialized", "brokers", brokers, "topic", topic)
	return &kafkaProducer{
		writer: writer,
		log:    log,
	}, nil
}

// Publish преобразует событие в JSON и отправляет в топик Kafka
func (k *kafkaProducer) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: value,
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		k.log.Errorw("Failed to publish lifecycle event", "type", event.Type, "sessionID", event.SessionID, "error", err)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	k.log.Debugw("Lifecycle event published", "type", event.Type, "sessionID", event.SessionID)
	return nil
}

// Close закрывает соединение продюсера Kafka
func (k *kafkaProducer) Close() error {
	return k.writer.Close()
}

// NoOpProducer заглушка продюсера для запуска без настроенного Kafka
type NoOpProducer struct{}

// Publish ничего не публикует
func (NoOpProducer) Publish(context.Context, Event) error { return nil }

// Close ничего не закрывает
func (NoOpProducer) Close() error { return nil }
