package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// OrderEvent is the message published to the broker for every order
// lifecycle change. Consumers (delivery tracking, analytics) are decoupled
// from the placement transaction: publishing is best-effort and its failure
// never fails the order.
type OrderEvent struct {
	Type         string    `json:"type"`
	OrderID      uint      `json:"order_id"`
	RestaurantID uint      `json:"restaurant_id"`
	UserID       uint      `json:"user_id"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher emits order events to the outbound channel.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, ev OrderEvent) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher backed by a Kafka topic. Events are
// keyed by order id so one order's events stay in partition order.
func NewKafkaPublisher(brokers []string, topic string) Publisher {
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *kafkaPublisher) PublishOrderEvent(ctx context.Context, ev OrderEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.OrderID), 10)),
		Value: value,
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(ctx context.Context, ev OrderEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
