package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventOrderPlaced = "order_placed"

// OrderPlaced is published once a checkout has been accepted.
type OrderPlaced struct {
	OrderID    string    `json:"order_id"`
	ProfileID  string    `json:"profile_id"`
	Email      string    `json:"email"`
	Items      int       `json:"items"`
	FinalTotal float64   `json:"final_total"`
	PlacedAt   time.Time `json:"placed_at"`
}

type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, e OrderPlaced) error
}

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(topic string, brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w}
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, e OrderPlaced) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.ProfileID), // profile_id for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderPlaced)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", EventOrderPlaced, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NopPublisher only logs. Used when no brokers are configured.
type NopPublisher struct {
	Logger *zap.Logger
}

func (n NopPublisher) PublishOrderPlaced(_ context.Context, e OrderPlaced) error {
	n.Logger.Debug("order event not published", zap.String("order_id", e.OrderID))
	return nil
}
