package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Evictor drops the in-memory state of a profile.
type Evictor interface {
	Evict(ctx context.Context, profileID string)
}

// Poller consumes order events so that every replica drops the session of a
// profile whose cart was cleared by checkout elsewhere.
type Poller struct {
	reader  *kafka.Reader
	evictor Evictor
	logger  *zap.Logger
}

// NewPoller joins the given consumer group. Each replica needs its own group
// to see every event.
func NewPoller(evictor Evictor, logger *zap.Logger, topic, groupID string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{reader: reader, evictor: evictor, logger: logger}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.handleNext(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) handleNext(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.logger.Warn("error reading message", zap.Error(err))
		}
		return
	}

	if eventType(m) != EventOrderPlaced {
		return
	}

	var e OrderPlaced
	if err := json.Unmarshal(m.Value, &e); err != nil {
		p.logger.Warn("error parsing message", zap.Error(err), zap.Int64("offset", m.Offset))
		return
	}
	if e.ProfileID == "" {
		p.logger.Warn("order event without profile_id", zap.String("order_id", e.OrderID))
		return
	}

	p.evictor.Evict(ctx, e.ProfileID)
	p.logger.Debug("session evicted", zap.String("profile_id", e.ProfileID), zap.String("order_id", e.OrderID))
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
