package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"career-coach-backend/internal/domain"

	"github.com/segmentio/kafka-go"
)

const EventInsightCreated = "industry_insight.created"

// InsightCreatedPayload is consumed by the enrichment worker, which replaces
// the placeholder values before NextUpdate.
type InsightCreatedPayload struct {
	EventType  string    `json:"event_type"`
	InsightID  string    `json:"insight_id"`
	Industry   string    `json:"industry"`
	NextUpdate time.Time `json:"next_update"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type InsightPublisher struct {
	writer messageWriter
	now    func() time.Time
}

func NewInsightPublisher(brokers []string, topic string) (*InsightPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("config Kafka brokers not found")
	}
	if topic == "" {
		return nil, errors.New("kafka insight topic is empty")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newInsightPublisher(writer), nil
}

func newInsightPublisher(w messageWriter) *InsightPublisher {
	return &InsightPublisher{writer: w, now: time.Now}
}

// PublishInsightCreated keys the message by industry so every event for one
// industry lands on the same partition.
func (p *InsightPublisher) PublishInsightCreated(ctx context.Context, insight *domain.IndustryInsight) error {
	payload, err := json.Marshal(InsightCreatedPayload{
		EventType:  EventInsightCreated,
		InsightID:  insight.ID,
		Industry:   insight.Industry,
		NextUpdate: insight.NextUpdate,
		OccurredAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal insight event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(insight.Industry),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventInsightCreated)},
		},
	})
	if err != nil {
		return fmt.Errorf("write insight event: %w", err)
	}
	return nil
}

func (p *InsightPublisher) Close() error {
	return p.writer.Close()
}
