package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// SubscriberConfig holds configuration for consuming scoring events
type SubscriberConfig struct {
	KafkaBrokers  []string
	ConsumerGroup string
	Logger        *slog.Logger
}

// EventHandler processes one consumed event. A returned error nacks the
// message so it is redelivered.
type EventHandler func(ctx context.Context, event *ScoringEvent) error

// NewKafkaSubscriber creates a Watermill Kafka subscriber for scoring events
func NewKafkaSubscriber(config SubscriberConfig) (message.Subscriber, error) {
	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:       config.KafkaBrokers,
		Unmarshaler:   kafka.DefaultMarshaler{},
		ConsumerGroup: config.ConsumerGroup,
	}, watermill.NewSlogLogger(config.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}
	return subscriber, nil
}

// DecodeMessage is the inverse of NewMessage. Data is left as decoded JSON.
func DecodeMessage(msg *message.Message) (*ScoringEvent, error) {
	var event ScoringEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scoring event %s: %w", msg.UUID, err)
	}
	if event.Type == "" {
		event.Type = EventType(msg.Metadata.Get("event_type"))
	}
	return &event, nil
}

// Consume feeds every event on topic to handle until ctx is cancelled.
// Messages that cannot be decoded are logged and acked.
func Consume(ctx context.Context, subscriber message.Subscriber, topic string, handle EventHandler, logger *slog.Logger) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			event, err := DecodeMessage(msg)
			if err != nil {
				logger.Error("Dropping undecodable scoring event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}

			if err := handle(ctx, event); err != nil {
				logger.Warn("Scoring event handler failed",
					"event_id", event.ID,
					"event_type", event.Type,
					"error", err)
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}
}
