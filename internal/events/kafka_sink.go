package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/model"
)

// EventTypeQuizResult tags result messages.
const EventTypeQuizResult = "quiz_result.submitted"

// KafkaResultSink publishes finished results to a Kafka topic.
type KafkaResultSink struct {
	publisher message.Publisher
	topic     string
	log       zerolog.Logger
}

// KafkaConfig holds configuration for the result publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NewKafkaResultSink creates a Kafka-backed sink using watermill.
func NewKafkaResultSink(cfg KafkaConfig, log zerolog.Logger) (*KafkaResultSink, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.Brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, NewLoggerAdapter(log.With().Str("component", "watermill").Logger()))
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return NewResultSink(publisher, cfg.Topic, log), nil
}

// NewResultSink wraps any watermill publisher.
func NewResultSink(publisher message.Publisher, topic string, log zerolog.Logger) *KafkaResultSink {
	return &KafkaResultSink{
		publisher: publisher,
		topic:     topic,
		log:       log.With().Str("component", "kafka_result_sink").Logger(),
	}
}

// Submit publishes one result. The result ID is the message UUID, so
// consumers can deduplicate.
func (s *KafkaResultSink) Submit(ctx context.Context, result *model.QuizResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	msg := message.NewMessage(result.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", EventTypeQuizResult)
	msg.Metadata.Set("token", result.Identity.Token)
	msg.Metadata.Set("submitted_at", strconv.FormatInt(result.SubmittedAt, 10))

	if err := s.publisher.Publish(s.topic, msg); err != nil {
		s.log.Error().Err(err).Str("result_id", result.ID).Msg("Failed to publish result")
		return fmt.Errorf("publish result: %w", err)
	}

	s.log.Info().Str("result_id", result.ID).Str("topic", s.topic).Msg("Published result")
	return nil
}

// Close closes the publisher and releases resources.
func (s *KafkaResultSink) Close() error {
	return s.publisher.Close()
}
