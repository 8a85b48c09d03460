package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/config"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

// RunEventsTopic is the topic suffix for run lifecycle events
const RunEventsTopic = "insights.runs"

// messageWriter is the subset of *kafka.Writer the service needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaService publishes and consumes run lifecycle events
type KafkaService struct {
	writer  messageWriter
	logger  *logger.Logger
	config  config.KafkaConfig
	brokers []string
}

// RunEventHandler handles one consumed run event
type RunEventHandler func(ctx context.Context, event *models.RunEvent) error

// NewKafkaService creates a new Kafka service
func NewKafkaService(cfg config.KafkaConfig, log *logger.Logger) (*KafkaService, error) {
	service := &KafkaService{
		logger:  log.WithService("kafka"),
		config:  cfg,
		brokers: cfg.Brokers,
	}

	service.writer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		BatchSize:              100,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		ErrorLogger:            kafka.LoggerFunc(service.logError),
		Logger:                 kafka.LoggerFunc(service.logInfo),
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := service.testConnection(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Kafka: %w", err)
	}

	service.logger.Info("Kafka service initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", service.Topic()),
	)

	return service, nil
}

// newKafkaServiceWithWriter builds a service around an existing writer
func newKafkaServiceWithWriter(w messageWriter, cfg config.KafkaConfig, log *logger.Logger) *KafkaService {
	return &KafkaService{
		writer:  w,
		logger:  log.WithService("kafka"),
		config:  cfg,
		brokers: cfg.Brokers,
	}
}

// Topic returns the run events topic including the configured prefix
func (k *KafkaService) Topic() string {
	if k.config.TopicPrefix != "" {
		return fmt.Sprintf("%s.%s", k.config.TopicPrefix, RunEventsTopic)
	}
	return RunEventsTopic
}

// PublishRunEvent publishes a run lifecycle event keyed by dataset so the
// events of one dataset stay ordered within a partition
func (k *KafkaService) PublishRunEvent(ctx context.Context, event *models.RunEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	message, err := k.buildMessage(event)
	if err != nil {
		k.logger.Error("Failed to serialize run event",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		return err
	}

	start := time.Now()
	err = k.writer.WriteMessages(ctx, message)
	duration := time.Since(start).Seconds() * 1000

	if err != nil {
		k.logger.Error("Failed to publish run event",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.String("topic", message.Topic),
			zap.Float64("duration_ms", duration),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	k.logger.Debug("Run event published",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("dataset_id", event.DatasetID),
		zap.String("run_kind", string(event.Kind)),
		zap.Float64("duration_ms", duration),
	)
	return nil
}

func (k *KafkaService) buildMessage(event *models.RunEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to serialize event: %w", err)
	}
	return kafka.Message{
		Topic: k.Topic(),
		Key:   []byte(event.DatasetID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-id", Value: []byte(event.ID)},
			{Key: "run-kind", Value: []byte(event.Kind)},
			{Key: "source", Value: []byte("aether-insights")},
		},
		Time: event.Timestamp,
	}, nil
}

// ConsumeRunEvents reads run events until ctx is cancelled. Handler errors
// are logged and the message is still committed.
func (k *KafkaService) ConsumeRunEvents(ctx context.Context, groupID string, handler RunEventHandler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        k.brokers,
		Topic:          k.Topic(),
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
		ErrorLogger:    kafka.LoggerFunc(k.logError),
		Logger:         kafka.LoggerFunc(k.logInfo),
	})
	defer reader.Close()

	k.logger.Info("Consuming run events",
		zap.String("topic", k.Topic()),
		zap.String("group_id", groupID),
	)

	for {
		message, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		if err := k.dispatch(ctx, message, handler); err != nil {
			k.logger.Error("Run event handler failed",
				zap.String("key", string(message.Key)),
				zap.Int64("offset", message.Offset),
				zap.Error(err),
			)
		}
	}
}

func (k *KafkaService) dispatch(ctx context.Context, message kafka.Message, handler RunEventHandler) error {
	var event models.RunEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("malformed run event: %w", err)
	}
	return handler(ctx, &event)
}

// Close closes the Kafka writer
func (k *KafkaService) Close() error {
	if err := k.writer.Close(); err != nil {
		k.logger.Error("Failed to close Kafka writer", zap.Error(err))
		return err
	}
	k.logger.Info("Kafka service closed")
	return nil
}

// HealthCheck performs a health check on the Kafka service
func (k *KafkaService) HealthCheck(ctx context.Context) error {
	return k.testConnection(ctx)
}

func (k *KafkaService) testConnection(ctx context.Context) error {
	if len(k.brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", k.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka broker: %w", err)
	}
	defer conn.Close()

	brokers, err := conn.Brokers()
	if err != nil {
		return fmt.Errorf("failed to get broker metadata: %w", err)
	}

	if len(brokers) == 0 {
		return fmt.Errorf("no brokers available")
	}

	k.logger.Debug("Kafka connection test successful",
		zap.Int("broker_count", len(brokers)),
	)

	return nil
}

func (k *KafkaService) logError(msg string, args ...interface{}) {
	k.logger.Error("Kafka error", zap.String("message", fmt.Sprintf(msg, args...)))
}

func (k *KafkaService) logInfo(msg string, args ...interface{}) {
	k.logger.Debug("Kafka info", zap.String("message", fmt.Sprintf(msg, args...)))
}
