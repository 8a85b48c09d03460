package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Tributary-ai-services/aether-insights/internal/config"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

// MockMessageWriter is a mock implementation of messageWriter
type MockMessageWriter struct {
	mock.Mock
}

func (m *MockMessageWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockMessageWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaTopic(t *testing.T) {
	k := newKafkaServiceWithWriter(&MockMessageWriter{}, config.KafkaConfig{TopicPrefix: "aether"}, logger.NewNop())
	assert.Equal(t, "aether.insights.runs", k.Topic())

	k = newKafkaServiceWithWriter(&MockMessageWriter{}, config.KafkaConfig{}, logger.NewNop())
	assert.Equal(t, "insights.runs", k.Topic())
}

func TestPublishRunEvent(t *testing.T) {
	writer := &MockMessageWriter{}
	k := newKafkaServiceWithWriter(writer, config.KafkaConfig{TopicPrefix: "aether"}, logger.NewNop())

	var sent []kafka.Message
	writer.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
		Return(nil).Once()

	event := &models.RunEvent{
		Type:      "insights.run.completed",
		RunID:     "run-1",
		DatasetID: "ds-1",
		Kind:      models.RunProfiling,
		Status:    models.StatusCompleted,
	}
	require.NoError(t, k.PublishRunEvent(context.Background(), event))
	writer.AssertExpectations(t)

	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "aether.insights.runs", msg.Topic)
	assert.Equal(t, "ds-1", string(msg.Key))
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())

	var decoded models.RunEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, models.StatusCompleted, decoded.Status)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "insights.run.completed", headers["event-type"])
	assert.Equal(t, "profiling", headers["run-kind"])
}

func TestPublishRunEventWriteFailure(t *testing.T) {
	writer := &MockMessageWriter{}
	k := newKafkaServiceWithWriter(writer, config.KafkaConfig{}, logger.NewNop())
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(assert.AnError)

	err := k.PublishRunEvent(context.Background(), &models.RunEvent{DatasetID: "ds-1"})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestDispatchRunEvent(t *testing.T) {
	k := newKafkaServiceWithWriter(&MockMessageWriter{}, config.KafkaConfig{}, logger.NewNop())

	var got *models.RunEvent
	handler := func(ctx context.Context, event *models.RunEvent) error {
		got = event
		return nil
	}

	payload, err := json.Marshal(models.RunEvent{ID: "evt-1", DatasetID: "ds-1", Kind: models.RunSemanticAnalysis})
	require.NoError(t, err)

	require.NoError(t, k.dispatch(context.Background(), kafka.Message{Value: payload}, handler))
	require.NotNil(t, got)
	assert.Equal(t, models.RunSemanticAnalysis, got.Kind)

	assert.Error(t, k.dispatch(context.Background(), kafka.Message{Value: []byte("{")}, handler))
}

func TestKafkaClose(t *testing.T) {
	writer := &MockMessageWriter{}
	writer.On("Close").Return(nil).Once()
	k := newKafkaServiceWithWriter(writer, config.KafkaConfig{}, logger.NewNop())

	require.NoError(t, k.Close())
	writer.AssertExpectations(t)
}
