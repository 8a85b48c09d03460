package pipeline

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

// MockExecutor is a mock implementation of Executor
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, run *models.Run) (*Outcome, error) {
	args := m.Called(ctx, run)
	var outcome *Outcome
	if v := args.Get(0); v != nil {
		outcome = v.(*Outcome)
	}
	return outcome, args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishRunEvent(ctx context.Context, event *models.RunEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockClassifier is a mock implementation of classifier.Classifier
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Name() string {
	return "mock"
}

func (m *MockClassifier) Classify(ctx context.Context, req models.ClassificationRequest) ([]models.ColumnClassification, error) {
	args := m.Called(ctx, req)
	var out []models.ColumnClassification
	if v := args.Get(0); v != nil {
		out = v.([]models.ColumnClassification)
	}
	return out, args.Error(1)
}

// failingResults is a MemoryStore whose insight writes fail
type failingResults struct {
	*MemoryStore
}

func (f failingResults) PersistInsights(ctx context.Context, report *models.InsightReport) error {
	return errors.New("connection reset")
}

// failingStatus is a StatusStore whose writes fail
type failingStatus struct {
	*MemoryStore
}

func (f failingStatus) SetStatus(ctx context.Context, record *models.StatusRecord) error {
	return errors.New("redis down")
}
