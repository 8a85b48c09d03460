package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/metrics"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// Run event types
const (
	EventRunStarted   = "insights.run.started"
	EventRunCompleted = "insights.run.completed"
	EventRunFailed    = "insights.run.failed"
)

// RunnerOptions size the worker pool
type RunnerOptions struct {
	Workers   int
	QueueSize int
}

// DefaultRunnerOptions returns the standard pool size
func DefaultRunnerOptions() RunnerOptions {
	return RunnerOptions{Workers: 4, QueueSize: 64}
}

// Runner executes runs on a bounded pool of workers. Trigger returns as soon
// as the run is queued; callers poll status. At most one run per
// (dataset, run kind) is queued or executing at a time.
type Runner struct {
	executor Executor
	status   StatusStore
	events   EventPublisher
	opt      RunnerOptions

	tasks chan *models.Run
	wg    sync.WaitGroup

	// sendMu guards tasks against sends after close
	sendMu  sync.RWMutex
	closed  bool
	started bool

	keysMu   sync.Mutex
	inflight map[string]string

	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewRunner creates a runner. events may be nil.
func NewRunner(
	executor Executor,
	status StatusStore,
	events EventPublisher,
	opt RunnerOptions,
	m *metrics.Metrics,
	log *logger.Logger,
) *Runner {
	def := DefaultRunnerOptions()
	if opt.Workers <= 0 {
		opt.Workers = def.Workers
	}
	if opt.QueueSize <= 0 {
		opt.QueueSize = def.QueueSize
	}
	return &Runner{
		executor: executor,
		status:   status,
		events:   events,
		opt:      opt,
		tasks:    make(chan *models.Run, opt.QueueSize),
		inflight: make(map[string]string),
		metrics:  m,
		logger:   log.WithService("run_scheduler"),
	}
}

// Start launches the workers. Calling it twice has no effect.
func (r *Runner) Start() {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true

	for i := 0; i < r.opt.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.logger.Info("Run workers started",
		zap.Int("workers", r.opt.Workers),
		zap.Int("queue_size", r.opt.QueueSize),
	)
}

// Trigger marks the run processing and queues it. A run already queued or
// executing for the same key is rejected with RunInProgress; a full queue
// records the run as failed and returns TooManyRequests.
func (r *Runner) Trigger(ctx context.Context, datasetID string, kind models.RunKind, storageKey string) (*models.StatusRecord, error) {
	if datasetID == "" {
		return nil, errors.Validation("Dataset id is required", nil)
	}
	if _, err := models.ParseRunKind(string(kind)); err != nil {
		return nil, errors.Validation(err.Error(), err)
	}

	run := &models.Run{
		ID:          uuid.New().String(),
		DatasetID:   datasetID,
		Kind:        kind,
		StorageKey:  storageKey,
		TriggeredAt: time.Now(),
	}
	if !r.claim(run) {
		return nil, errors.RunInProgress(datasetID, string(kind))
	}

	now := run.TriggeredAt
	record := &models.StatusRecord{
		DatasetID: datasetID,
		Kind:      kind,
		RunID:     run.ID,
		Status:    models.StatusProcessing,
		StartedAt: &now,
		UpdatedAt: now,
	}
	if err := r.status.SetStatus(ctx, record); err != nil {
		r.release(run)
		return nil, persisted(err)
	}

	r.sendMu.RLock()
	if r.closed {
		r.sendMu.RUnlock()
		r.release(run)
		r.reject(ctx, run, record, errors.ErrServiceUnavailable, "Run scheduler is shutting down")
		return nil, errors.ServiceUnavailable("Run scheduler is shutting down")
	}
	select {
	case r.tasks <- run:
		r.sendMu.RUnlock()
	default:
		r.sendMu.RUnlock()
		r.release(run)
		r.reject(ctx, run, record, errors.ErrTooManyRequests, "Run queue is full")
		return nil, errors.TooManyRequests("Run queue is full").
			WithDetails("queue_size", r.opt.QueueSize)
	}

	r.metrics.SetQueueDepth(len(r.tasks))
	r.publish(ctx, run, EventRunStarted, record, 0)
	r.logger.Info("Run queued",
		zap.String("run_id", run.ID),
		zap.String("dataset_id", datasetID),
		zap.String("run_kind", string(kind)),
	)
	return record, nil
}

// Status returns the status record for a key
func (r *Runner) Status(ctx context.Context, datasetID string, kind models.RunKind) (*models.StatusRecord, error) {
	return r.status.GetStatus(ctx, datasetID, kind)
}

// InFlight reports whether a run for the key is queued or executing
func (r *Runner) InFlight(datasetID string, kind models.RunKind) bool {
	r.keysMu.Lock()
	defer r.keysMu.Unlock()
	_, ok := r.inflight[runKey(datasetID, kind)]
	return ok
}

// QueueDepth returns the number of runs waiting for a worker
func (r *Runner) QueueDepth() int {
	return len(r.tasks)
}

// Shutdown stops accepting runs and waits for queued runs to finish.
// Runs are never cancelled; ctx only bounds how long Shutdown waits.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.sendMu.Lock()
	if !r.closed {
		r.closed = true
		close(r.tasks)
	}
	r.sendMu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Run workers stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for run workers: %w", ctx.Err())
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()
	for run := range r.tasks {
		r.metrics.SetQueueDepth(len(r.tasks))
		r.execute(run)
	}
	r.logger.Debug("Run worker exiting", zap.Int("worker", id))
}

// execute performs one run detached from any request context
func (r *Runner) execute(run *models.Run) {
	defer r.release(run)

	ctx := context.Background()
	log := r.logger.WithRun(run.ID, run.DatasetID, string(run.Kind))
	start := time.Now()
	r.metrics.RunStarted()

	outcome, err := r.safeExecute(ctx, run)
	elapsed := time.Since(start)

	now := time.Now()
	started := run.TriggeredAt
	record := &models.StatusRecord{
		DatasetID:       run.DatasetID,
		Kind:            run.Kind,
		RunID:           run.ID,
		Status:          models.StatusCompleted,
		CompletedStages: outcome.CompletedStages,
		StartedAt:       &started,
		UpdatedAt:       now,
		CompletedAt:     &now,
	}
	eventType := EventRunCompleted
	if err != nil {
		record.Status = models.StatusFailed
		record.Error = runError(err, outcome)
		eventType = EventRunFailed
		log.Warn("Run failed",
			zap.String("stage", outcome.FailedStage),
			zap.Bool("partial", record.Error.Partial),
			zap.Error(err),
		)
	} else {
		log.Info("Run completed", zap.Duration("duration", elapsed))
	}

	if serr := r.status.SetStatus(ctx, record); serr != nil {
		log.Error("Failed to record run status", zap.Error(serr))
	}
	r.metrics.RunFinished(string(run.Kind), string(record.Status), elapsed)
	r.publish(ctx, run, eventType, record, float64(elapsed.Nanoseconds())/1e6)
}

// safeExecute turns a panic in a run into an internal error
func (r *Runner) safeExecute(ctx context.Context, run *models.Run) (outcome *Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			if outcome == nil {
				outcome = &Outcome{}
			}
			err = errors.Internal(fmt.Sprintf("Run panicked: %v", p))
		}
	}()
	outcome, err = r.executor.Execute(ctx, run)
	if outcome == nil {
		outcome = &Outcome{}
	}
	return outcome, err
}

// reject records a run that never reached a worker as failed
func (r *Runner) reject(ctx context.Context, run *models.Run, record *models.StatusRecord, code, message string) {
	now := time.Now()
	record.Status = models.StatusFailed
	record.Error = &models.RunError{Code: code, Message: message}
	record.UpdatedAt = now
	record.CompletedAt = &now
	if err := r.status.SetStatus(ctx, record); err != nil {
		r.logger.Error("Failed to record rejected run", zap.String("run_id", run.ID), zap.Error(err))
	}
	r.metrics.RunRejected(string(run.Kind))
	r.publish(ctx, run, EventRunFailed, record, 0)
	r.logger.Warn("Run rejected",
		zap.String("run_id", run.ID),
		zap.String("dataset_id", run.DatasetID),
		zap.String("reason", message),
	)
}

func (r *Runner) publish(ctx context.Context, run *models.Run, eventType string, record *models.StatusRecord, durationMs float64) {
	if r.events == nil {
		return
	}
	event := &models.RunEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		RunID:      run.ID,
		DatasetID:  run.DatasetID,
		Kind:       run.Kind,
		Status:     record.Status,
		Error:      record.Error,
		DurationMs: durationMs,
		Timestamp:  time.Now(),
	}
	if err := r.events.PublishRunEvent(ctx, event); err != nil {
		r.logger.Warn("Failed to publish run event",
			zap.String("event_type", eventType),
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}

func (r *Runner) claim(run *models.Run) bool {
	r.keysMu.Lock()
	defer r.keysMu.Unlock()
	key := runKey(run.DatasetID, run.Kind)
	if _, busy := r.inflight[key]; busy {
		return false
	}
	r.inflight[key] = run.ID
	return true
}

func (r *Runner) release(run *models.Run) {
	r.keysMu.Lock()
	defer r.keysMu.Unlock()
	key := runKey(run.DatasetID, run.Kind)
	if r.inflight[key] == run.ID {
		delete(r.inflight, key)
	}
}

func runKey(datasetID string, kind models.RunKind) string {
	return datasetID + "/" + string(kind)
}

// runError converts a run failure into the status payload form
func runError(err error, outcome *Outcome) *models.RunError {
	re := &models.RunError{
		Code:    errors.ErrInternal,
		Message: err.Error(),
		Stage:   outcome.FailedStage,
		Partial: outcome.Partial(),
	}
	if apiErr, ok := errors.AsAPIError(err); ok {
		re.Code = apiErr.Code
		re.Message = apiErr.Message
		if apiErr.Cause != nil {
			re.Message += ": " + apiErr.Cause.Error()
		}
	}
	return re
}
