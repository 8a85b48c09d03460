package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/analysis"
	"github.com/Tributary-ai-services/aether-insights/internal/charts"
	"github.com/Tributary-ai-services/aether-insights/internal/classifier"
	"github.com/Tributary-ai-services/aether-insights/internal/dashboard"
	"github.com/Tributary-ai-services/aether-insights/internal/dataset"
	"github.com/Tributary-ai-services/aether-insights/internal/insights"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/metrics"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// EngineOptions tune every analysis stage
type EngineOptions struct {
	Read    dataset.Options
	Infer   analysis.InferOptions
	Workers int
	Miner   insights.MinerOptions
	Charts  charts.BuildOptions
}

// DefaultEngineOptions returns the standard settings
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Read:    dataset.DefaultOptions(),
		Infer:   analysis.DefaultInferOptions(),
		Workers: 4,
		Miner:   insights.DefaultMinerOptions(),
		Charts:  charts.DefaultBuildOptions(),
	}
}

// Analysis bundles every artifact produced for one dataset
type Analysis struct {
	Profile   *models.DatasetProfile `json:"profile" yaml:"profile"`
	Insights  *models.InsightReport  `json:"insights" yaml:"insights"`
	Dashboard *models.Dashboard      `json:"dashboard" yaml:"dashboard"`
	Semantics *models.SemanticReport `json:"semantics,omitempty" yaml:"semantics,omitempty"`
}

// Engine runs the analysis stages. The in-memory entry points work on an
// already materialized dataset; Execute resolves, reads and persists.
type Engine struct {
	source     DatasetSource
	results    ResultStore
	classifier classifier.Classifier
	opt        EngineOptions

	profiler *analysis.Profiler
	miner    *insights.Miner
	builder  *charts.Builder

	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewEngine creates an engine. source and results may be nil when only the
// in-memory entry points are used; cls defaults to the local heuristic.
func NewEngine(
	source DatasetSource,
	results ResultStore,
	cls classifier.Classifier,
	opt EngineOptions,
	m *metrics.Metrics,
	log *logger.Logger,
) *Engine {
	if cls == nil {
		cls = classifier.NewHeuristic()
	}
	if opt.Workers <= 0 {
		opt.Workers = 1
	}
	if opt.Miner.Workers <= 0 {
		opt.Miner.Workers = opt.Workers
	}
	return &Engine{
		source:     source,
		results:    results,
		classifier: cls,
		opt:        opt,
		profiler:   analysis.NewProfiler(analysis.NewInferencer(opt.Infer), opt.Workers),
		miner:      insights.NewMiner(opt.Miner),
		builder:    charts.NewBuilder(opt.Charts),
		metrics:    m,
		logger:     log.WithService("analysis_engine"),
	}
}

// Profile infers column types and computes the dataset profile
func (e *Engine) Profile(ctx context.Context, ds *models.Dataset) (*models.DatasetProfile, error) {
	return e.profiler.Profile(ctx, ds)
}

// Insights mines correlations, outliers, trends and ranked insights
func (e *Engine) Insights(ctx context.Context, ds *models.Dataset, profile *models.DatasetProfile) (*models.InsightReport, error) {
	report, err := e.miner.Mine(ctx, ds, profile)
	if err != nil {
		return nil, err
	}
	for _, in := range report.Insights {
		e.metrics.IncInsights(string(in.Type))
	}
	return report, nil
}

// Dashboard recommends charts and lays them out on the grid
func (e *Engine) Dashboard(profile *models.DatasetProfile, report *models.InsightReport) (*models.Dashboard, error) {
	cfgs := e.builder.Build(profile, report)
	layout := dashboard.Layout(cfgs)
	if !dashboard.Validate(layout) {
		return nil, errors.ComputationDegenerate("Dashboard layout has overlapping charts", map[string]interface{}{
			"charts": len(cfgs),
		})
	}
	return &models.Dashboard{
		DatasetID:   profile.DatasetID,
		Charts:      cfgs,
		Layout:      layout,
		GeneratedAt: time.Now(),
	}, nil
}

// Semantic classifies every profiled column
func (e *Engine) Semantic(ctx context.Context, profile *models.DatasetProfile) (*models.SemanticReport, error) {
	results, err := e.classifier.Classify(ctx, models.NewClassificationRequest(profile))
	e.metrics.RecordClassifierCall(e.classifier.Name(), err)
	if err != nil {
		if errors.IsAPIError(err) {
			return nil, err
		}
		return nil, errors.DelegationFailure("Semantic classification failed", err)
	}
	return &models.SemanticReport{
		DatasetID:       profile.DatasetID,
		Classifier:      e.classifier.Name(),
		Classifications: results,
		GeneratedAt:     time.Now(),
	}, nil
}

// Analyze runs every in-memory stage on ds. Semantic classification is
// included when withSemantics is set.
func (e *Engine) Analyze(ctx context.Context, ds *models.Dataset, withSemantics bool) (*Analysis, error) {
	profile, err := e.Profile(ctx, ds)
	if err != nil {
		return nil, err
	}
	report, err := e.Insights(ctx, ds, profile)
	if err != nil {
		return nil, err
	}
	dash, err := e.Dashboard(profile, report)
	if err != nil {
		return nil, err
	}
	out := &Analysis{Profile: profile, Insights: report, Dashboard: dash}
	if withSemantics {
		if out.Semantics, err = e.Semantic(ctx, profile); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Execute performs run against the stored dataset and persists the artifact
// for its kind. The outcome lists the stages that finished.
func (e *Engine) Execute(ctx context.Context, run *models.Run) (*Outcome, error) {
	if e.source == nil || e.results == nil {
		return &Outcome{}, errors.ServiceUnavailable("Engine has no dataset source or result store")
	}

	t := &tracker{
		log:     e.logger.WithRun(run.ID, run.DatasetID, string(run.Kind)),
		metrics: e.metrics,
	}

	var ds *models.Dataset
	err := t.stage(models.StageRead, func() error {
		var err error
		ds, err = e.read(ctx, run)
		return err
	})
	if err != nil {
		return t.outcome(), err
	}

	var profile *models.DatasetProfile
	if err := t.stage(models.StageProfile, func() error {
		var err error
		profile, err = e.Profile(ctx, ds)
		return err
	}); err != nil {
		return t.outcome(), err
	}

	switch run.Kind {
	case models.RunProfiling:
		err = t.stage(models.StagePersist, func() error {
			return persisted(e.results.PersistProfile(ctx, profile))
		})

	case models.RunInsightGeneration:
		var report *models.InsightReport
		if err = t.stage(models.StageMine, func() error {
			var err error
			report, err = e.Insights(ctx, ds, profile)
			return err
		}); err != nil {
			break
		}
		err = t.stage(models.StagePersist, func() error {
			return persisted(e.results.PersistInsights(ctx, report))
		})

	case models.RunDashboardGeneration:
		err = e.executeDashboard(ctx, t, ds, profile)

	case models.RunSemanticAnalysis:
		var report *models.SemanticReport
		if err = t.stage(models.StageClassify, func() error {
			var err error
			report, err = e.Semantic(ctx, profile)
			return err
		}); err != nil {
			break
		}
		err = t.stage(models.StagePersist, func() error {
			return persisted(e.results.PersistClassifications(ctx, report))
		})

	default:
		err = errors.Validation(fmt.Sprintf("Unknown run kind %q", run.Kind), nil)
	}

	return t.outcome(), err
}

func (e *Engine) executeDashboard(ctx context.Context, t *tracker, ds *models.Dataset, profile *models.DatasetProfile) error {
	var report *models.InsightReport
	if err := t.stage(models.StageMine, func() error {
		var err error
		report, err = e.Insights(ctx, ds, profile)
		return err
	}); err != nil {
		return err
	}

	var cfgs []models.ChartConfig
	if err := t.stage(models.StageRecommend, func() error {
		cfgs = e.builder.Build(profile, report)
		return nil
	}); err != nil {
		return err
	}

	var layout models.DashboardLayout
	if err := t.stage(models.StageLayout, func() error {
		layout = dashboard.Layout(cfgs)
		if !dashboard.Validate(layout) {
			return errors.ComputationDegenerate("Dashboard layout has overlapping charts", nil)
		}
		return nil
	}); err != nil {
		return err
	}

	dash := &models.Dashboard{
		DatasetID:   profile.DatasetID,
		Charts:      cfgs,
		Layout:      layout,
		GeneratedAt: time.Now(),
	}
	return t.stage(models.StagePersist, func() error {
		return persisted(e.results.PersistDashboard(ctx, dash))
	})
}

// read resolves the dataset record and parses its stored bytes
func (e *Engine) read(ctx context.Context, run *models.Run) (*models.Dataset, error) {
	meta, err := e.results.GetDataset(ctx, run.DatasetID)
	if err != nil {
		if errors.IsAPIError(err) {
			return nil, err
		}
		return nil, errors.PersistenceFailure("Failed to load dataset record", err)
	}

	key := run.StorageKey
	if key == "" {
		key = meta.StorageKey
	}
	rc, err := e.source.ReadDataset(ctx, key)
	if err != nil {
		if errors.IsAPIError(err) {
			return nil, err
		}
		return nil, errors.PersistenceFailure("Failed to open dataset", err).WithDetails("storage_key", key)
	}
	defer rc.Close()

	ds, err := dataset.Read(rc, e.opt.Read)
	if err != nil {
		return nil, err
	}
	ds.ID = meta.ID
	ds.Name = meta.Name
	ds.FileName = meta.FileName
	ds.StorageKey = key
	ds.SizeBytes = meta.SizeBytes
	ds.ContentType = meta.ContentType
	ds.CreatedAt = meta.CreatedAt

	e.metrics.AddRowsAnalyzed(ds.RowCount())
	if ds.IsEmpty() {
		e.logger.Info("Dataset has a header but no rows",
			zap.String("dataset_id", ds.ID),
			zap.String("condition", errors.ErrEmptyDataset),
		)
	}
	return ds, nil
}

// persisted maps store failures onto PersistenceFailure
func persisted(err error) error {
	if err == nil || errors.IsAPIError(err) {
		return err
	}
	return errors.PersistenceFailure("Failed to persist results", err)
}

// tracker times stages and remembers which ones finished
type tracker struct {
	completed []string
	failed    string
	log       *logger.Logger
	metrics   *metrics.Metrics
}

func (t *tracker) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	t.log.LogStage(name, float64(elapsed.Nanoseconds())/1e6, err)
	t.metrics.RecordStage(name, err, elapsed)
	if err != nil {
		t.failed = name
		return err
	}
	t.completed = append(t.completed, name)
	return nil
}

func (t *tracker) outcome() *Outcome {
	return &Outcome{
		CompletedStages: append([]string(nil), t.completed...),
		FailedStage:     t.failed,
	}
}
