package models

import (
	"fmt"
	"time"
)

// RunKind identifies one of the independent analysis pipelines
type RunKind string

const (
	RunProfiling           RunKind = "profiling"
	RunInsightGeneration   RunKind = "insight-generation"
	RunSemanticAnalysis    RunKind = "semantic-analysis"
	RunDashboardGeneration RunKind = "dashboard-generation"
)

// AllRunKinds lists every run kind in pipeline order
var AllRunKinds = []RunKind{
	RunProfiling,
	RunInsightGeneration,
	RunSemanticAnalysis,
	RunDashboardGeneration,
}

// UploadRunKinds are triggered automatically after an upload
var UploadRunKinds = []RunKind{
	RunProfiling,
	RunInsightGeneration,
	RunDashboardGeneration,
}

// ParseRunKind validates a run kind string
func ParseRunKind(s string) (RunKind, error) {
	for _, k := range AllRunKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown run kind %q", s)
}

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	StatusNotStarted RunStatus = "not_started"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// IsTerminal reports whether the run has finished
func (s RunStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is allowed
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch next {
	case StatusProcessing:
		return s == StatusNotStarted || s.IsTerminal()
	case StatusCompleted, StatusFailed:
		return s == StatusProcessing
	default:
		return false
	}
}

// Pipeline stages recorded on the status payload
const (
	StageRead      = "read"
	StageProfile   = "profile"
	StageMine      = "mine"
	StageRecommend = "recommend"
	StageLayout    = "layout"
	StageClassify  = "classify"
	StagePersist   = "persist"
)

// RunError describes why a run failed
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
	// Partial is set when earlier stages produced results before the failure
	Partial bool `json:"partial"`
}

// StatusRecord is the status payload for a (dataset, run kind) key
type StatusRecord struct {
	DatasetID       string     `json:"dataset_id"`
	Kind            RunKind    `json:"run_kind"`
	RunID           string     `json:"run_id,omitempty"`
	Status          RunStatus  `json:"status"`
	Error           *RunError  `json:"error,omitempty"`
	CompletedStages []string   `json:"completed_stages,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// NotStarted returns the implicit record for a key with no history
func NotStarted(datasetID string, kind RunKind) *StatusRecord {
	return &StatusRecord{
		DatasetID: datasetID,
		Kind:      kind,
		Status:    StatusNotStarted,
		UpdatedAt: time.Now(),
	}
}

// Run identifies one execution of a run kind on a dataset
type Run struct {
	ID          string    `json:"id"`
	DatasetID   string    `json:"dataset_id"`
	Kind        RunKind   `json:"run_kind"`
	StorageKey  string    `json:"storage_key"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// RunEvent is published on run lifecycle transitions
type RunEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	RunID      string    `json:"run_id"`
	DatasetID  string    `json:"dataset_id"`
	Kind       RunKind   `json:"run_kind"`
	Status     RunStatus `json:"status"`
	Error      *RunError `json:"error,omitempty"`
	DurationMs float64   `json:"duration_ms,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
