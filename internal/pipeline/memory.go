package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// MemoryStore keeps datasets, artifacts and statuses in process. It
// implements DatasetStore, ResultStore and StatusStore and backs the CLI and
// single-node deployments without external services.
type MemoryStore struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	datasets  map[string]*models.Dataset
	artifacts map[string][]byte
	statuses  map[string]*models.StatusRecord
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:   make(map[string][]byte),
		datasets:  make(map[string]*models.Dataset),
		artifacts: make(map[string][]byte),
		statuses:  make(map[string]*models.StatusRecord),
	}
}

// Upload stores the dataset bytes under storageKey
func (s *MemoryStore) Upload(ctx context.Context, storageKey string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return errors.PersistenceFailure("Failed to buffer dataset", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[storageKey] = data
	return nil
}

// ReadDataset opens the bytes stored under storageKey
func (s *MemoryStore) ReadDataset(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[storageKey]
	if !ok {
		return nil, errors.NotFound("Dataset file not found").WithDetails("storage_key", storageKey)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Exists reports whether bytes are stored under storageKey
func (s *MemoryStore) Exists(ctx context.Context, storageKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[storageKey]
	return ok, nil
}

// Delete removes the bytes stored under storageKey
func (s *MemoryStore) Delete(ctx context.Context, storageKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageKey)
	return nil
}

// SaveDataset stores the dataset record without its rows
func (s *MemoryStore) SaveDataset(ctx context.Context, ds *models.Dataset) error {
	meta := *ds
	meta.Header = append([]string(nil), ds.Header...)
	meta.Rows = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[ds.ID] = &meta
	return nil
}

// GetDataset returns the dataset record
func (s *MemoryStore) GetDataset(ctx context.Context, datasetID string) (*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[datasetID]
	if !ok {
		return nil, errors.NotFound("Dataset not found")
	}
	cp := *ds
	return &cp, nil
}

// DeleteDataset removes the record and every artifact of the dataset
func (s *MemoryStore) DeleteDataset(ctx context.Context, datasetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[datasetID]; !ok {
		return errors.NotFound("Dataset not found")
	}
	delete(s.datasets, datasetID)
	for key := range s.artifacts {
		if strings.HasPrefix(key, datasetID+"/") {
			delete(s.artifacts, key)
		}
	}
	return nil
}

// PersistProfile replaces the profile of the dataset
func (s *MemoryStore) PersistProfile(ctx context.Context, profile *models.DatasetProfile) error {
	return s.put(profile.DatasetID, "profile", profile)
}

// GetProfile returns the latest profile
func (s *MemoryStore) GetProfile(ctx context.Context, datasetID string) (*models.DatasetProfile, error) {
	var out models.DatasetProfile
	if err := s.get(datasetID, "profile", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PersistInsights replaces the insight report of the dataset
func (s *MemoryStore) PersistInsights(ctx context.Context, report *models.InsightReport) error {
	return s.put(report.DatasetID, "insights", report)
}

// GetInsights returns the latest insight report
func (s *MemoryStore) GetInsights(ctx context.Context, datasetID string) (*models.InsightReport, error) {
	var out models.InsightReport
	if err := s.get(datasetID, "insights", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PersistDashboard replaces the dashboard of the dataset
func (s *MemoryStore) PersistDashboard(ctx context.Context, dashboard *models.Dashboard) error {
	return s.put(dashboard.DatasetID, "dashboard", dashboard)
}

// GetDashboard returns the latest dashboard
func (s *MemoryStore) GetDashboard(ctx context.Context, datasetID string) (*models.Dashboard, error) {
	var out models.Dashboard
	if err := s.get(datasetID, "dashboard", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PersistClassifications replaces the semantic report of the dataset
func (s *MemoryStore) PersistClassifications(ctx context.Context, report *models.SemanticReport) error {
	return s.put(report.DatasetID, "semantics", report)
}

// GetClassifications returns the latest semantic report
func (s *MemoryStore) GetClassifications(ctx context.Context, datasetID string) (*models.SemanticReport, error) {
	var out models.SemanticReport
	if err := s.get(datasetID, "semantics", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStatus returns the status record, or not_started when none exists
func (s *MemoryStore) GetStatus(ctx context.Context, datasetID string, kind models.RunKind) (*models.StatusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.statuses[runKey(datasetID, kind)]
	if !ok {
		return models.NotStarted(datasetID, kind), nil
	}
	cp := *rec
	cp.CompletedStages = append([]string(nil), rec.CompletedStages...)
	return &cp, nil
}

// SetStatus replaces the status record for the record's key
func (s *MemoryStore) SetStatus(ctx context.Context, record *models.StatusRecord) error {
	cp := *record
	cp.CompletedStages = append([]string(nil), record.CompletedStages...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[runKey(record.DatasetID, record.Kind)] = &cp
	return nil
}

// DeleteStatuses forgets every status record of the dataset
func (s *MemoryStore) DeleteStatuses(ctx context.Context, datasetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range models.AllRunKinds {
		delete(s.statuses, runKey(datasetID, kind))
	}
	return nil
}

// Artifacts are stored encoded so callers never share mutable state.
func (s *MemoryStore) put(datasetID, kind string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.PersistenceFailure("Failed to encode "+kind, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[datasetID+"/"+kind] = data
	return nil
}

func (s *MemoryStore) get(datasetID, kind string, v interface{}) error {
	s.mu.RLock()
	data, ok := s.artifacts[datasetID+"/"+kind]
	s.mu.RUnlock()
	if !ok {
		return errors.NotFound("No " + kind + " for dataset").WithDetails("dataset_id", datasetID)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.PersistenceFailure("Failed to decode "+kind, err)
	}
	return nil
}
