package handler

import (
	"sync"

	"retail-insights/internal/metrics"
	"retail-insights/internal/model"
)

// State holds the most recently loaded and processed datasets. A published
// dataset is never mutated; readers get the value as it was at publish time.
type State struct {
	mu        sync.RWMutex
	raw       *model.Dataset
	source    string
	processed *model.Dataset
	lastRun   string
}

// PublishRaw replaces the raw dataset.
func (s *State) PublishRaw(source string, ds model.Dataset) {
	s.mu.Lock()
	s.raw = &ds
	s.source = source
	s.mu.Unlock()
	metrics.DatasetRows.WithLabelValues("raw").Set(float64(ds.Len()))
}

// PublishProcessed replaces the processed dataset produced by runID.
func (s *State) PublishProcessed(runID string, ds model.Dataset) {
	s.mu.Lock()
	s.processed = &ds
	s.lastRun = runID
	s.mu.Unlock()
	metrics.DatasetRows.WithLabelValues("processed").Set(float64(ds.Len()))
}

// Raw returns the raw dataset and its source path.
func (s *State) Raw() (model.Dataset, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.raw == nil {
		return model.Dataset{}, "", false
	}
	return *s.raw, s.source, true
}

// Processed returns the processed dataset and the run that produced it.
func (s *State) Processed() (model.Dataset, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.processed == nil {
		return model.Dataset{}, "", false
	}
	return *s.processed, s.lastRun, true
}
