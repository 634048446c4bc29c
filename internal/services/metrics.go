package services

import (
	"sync"
	"time"
)

// maxFailureSamples bounds how many failure reasons a summary carries
const maxFailureSamples = 20

// PipelineMetrics accumulates counters across one or more scraping
// runs. Chunk workers increment concurrently, so every mutation takes
// the mutex.
type PipelineMetrics struct {
	mu sync.RWMutex

	EventsFound     int64 `json:"events_found"`
	EventsExtracted int64 `json:"events_extracted"`
	EventsValidated int64 `json:"events_validated"`
	EventsAdded     int64 `json:"events_added"`
	EventsUpdated   int64 `json:"events_updated"`
	EventsSkipped   int64 `json:"events_skipped"`

	DOMChunks int64 `json:"dom_chunks"`
	AIChunks  int64 `json:"ai_chunks"`

	ErrorsByCategory map[string]int64 `json:"errors_by_category"`
	FailureSamples   []string         `json:"failure_samples"`

	LastUpdated time.Time `json:"last_updated"`
}

// Error category names used across the pipeline
const (
	ErrorCategoryStructural = "structural"
	ErrorCategoryRow        = "row_extraction"
	ErrorCategoryAI         = "ai_extraction"
	ErrorCategoryValidation = "validation"
	ErrorCategoryStorage    = "storage"
)

// NewPipelineMetrics creates an empty metrics accumulator
func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		ErrorsByCategory: make(map[string]int64),
	}
}

// AddFound records event containers located by the chunker
func (m *PipelineMetrics) AddFound(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsFound += int64(n)
	m.LastUpdated = time.Now()
}

// AddExtracted records raw events produced by either extraction path
func (m *PipelineMetrics) AddExtracted(n int, viaAI bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsExtracted += int64(n)
	if viaAI {
		m.AIChunks++
	} else {
		m.DOMChunks++
	}
	m.LastUpdated = time.Now()
}

// AddValidated records events that passed the normalizer
func (m *PipelineMetrics) AddValidated(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsValidated += int64(n)
	m.LastUpdated = time.Now()
}

// AddStored records the reconciler outcome counts
func (m *PipelineMetrics) AddStored(added, updated, skipped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsAdded += int64(added)
	m.EventsUpdated += int64(updated)
	m.EventsSkipped += int64(skipped)
	m.LastUpdated = time.Now()
}

// RecordError counts an error under its category and keeps a bounded
// sample of reasons for the run summary.
func (m *PipelineMetrics) RecordError(category, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorsByCategory[category]++
	if len(m.FailureSamples) < maxFailureSamples {
		m.FailureSamples = append(m.FailureSamples, category+": "+reason)
	}
	m.LastUpdated = time.Now()
}

// MetricsSnapshot is a point-in-time copy of the counters, safe to
// serialize while workers keep running.
type MetricsSnapshot struct {
	EventsFound     int64 `json:"events_found"`
	EventsExtracted int64 `json:"events_extracted"`
	EventsValidated int64 `json:"events_validated"`
	EventsAdded     int64 `json:"events_added"`
	EventsUpdated   int64 `json:"events_updated"`
	EventsSkipped   int64 `json:"events_skipped"`

	DOMChunks int64 `json:"dom_chunks"`
	AIChunks  int64 `json:"ai_chunks"`

	ErrorsByCategory map[string]int64 `json:"errors_by_category"`
	FailureSamples   []string         `json:"failure_samples"`

	LastUpdated time.Time `json:"last_updated"`
}

// Snapshot copies the current counter values
func (m *PipelineMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MetricsSnapshot{
		EventsFound:      m.EventsFound,
		EventsExtracted:  m.EventsExtracted,
		EventsValidated:  m.EventsValidated,
		EventsAdded:      m.EventsAdded,
		EventsUpdated:    m.EventsUpdated,
		EventsSkipped:    m.EventsSkipped,
		DOMChunks:        m.DOMChunks,
		AIChunks:         m.AIChunks,
		ErrorsByCategory: make(map[string]int64, len(m.ErrorsByCategory)),
		FailureSamples:   append([]string(nil), m.FailureSamples...),
		LastUpdated:      m.LastUpdated,
	}
	for k, v := range m.ErrorsByCategory {
		snapshot.ErrorsByCategory[k] = v
	}
	return snapshot
}
