package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"trailblaze-events-scraper/internal/models"
)

// PipelineConfig wires the extraction pipeline together
type PipelineConfig struct {
	Source string
	Chunk  ChunkConfig
	// Concurrency bounds how many chunks are processed in flight.
	Concurrency int
	// EnableAI turns on the AI fallback for chunks where the DOM parser
	// yields nothing.
	EnableAI bool
}

// DefaultPipelineConfig returns the production pipeline settings
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Source:      models.SourceAERC,
		Chunk:       DefaultChunkConfig(),
		Concurrency: 4,
		EnableAI:    true,
	}
}

// ScrapeSummary is what the pipeline's caller receives: counts plus a
// bounded sample of failure reasons. Row-level and event-level problems
// never surface as errors, only document-level structural failures do.
type ScrapeSummary struct {
	RunID            string              `json:"run_id"`
	Source           string              `json:"source"`
	Chunks           int                 `json:"chunks"`
	EventsFound      int64               `json:"events_found"`
	EventsExtracted  int64               `json:"events_extracted"`
	EventsValidated  int64               `json:"events_validated"`
	Upserts          models.UpsertResult `json:"upserts"`
	ErrorsByCategory map[string]int64    `json:"errors_by_category"`
	FailureSamples   []string            `json:"failure_samples"`
	Duration         time.Duration       `json:"duration_ms"`

	// ValidatedEvents carries the run's events for snapshot archival;
	// not part of the serialized summary.
	ValidatedEvents []*models.Event `json:"-"`
}

// Pipeline runs the full extraction flow for one calendar document:
// chunking, per-chunk extraction (DOM first, AI fallback), combination,
// normalization, and reconciliation against storage.
type Pipeline struct {
	config      PipelineConfig
	chunker     *Chunker
	domParser   *DOMParser
	aiExtractor *AIExtractor
	combiner    *EventCombiner
	normalizer  *Normalizer
	reconciler  *UpsertReconciler
	metrics     *PipelineMetrics
}

// NewPipeline assembles a pipeline. aiExtractor may be nil when the AI
// fallback is disabled; store may be nil for dry runs (no
// reconciliation happens, the summary reports zero upserts).
func NewPipeline(config PipelineConfig, aiExtractor *AIExtractor, store EventStore) *Pipeline {
	if config.Source == "" {
		config.Source = models.SourceAERC
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}

	p := &Pipeline{
		config:      config,
		chunker:     NewChunker(config.Chunk),
		domParser:   NewDOMParser(config.Chunk.Selector, config.Source),
		aiExtractor: aiExtractor,
		combiner:    NewEventCombiner(),
		normalizer:  NewNormalizer(config.Source),
		metrics:     NewPipelineMetrics(),
	}
	if store != nil {
		p.reconciler = NewUpsertReconciler(store)
	}
	return p
}

// Metrics exposes the pipeline's counters
func (p *Pipeline) Metrics() *PipelineMetrics {
	return p.metrics
}

// Run processes one calendar document end to end. Chunks are processed
// concurrently with per-chunk result slots, so output order stays
// deterministic. A context timeout stops new chunk work but results
// already produced still flow through the tail stages (graceful partial
// completion).
func (p *Pipeline) Run(ctx context.Context, html string) (*ScrapeSummary, error) {
	started := time.Now()
	runID := models.GenerateRunID(started)

	chunks, err := p.chunker.CreateChunks(html)
	if err != nil {
		var structural *NoEventsFoundError
		if errors.As(err, &structural) {
			p.metrics.RecordError(ErrorCategoryStructural, structural.Error())
		}
		return nil, err
	}
	log.Printf("pipeline %s: %d chunks", runID, len(chunks))

	rawEvents := p.extractChunks(ctx, chunks)
	p.metrics.AddFound(len(rawEvents))

	combined := p.combiner.Combine(rawEvents)

	var validated []*models.Event
	for _, raw := range combined {
		event, err := p.normalizer.TransformAndValidate(raw)
		if err != nil {
			p.metrics.RecordError(ErrorCategoryValidation, err.Error())
			continue
		}
		validated = append(validated, event)
	}
	p.metrics.AddValidated(len(validated))

	var upserts models.UpsertResult
	if p.reconciler != nil {
		upserts, err = p.reconciler.Store(ctx, validated)
		if err != nil {
			p.metrics.RecordError(ErrorCategoryStorage, err.Error())
			return nil, err
		}
		p.metrics.AddStored(upserts.Added, upserts.Updated, upserts.Skipped)
	}

	snapshot := p.metrics.Snapshot()
	return &ScrapeSummary{
		RunID:            runID,
		Source:           p.config.Source,
		Chunks:           len(chunks),
		EventsFound:      snapshot.EventsFound,
		EventsExtracted:  snapshot.EventsExtracted,
		EventsValidated:  snapshot.EventsValidated,
		Upserts:          upserts,
		ErrorsByCategory: snapshot.ErrorsByCategory,
		FailureSamples:   snapshot.FailureSamples,
		Duration:         time.Since(started),
		ValidatedEvents:  validated,
	}, nil
}

// extractChunks runs per-chunk extraction under the concurrency bound.
// Each chunk writes into its own result slot; concatenation preserves
// chunk order. DOM parsing runs first; the AI extractor only sees
// chunks the DOM parser found nothing in.
func (p *Pipeline) extractChunks(ctx context.Context, chunks []string) []models.RawEvent {
	results := make([][]models.RawEvent, len(chunks))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.config.Concurrency)

	for i, chunk := range chunks {
		if ctx.Err() != nil {
			// Timed out: keep whatever earlier chunks produced.
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, chunk string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.extractOneChunk(ctx, i, chunk)
		}(i, chunk)
	}
	wg.Wait()

	var all []models.RawEvent
	for _, events := range results {
		all = append(all, events...)
	}
	return all
}

// extractOneChunk applies the extraction strategy selection for one
// chunk: DOM parse, then AI fallback when enabled and needed. Failures
// are recorded and yield zero events for the chunk, never an abort.
func (p *Pipeline) extractOneChunk(ctx context.Context, index int, chunk string) []models.RawEvent {
	events, err := p.domParser.ParseHTML(chunk)
	if err != nil {
		p.metrics.RecordError(ErrorCategoryRow, err.Error())
	}
	if len(events) > 0 {
		p.metrics.AddExtracted(len(events), false)
		return events
	}

	if !p.config.EnableAI || p.aiExtractor == nil {
		return nil
	}

	events, err = p.aiExtractor.Extract(ctx, chunk, index)
	if err != nil {
		log.Printf("pipeline: chunk %d yielded no events: %v", index, err)
		p.metrics.RecordError(ErrorCategoryAI, err.Error())
		return nil
	}
	p.metrics.AddExtracted(len(events), true)
	return events
}
