package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"trailblaze-events-scraper/internal/models"
)

// EventStore is the persistence surface the reconciler needs: identity
// lookups plus insert/update. Implemented by DynamoDBService and by the
// in-memory store used in tests.
type EventStore interface {
	// GetByExternalID returns the stored event for a source-specific ride
	// id, or nil when none exists.
	GetByExternalID(ctx context.Context, source, externalID string) (*models.StoredEvent, error)
	// GetByNameAndDate returns the stored event matching (name,
	// date_start), or nil when none exists.
	GetByNameAndDate(ctx context.Context, name, dateStart string) (*models.StoredEvent, error)
	Insert(ctx context.Context, event *models.StoredEvent) error
	Update(ctx context.Context, event *models.StoredEvent) error
}

// UpsertReconciler decides, per validated event, whether to insert a new
// stored record, update an existing one, or skip it. Identity resolution
// order: exact external-id match first, then (name, date_start).
type UpsertReconciler struct {
	store EventStore
}

// NewUpsertReconciler creates a reconciler over the given store
func NewUpsertReconciler(store EventStore) *UpsertReconciler {
	return &UpsertReconciler{store: store}
}

// Store upserts a batch of validated events. Per-event failures are
// logged and counted as skipped; one bad event never blocks the rest of
// the batch. Only a connection-level failure surfaces as an error.
func (r *UpsertReconciler) Store(ctx context.Context, events []*models.Event) (models.UpsertResult, error) {
	var result models.UpsertResult

	for _, event := range events {
		outcome, err := r.upsertOne(ctx, event)
		if err != nil {
			log.Printf("reconciler: skipping event %q: %v", event.Name, err)
			result.Skipped++
			continue
		}
		switch outcome {
		case outcomeAdded:
			result.Added++
		case outcomeUpdated:
			result.Updated++
		case outcomeSkipped:
			result.Skipped++
		}
	}

	return result, nil
}

type upsertOutcome int

const (
	outcomeAdded upsertOutcome = iota
	outcomeUpdated
	outcomeSkipped
)

// upsertOne resolves one event against storage and applies the outcome.
func (r *UpsertReconciler) upsertOne(ctx context.Context, event *models.Event) (upsertOutcome, error) {
	existing, err := r.findExisting(ctx, event)
	if err != nil {
		return outcomeSkipped, err
	}

	if existing == nil {
		stored := newStoredEvent(event)
		if err := r.store.Insert(ctx, stored); err != nil {
			return outcomeSkipped, fmt.Errorf("insert failed: %w", err)
		}
		return outcomeAdded, nil
	}

	// A canceled event is never resurrected by a re-scrape; cancellation
	// is sticky until handled out of band.
	if existing.IsCanceled {
		return outcomeSkipped, nil
	}

	existing.Event = *event
	existing.NameDateKey = models.GenerateNameDateKey(event.Name, event.DateStart)
	existing.UpdatedAt = time.Now()
	if err := r.store.Update(ctx, existing); err != nil {
		return outcomeSkipped, fmt.Errorf("update failed: %w", err)
	}
	return outcomeUpdated, nil
}

// findExisting applies the identity precedence: external id first, then
// name+date.
func (r *UpsertReconciler) findExisting(ctx context.Context, event *models.Event) (*models.StoredEvent, error) {
	if event.ExternalID != "" {
		existing, err := r.store.GetByExternalID(ctx, event.Source, event.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("external-id lookup failed: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	existing, err := r.store.GetByNameAndDate(ctx, event.Name, event.DateStart)
	if err != nil {
		return nil, fmt.Errorf("name+date lookup failed: %w", err)
	}
	return existing, nil
}

// newStoredEvent wraps a validated event with its persistence identity
func newStoredEvent(event *models.Event) *models.StoredEvent {
	now := time.Now()
	externalID := event.ExternalID
	if externalID == "" {
		externalID = models.GenerateEventID(event.Name, event.DateStart, event.Source)
	}
	return &models.StoredEvent{
		PK:          models.CreateEventPK(event.Source, externalID),
		SK:          models.CreateEventSK(event.DateStart),
		ID:          models.GenerateEventID(event.Name, event.DateStart, event.Source),
		NameDateKey: models.GenerateNameDateKey(event.Name, event.DateStart),
		Event:       *event,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
