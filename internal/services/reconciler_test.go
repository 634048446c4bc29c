package services

import (
	"context"
	"errors"
	"testing"

	"trailblaze-events-scraper/internal/models"
)

// memoryEventStore is an in-memory EventStore for reconciler tests.
type memoryEventStore struct {
	byPK       map[string]*models.StoredEvent
	insertErr  error
	lookupErr  error
	updateErr  error
	insertions int
	updates    int
}

func newMemoryEventStore() *memoryEventStore {
	return &memoryEventStore{byPK: make(map[string]*models.StoredEvent)}
}

func (m *memoryEventStore) GetByExternalID(_ context.Context, source, externalID string) (*models.StoredEvent, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	if stored, ok := m.byPK[models.CreateEventPK(source, externalID)]; ok {
		return stored, nil
	}
	return nil, nil
}

func (m *memoryEventStore) GetByNameAndDate(_ context.Context, name, dateStart string) (*models.StoredEvent, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	key := models.GenerateNameDateKey(name, dateStart)
	for _, stored := range m.byPK {
		if stored.NameDateKey == key {
			return stored, nil
		}
	}
	return nil, nil
}

func (m *memoryEventStore) Insert(_ context.Context, event *models.StoredEvent) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.insertions++
	m.byPK[event.PK] = event
	return nil
}

func (m *memoryEventStore) Update(_ context.Context, event *models.StoredEvent) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates++
	m.byPK[event.PK] = event
	return nil
}

func testEvent(name, date, externalID string) *models.Event {
	return &models.Event{
		Name:       name,
		Source:     models.SourceAERC,
		EventType:  models.EventTypeEndurance,
		DateStart:  date,
		DateEnd:    date,
		Location:   models.Location{Name: "Somewhere, ID", Country: "USA"},
		ExternalID: externalID,
		RideDays:   1,
	}
}

func TestReconcilerAddsNewEvent(t *testing.T) {
	store := newMemoryEventStore()
	reconciler := NewUpsertReconciler(store)

	result, err := reconciler.Store(context.Background(), []*models.Event{
		testEvent("Owyhee Spring", "2025-05-02", "902"),
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if result.Added != 1 || result.Updated != 0 || result.Skipped != 0 {
		t.Errorf("result = %+v, want 1 added", result)
	}
	if store.insertions != 1 {
		t.Errorf("insertions = %d, want 1", store.insertions)
	}
}

func TestReconcilerUpdatesByExternalID(t *testing.T) {
	store := newMemoryEventStore()
	reconciler := NewUpsertReconciler(store)

	first := testEvent("Owyhee Spring", "2025-05-02", "902")
	if _, err := reconciler.Store(context.Background(), []*models.Event{first}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Same identity, renamed and moved a day.
	second := testEvent("Owyhee Spring Ride", "2025-05-03", "902")
	result, err := reconciler.Store(context.Background(), []*models.Event{second})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if result.Updated != 1 || result.Added != 0 {
		t.Errorf("result = %+v, want 1 updated", result)
	}

	stored, _ := store.GetByExternalID(context.Background(), models.SourceAERC, "902")
	if stored == nil || stored.Event.Name != "Owyhee Spring Ride" {
		t.Fatalf("stored event not overwritten: %+v", stored)
	}
	if stored.NameDateKey != models.GenerateNameDateKey("Owyhee Spring Ride", "2025-05-03") {
		t.Errorf("NameDateKey = %q, want refreshed to the new identity", stored.NameDateKey)
	}
}

func TestReconcilerMatchesByNameAndDate(t *testing.T) {
	store := newMemoryEventStore()
	reconciler := NewUpsertReconciler(store)

	// Seeded without an external id, re-scraped without one either.
	first := testEvent("Fort Howes", "2025-06-07", "")
	second := testEvent("Fort Howes", "2025-06-07", "")
	second.Region = models.RegionMidwest

	if _, err := reconciler.Store(context.Background(), []*models.Event{first}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	result, err := reconciler.Store(context.Background(), []*models.Event{second})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if result.Updated != 1 || result.Added != 0 {
		t.Errorf("result = %+v, want name+date match to update", result)
	}
	if len(store.byPK) != 1 {
		t.Errorf("store holds %d records, want 1 (no duplicate)", len(store.byPK))
	}
}

// TestReconcilerCancellationSticky checks that a canceled stored event is
// never resurrected by a later re-scrape of the same event.
func TestReconcilerCancellationSticky(t *testing.T) {
	store := newMemoryEventStore()
	reconciler := NewUpsertReconciler(store)

	canceled := testEvent("City of Rocks", "2025-07-10", "881")
	canceled.IsCanceled = true
	if _, err := reconciler.Store(context.Background(), []*models.Event{canceled}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rescrape := testEvent("City of Rocks", "2025-07-10", "881")
	result, err := reconciler.Store(context.Background(), []*models.Event{rescrape})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if result.Skipped != 1 || result.Updated != 0 {
		t.Errorf("result = %+v, want re-scrape of canceled event skipped", result)
	}

	stored, _ := store.GetByExternalID(context.Background(), models.SourceAERC, "881")
	if stored == nil || !stored.Event.IsCanceled {
		t.Error("stored event lost its cancellation")
	}
	if store.updates != 0 {
		t.Errorf("updates = %d, want 0", store.updates)
	}
}

// TestReconcilerPerEventFailureIsolation checks that one failing event
// counts as skipped without blocking the rest of the batch.
func TestReconcilerPerEventFailureIsolation(t *testing.T) {
	store := newMemoryEventStore()

	good := testEvent("Good Ride", "2025-08-01", "10")
	bad := testEvent("Bad Ride", "2025-08-02", "11")
	alsoGood := testEvent("Also Good", "2025-08-03", "12")

	// Fail only the middle insert.
	calls := 0
	failing := &flakyStore{inner: store, failOn: 2, calls: &calls}
	flakyReconciler := NewUpsertReconciler(failing)

	result, err := flakyReconciler.Store(context.Background(), []*models.Event{good, bad, alsoGood})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if result.Added != 2 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 2 added and 1 skipped", result)
	}
}

// flakyStore fails the Nth insert and delegates everything else.
type flakyStore struct {
	inner  EventStore
	failOn int
	calls  *int
}

func (f *flakyStore) GetByExternalID(ctx context.Context, source, externalID string) (*models.StoredEvent, error) {
	return f.inner.GetByExternalID(ctx, source, externalID)
}

func (f *flakyStore) GetByNameAndDate(ctx context.Context, name, dateStart string) (*models.StoredEvent, error) {
	return f.inner.GetByNameAndDate(ctx, name, dateStart)
}

func (f *flakyStore) Insert(ctx context.Context, event *models.StoredEvent) error {
	*f.calls++
	if *f.calls == f.failOn {
		return errors.New("simulated insert failure")
	}
	return f.inner.Insert(ctx, event)
}

func (f *flakyStore) Update(ctx context.Context, event *models.StoredEvent) error {
	return f.inner.Update(ctx, event)
}

func TestReconcilerSyntheticIdentityForMissingExternalID(t *testing.T) {
	store := newMemoryEventStore()
	reconciler := NewUpsertReconciler(store)

	event := testEvent("No Tag Ride", "2025-09-01", "")
	if _, err := reconciler.Store(context.Background(), []*models.Event{event}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	for pk := range store.byPK {
		want := models.CreateEventPK(models.SourceAERC,
			models.GenerateEventID("No Tag Ride", "2025-09-01", models.SourceAERC))
		if pk != want {
			t.Errorf("PK = %q, want derived identity %q", pk, want)
		}
	}
}
