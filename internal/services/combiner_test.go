package services

import (
	"testing"

	"trailblaze-events-scraper/internal/models"
)

func rawDay(rideID, name, date string, distances ...string) models.RawEvent {
	event := models.RawEvent{
		models.RawKeyName:      name,
		models.RawKeyDateStart: date,
		models.RawKeyLocation:  "Hwy 191, Moab UT",
	}
	if rideID != "" {
		event[models.RawKeyRideID] = rideID
	}
	if len(distances) > 0 {
		event[models.RawKeyDistances] = distances
	}
	return event
}

// TestCombineThreeDayGroup checks the merge contract for a multi-day
// listing published as one row per day.
func TestCombineThreeDayGroup(t *testing.T) {
	combiner := NewEventCombiner()

	combined := combiner.Combine([]models.RawEvent{
		rawDay("1558", "Moab Canyons Pioneer", "2025-10-10", "25", "50"),
		rawDay("1558", "Moab Canyons Pioneer", "2025-10-11", "25", "50"),
		rawDay("1558", "Moab Canyons Pioneer", "2025-10-12", "25", "55"),
	})

	if len(combined) != 1 {
		t.Fatalf("expected 1 combined event, got %d", len(combined))
	}
	event := combined[0]

	if days := event.Int(models.RawKeyRideDays); days != 3 {
		t.Errorf("ride_days = %d, want 3", days)
	}
	if !event.Bool(models.RawKeyIsMultiDay) {
		t.Error("expected is_multi_day_event true")
	}
	if !event.Bool(models.RawKeyIsPioneer) {
		t.Error("expected is_pioneer_ride true for a 3-day span")
	}
	if start := event.String(models.RawKeyDateStart); start != "2025-10-10" {
		t.Errorf("date_start = %q, want 2025-10-10", start)
	}
	if end := event.String(models.RawKeyDateEnd); end != "2025-10-12" {
		t.Errorf("date_end = %q, want 2025-10-12", end)
	}

	distances := event.Strings(models.RawKeyDistances)
	if len(distances) != 3 {
		t.Errorf("distances = %v, want the 3 distinct values", distances)
	}
}

func TestCombineTwoDayNotPioneer(t *testing.T) {
	combiner := NewEventCombiner()

	combined := combiner.Combine([]models.RawEvent{
		rawDay("902", "Owyhee Spring", "2025-05-02", "50"),
		rawDay("902", "Owyhee Spring", "2025-05-03", "50"),
	})

	event := combined[0]
	if days := event.Int(models.RawKeyRideDays); days != 2 {
		t.Errorf("ride_days = %d, want 2", days)
	}
	if !event.Bool(models.RawKeyIsMultiDay) {
		t.Error("expected is_multi_day_event true")
	}
	if event.Bool(models.RawKeyIsPioneer) {
		t.Error("a 2-day ride must not be a pioneer ride")
	}
}

func TestCombineFieldUnion(t *testing.T) {
	combiner := NewEventCombiner()

	first := rawDay("77", "Fort Howes", "2025-06-07", "50")
	second := rawDay("77", "Fort Howes", "2025-06-08", "25")
	second[models.RawKeyRideManager] = "Sam Manager"
	second[models.RawKeyHasIntroRide] = true

	combined := combiner.Combine([]models.RawEvent{first, second})
	event := combined[0]

	if manager := event.String(models.RawKeyRideManager); manager != "Sam Manager" {
		t.Errorf("ride_manager = %q, want union from second row", manager)
	}
	if !event.Bool(models.RawKeyHasIntroRide) {
		t.Error("has_intro_ride should be true if true for any group member")
	}
}

// TestCombineSingletonsPassThrough checks that identity-less rows stay
// separate and keep their per-row signals.
func TestCombineSingletonsPassThrough(t *testing.T) {
	combiner := NewEventCombiner()

	a := rawDay("", "Ride A", "2025-04-01", "50")
	b := rawDay("", "Ride A", "2025-04-01", "50")
	a[models.RawKeyIsPioneer] = true
	a[models.RawKeyRideDays] = 3

	combined := combiner.Combine([]models.RawEvent{a, b})
	if len(combined) != 2 {
		t.Fatalf("expected 2 singleton events, got %d", len(combined))
	}
	if !combined[0].Bool(models.RawKeyIsPioneer) {
		t.Error("singleton per-row pioneer signal must survive")
	}
	if combined[1].Bool(models.RawKeyIsPioneer) {
		t.Error("second singleton must not inherit the first's signals")
	}
}

func TestCombineDayCountFallsBackToGroupSize(t *testing.T) {
	combiner := NewEventCombiner()

	combined := combiner.Combine([]models.RawEvent{
		rawDay("31", "Mystery Ride", "not-a-date", "50"),
		rawDay("31", "Mystery Ride", "also-bad", "25"),
		rawDay("31", "Mystery Ride", "still-bad", "30"),
	})

	event := combined[0]
	if days := event.Int(models.RawKeyRideDays); days != 3 {
		t.Errorf("ride_days = %d, want group-size fallback of 3", days)
	}
}

// Rows of a multi-day listing sometimes all carry the same date. The
// merged event must still report at least one day per row.
func TestCombineSameDateGroupUsesRowCount(t *testing.T) {
	combiner := NewEventCombiner()

	combined := combiner.Combine([]models.RawEvent{
		rawDay("99", "Ozark Highlands", "2025-09-12", "30"),
		rawDay("99", "Ozark Highlands", "2025-09-12", "50"),
		rawDay("99", "Ozark Highlands", "2025-09-12", "75"),
	})

	if len(combined) != 1 {
		t.Fatalf("expected 1 combined event, got %d", len(combined))
	}
	event := combined[0]

	if days := event.Int(models.RawKeyRideDays); days != 3 {
		t.Errorf("ride_days = %d, want row count 3 when dates collapse to one day", days)
	}
	if !event.Bool(models.RawKeyIsMultiDay) {
		t.Error("expected is_multi_day_event to be true")
	}
	if !event.Bool(models.RawKeyIsPioneer) {
		t.Error("expected is_pioneer_ride to be true for a 3-row group")
	}

	twoRow := combiner.Combine([]models.RawEvent{
		rawDay("100", "Flint Hills", "2025-09-12", "30"),
		rawDay("100", "Flint Hills", "2025-09-12", "50"),
	})
	if days := twoRow[0].Int(models.RawKeyRideDays); days != 2 {
		t.Errorf("ride_days = %d, want 2 for a two-row same-date group", days)
	}
	if twoRow[0].Bool(models.RawKeyIsPioneer) {
		t.Error("two-day group must not be flagged pioneer")
	}
}
