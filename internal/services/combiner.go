package services

import (
	"github.com/google/uuid"

	"trailblaze-events-scraper/internal/models"
)

// EventCombiner reconciles multi-row listings into single logical
// events. Sources publish one calendar row per day of a multi-day ride;
// rows sharing a ride identity key are one event split across rows.
//
// Grouping precedence: identity-key grouping always wins. The
// duplicate-distance day heuristic only ever applies to identity-less
// rows, and it runs in the DOM parser's per-row signal derivation, not
// here, so the two code paths cannot diverge.
type EventCombiner struct{}

// NewEventCombiner creates an event combiner
func NewEventCombiner() *EventCombiner {
	return &EventCombiner{}
}

// Combine groups raw events by ride identity key and merges each group
// into one logical event. Events without an identity key form singleton
// groups under a synthetic key and pass through unchanged. Input order
// of first appearance is preserved.
func (c *EventCombiner) Combine(events []models.RawEvent) []models.RawEvent {
	groups := make(map[string][]models.RawEvent)
	var order []string

	for _, event := range events {
		key := event.String(models.RawKeyRideID)
		if key == "" {
			key = "synthetic-" + uuid.NewString()
		}
		if _, exists := groups[key]; !exists {
			order = append(order, key)
		}
		groups[key] = append(groups[key], event)
	}

	combined := make([]models.RawEvent, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			combined = append(combined, group[0])
			continue
		}
		combined = append(combined, c.mergeGroup(group))
	}

	return combined
}

// mergeGroup merges all rows of one identity group into the first row.
func (c *EventCombiner) mergeGroup(group []models.RawEvent) models.RawEvent {
	base := models.RawEvent{}
	for k, v := range group[0] {
		base[k] = v
	}

	// Union in fields present on later rows but absent from the base.
	for _, event := range group[1:] {
		for k, v := range event {
			if !base.Has(k) {
				base[k] = v
			}
		}
	}

	base[models.RawKeyDistances] = c.unionDistances(group)

	dateStart, dateEnd := c.dateRange(group)
	base[models.RawKeyDateStart] = dateStart
	if dateEnd != dateStart {
		base[models.RawKeyDateEnd] = dateEnd
	} else {
		delete(base, models.RawKeyDateEnd)
	}

	for _, event := range group {
		if event.Bool(models.RawKeyHasIntroRide) {
			base[models.RawKeyHasIntroRide] = true
			break
		}
	}

	rideDays := models.InclusiveDayCount(dateStart, dateEnd)
	if rideDays < 2 {
		// Date parsing failed, or every row in the group carries the
		// same date (a common listing quirk for multi-day rides). The
		// row count is the best remaining signal, and a merged group
		// is multi-day by construction.
		rideDays = len(group)
	}

	base[models.RawKeyRideDays] = rideDays
	base[models.RawKeyIsMultiDay] = true
	if rideDays >= 3 {
		base[models.RawKeyIsPioneer] = true
	} else {
		delete(base, models.RawKeyIsPioneer)
	}

	return base
}

// unionDistances collects distinct distance entries across the group,
// preserving first-seen order.
func (c *EventCombiner) unionDistances(group []models.RawEvent) []string {
	var union []string
	seen := make(map[string]bool)
	for _, event := range group {
		for _, d := range event.Strings(models.RawKeyDistances) {
			if seen[d] {
				continue
			}
			seen[d] = true
			union = append(union, d)
		}
	}
	return union
}

// dateRange returns the min start and max end date across the group.
// ISO dates compare correctly as strings.
func (c *EventCombiner) dateRange(group []models.RawEvent) (string, string) {
	var min, max string
	for _, event := range group {
		for _, date := range []string{event.String(models.RawKeyDateStart), event.String(models.RawKeyDateEnd)} {
			if date == "" {
				continue
			}
			if min == "" || date < min {
				min = date
			}
			if max == "" || date > max {
				max = date
			}
		}
	}
	return min, max
}
