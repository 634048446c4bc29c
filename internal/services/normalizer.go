package services

import (
	"strings"
	"time"

	"trailblaze-events-scraper/internal/models"
)

// Normalizer converts combined raw event records into validated,
// strongly typed events. It is the single boundary where untyped
// extraction output becomes a checked schema; nothing downstream
// tolerates missing mandatory fields.
type Normalizer struct {
	source string
}

// NewNormalizer creates a normalizer producing events for one source
func NewNormalizer(source string) *Normalizer {
	if source == "" {
		source = models.SourceAERC
	}
	return &Normalizer{source: source}
}

// acceptedDateFormats, tried in order; first successful format wins.
var acceptedDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	time.RFC3339,
}

// canonicalRawKeys are the raw keys modeled first-class on the Event
// schema. Everything else lands verbatim in the EventDetails bag so no
// extraction signal is silently dropped.
var canonicalRawKeys = map[string]bool{
	models.RawKeyName:         true,
	models.RawKeySource:       true,
	models.RawKeyDateStart:    true,
	models.RawKeyDateEnd:      true,
	models.RawKeyLocation:     true,
	models.RawKeyRegion:       true,
	models.RawKeyDistances:    true,
	models.RawKeyRideManager:  true,
	models.RawKeyManagerEmail: true,
	models.RawKeyManagerPhone: true,
	models.RawKeyWebsite:      true,
	models.RawKeyFlyer:        true,
	models.RawKeyHasIntroRide: true,
	models.RawKeyIsCanceled:   true,
	models.RawKeyIsMultiDay:   true,
	models.RawKeyRideDays:     true,
}

// TransformAndValidate converts one raw event into a validated Event.
// All missing mandatory fields are reported together in a single
// ValidationError, not just the first.
func (n *Normalizer) TransformAndValidate(raw models.RawEvent) (*models.Event, error) {
	verr := &ValidationError{EventName: raw.String(models.RawKeyName)}

	for _, required := range []string{models.RawKeyName, models.RawKeyDateStart, models.RawKeyLocation} {
		if !raw.Has(required) {
			verr.Missing = append(verr.Missing, required)
		}
	}
	if len(verr.Missing) > 0 {
		return nil, verr
	}

	dateStart, ok := parseEventDate(raw.String(models.RawKeyDateStart))
	if !ok {
		verr.Invalid = append(verr.Invalid, models.RawKeyDateStart)
	}
	dateEnd := dateStart
	if rawEnd := raw.String(models.RawKeyDateEnd); rawEnd != "" {
		if parsed, endOK := parseEventDate(rawEnd); endOK {
			dateEnd = parsed
		} else {
			verr.Invalid = append(verr.Invalid, models.RawKeyDateEnd)
		}
	}
	if len(verr.Invalid) > 0 {
		return nil, verr
	}

	event := &models.Event{
		Name:      raw.String(models.RawKeyName),
		Source:    n.source,
		EventType: models.EventTypeEndurance,
		DateStart: dateStart,
		DateEnd:   dateEnd,
	}
	if source := raw.String(models.RawKeySource); models.ValidateSource(source) {
		event.Source = source
	}

	event.Location = n.decomposeRawLocation(raw)

	if region := raw.String(models.RawKeyRegion); models.ValidateRegion(region) {
		event.Region = region
	}

	event.Distances = n.buildDistances(raw, dateStart, dateEnd)
	event.Contacts = n.buildContacts(raw)

	if url, ok := normalizeURL(raw.String(models.RawKeyWebsite)); ok {
		event.WebsiteURL = url
	}
	if url, ok := normalizeURL(raw.String(models.RawKeyFlyer)); ok {
		event.RegistrationURL = url
	}
	if url, ok := normalizeURL(raw.String(models.RawKeyMapLink)); ok {
		event.MapLink = url
	}

	if raw.Has(models.RawKeyLatitude) && raw.Has(models.RawKeyLongitude) {
		coords := models.Coordinates{
			Latitude:  raw.Float(models.RawKeyLatitude),
			Longitude: raw.Float(models.RawKeyLongitude),
		}
		if models.ValidateCoordinates(coords) {
			event.Coordinates = &coords
		}
	}

	event.IsCanceled = raw.Bool(models.RawKeyIsCanceled)
	event.HasIntroRide = raw.Bool(models.RawKeyHasIntroRide)
	event.ExternalID = raw.String(models.RawKeyRideID)

	event.RideDays = raw.Int(models.RawKeyRideDays)
	if event.RideDays < 1 {
		event.RideDays = 1
	}
	event.IsMultiDay = raw.Bool(models.RawKeyIsMultiDay)
	if event.IsMultiDay && event.RideDays < 2 {
		event.RideDays = 2
	}
	event.IsPioneer = raw.Bool(models.RawKeyIsPioneer) && event.RideDays >= 3

	event.EventDetails = n.buildDetails(raw, event)

	return event, nil
}

// parseEventDate tries the accepted date formats in order and returns
// the ISO form of the first match.
func parseEventDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, format := range acceptedDateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// decomposeRawLocation splits the raw location string into structured
// parts. Extraction may already have decomposed it (AI detail output);
// those values win. A "<name> - <city>, <state>" hyphen convention used
// by some sources is honored before the comma-split heuristics.
func (n *Normalizer) decomposeRawLocation(raw models.RawEvent) models.Location {
	locationText := raw.String(models.RawKeyLocation)

	location := models.Location{Name: locationText, Country: "USA"}

	if hyphenated, ok := splitHyphenConvention(locationText); ok {
		location.City = hyphenated.City
		location.State = hyphenated.State
		location.Country = hyphenated.Country
	} else {
		decomposed := DecomposeLocation(locationText)
		location.City = decomposed.City
		location.State = decomposed.State
		location.Country = decomposed.Country
	}

	if city := raw.String(models.RawKeyCity); city != "" {
		location.City = city
	}
	if state := raw.String(models.RawKeyState); state != "" {
		location.State = state
		if canadianProvinces[strings.ToUpper(state)] {
			location.Country = "Canada"
		}
	}
	if country := raw.String(models.RawKeyCountry); country != "" {
		location.Country = canonicalCountry(country)
	}

	return location
}

// splitHyphenConvention handles "<venue> - <city>, <state>" strings.
func splitHyphenConvention(location string) (models.Location, bool) {
	idx := strings.LastIndex(location, " - ")
	if idx < 0 {
		return models.Location{}, false
	}
	tail := strings.TrimSpace(location[idx+3:])
	segments := strings.Split(tail, ",")
	if len(segments) != 2 {
		return models.Location{}, false
	}
	city := strings.TrimSpace(segments[0])
	state := strings.ToUpper(strings.TrimSpace(segments[1]))
	if city == "" || (!usStates[state] && !canadianProvinces[state]) {
		return models.Location{}, false
	}
	country := "USA"
	if canadianProvinces[state] {
		country = "Canada"
	}
	return models.Location{City: city, State: state, Country: country}, true
}

// normalizeURL validates and canonicalizes a URL-ish string: rejects
// whitespace, dotless values, and the "not-a-url" sentinel; prefixes
// bare domains with https.
func normalizeURL(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "not-a-url" {
		return "", false
	}
	if strings.ContainsAny(value, " \t\n") {
		return "", false
	}
	if !strings.Contains(value, ".") {
		return "", false
	}
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		value = "https://" + value
	}
	return value, true
}

// buildDistances wraps the raw distance strings in the structured form,
// attaching per-distance dates from the AI's structured output when one
// exists and injecting the event's start date otherwise. Dates outside
// [dateStart, dateEnd] are pulled back to the start date so the
// schedule invariant holds.
func (n *Normalizer) buildDistances(raw models.RawEvent, dateStart, dateEnd string) []models.Distance {
	flat := raw.Strings(models.RawKeyDistances)
	if len(flat) == 0 {
		return nil
	}

	structured := structuredDistanceIndex(raw)

	distances := make([]models.Distance, 0, len(flat))
	for _, d := range flat {
		distance := models.Distance{Distance: d, Date: dateStart}
		if entry, ok := structured[d]; ok {
			if date, parsed := parseEventDate(stringField(entry, "date")); parsed && date >= dateStart && date <= dateEnd {
				distance.Date = date
			}
			if start := stringField(entry, "startTime", "start_time"); start != "" {
				distance.StartTime = start
			}
		}
		distances = append(distances, distance)
	}
	return distances
}

// structuredDistanceIndex maps distance strings to the structured
// entries the AI path stores in the details bag.
func structuredDistanceIndex(raw models.RawEvent) map[string]map[string]any {
	details, ok := raw[models.RawKeyEventDetails].(map[string]any)
	if !ok {
		return nil
	}
	list, ok := details["distances"].([]map[string]any)
	if !ok {
		// JSON round-trips degrade the slice type.
		if anyList, isAny := details["distances"].([]any); isAny {
			for _, item := range anyList {
				if m, isMap := item.(map[string]any); isMap {
					list = append(list, m)
				}
			}
		}
	}
	index := make(map[string]map[string]any, len(list))
	for _, entry := range list {
		if d := stringField(entry, "distance"); d != "" {
			index[d] = entry
		}
	}
	return index
}

// buildContacts produces exactly one Ride Manager contact when a
// manager name exists, merging in the independently extracted email and
// phone.
func (n *Normalizer) buildContacts(raw models.RawEvent) []models.Contact {
	manager := strings.TrimSpace(raw.String(models.RawKeyRideManager))
	if manager == "" {
		return nil
	}
	return []models.Contact{{
		Name:  manager,
		Role:  models.ContactRoleRideManager,
		Email: raw.String(models.RawKeyManagerEmail),
		Phone: raw.String(models.RawKeyManagerPhone),
	}}
}

// buildDetails assembles the catch-all details bag: every raw key not
// modeled first-class on the schema, plus derived signals worth keeping
// for diagnostics.
func (n *Normalizer) buildDetails(raw models.RawEvent, event *models.Event) map[string]any {
	details := make(map[string]any)

	if extra, ok := raw[models.RawKeyEventDetails].(map[string]any); ok {
		for k, v := range extra {
			details[k] = v
		}
	}

	for k, v := range raw {
		if canonicalRawKeys[k] || k == models.RawKeyEventDetails {
			continue
		}
		details[k] = v
	}

	// Derived flags ride along even though the schema models them, so a
	// storage backend without first-class columns loses nothing.
	details["is_multi_day_event"] = event.IsMultiDay
	details["is_pioneer_ride"] = event.IsPioneer
	details["ride_days"] = event.RideDays
	if event.Location.City != "" {
		details["city"] = event.Location.City
	}
	if event.Location.State != "" {
		details["state"] = event.Location.State
	}
	details["country"] = event.Location.Country

	if len(details) == 0 {
		return nil
	}
	return details
}
