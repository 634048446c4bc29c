package services

import (
	"errors"
	"testing"

	"trailblaze-events-scraper/internal/models"
)

func validRaw() models.RawEvent {
	return models.RawEvent{
		models.RawKeyName:      "Owyhee Spring",
		models.RawKeyDateStart: "2025-05-02",
		models.RawKeyLocation:  "Oreana, ID",
	}
}

// TestNormalizerReportsAllMissingFields checks that validation collects
// every missing mandatory field instead of stopping at the first.
func TestNormalizerReportsAllMissingFields(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	_, err := normalizer.TransformAndValidate(models.RawEvent{})
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if len(verr.Missing) != 3 {
		t.Errorf("Missing = %v, want all 3 mandatory fields", verr.Missing)
	}
}

func TestNormalizerAcceptedDateFormats(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	cases := map[string]string{
		"2025-05-02":           "2025-05-02",
		"05/02/2025":           "2025-05-02",
		"2025-05-02T08:00:00Z": "2025-05-02",
	}
	for input, want := range cases {
		raw := validRaw()
		raw[models.RawKeyDateStart] = input
		event, err := normalizer.TransformAndValidate(raw)
		if err != nil {
			t.Errorf("date %q: unexpected error %v", input, err)
			continue
		}
		if event.DateStart != want {
			t.Errorf("date %q normalized to %q, want %q", input, event.DateStart, want)
		}
	}
}

func TestNormalizerRejectsUnparseableDate(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	raw := validRaw()
	raw[models.RawKeyDateStart] = "sometime in May"
	if _, err := normalizer.TransformAndValidate(raw); err == nil {
		t.Error("expected an error for an unparseable date")
	}
}

func TestNormalizerDateEndDefaultsToStart(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	event, err := normalizer.TransformAndValidate(validRaw())
	if err != nil {
		t.Fatalf("TransformAndValidate: %v", err)
	}
	if event.DateEnd != event.DateStart {
		t.Errorf("DateEnd = %q, want start date %q", event.DateEnd, event.DateStart)
	}
}

func TestNormalizerHyphenLocationConvention(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	raw := validRaw()
	raw[models.RawKeyLocation] = "Brown County State Park - Nashville, IN"
	event, err := normalizer.TransformAndValidate(raw)
	if err != nil {
		t.Fatalf("TransformAndValidate: %v", err)
	}
	if event.Location.Name != "Brown County State Park - Nashville, IN" {
		t.Errorf("Location.Name = %q, want the full original string", event.Location.Name)
	}
	if event.Location.City != "Nashville" || event.Location.State != "IN" {
		t.Errorf("decomposed to %q/%q, want Nashville/IN", event.Location.City, event.Location.State)
	}
	if event.Location.Country != "USA" {
		t.Errorf("Country = %q, want USA", event.Location.Country)
	}
}

func TestNormalizerRawLocationPartsWin(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	raw := validRaw()
	raw[models.RawKeyLocation] = "Some Vague Place"
	raw[models.RawKeyCity] = "Stead"
	raw[models.RawKeyState] = "MB"
	event, err := normalizer.TransformAndValidate(raw)
	if err != nil {
		t.Fatalf("TransformAndValidate: %v", err)
	}
	if event.Location.City != "Stead" || event.Location.State != "MB" {
		t.Errorf("got %q/%q, want pre-decomposed parts to win", event.Location.City, event.Location.State)
	}
	if event.Location.Country != "Canada" {
		t.Errorf("Country = %q, want Canada inferred from the province", event.Location.Country)
	}
}

func TestNormalizerURLRules(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	cases := []struct {
		input string
		want  string
	}{
		{"https://example.com/ride", "https://example.com/ride"},
		{"example.com/ride", "https://example.com/ride"},
		{"not-a-url", ""},
		{"has spaces.com", ""},
		{"nodots", ""},
		{"", ""},
	}
	for _, tc := range cases {
		raw := validRaw()
		if tc.input != "" {
			raw[models.RawKeyWebsite] = tc.input
		}
		event, err := normalizer.TransformAndValidate(raw)
		if err != nil {
			t.Fatalf("TransformAndValidate(%q): %v", tc.input, err)
		}
		if event.WebsiteURL != tc.want {
			t.Errorf("URL %q normalized to %q, want %q", tc.input, event.WebsiteURL, tc.want)
		}
	}
}

func TestNormalizerDistanceDateInjection(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	raw := validRaw()
	raw[models.RawKeyDistances] = []string{"25", "50"}
	event, err := normalizer.TransformAndValidate(raw)
	if err != nil {
		t.Fatalf("TransformAndValidate: %v", err)
	}
	if len(event.Distances) != 2 {
		t.Fatalf("got %d distances, want 2", len(event.Distances))
	}
	for _, d := range event.Distances {
		if d.Date != "2025-05-02" {
			t.Errorf("distance %q has date %q, want the event start date", d.Distance, d.Date)
		}
	}
}

func TestNormalizerStructuredDistanceDatesClamped(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	raw := validRaw()
	raw[models.RawKeyDateEnd] = "2025-05-03"
	raw[models.RawKeyDistances] = []string{"25", "50"}
	raw[models.RawKeyEventDetails] = map[string]any{
		"distances": []map[string]any{
			{"distance": "25", "date": "2025-05-03", "startTime": "07:00"},
			{"distance": "50", "date": "2025-06-20"}, // outside the event span
		},
	}
	event, err := normalizer.TransformAndValidate(raw)
	if err != nil {
		t.Fatalf("TransformAndValidate: %v", err)
	}
	if event.Distances[0].Date != "2025-05-03" || event.Distances[0].StartTime != "07:00" {
		t.Errorf("distance 25 = %+v, want its structured date and start time", event.Distances[0])
	}
	if event.Distances[1].Date != "2025-05-02" {
		t.Errorf("distance 50 date = %q, want out-of-span date pulled to start", event.Distances[1].Date)
	}
}

func TestNormalizerSingleRideManagerContact(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	raw := validRaw()
	raw[models.RawKeyRideManager] = "Jane Doe"
	raw[models.RawKeyManagerEmail] = "jane@example.com"
	raw[models.RawKeyManagerPhone] = "(435) 555-0123"
	event, err := normalizer.TransformAndValidate(raw)
	if err != nil {
		t.Fatalf("TransformAndValidate: %v", err)
	}
	if len(event.Contacts) != 1 {
		t.Fatalf("got %d contacts, want exactly 1", len(event.Contacts))
	}
	contact := event.Contacts[0]
	if contact.Role != models.ContactRoleRideManager {
		t.Errorf("Role = %q, want %q", contact.Role, models.ContactRoleRideManager)
	}
	if contact.Name != "Jane Doe" || contact.Email != "jane@example.com" {
		t.Errorf("contact = %+v, want merged name and email", contact)
	}
}

func TestNormalizerDetailsBagKeepsNonCanonicalKeys(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	raw := validRaw()
	raw[models.RawKeyJudges] = []string{"Head Vet: Carol Doc"}
	raw[models.RawKeyMapLink] = "maps.google.com/?q=43.1,-116.5"
	event, err := normalizer.TransformAndValidate(raw)
	if err != nil {
		t.Fatalf("TransformAndValidate: %v", err)
	}
	if _, ok := event.EventDetails[models.RawKeyJudges]; !ok {
		t.Error("judges should land in the details bag")
	}
	if event.MapLink != "https://maps.google.com/?q=43.1,-116.5" {
		t.Errorf("MapLink = %q, want normalized map URL", event.MapLink)
	}
	if event.EventDetails["country"] != "USA" {
		t.Errorf("details country = %v, want USA", event.EventDetails["country"])
	}
}

func TestNormalizerDerivedFlags(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	raw := validRaw()
	raw[models.RawKeyDateEnd] = "2025-05-04"
	raw[models.RawKeyIsMultiDay] = true
	raw[models.RawKeyIsPioneer] = true
	raw[models.RawKeyRideDays] = 3
	event, err := normalizer.TransformAndValidate(raw)
	if err != nil {
		t.Fatalf("TransformAndValidate: %v", err)
	}
	if !event.IsMultiDay || !event.IsPioneer || event.RideDays != 3 {
		t.Errorf("flags = multiDay=%v pioneer=%v days=%d, want true/true/3",
			event.IsMultiDay, event.IsPioneer, event.RideDays)
	}

	// A pioneer claim without the day count to back it is dropped.
	raw = validRaw()
	raw[models.RawKeyIsPioneer] = true
	event, err = normalizer.TransformAndValidate(raw)
	if err != nil {
		t.Fatalf("TransformAndValidate: %v", err)
	}
	if event.IsPioneer {
		t.Error("pioneer flag must require at least 3 ride days")
	}
	if event.RideDays != 1 {
		t.Errorf("RideDays = %d, want default 1", event.RideDays)
	}
}

func TestNormalizerCoordinates(t *testing.T) {
	normalizer := NewNormalizer(models.SourceAERC)

	raw := validRaw()
	raw[models.RawKeyLatitude] = 43.05
	raw[models.RawKeyLongitude] = -116.72
	event, err := normalizer.TransformAndValidate(raw)
	if err != nil {
		t.Fatalf("TransformAndValidate: %v", err)
	}
	if event.Coordinates == nil {
		t.Fatal("expected coordinates on the event")
	}
	if event.Coordinates.Latitude != 43.05 {
		t.Errorf("Latitude = %v, want 43.05", event.Coordinates.Latitude)
	}

	raw = validRaw()
	raw[models.RawKeyLatitude] = 999.0
	raw[models.RawKeyLongitude] = -116.72
	event, err = normalizer.TransformAndValidate(raw)
	if err != nil {
		t.Fatalf("TransformAndValidate: %v", err)
	}
	if event.Coordinates != nil {
		t.Error("out-of-range coordinates must be dropped")
	}
}
