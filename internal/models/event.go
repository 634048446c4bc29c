package models

import "time"

// Event is the canonical, validated representation of one endurance ride.
// Instances are produced by the normalizer and are not mutated afterwards;
// a changed event is re-validated, not patched in place.
type Event struct {
	Name      string `json:"name"`
	Source    string `json:"source"`     // AERC|SERA|OTHER
	EventType string `json:"event_type"` // endurance|competitive_trail|intro

	// Scheduling (ISO dates, YYYY-MM-DD)
	DateStart string `json:"date_start"`
	DateEnd   string `json:"date_end,omitempty"`

	// Where
	Region      string       `json:"region,omitempty"` // AERC region short code
	Location    Location     `json:"location"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`

	// What
	Distances    []Distance `json:"distances,omitempty"`
	RideDays     int        `json:"ride_days,omitempty"`
	IsMultiDay   bool       `json:"is_multi_day_event"`
	IsPioneer    bool       `json:"is_pioneer_ride"`
	HasIntroRide bool       `json:"has_intro_ride"`
	IsCanceled   bool       `json:"is_canceled"`

	// Who
	Contacts []Contact `json:"contacts,omitempty"`

	// Links
	WebsiteURL      string `json:"website_url,omitempty"`
	RegistrationURL string `json:"registration_url,omitempty"` // ride flyer / entry form
	MapLink         string `json:"map_link,omitempty"`

	// Identity & extras
	ExternalID   string         `json:"external_id,omitempty"` // source-specific ride id
	EventDetails map[string]any `json:"event_details,omitempty"`
}

// Location is the decomposed venue of an event
type Location struct {
	Name    string `json:"name"`              // raw venue/location string
	City    string `json:"city,omitempty"`    // Stead, Moab, etc.
	State   string `json:"state,omitempty"`   // two-letter state or province code
	Country string `json:"country,omitempty"` // USA|Canada
}

// Coordinates represents geographical coordinates
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance is one ride distance offered on one day of an event
type Distance struct {
	Distance  string `json:"distance"`             // "50", "25 miles"
	Date      string `json:"date,omitempty"`       // ISO date of that ride day
	StartTime string `json:"start_time,omitempty"` // HH:MM if published
}

// Contact is a person attached to an event (ride manager, control judge, ...)
type Contact struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// StoredEvent is an Event plus its persistence identity. Events are never
// physically deleted by the pipeline; cancellation flips IsCanceled.
type StoredEvent struct {
	PK string `json:"PK" dynamodbav:"PK"`
	SK string `json:"SK" dynamodbav:"SK"`

	ID string `json:"id" dynamodbav:"ID"`

	// GSI key for the name+date identity fallback
	NameDateKey string `json:"name_date_key" dynamodbav:"NameDateKey"`

	Event

	CreatedAt time.Time `json:"created_at" dynamodbav:"CreatedAt"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"UpdatedAt"`
}

// UpsertResult summarizes one reconciler batch
type UpsertResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Source constants
const (
	SourceAERC  = "AERC"
	SourceSERA  = "SERA"
	SourceOther = "OTHER"
)

// Event type constants
const (
	EventTypeEndurance        = "endurance"
	EventTypeCompetitiveTrail = "competitive_trail"
	EventTypeIntro            = "intro"
)

// AERC region short codes
const (
	RegionCentral      = "CT"
	RegionMountain     = "MT"
	RegionMidwest      = "MW"
	RegionNortheast    = "NE"
	RegionNorthwest    = "NW"
	RegionPacificSouth = "PS"
	RegionSoutheast    = "SE"
	RegionSouthwest    = "SW"
	RegionWest         = "W"
	RegionUnknown      = "UNKNOWN"
)

// ContactRoleRideManager is the one contact role the canonical schema
// always models; judge roles ride along in EventDetails.
const ContactRoleRideManager = "Ride Manager"

// UnknownEventName is the sentinel used when no name can be extracted
const UnknownEventName = "Unknown"

// DefaultFutureDate is the sentinel assigned when no date can be extracted
const DefaultFutureDate = "2999-12-31"

// ValidRegions lists every recognized AERC region code
var ValidRegions = []string{
	RegionCentral, RegionMountain, RegionMidwest, RegionNortheast,
	RegionNorthwest, RegionPacificSouth, RegionSoutheast, RegionSouthwest,
	RegionWest,
}

// ValidateRegion checks if the region code is a known AERC region
func ValidateRegion(region string) bool {
	for _, r := range ValidRegions {
		if region == r {
			return true
		}
	}
	return false
}

// ValidateSource checks if the source is valid
func ValidateSource(source string) bool {
	switch source {
	case SourceAERC, SourceSERA, SourceOther:
		return true
	}
	return false
}

// ValidateEventType checks if the event type is valid
func ValidateEventType(eventType string) bool {
	switch eventType {
	case EventTypeEndurance, EventTypeCompetitiveTrail, EventTypeIntro:
		return true
	}
	return false
}

// ValidateCoordinates checks latitude/longitude ranges
func ValidateCoordinates(c Coordinates) bool {
	if c.Latitude < -90 || c.Latitude > 90 {
		return false
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return false
	}
	return true
}
