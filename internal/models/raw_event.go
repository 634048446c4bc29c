package models

// RawEvent is the untyped intermediate shape produced by both extraction
// paths (DOM parsing and AI extraction). It is a plain string-keyed map
// with a fixed key vocabulary; no invariants are enforced here. The
// normalizer is the single point where a RawEvent becomes a checked Event.
type RawEvent map[string]any

// RawEvent key vocabulary. Both extraction paths emit these keys; the
// combiner and normalizer read them. Values are strings unless noted.
const (
	RawKeyName         = "name"
	RawKeyRideID       = "ride_id"    // source ride identity key, absent if unknown
	RawKeyDateStart    = "date_start" // YYYY-MM-DD
	RawKeyDateEnd      = "date_end"   // YYYY-MM-DD
	RawKeyRegion       = "region"
	RawKeyLocation     = "location"
	RawKeyCity         = "city"
	RawKeyState        = "state"
	RawKeyCountry      = "country"
	RawKeyDistances    = "distances" // []string
	RawKeyRideManager  = "ride_manager"
	RawKeyManagerEmail = "manager_email"
	RawKeyManagerPhone = "manager_phone"
	RawKeyJudges       = "judges" // []string, "<role>: <name>"
	RawKeyWebsite      = "website_url"
	RawKeyFlyer        = "flyer_url"
	RawKeyMapLink      = "map_link"
	RawKeyLatitude     = "latitude"           // float64
	RawKeyLongitude    = "longitude"          // float64
	RawKeyIsCanceled   = "is_canceled"        // bool
	RawKeyHasIntroRide = "has_intro_ride"     // bool
	RawKeyIsMultiDay   = "is_multi_day_event" // bool
	RawKeyIsPioneer    = "is_pioneer_ride"    // bool
	RawKeyRideDays     = "ride_days"          // int
	RawKeyDescription  = "description"
	RawKeySource       = "source"
	RawKeyEventDetails = "event_details" // map[string]any of source extras
)

// String returns the string value for a key, or "" if absent or not a string.
func (r RawEvent) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the bool value for a key, false if absent or not a bool.
func (r RawEvent) Bool(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

// Int returns the int value for a key, handling the float64 shape that
// JSON decoding produces. Zero if absent.
func (r RawEvent) Int(key string) int {
	switch v := r[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float returns the float64 value for a key, 0 if absent.
func (r RawEvent) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Strings returns the string-slice value for a key, tolerating the
// []any shape that JSON decoding produces.
func (r RawEvent) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Has reports whether the key is present with a non-empty value.
func (r RawEvent) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return true
}
