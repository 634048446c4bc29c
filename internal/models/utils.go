package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateEventID creates a stable ID for an event from its identity fields
func GenerateEventID(name, dateStart, source string) string {
	normalizedName := strings.ToLower(strings.TrimSpace(name))
	normalizedDate := strings.TrimSpace(dateStart)
	normalizedSource := strings.ToUpper(strings.TrimSpace(source))

	input := fmt.Sprintf("%s|%s|%s", normalizedName, normalizedDate, normalizedSource)

	hash := sha256.Sum256([]byte(input))

	return "evt_" + hex.EncodeToString(hash[:])[:8]
}

// GenerateRunID creates a unique ID for one scraping run
func GenerateRunID(timestamp time.Time) string {
	input := fmt.Sprintf("run|%d", timestamp.UnixNano())
	hash := sha256.Sum256([]byte(input))
	return "run_" + hex.EncodeToString(hash[:])[:8]
}

// CreateEventPK builds the DynamoDB partition key for a stored event
func CreateEventPK(source, externalID string) string {
	return fmt.Sprintf("EVENT#%s#%s", strings.ToUpper(source), externalID)
}

// CreateEventSK builds the DynamoDB sort key for a stored event
func CreateEventSK(dateStart string) string {
	return "DATE#" + dateStart
}

// GenerateNameDateKey builds the GSI key used for the name+date identity
// fallback when no external ride id is available
func GenerateNameDateKey(name, dateStart string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.TrimSpace(dateStart)
}

// InclusiveDayCount returns the number of calendar days spanned by
// [start, end], both ISO dates, counting both endpoints. Returns 0 when
// either date fails to parse.
func InclusiveDayCount(start, end string) int {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return 0
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return 0
	}
	if e.Before(s) {
		s, e = e, s
	}
	return int(e.Sub(s).Hours()/24) + 1
}
