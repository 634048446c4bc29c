package services

import (
	"fmt"
	"strings"
)

// EmptyInputError indicates the pipeline was handed an empty or blank
// HTML document. Fatal for that document; never retried here.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "input HTML is empty"
}

// NoEventsFoundError indicates the document parsed but contains no
// recognizable event containers at all. This is a structural failure,
// distinct from "zero valid events after parsing".
type NoEventsFoundError struct {
	Selector string
}

func (e *NoEventsFoundError) Error() string {
	return fmt.Sprintf("no event containers found (selector %q)", e.Selector)
}

// AIExtractionError indicates every extraction strategy (schema prompt,
// plain-prompt retries, fallback model) was exhausted for one chunk.
type AIExtractionError struct {
	ChunkIndex int
	ChunkSize  int
	Err        error
}

func (e *AIExtractionError) Error() string {
	return fmt.Sprintf("ai extraction failed for chunk %d (%d bytes): %v", e.ChunkIndex, e.ChunkSize, e.Err)
}

func (e *AIExtractionError) Unwrap() error {
	return e.Err
}

// ValidationError reports every mandatory field an event is missing, not
// just the first, plus any fields that failed type coercion.
type ValidationError struct {
	EventName string
	Missing   []string
	Invalid   []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, ", "))
	}
	name := e.EventName
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("event %q failed validation: %s", name, strings.Join(parts, "; "))
}
