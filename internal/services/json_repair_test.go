package services

import (
	"encoding/json"
	"testing"
)

func TestRepairJSONValidInputUnchanged(t *testing.T) {
	inputs := []string{
		`[{"rideName": "Moab Canyons Pioneer", "date": "2025-10-10"}]`,
		`{"rideName": "Fort Howes"}`,
		`[]`,
		`[{"note": "brackets in strings: }] stay put"}]`,
	}
	for _, input := range inputs {
		if got := RepairJSON(input); got != input {
			t.Errorf("RepairJSON(%q) = %q, want input unchanged", input, got)
		}
	}
}

func TestRepairJSONTrailingComma(t *testing.T) {
	got := RepairJSON(`[{"a": 1},]`)
	if got != `[{"a": 1}]` {
		t.Errorf("got %q, want trailing comma removed", got)
	}
	if !json.Valid([]byte(got)) {
		t.Errorf("repaired output %q is not valid JSON", got)
	}
}

func TestRepairJSONMissingComma(t *testing.T) {
	got := RepairJSON(`[{"a": 1} {"b": 2}]`)
	var events []map[string]any
	if err := json.Unmarshal([]byte(got), &events); err != nil {
		t.Fatalf("repaired output %q does not decode: %v", got, err)
	}
	if len(events) != 2 {
		t.Errorf("decoded %d objects, want 2", len(events))
	}
}

func TestRepairJSONUnquotedKeys(t *testing.T) {
	got := RepairJSON(`{rideName: "Owyhee Spring", date: "2025-05-02"}`)
	var event map[string]any
	if err := json.Unmarshal([]byte(got), &event); err != nil {
		t.Fatalf("repaired output %q does not decode: %v", got, err)
	}
	if event["rideName"] != "Owyhee Spring" {
		t.Errorf("rideName = %v, want Owyhee Spring", event["rideName"])
	}
}

func TestRepairJSONSingleQuotes(t *testing.T) {
	got := RepairJSON(`[{'rideName': 'Tevis Cup'}]`)
	var events []map[string]any
	if err := json.Unmarshal([]byte(got), &events); err != nil {
		t.Fatalf("repaired output %q does not decode: %v", got, err)
	}
	if events[0]["rideName"] != "Tevis Cup" {
		t.Errorf("rideName = %v, want Tevis Cup", events[0]["rideName"])
	}
}

func TestRepairJSONBalancesBrackets(t *testing.T) {
	got := RepairJSON(`[{"rideName": "Cut Off Ride"`)
	if !json.Valid([]byte(got)) {
		t.Errorf("repaired output %q is not valid JSON", got)
	}
}

func TestCleanJSONResponseStripsFences(t *testing.T) {
	response := "```json\n[{\"rideName\": \"Moab\"}]\n```"
	got := CleanJSONResponse(response)
	if got != `[{"rideName": "Moab"}]` {
		t.Errorf("got %q, want fence-stripped array", got)
	}
}

func TestCleanJSONResponseKeepsOutermostArray(t *testing.T) {
	response := `Here are the events I found: [{"rideName": "Moab"}] Let me know if you need more.`
	got := CleanJSONResponse(response)
	if got != `[{"rideName": "Moab"}]` {
		t.Errorf("got %q, want surrounding prose removed", got)
	}
}

func TestParseEventArraySingleObject(t *testing.T) {
	events, err := ParseEventArray(`{"rideName": "Lone Ride"}`)
	if err != nil {
		t.Fatalf("ParseEventArray: %v", err)
	}
	if len(events) != 1 || events[0]["rideName"] != "Lone Ride" {
		t.Errorf("got %v, want single wrapped object", events)
	}
}

// TestParseEventArraySalvage checks the last-resort path: a broken array
// whose complete objects are individually valid.
func TestParseEventArraySalvage(t *testing.T) {
	response := `[{"rideName": "Good One"}, {"rideName": "Broken", "date": }]`
	events, err := ParseEventArray(response)
	if err != nil {
		t.Fatalf("ParseEventArray: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("salvaged %d events, want 1", len(events))
	}
	if events[0]["rideName"] != "Good One" {
		t.Errorf("rideName = %v, want Good One", events[0]["rideName"])
	}
}

func TestParseEventArrayRejectsGarbage(t *testing.T) {
	if _, err := ParseEventArray("no json here at all"); err == nil {
		t.Error("expected an error for unparseable input")
	}
}
