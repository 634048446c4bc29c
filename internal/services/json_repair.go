package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// JSON repair for AI responses. The model is treated as a black box with
// no guarantee of syntactic correctness; near-valid JSON is common
// (markdown fences, trailing commas, missing commas between objects,
// unbalanced brackets, unquoted keys, single quotes). Each repair pass
// is conservative: already-valid JSON passes through unchanged.

var unquotedKeyRe = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

// CleanJSONResponse strips markdown code fences and surrounding chatter
// from a model response, keeping the outermost JSON array (or object)
// span.
func CleanJSONResponse(response string) string {
	cleaned := strings.TrimSpace(response)

	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	}
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	if strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	// Models often wrap the JSON in prose; keep the outermost bracketed
	// span when one exists.
	if span := outermostSpan(cleaned, '[', ']'); span != "" {
		return span
	}
	if span := outermostSpan(cleaned, '{', '}'); span != "" {
		return span
	}
	return cleaned
}

// outermostSpan returns the substring from the first open delimiter to
// the last close delimiter, or "" when the pair is absent or inverted.
func outermostSpan(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// RepairJSON applies the repair passes to a near-valid JSON string.
// Valid input is returned unchanged.
func RepairJSON(s string) string {
	if json.Valid([]byte(s)) {
		return s
	}

	repaired := normalizeQuotes(s)
	repaired = unquotedKeyRe.ReplaceAllString(repaired, `$1"$2":`)
	repaired = insertMissingCommas(repaired)
	repaired = removeTrailingCommas(repaired)
	repaired = balanceBrackets(repaired)

	return repaired
}

// ParseEventArray decodes a model response into a list of raw event
// objects, repairing the JSON when the straight parse fails. As a last
// resort, the syntactically complete objects found in the string are
// reassembled into a fresh array.
func ParseEventArray(response string) ([]map[string]any, error) {
	cleaned := CleanJSONResponse(response)

	if events, err := decodeEventArray(cleaned); err == nil {
		return events, nil
	}

	repaired := RepairJSON(cleaned)
	if events, err := decodeEventArray(repaired); err == nil {
		return events, nil
	}

	if salvaged := extractCompleteObjects(repaired); salvaged != "" {
		if events, err := decodeEventArray(salvaged); err == nil {
			return events, nil
		}
	}

	return nil, fmt.Errorf("response is not parseable JSON after repair")
}

// decodeEventArray accepts either a bare array of objects or a single
// object (wrapped into a one-element list).
func decodeEventArray(s string) ([]map[string]any, error) {
	var events []map[string]any
	if err := json.Unmarshal([]byte(s), &events); err == nil {
		return events, nil
	}

	var single map[string]any
	if err := json.Unmarshal([]byte(s), &single); err == nil {
		return []map[string]any{single}, nil
	}

	return nil, fmt.Errorf("not a JSON array or object")
}

// normalizeQuotes converts stray single quotes to double quotes outside
// double-quoted string literals.
func normalizeQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
			b.WriteByte(ch)
		case '\'':
			b.WriteByte('"')
		default:
			b.WriteByte(ch)
		}
	}

	return b.String()
}

// insertMissingCommas adds the comma between adjacent objects or arrays
// ("}{", "][", "}[", "]{" with only whitespace between).
func insertMissingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		b.WriteByte(ch)
		if inString {
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			continue
		}
		if ch == '}' || ch == ']' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '{' || s[j] == '[' || s[j] == '"') {
				b.WriteByte(',')
			}
		}
	}

	return b.String()
}

// removeTrailingCommas drops a comma directly preceding a closing
// bracket or brace, outside string literals.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			b.WriteByte(ch)
			continue
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(ch)
	}

	return b.String()
}

// balanceBrackets appends closers for unmatched opening brackets/braces
// and drops unmatched closers, scanning outside string literals.
func balanceBrackets(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
			b.WriteByte(ch)
		case '{', '[':
			stack = append(stack, ch)
			b.WriteByte(ch)
		case '}', ']':
			want := byte('{')
			if ch == ']' {
				want = '['
			}
			if len(stack) > 0 && stack[len(stack)-1] == want {
				stack = stack[:len(stack)-1]
				b.WriteByte(ch)
			}
			// Unmatched closer: dropped.
		default:
			b.WriteByte(ch)
		}
	}

	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}

	return b.String()
}

// extractCompleteObjects pulls every top-level balanced, individually
// valid object out of a broken array and reassembles them. Returns ""
// when nothing salvageable is found.
func extractCompleteObjects(s string) string {
	var objects []string

	depth := 0
	start := -1
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						objects = append(objects, candidate)
					}
					start = -1
				}
			}
		}
	}

	if len(objects) == 0 {
		return ""
	}
	return "[" + strings.Join(objects, ",") + "]"
}
