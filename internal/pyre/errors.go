// Package pyre drives one external Pyre server through the
// incremental-versus-full consistency protocol: sandbox session lifecycle,
// scripted repository updates with profile-log synchronization, and the
// final error diff with timing telemetry.
package pyre

import (
	"encoding/json"
	"fmt"
)

// Error is one structured diagnostic reported by the checker.
// Equality is structural; the comparator diffs slices of these directly.
type Error struct {
	Line        int    `json:"line"`
	Column      int    `json:"column"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// MalformedOutputError means the checker exited with an accepted code but
// emitted content this tool cannot interpret. Distinct from
// environment.UnexpectedReturnCodeError: the process was fine, its output
// was not.
type MalformedOutputError struct {
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return "cannot interpret pyre output: " + e.Reason
}

// ErrorFromJSON builds an Error from one element of the checker's JSON
// error array. Every field is required; a missing key is a
// *MalformedOutputError, never a default-filled record.
func ErrorFromJSON(record map[string]any) (Error, error) {
	line, ok := asInt(record["line"])
	if !ok {
		return Error{}, missingKey("line")
	}
	column, ok := asInt(record["column"])
	if !ok {
		return Error{}, missingKey("column")
	}
	path, ok := record["path"].(string)
	if !ok {
		return Error{}, missingKey("path")
	}
	description, ok := record["description"].(string)
	if !ok {
		return Error{}, missingKey("description")
	}
	return Error{Line: line, Column: column, Path: path, Description: description}, nil
}

// parseErrors decodes the checker's stdout as a JSON array of error records.
func parseErrors(stdout string) ([]Error, error) {
	var records []map[string]any
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		return nil, &MalformedOutputError{Reason: fmt.Sprintf("invalid JSON error array: %v", err)}
	}
	errors := make([]Error, 0, len(records))
	for _, record := range records {
		e, err := ErrorFromJSON(record)
		if err != nil {
			return nil, err
		}
		errors = append(errors, e)
	}
	return errors, nil
}

func missingKey(key string) error {
	return &MalformedOutputError{Reason: fmt.Sprintf("missing key %q", key)}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}
