package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timeLayout is how started_at is stored. Fixed-width UTC keeps the column
// sortable as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse started_at: %w", err)
	}
	return t, nil
}

// marshalDetails converts run details to JSON TEXT.
// Go's json encoder sorts map keys, so equal maps store identical text.
func marshalDetails(details map[string]string) (string, error) {
	if len(details) == 0 {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // Keep "<" and ">" in messages readable
	if err := enc.Encode(details); err != nil {
		return "", fmt.Errorf("marshal details: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalDetails parses JSON TEXT to run details.
func unmarshalDetails(data string) (map[string]string, error) {
	details := map[string]string{}
	if data == "" || data == "{}" {
		return details, nil
	}
	if err := json.Unmarshal([]byte(data), &details); err != nil {
		return nil, fmt.Errorf("unmarshal details: %w", err)
	}
	return details, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
