// ABOUTME: Loosely typed CRM record as returned by the Zoho REST API
// ABOUTME: Accessors tolerate missing, null or oddly typed fields
package crm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is one CRM record as decoded from JSON. Numbers are json.Number.
type Record map[string]any

// DecodeRecords decodes a JSON array of records keeping numeric precision.
func DecodeRecords(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

// ID returns the record id, or "" when absent.
func (r Record) ID() string {
	return scalarString(r["id"])
}

// Text returns a non-empty textual field or def.
func (r Record) Text(field, def string) string {
	if s := strings.TrimSpace(scalarString(r[field])); s != "" {
		return s
	}
	return def
}

// Owner returns Owner.name, or def when the record is unassigned.
func (r Record) Owner(def string) string {
	owner, ok := r["Owner"].(map[string]any)
	if !ok {
		return def
	}
	if name := strings.TrimSpace(scalarString(owner["name"])); name != "" {
		return name
	}
	return def
}

// Number returns a numeric field given as a number or numeric string, else 0.
// NaN and infinities count as malformed and also yield 0.
func (r Record) Number(field string) float64 {
	var f float64
	switch v := r[field].(type) {
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0
		}
		f = n
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Time parses an ISO-8601 timestamp field. Unparseable values are nil.
func (r Record) Time(field string) *time.Time {
	s, ok := r[field].(string)
	if !ok || s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// Raw returns the full record as JSON.
func (r Record) Raw() json.RawMessage {
	data, err := json.Marshal(r)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
