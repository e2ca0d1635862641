package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// dateLayouts are the accepted query date formats, tried in order.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseQuery deserializes and validates a query message. A missing date
// defaults to the current time of the package clock; a missing ID is
// derived from the message body.
func ParseQuery(raw RawMessage) (Query, error) {
	var rq RawQuery
	if err := json.Unmarshal(raw.Value, &rq); err != nil {
		return Query{}, fmt.Errorf("parse query: %w", err)
	}

	op, err := ParseOperation(rq.Operation)
	if err != nil {
		return Query{}, fmt.Errorf("parse query: %w", err)
	}

	date, err := ParseDate(rq.Date)
	if err != nil {
		return Query{}, fmt.Errorf("parse query: %w", err)
	}

	region, err := parseRegion(rq)
	if err != nil {
		return Query{}, fmt.Errorf("parse query: %w", err)
	}

	id := strings.TrimSpace(rq.ID)
	if id == "" {
		id = generateID(raw.Value)
	}

	return Query{
		ID:        id,
		Operation: op,
		Date:      date,
		Region:    region,
		Area:      rq.Area,
	}, nil
}

// ParseOperation validates an operation name.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OpHighRisk, OpBurnedArea, OpForestDensity:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// ParseDate accepts RFC 3339 timestamps or YYYY-MM-DD dates. An empty
// string yields the current time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want RFC3339 or YYYY-MM-DD", s)
}

func parseRegion(rq RawQuery) (Region, error) {
	if len(rq.Region) > 0 && string(rq.Region) != "null" {
		name := rq.RegionName
		if name == "" {
			name = "custom"
		}
		return RegionFromGeoJSON(name, rq.Region)
	}
	if rq.RegionName != "" {
		return PresetRegion(rq.RegionName)
	}
	return Region{}, fmt.Errorf("%w: region or region_name is required", ErrInvalidRegion)
}

// generateID derives a deterministic query ID from the message body so
// replays of the same query produce the same result key.
func generateID(body []byte) string {
	hash := sha256.Sum256(body)
	return "query-" + hex.EncodeToString(hash[:8])
}

// NewResult stamps a result for q with the package clock.
func NewResult(q Query, status Status) Result {
	return Result{
		QueryID:     q.ID,
		Operation:   q.Operation,
		Region:      q.Region.Name,
		Date:        q.Date,
		Status:      status,
		ProcessedAt: now(),
	}
}

// SerializeResult marshals a result into an output message keyed by query ID.
func SerializeResult(r Result) (OutputMessage, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputMessage{}, fmt.Errorf("serialize result: %w", err)
	}
	return OutputMessage{
		Key:   []byte(r.QueryID),
		Value: data,
		Headers: map[string]string{
			"operation":    string(r.Operation),
			"status":       string(r.Status),
			"processed_at": r.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
