package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Operation names a layer the service can compute.
type Operation string

const (
	OpHighRisk      Operation = "high_risk"
	OpBurnedArea    Operation = "burned_area"
	OpForestDensity Operation = "forest_density"
)

// Status reports whether a result carries a layer.
type Status string

const (
	StatusOK     Status = "ok"
	StatusNoData Status = "no_data"
)

// RawQuery is the JSON body of a message on the query topic.
type RawQuery struct {
	ID         string          `json:"id"`
	Operation  string          `json:"operation"`
	Date       string          `json:"date,omitempty"`
	Region     json.RawMessage `json:"region,omitempty"`      // GeoJSON geometry
	RegionName string          `json:"region_name,omitempty"` // preset, e.g. "western"
	Area       bool            `json:"area,omitempty"`
}

// RawMessage represents an unprocessed message from the source topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Query is a validated request for one layer.
type Query struct {
	ID        string
	Operation Operation
	Date      time.Time
	Region    Region
	Area      bool
}

// Style describes how the display surface renders a layer.
type Style struct {
	Palette string  `json:"palette"`
	Opacity float64 `json:"opacity"`
}

// Layer is a named, styled raster ready for display.
type Layer struct {
	Name   string `json:"name"`
	Style  Style  `json:"style"`
	Raster Raster `json:"raster"`
}

// Result is the answer to a Query, published to the sink topic.
type Result struct {
	QueryID     string      `json:"query_id"`
	Operation   Operation   `json:"operation"`
	Region      string      `json:"region,omitempty"`
	Date        time.Time   `json:"date"`
	Status      Status      `json:"status"`
	Layer       *Layer      `json:"layer,omitempty"`
	Area        *AreaResult `json:"area,omitempty"`
	Error       string      `json:"error,omitempty"`
	ProcessedAt time.Time   `json:"processed_at"`
}

// OutputMessage is the serialized form destined for the sink topic.
type OutputMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
