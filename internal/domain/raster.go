package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Boolean cell encodings.
const (
	True  = 1.0
	False = 0.0
)

// Raster is a grid of numeric cells with a per-cell validity flag. Rasters
// are treated as immutable values: every operation returns a new raster.
type Raster struct {
	Grid   Grid
	Values []float64
	Valid  []bool
}

// NewRaster returns a raster over g with every cell set to no data.
func NewRaster(g Grid) Raster {
	return Raster{
		Grid:   g,
		Values: make([]float64, g.Len()),
		Valid:  make([]bool, g.Len()),
	}
}

// Fill returns a raster over g with every cell valid and set to v.
func Fill(g Grid, v float64) Raster {
	r := NewRaster(g)
	for i := range r.Values {
		r.Values[i] = v
		r.Valid[i] = true
	}
	return r
}

// FromValues builds a fully valid raster from row-major values.
func FromValues(g Grid, values []float64) (Raster, error) {
	if len(values) != g.Len() {
		return Raster{}, fmt.Errorf("raster: got %d values for %dx%d grid", len(values), g.Cols, g.Rows)
	}
	r := NewRaster(g)
	copy(r.Values, values)
	for i := range r.Valid {
		r.Valid[i] = true
	}
	return r, nil
}

// At returns the value of a cell and whether it holds data.
func (r Raster) At(col, row int) (float64, bool) {
	if col < 0 || col >= r.Grid.Cols || row < 0 || row >= r.Grid.Rows {
		return 0, false
	}
	i := r.Grid.Index(col, row)
	return r.Values[i], r.Valid[i]
}

// Set assigns a valid value to a cell.
func (r Raster) Set(col, row int, v float64) {
	i := r.Grid.Index(col, row)
	r.Values[i] = v
	r.Valid[i] = true
}

// Unset marks a cell as no data.
func (r Raster) Unset(col, row int) {
	i := r.Grid.Index(col, row)
	r.Values[i] = 0
	r.Valid[i] = false
}

// Sample returns the value of the cell containing a point.
func (r Raster) Sample(lon, lat float64) (float64, bool) {
	col, row, ok := r.Grid.CellAt(lon, lat)
	if !ok {
		return 0, false
	}
	return r.At(col, row)
}

// ValidCount returns the number of cells holding data.
func (r Raster) ValidCount() int {
	n := 0
	for _, ok := range r.Valid {
		if ok {
			n++
		}
	}
	return n
}

// Count returns the number of valid cells equal to v.
func (r Raster) Count(v float64) int {
	n := 0
	for i, ok := range r.Valid {
		if ok && r.Values[i] == v {
			n++
		}
	}
	return n
}

// Empty reports whether no cell holds data.
func (r Raster) Empty() bool {
	return r.ValidCount() == 0
}

// Clone returns a deep copy.
func (r Raster) Clone() Raster {
	out := Raster{Grid: r.Grid}
	out.Values = append([]float64(nil), r.Values...)
	out.Valid = append([]bool(nil), r.Valid...)
	return out
}

// Validate checks that the cell slices match the grid.
func (r Raster) Validate() error {
	if err := r.Grid.Validate(); err != nil {
		return err
	}
	if len(r.Values) != r.Grid.Len() || len(r.Valid) != r.Grid.Len() {
		return fmt.Errorf("raster: %d values and %d flags for %d cells", len(r.Values), len(r.Valid), r.Grid.Len())
	}
	return nil
}

// rasterJSON is the wire form shared by rasters and slices. No-data cells
// are encoded as null.
type rasterJSON struct {
	Time   *time.Time `json:"time,omitempty"`
	Grid   Grid       `json:"grid"`
	Values []*float64 `json:"values"`
}

func encodeRaster(r Raster) rasterJSON {
	out := rasterJSON{Grid: r.Grid, Values: make([]*float64, len(r.Values))}
	for i, v := range r.Values {
		if r.Valid[i] {
			out.Values[i] = &v
		}
	}
	return out
}

func decodeRaster(in rasterJSON) (Raster, error) {
	if err := in.Grid.Validate(); err != nil {
		return Raster{}, err
	}
	if len(in.Values) != in.Grid.Len() {
		return Raster{}, fmt.Errorf("raster: got %d values for %dx%d grid", len(in.Values), in.Grid.Cols, in.Grid.Rows)
	}
	r := NewRaster(in.Grid)
	for i, v := range in.Values {
		if v != nil {
			r.Values[i] = *v
			r.Valid[i] = true
		}
	}
	return r, nil
}

// MarshalJSON encodes the raster with null for no-data cells.
func (r Raster) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(encodeRaster(r))
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (r *Raster) UnmarshalJSON(data []byte) error {
	var in rasterJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode raster: %w", err)
	}
	out, err := decodeRaster(in)
	if err != nil {
		return err
	}
	*r = out
	return nil
}

// Slice is a time-stamped raster drawn from a collection.
type Slice struct {
	Time   time.Time
	Raster Raster
}

// MarshalJSON encodes the slice as a raster with a "time" field.
func (s Slice) MarshalJSON() ([]byte, error) {
	if err := s.Raster.Validate(); err != nil {
		return nil, err
	}
	out := encodeRaster(s.Raster)
	t := s.Time.UTC()
	out.Time = &t
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (s *Slice) UnmarshalJSON(data []byte) error {
	var in rasterJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode slice: %w", err)
	}
	if in.Time == nil {
		return fmt.Errorf("decode slice: missing time")
	}
	r, err := decodeRaster(in)
	if err != nil {
		return err
	}
	s.Time = in.Time.UTC()
	s.Raster = r
	return nil
}
