package domain

import (
	"fmt"
	"math"
)

// Area reduction defaults, matching the hosted engine's reduceRegion call.
const (
	DefaultAreaScale     = 1000.0
	DefaultAreaMaxPixels = int64(1e9)
)

// AreaOptions bounds the cost of an area reduction.
type AreaOptions struct {
	// Target is the cell value that counts toward the area. True selects
	// the positive cells of a boolean raster.
	Target float64
	// Scale is the nominal evaluation resolution in meters.
	Scale float64
	// MaxPixels caps the number of evaluation cells.
	MaxPixels int64
	// BestEffort coarsens the scale instead of failing when MaxPixels is exceeded.
	BestEffort bool
}

// DefaultAreaOptions counts True cells at 1 km with a 1e9 pixel budget.
func DefaultAreaOptions() AreaOptions {
	return AreaOptions{
		Target:     True,
		Scale:      DefaultAreaScale,
		MaxPixels:  DefaultAreaMaxPixels,
		BestEffort: true,
	}
}

// AreaResult is the outcome of an area reduction.
type AreaResult struct {
	SquareMeters float64 `json:"square_meters"`
	Scale        float64 `json:"scale_meters"`
	Pixels       int64   `json:"pixels"`
	Approximate  bool    `json:"approximate"`
}

// SquareKilometers converts the area to km².
func (a AreaResult) SquareKilometers() float64 {
	return a.SquareMeters / 1e6
}

// AreaOf sums the ground area of cells of r equal to opts.Target inside
// region. The raster is sampled on an evaluation grid of opts.Scale meters
// laid over the region bounds; each evaluation cell whose centre lies in
// the region contributes its spherical footprint. The sum never exceeds
// the region's own area.
func AreaOf(r Raster, region Region, opts AreaOptions) (AreaResult, error) {
	if region.IsZero() {
		return AreaResult{}, fmt.Errorf("area: %w", ErrInvalidRegion)
	}
	if opts.Scale <= 0 {
		opts.Scale = DefaultAreaScale
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultAreaMaxPixels
	}

	b := region.Bounds()
	width, height := b.Max(0)-b.Min(0), b.Max(1)-b.Min(1)

	scale := opts.Scale
	approximate := false
	for {
		cell := scale / MetersPerDegree
		cols := int64(math.Ceil(width / cell))
		rows := int64(math.Ceil(height / cell))
		if cols*rows <= opts.MaxPixels {
			break
		}
		if !opts.BestEffort {
			return AreaResult{}, fmt.Errorf("area: %d pixels at %.0fm exceeds budget of %d: %w",
				cols*rows, scale, opts.MaxPixels, ErrPixelBudgetExceeded)
		}
		scale *= 2
		approximate = true
	}

	cell := scale / MetersPerDegree
	eval := Grid{
		OriginLon: b.Min(0),
		OriginLat: b.Max(1),
		CellSize:  cell,
		Cols:      int(math.Ceil(width / cell)),
		Rows:      int(math.Ceil(height / cell)),
	}

	result := AreaResult{Scale: scale, Approximate: approximate}
	if r.Empty() {
		return result, nil
	}

	sum := 0.0
	for row := 0; row < eval.Rows; row++ {
		cellArea := eval.CellArea(row)
		for col := 0; col < eval.Cols; col++ {
			lon, lat := eval.CellCenter(col, row)
			if !region.Contains(lon, lat) {
				continue
			}
			result.Pixels++
			if v, ok := r.Sample(lon, lat); ok && v == opts.Target {
				sum += cellArea
			}
		}
	}

	// Edge cells are counted whole by their centres.
	result.SquareMeters = math.Min(sum, region.Area())
	return result, nil
}
