package domain

import (
	"fmt"

	"github.com/twpayne/go-geom"
)

// Threshold returns a boolean raster that is True where the cell value is
// strictly greater than cutoff. No-data cells stay no data.
func Threshold(r Raster, cutoff float64) Raster {
	out := NewRaster(r.Grid)
	for i, ok := range r.Valid {
		if !ok {
			continue
		}
		out.Valid[i] = true
		if r.Values[i] > cutoff {
			out.Values[i] = True
		} else {
			out.Values[i] = False
		}
	}
	return out
}

// MaxReduce collapses rasters into their per-cell maximum over valid
// values. The first raster defines the output grid; others are resampled
// onto it when they are not aligned. Cells with no valid input stay no data.
func MaxReduce(rasters []Raster) (Raster, error) {
	if len(rasters) == 0 {
		return Raster{}, ErrEmptyCollection
	}
	out := NewRaster(rasters[0].Grid)
	for _, r := range rasters {
		if !r.Grid.Equal(out.Grid) {
			r = Resample(r, out.Grid)
		}
		for i, ok := range r.Valid {
			if !ok {
				continue
			}
			if !out.Valid[i] || r.Values[i] > out.Values[i] {
				out.Values[i] = r.Values[i]
				out.Valid[i] = true
			}
		}
	}
	return out, nil
}

// Resample maps r onto target by nearest-neighbour sampling at each target
// cell centre. Target cells outside r are no data.
func Resample(r Raster, target Grid) Raster {
	if r.Grid.Equal(target) {
		return r.Clone()
	}
	out := NewRaster(target)
	for row := 0; row < target.Rows; row++ {
		for col := 0; col < target.Cols; col++ {
			lon, lat := target.CellCenter(col, row)
			if v, ok := r.Sample(lon, lat); ok {
				out.Set(col, row, v)
			}
		}
	}
	return out
}

// MaskBy keeps the cells of r where mask is valid and non-zero; every other
// cell becomes no data. Both rasters must share a grid.
func MaskBy(r, mask Raster) (Raster, error) {
	if !r.Grid.Equal(mask.Grid) {
		return Raster{}, fmt.Errorf("mask %dx%d raster with %dx%d mask: %w",
			r.Grid.Cols, r.Grid.Rows, mask.Grid.Cols, mask.Grid.Rows, ErrGridMismatch)
	}
	out := NewRaster(r.Grid)
	for i, ok := range r.Valid {
		if ok && mask.Valid[i] && mask.Values[i] != False {
			out.Values[i] = r.Values[i]
			out.Valid[i] = true
		}
	}
	return out, nil
}

// Crop returns the cells of r intersecting b.
func Crop(r Raster, b *geom.Bounds) Raster {
	col0, row0, _, _ := r.Grid.window(b)
	g := r.Grid.Crop(b)
	out := NewRaster(g)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			if v, ok := r.At(col0+col, row0+row); ok {
				out.Set(col, row, v)
			}
		}
	}
	return out
}

// Clip crops r to the region bounds and drops cells whose centre lies
// outside the region polygon.
func Clip(r Raster, region Region) Raster {
	if region.IsZero() {
		return Raster{}
	}
	out := Crop(r, region.Bounds())
	for row := 0; row < out.Grid.Rows; row++ {
		for col := 0; col < out.Grid.Cols; col++ {
			lon, lat := out.Grid.CellCenter(col, row)
			if !region.Contains(lon, lat) {
				out.Unset(col, row)
			}
		}
	}
	return out
}
