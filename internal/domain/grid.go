package domain

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
)

const (
	// EarthRadius is the IUGG mean Earth radius in meters.
	EarthRadius = 6371008.8

	// MetersPerDegree is the length of one degree of arc on EarthRadius.
	MetersPerDegree = EarthRadius * math.Pi / 180

	// gridEpsilon absorbs floating point noise when snapping coordinates to cells.
	gridEpsilon = 1e-9
)

// Grid is a regular lon/lat grid anchored at its north-west corner.
type Grid struct {
	OriginLon float64 `json:"origin_lon"`
	OriginLat float64 `json:"origin_lat"`
	CellSize  float64 `json:"cell_size"`
	Cols      int     `json:"cols"`
	Rows      int     `json:"rows"`
}

// Len returns the number of cells.
func (g Grid) Len() int {
	return g.Cols * g.Rows
}

// IsEmpty reports whether the grid has no cells.
func (g Grid) IsEmpty() bool {
	return g.Cols <= 0 || g.Rows <= 0
}

// Validate checks that the grid is well formed. Zero-sized grids are valid.
func (g Grid) Validate() error {
	if g.Cols < 0 || g.Rows < 0 {
		return fmt.Errorf("grid: negative dimensions %dx%d", g.Cols, g.Rows)
	}
	if !g.IsEmpty() && (g.CellSize <= 0 || math.IsNaN(g.CellSize) || math.IsInf(g.CellSize, 0)) {
		return fmt.Errorf("grid: cell size must be positive, got %v", g.CellSize)
	}
	return nil
}

// Equal reports whether two grids describe the same cells.
func (g Grid) Equal(o Grid) bool {
	if g.Cols != o.Cols || g.Rows != o.Rows {
		return false
	}
	if g.IsEmpty() {
		return true
	}
	return nearlyEqual(g.OriginLon, o.OriginLon) &&
		nearlyEqual(g.OriginLat, o.OriginLat) &&
		nearlyEqual(g.CellSize, o.CellSize)
}

// Index returns the row-major index of a cell.
func (g Grid) Index(col, row int) int {
	return row*g.Cols + col
}

// CellCenter returns the lon/lat of a cell centre.
func (g Grid) CellCenter(col, row int) (lon, lat float64) {
	lon = g.OriginLon + (float64(col)+0.5)*g.CellSize
	lat = g.OriginLat - (float64(row)+0.5)*g.CellSize
	return lon, lat
}

// CellAt returns the cell containing a point. ok is false outside the grid.
func (g Grid) CellAt(lon, lat float64) (col, row int, ok bool) {
	if g.IsEmpty() {
		return 0, 0, false
	}
	col = int(math.Floor((lon - g.OriginLon) / g.CellSize))
	row = int(math.Floor((g.OriginLat - lat) / g.CellSize))
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return 0, 0, false
	}
	return col, row, true
}

// CellArea returns the spherical ground footprint of any cell in row, in
// square meters.
func (g Grid) CellArea(row int) float64 {
	north := g.OriginLat - float64(row)*g.CellSize
	south := north - g.CellSize
	dLon := g.CellSize * math.Pi / 180
	return EarthRadius * EarthRadius * dLon * math.Abs(math.Sin(north*math.Pi/180)-math.Sin(south*math.Pi/180))
}

// Bounds returns the grid extent. Empty grids return empty bounds.
func (g Grid) Bounds() *geom.Bounds {
	if g.IsEmpty() {
		return geom.NewBounds(geom.XY)
	}
	return geom.NewBounds(geom.XY).Set(
		g.OriginLon,
		g.OriginLat-float64(g.Rows)*g.CellSize,
		g.OriginLon+float64(g.Cols)*g.CellSize,
		g.OriginLat,
	)
}

// window returns the half-open cell range [col0, col1) x [row0, row1) of
// cells intersecting b, clamped to the grid.
func (g Grid) window(b *geom.Bounds) (col0, row0, col1, row1 int) {
	if g.IsEmpty() || b == nil || b.IsEmpty() {
		return 0, 0, 0, 0
	}
	col0 = clamp(int(math.Floor((b.Min(0)-g.OriginLon)/g.CellSize+gridEpsilon)), 0, g.Cols)
	col1 = clamp(int(math.Ceil((b.Max(0)-g.OriginLon)/g.CellSize-gridEpsilon)), 0, g.Cols)
	row0 = clamp(int(math.Floor((g.OriginLat-b.Max(1))/g.CellSize+gridEpsilon)), 0, g.Rows)
	row1 = clamp(int(math.Ceil((g.OriginLat-b.Min(1))/g.CellSize-gridEpsilon)), 0, g.Rows)
	if col1 <= col0 || row1 <= row0 {
		return 0, 0, 0, 0
	}
	return col0, row0, col1, row1
}

// Crop returns the sub-grid of cells intersecting b. The result is empty
// when b does not overlap the grid.
func (g Grid) Crop(b *geom.Bounds) Grid {
	col0, row0, col1, row1 := g.window(b)
	if col1 == col0 {
		return Grid{CellSize: g.CellSize}
	}
	return Grid{
		OriginLon: g.OriginLon + float64(col0)*g.CellSize,
		OriginLat: g.OriginLat - float64(row0)*g.CellSize,
		CellSize:  g.CellSize,
		Cols:      col1 - col0,
		Rows:      row1 - row0,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= gridEpsilon*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
