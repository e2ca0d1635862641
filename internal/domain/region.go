package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
)

// presets are named regions of interest. "western" is the contiguous
// western United States used by the fire risk map.
var presets = map[string][4]float64{
	"western":    {-125, 31, -102, 49},
	"california": {-124.5, 32.5, -114.1, 42},
	"conus":      {-125, 24.5, -66.9, 49.5},
}

// Region is an immutable area of interest made of one or more lon/lat
// polygons. Polygon holes are honoured by Contains and Area.
type Region struct {
	Name     string
	polygons []*geom.Polygon
	bounds   *geom.Bounds
}

// NewRegion builds a region from a *geom.Polygon or *geom.MultiPolygon.
func NewRegion(name string, g geom.T) (Region, error) {
	var polys []*geom.Polygon
	switch t := g.(type) {
	case *geom.Polygon:
		polys = []*geom.Polygon{t}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			polys = append(polys, t.Polygon(i))
		}
	case nil:
		return Region{}, fmt.Errorf("%w: missing geometry", ErrInvalidRegion)
	default:
		return Region{}, fmt.Errorf("%w: unsupported geometry %T", ErrInvalidRegion, g)
	}
	if len(polys) == 0 {
		return Region{}, fmt.Errorf("%w: no polygons", ErrInvalidRegion)
	}

	bounds := geom.NewBounds(geom.XY)
	for i, p := range polys {
		if err := validatePolygon(p); err != nil {
			return Region{}, fmt.Errorf("%w: polygon %d: %v", ErrInvalidRegion, i, err)
		}
		bounds.Extend(p)
	}
	if bounds.Min(0) < -180 || bounds.Max(0) > 180 || bounds.Min(1) < -90 || bounds.Max(1) > 90 {
		return Region{}, fmt.Errorf("%w: coordinates outside lon/lat range", ErrInvalidRegion)
	}

	return Region{Name: name, polygons: polys, bounds: bounds}, nil
}

func validatePolygon(p *geom.Polygon) error {
	if p.Layout().Stride() < 2 {
		return fmt.Errorf("layout %v has no XY", p.Layout())
	}
	if p.NumLinearRings() == 0 {
		return fmt.Errorf("no rings")
	}
	for i := 0; i < p.NumLinearRings(); i++ {
		if n := p.LinearRing(i).NumCoords(); n < 4 {
			return fmt.Errorf("ring %d has %d coordinates, need at least 4", i, n)
		}
	}
	return nil
}

// RegionFromGeoJSON decodes a GeoJSON Polygon or MultiPolygon geometry.
func RegionFromGeoJSON(name string, data []byte) (Region, error) {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return Region{}, fmt.Errorf("%w: decode geojson: %v", ErrInvalidRegion, err)
	}
	return NewRegion(name, g)
}

// BBoxRegion builds a rectangular region.
func BBoxRegion(name string, minLon, minLat, maxLon, maxLat float64) (Region, error) {
	if !(minLon < maxLon) || !(minLat < maxLat) {
		return Region{}, fmt.Errorf("%w: degenerate bbox %v,%v,%v,%v", ErrInvalidRegion, minLon, minLat, maxLon, maxLat)
	}
	p, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}})
	if err != nil {
		return Region{}, fmt.Errorf("%w: %v", ErrInvalidRegion, err)
	}
	return NewRegion(name, p)
}

// PresetRegion returns a named region such as "western".
func PresetRegion(name string) (Region, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	b, ok := presets[key]
	if !ok {
		return Region{}, fmt.Errorf("%w: unknown region %q (known: %s)", ErrInvalidRegion, name, strings.Join(PresetNames(), ", "))
	}
	return BBoxRegion(key, b[0], b[1], b[2], b[3])
}

// PresetNames lists the named regions in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsZero reports whether r is the zero Region.
func (r Region) IsZero() bool {
	return len(r.polygons) == 0
}

// Bounds returns a copy of the region's bounding box.
func (r Region) Bounds() *geom.Bounds {
	if r.bounds == nil {
		return geom.NewBounds(geom.XY)
	}
	return r.bounds.Clone()
}

// Contains reports whether a point lies inside the region or on its boundary.
func (r Region) Contains(lon, lat float64) bool {
	if r.bounds == nil || !r.bounds.OverlapsPoint(geom.XY, geom.Coord{lon, lat}) {
		return false
	}
	p := geom.Coord{lon, lat}
	for _, poly := range r.polygons {
		layout := poly.Layout()
		if !xy.IsPointInRing(layout, p, poly.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for i := 1; i < poly.NumLinearRings(); i++ {
			if xy.IsPointInRing(layout, p, poly.LinearRing(i).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// Area returns the spherical ground area of the region in square meters.
func (r Region) Area() float64 {
	total := 0.0
	for _, poly := range r.polygons {
		a := ringArea(poly.Layout().Stride(), poly.LinearRing(0).FlatCoords())
		for i := 1; i < poly.NumLinearRings(); i++ {
			a -= ringArea(poly.Layout().Stride(), poly.LinearRing(i).FlatCoords())
		}
		if a > 0 {
			total += a
		}
	}
	return total
}

// Geometry returns the region as a MultiPolygon.
func (r Region) Geometry() *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	for _, p := range r.polygons {
		_ = mp.Push(p.Clone())
	}
	return mp
}

// ringArea computes the area of a lon/lat ring on the sphere, treating
// edges as rhumb segments between vertices.
func ringArea(stride int, flat []float64) float64 {
	n := len(flat) / stride
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n-1; i++ {
		lon1, lat1 := flat[i*stride], flat[i*stride+1]
		lon2, lat2 := flat[(i+1)*stride], flat[(i+1)*stride+1]
		sum += toRad(lon2-lon1) * (2 + math.Sin(toRad(lat1)) + math.Sin(toRad(lat2)))
	}
	return math.Abs(sum * EarthRadius * EarthRadius / 2)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
