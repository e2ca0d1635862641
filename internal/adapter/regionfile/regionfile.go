// Package regionfile loads regions of interest from GeoJSON documents and
// ESRI shapefiles.
package regionfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
)

// Load reads a region from path, choosing the format by extension. An
// empty name defaults to the file's base name.
func Load(path, name string) (domain.Region, error) {
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return LoadShapefile(path, name)
	case ".geojson", ".json":
		return LoadGeoJSON(path, name)
	default:
		return domain.Region{}, fmt.Errorf("region file %s: unsupported extension", path)
	}
}

// LoadGeoJSON reads a GeoJSON file. See ParseGeoJSON for accepted shapes.
func LoadGeoJSON(path, name string) (domain.Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Region{}, fmt.Errorf("read region file: %w", err)
	}
	r, err := ParseGeoJSON(name, data)
	if err != nil {
		return domain.Region{}, fmt.Errorf("region file %s: %w", path, err)
	}
	return r, nil
}

// ParseGeoJSON accepts a bare geometry, a Feature or a FeatureCollection.
// Polygonal geometries of every feature are merged into one region;
// other geometry types are ignored.
func ParseGeoJSON(name string, data []byte) (domain.Region, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return domain.Region{}, fmt.Errorf("%w: decode geojson: %v", domain.ErrInvalidRegion, err)
	}

	var geoms []geom.T
	switch head.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return domain.Region{}, fmt.Errorf("%w: decode feature collection: %v", domain.ErrInvalidRegion, err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return domain.Region{}, fmt.Errorf("%w: decode feature: %v", domain.ErrInvalidRegion, err)
		}
		geoms = append(geoms, f.Geometry)
	default:
		return domain.RegionFromGeoJSON(name, data)
	}

	mp, err := mergePolygons(geoms)
	if err != nil {
		return domain.Region{}, err
	}
	return domain.NewRegion(name, mp)
}

func mergePolygons(geoms []geom.T) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	push := func(p *geom.Polygon) error {
		if p.Layout() != geom.XY {
			p = toXY(p)
		}
		if err := mp.Push(p); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidRegion, err)
		}
		return nil
	}

	for _, g := range geoms {
		switch t := g.(type) {
		case *geom.Polygon:
			if err := push(t); err != nil {
				return nil, err
			}
		case *geom.MultiPolygon:
			for i := 0; i < t.NumPolygons(); i++ {
				if err := push(t.Polygon(i)); err != nil {
					return nil, err
				}
			}
		}
	}
	if mp.NumPolygons() == 0 {
		return nil, fmt.Errorf("%w: no polygon features", domain.ErrInvalidRegion)
	}
	return mp, nil
}

// toXY drops Z and M ordinates so polygons of mixed layouts can share a
// MultiPolygon.
func toXY(p *geom.Polygon) *geom.Polygon {
	stride := p.Layout().Stride()
	flat := p.FlatCoords()
	out := make([]float64, 0, len(flat)/stride*2)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, flat[i], flat[i+1])
	}
	ends := make([]int, len(p.Ends()))
	for i, e := range p.Ends() {
		ends[i] = e / stride * 2
	}
	return geom.NewPolygonFlat(geom.XY, out, ends)
}

// LoadShapefile reads every polygon record of a shapefile into one region.
// Rings follow the shapefile convention: clockwise rings are outer
// boundaries and counter-clockwise rings are holes of the preceding outer.
func LoadShapefile(path, name string) (domain.Region, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return domain.Region{}, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer func() { _ = reader.Close() }()

	mp := geom.NewMultiPolygon(geom.XY)
	for reader.Next() {
		_, shape := reader.Shape()
		p, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		for _, poly := range shapePolygons(p) {
			if err := mp.Push(poly); err != nil {
				return domain.Region{}, fmt.Errorf("%w: shapefile %s: %v", domain.ErrInvalidRegion, path, err)
			}
		}
	}
	if err := reader.Err(); err != nil {
		return domain.Region{}, fmt.Errorf("read shapefile %s: %w", path, err)
	}
	if mp.NumPolygons() == 0 {
		return domain.Region{}, fmt.Errorf("%w: shapefile %s has no polygons", domain.ErrInvalidRegion, path)
	}
	return domain.NewRegion(name, mp)
}

// shapePolygons splits a shapefile polygon record into go-geom polygons.
func shapePolygons(p *shp.Polygon) []*geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var (
		out  []*geom.Polygon
		flat []float64
		ends []int
	)
	flush := func() {
		if len(ends) > 0 {
			out = append(out, geom.NewPolygonFlat(geom.XY, flat, ends))
		}
		flat, ends = nil, nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		ring := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			ring = append(ring, p.Points[j].X, p.Points[j].Y)
		}

		hole := xy.IsRingCounterClockwise(geom.XY, ring)
		if !hole || len(ends) == 0 {
			flush()
		}
		flat = append(flat, ring...)
		ends = append(ends, len(flat))
	}
	flush()
	return out
}
