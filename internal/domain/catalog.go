package domain

import (
	"context"
	"time"

	"github.com/twpayne/go-geom"
)

// Hosted collections and the bands read from them.
const (
	CollectionLandCover = "USGS/NLCD"
	CollectionForecast  = "NOAA/GFS0P25"
	CollectionFire      = "MODIS/006/MOD14A1"

	BandShrublandLitter = "shrubland_litter"
	BandTreeCover       = "percent_tree_cover"
	BandTemperature     = "temperature_2m_above_ground"
	BandMaxFRP          = "MaxFRP"
)

// DefaultLandCoverEpoch is the start of the land-cover window.
var DefaultLandCoverEpoch = time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)

// SliceQuery selects the slices of one band of a collection.
type SliceQuery struct {
	Collection string
	Band       string
	Range      DateRange
	// Bounds restricts the query spatially. Nil means unrestricted.
	// Implementations may crop slices to Bounds, but a slice whose
	// footprint misses Bounds is still returned (with an empty grid).
	Bounds *geom.Bounds
}

// Catalog serves time-indexed raster collections.
type Catalog interface {
	// Slices returns every slice of q.Band in q.Collection whose timestamp
	// falls in q.Range, ordered by time. An empty result is not an error.
	Slices(ctx context.Context, q SliceQuery) ([]Slice, error)
}

// Rasters strips the timestamps from a list of slices.
func Rasters(slices []Slice) []Raster {
	out := make([]Raster, len(slices))
	for i, s := range slices {
		out[i] = s.Raster
	}
	return out
}
