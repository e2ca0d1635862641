package fixture

import (
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
	"github.com/twpayne/go-geom"
)

// Forecast sub-slices per day and the diurnal temperature offset of each.
var (
	forecastHours  = []int{0, 6, 12, 18}
	diurnalOffsets = []float64{-4, 0, 6, 3}
)

// GenerateOptions shapes a synthetic catalog.
type GenerateOptions struct {
	// Bounds is the extent of every series.
	Bounds *geom.Bounds
	// CellSize is the land-cover and fire resolution in degrees. Forecasts
	// use twice this size.
	CellSize float64
	// Date is the last forecast day.
	Date time.Time
	// Days is the number of forecast days ending at Date.
	Days int
	// FireEvery spaces fire slices; fire slices cover the 400 days before Date.
	FireEvery time.Duration
	Seed      uint64
}

// DefaultGenerateOptions covers the western United States at 0.25 degrees
// with a week of forecasts ending 2024-07-15.
func DefaultGenerateOptions() GenerateOptions {
	western, _ := domain.PresetRegion("western")
	return GenerateOptions{
		Bounds:    western.Bounds(),
		CellSize:  0.25,
		Date:      time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC),
		Days:      7,
		FireEvery: 15 * 24 * time.Hour,
		Seed:      1,
	}
}

// Generate builds a deterministic catalog with land cover, forecast and
// fire series. The same options always yield the same catalog.
func Generate(opts GenerateOptions) (*Catalog, error) {
	if opts.Bounds == nil || opts.Bounds.IsEmpty() {
		return nil, errors.New("generate: bounds are required")
	}
	if opts.CellSize <= 0 {
		return nil, errors.New("generate: cell size must be positive")
	}
	if opts.Days < 1 {
		return nil, errors.New("generate: days must be at least 1")
	}
	if opts.FireEvery <= 0 {
		opts.FireEvery = 15 * 24 * time.Hour
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	fine := gridOver(opts.Bounds, opts.CellSize)
	coarse := gridOver(opts.Bounds, opts.CellSize*2)
	if fine.IsEmpty() {
		return nil, errors.New("generate: bounds have no area")
	}

	c := New()

	litter, trees := landCover(fine, rng)
	c.Add(domain.CollectionLandCover, domain.BandShrublandLitter, domain.Slice{Time: domain.DefaultLandCoverEpoch, Raster: litter})
	c.Add(domain.CollectionLandCover, domain.BandTreeCover, domain.Slice{Time: domain.DefaultLandCoverEpoch, Raster: trees})

	last := domain.Day(opts.Date).Start
	for d := opts.Days - 1; d >= 0; d-- {
		day := last.AddDate(0, 0, -d)
		anomaly := rng.Float64()*6 - 3
		for i, h := range forecastHours {
			r := fill(coarse, func(_, lat float64) float64 {
				return 22 + 0.5*(49-lat) + diurnalOffsets[i] + anomaly + rng.Float64()*2 - 1
			})
			c.Add(domain.CollectionForecast, domain.BandTemperature,
				domain.Slice{Time: day.Add(time.Duration(h) * time.Hour), Raster: r})
		}
	}

	for at := opts.Date.UTC().AddDate(0, 0, -400); at.Before(opts.Date); at = at.Add(opts.FireEvery) {
		c.Add(domain.CollectionFire, domain.BandMaxFRP, domain.Slice{Time: at, Raster: fires(fine, rng)})
	}

	return c, nil
}

func gridOver(b *geom.Bounds, cell float64) domain.Grid {
	return domain.Grid{
		OriginLon: b.Min(0),
		OriginLat: b.Max(1),
		CellSize:  cell,
		Cols:      int(math.Ceil((b.Max(0) - b.Min(0)) / cell)),
		Rows:      int(math.Ceil((b.Max(1) - b.Min(1)) / cell)),
	}
}

func fill(g domain.Grid, f func(lon, lat float64) float64) domain.Raster {
	r := domain.NewRaster(g)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			lon, lat := g.CellCenter(col, row)
			r.Set(col, row, f(lon, lat))
		}
	}
	return r
}

// landCover returns smooth litter and tree cover percentages that trade
// off against each other.
func landCover(g domain.Grid, rng *rand.Rand) (litter, trees domain.Raster) {
	litter = fill(g, func(lon, lat float64) float64 {
		return clampPercent(50 + 30*math.Sin(lon/3)*math.Cos(lat/2) + rng.Float64()*10 - 5)
	})
	trees = domain.NewRaster(g)
	for i, v := range litter.Values {
		trees.Values[i] = clampPercent(90 - v + rng.Float64()*10 - 5)
		trees.Valid[i] = true
	}
	return litter, trees
}

// fires returns a zero raster with a sparse scatter of fire radiative power.
func fires(g domain.Grid, rng *rand.Rand) domain.Raster {
	r := domain.Fill(g, 0)
	n := max(1, g.Len()/200)
	for range n {
		i := rng.IntN(g.Len())
		r.Values[i] = 10 + rng.Float64()*490
	}
	return r
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
