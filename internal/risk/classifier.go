// Package risk composes catalog rasters into fire risk layers.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
)

// Layer names shown on the display surface.
const (
	HighRiskLayerName = "High Risk Shrubland"
	BurnedLayerName   = "Areas burned within 365 days"
	ForestLayerName   = "Forest Cover"
)

const layerOpacity = 0.5

// Classifier computes risk layers from a catalog. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	catalog  domain.Catalog
	settings Settings
	logger   *slog.Logger
}

// New creates a Classifier. A zero LandCoverEpoch falls back to the default.
func New(catalog domain.Catalog, settings Settings, logger *slog.Logger) *Classifier {
	if settings.LandCoverEpoch.IsZero() {
		settings.LandCoverEpoch = domain.DefaultLandCoverEpoch
	}
	return &Classifier{
		catalog:  catalog,
		settings: settings,
		logger:   logger,
	}
}

// Settings returns the classifier configuration.
func (c *Classifier) Settings() Settings {
	return c.settings
}

// ThresholdLitter returns True where shrubland litter cover exceeds the
// HighLitter threshold, cropped to the region bounds.
func (c *Classifier) ThresholdLitter(ctx context.Context, region domain.Region) (domain.Raster, error) {
	litter, err := c.landCover(ctx, domain.BandShrublandLitter, region)
	if err != nil {
		return domain.Raster{}, err
	}
	return domain.Threshold(litter, c.settings.Thresholds.HighLitter), nil
}

// ThresholdTemperature returns True where the day's peak forecast
// temperature exceeds HighTemp. A day without forecast slices yields
// domain.ErrNoDataForDate.
func (c *Classifier) ThresholdTemperature(ctx context.Context, date time.Time, region domain.Region) (domain.Raster, error) {
	day := domain.Day(date)
	slices, err := c.catalog.Slices(ctx, domain.SliceQuery{
		Collection: domain.CollectionForecast,
		Band:       domain.BandTemperature,
		Range:      day,
		Bounds:     region.Bounds(),
	})
	if err != nil {
		return domain.Raster{}, fmt.Errorf("fetch forecast: %w", err)
	}
	slices = within(slices, day)
	if len(slices) == 0 {
		return domain.Raster{}, fmt.Errorf("forecast %s: %w", day.Start.Format(time.DateOnly), domain.ErrNoDataForDate)
	}

	peak, err := domain.MaxReduce(domain.Rasters(slices))
	if err != nil {
		return domain.Raster{}, err
	}
	c.logger.Debug("forecast reduced", "date", day.Start.Format(time.DateOnly), "slices", len(slices))

	return domain.Threshold(domain.Crop(peak, region.Bounds()), c.settings.Thresholds.HighTemp), nil
}

// ClassifyHighRisk flags cells inside region that carry high shrubland
// litter and a forecast temperature above HighTemp on date. Cells without
// litter are no data rather than False.
func (c *Classifier) ClassifyHighRisk(ctx context.Context, date time.Time, region domain.Region) (domain.Raster, error) {
	litter, err := c.ThresholdLitter(ctx, region)
	if err != nil {
		return domain.Raster{}, err
	}
	temp, err := c.ThresholdTemperature(ctx, date, region)
	if err != nil {
		return domain.Raster{}, err
	}

	combined, err := domain.MaskBy(domain.Resample(temp, litter.Grid), litter)
	if err != nil {
		return domain.Raster{}, fmt.Errorf("combine masks: %w", err)
	}
	return domain.Clip(combined, region), nil
}

// BurnedAreaMask returns the peak fire radiative power per cell over the
// 365 days preceding date, clipped to region. Slices outside that window
// never contribute. No slices yields an empty raster.
func (c *Classifier) BurnedAreaMask(ctx context.Context, date time.Time, region domain.Region) (domain.Raster, error) {
	window := domain.TrailingYear(date)
	slices, err := c.catalog.Slices(ctx, domain.SliceQuery{
		Collection: domain.CollectionFire,
		Band:       domain.BandMaxFRP,
		Range:      window,
		Bounds:     region.Bounds(),
	})
	if err != nil {
		return domain.Raster{}, fmt.Errorf("fetch fire series: %w", err)
	}
	slices = within(slices, window)
	if len(slices) == 0 {
		return domain.Raster{}, nil
	}

	peak, err := domain.MaxReduce(domain.Rasters(slices))
	if err != nil {
		return domain.Raster{}, err
	}
	c.logger.Debug("fire series reduced", "window", window.String(), "slices", len(slices))

	return domain.Clip(peak, region), nil
}

// ForestDensity returns percent tree cover clipped to region.
func (c *Classifier) ForestDensity(ctx context.Context, region domain.Region) (domain.Raster, error) {
	cover, err := c.landCover(ctx, domain.BandTreeCover, region)
	if err != nil {
		return domain.Raster{}, err
	}
	return domain.Clip(cover, region), nil
}

// Area sums the ground area of True cells of r inside region.
func (c *Classifier) Area(r domain.Raster, region domain.Region) (domain.AreaResult, error) {
	return domain.AreaOf(r, region, c.settings.Area)
}

// HighRiskLayer wraps ClassifyHighRisk for display.
func (c *Classifier) HighRiskLayer(ctx context.Context, date time.Time, region domain.Region) (domain.Layer, error) {
	r, err := c.ClassifyHighRisk(ctx, date, region)
	if err != nil {
		return domain.Layer{}, err
	}
	return newLayer(HighRiskLayerName, "blue", r), nil
}

// BurnedLayer wraps BurnedAreaMask for display.
func (c *Classifier) BurnedLayer(ctx context.Context, date time.Time, region domain.Region) (domain.Layer, error) {
	r, err := c.BurnedAreaMask(ctx, date, region)
	if err != nil {
		return domain.Layer{}, err
	}
	return newLayer(BurnedLayerName, "red", r), nil
}

// ForestLayer wraps ForestDensity for display.
func (c *Classifier) ForestLayer(ctx context.Context, region domain.Region) (domain.Layer, error) {
	r, err := c.ForestDensity(ctx, region)
	if err != nil {
		return domain.Layer{}, err
	}
	return newLayer(ForestLayerName, "green", r), nil
}

// Evaluate answers a query. A missing forecast is reported as a
// StatusNoData result rather than an error.
func (c *Classifier) Evaluate(ctx context.Context, q domain.Query) (domain.Result, error) {
	layer, err := c.layerFor(ctx, q)
	if errors.Is(err, domain.ErrNoDataForDate) {
		res := domain.NewResult(q, domain.StatusNoData)
		res.Error = err.Error()
		return res, nil
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("evaluate %s: %w", q.Operation, err)
	}

	res := domain.NewResult(q, domain.StatusOK)
	res.Layer = &layer
	if q.Area {
		area, err := c.Area(areaMask(q.Operation, layer.Raster), q.Region)
		if err != nil {
			return domain.Result{}, fmt.Errorf("evaluate %s: %w", q.Operation, err)
		}
		res.Area = &area
	}
	return res, nil
}

func (c *Classifier) layerFor(ctx context.Context, q domain.Query) (domain.Layer, error) {
	switch q.Operation {
	case domain.OpHighRisk:
		return c.HighRiskLayer(ctx, q.Date, q.Region)
	case domain.OpBurnedArea:
		return c.BurnedLayer(ctx, q.Date, q.Region)
	case domain.OpForestDensity:
		return c.ForestLayer(ctx, q.Region)
	default:
		return domain.Layer{}, fmt.Errorf("unknown operation %q", q.Operation)
	}
}

// landCover fetches the first slice of band in the land-cover window,
// cropped to the region bounds. A catalog without slices yields an empty
// raster.
func (c *Classifier) landCover(ctx context.Context, band string, region domain.Region) (domain.Raster, error) {
	window := domain.YearFrom(c.settings.LandCoverEpoch)
	slices, err := c.catalog.Slices(ctx, domain.SliceQuery{
		Collection: domain.CollectionLandCover,
		Band:       band,
		Range:      window,
		Bounds:     region.Bounds(),
	})
	if err != nil {
		return domain.Raster{}, fmt.Errorf("fetch land cover %s: %w", band, err)
	}
	slices = within(slices, window)
	if len(slices) == 0 {
		c.logger.Warn("no land cover slice", "band", band, "window", window.String())
		return domain.Raster{}, nil
	}
	return domain.Crop(slices[0].Raster, region.Bounds()), nil
}

// areaMask converts a layer into the boolean raster whose True cells are
// measured. Continuous layers count every cell above zero.
func areaMask(op domain.Operation, r domain.Raster) domain.Raster {
	if op == domain.OpHighRisk {
		return r
	}
	return domain.Threshold(r, 0)
}

func within(slices []domain.Slice, window domain.DateRange) []domain.Slice {
	out := slices[:0:0]
	for _, s := range slices {
		if window.Contains(s.Time) {
			out = append(out, s)
		}
	}
	return out
}

func newLayer(name, palette string, r domain.Raster) domain.Layer {
	return domain.Layer{
		Name:   name,
		Style:  domain.Style{Palette: palette, Opacity: layerOpacity},
		Raster: r,
	}
}
