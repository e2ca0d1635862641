package risk

import (
	"time"

	"github.com/couchcryptid/wildfire-risk-service/internal/config"
	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
)

// Settings configures a Classifier.
type Settings struct {
	Thresholds domain.Thresholds
	// LandCoverEpoch starts the one-year window the land-cover slice is drawn from.
	LandCoverEpoch time.Time
	Area           domain.AreaOptions
}

// DefaultSettings returns the thresholds, epoch and area options of the
// published fire risk map.
func DefaultSettings() Settings {
	return Settings{
		Thresholds:     domain.DefaultThresholds(),
		LandCoverEpoch: domain.DefaultLandCoverEpoch,
		Area:           domain.DefaultAreaOptions(),
	}
}

// SettingsFromConfig maps the HIGH_*, LAND_COVER_EPOCH and AREA_* variables.
// Area reductions always count True cells.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Thresholds: domain.Thresholds{
			HighTemp:   cfg.HighTemp,
			HighLitter: cfg.HighLitter,
		},
		LandCoverEpoch: cfg.LandCoverEpoch,
		Area: domain.AreaOptions{
			Target:     domain.True,
			Scale:      cfg.AreaScale,
			MaxPixels:  cfg.AreaMaxPixels,
			BestEffort: cfg.AreaBestEffort,
		},
	}
}
