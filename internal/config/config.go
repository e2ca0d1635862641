package config

import (
	"errors"
	"math"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Raster catalog. CatalogFixture, when set, replaces the HTTP catalog
	// with a local file.
	CatalogURL       string
	CatalogToken     string
	CatalogFixture   string
	CatalogTimeout   time.Duration
	CatalogCacheSize int
	CatalogRateLimit float64 // requests per second

	// Risk classification.
	HighTemp       float64
	HighLitter     float64
	LandCoverEpoch time.Time

	// Area reduction.
	AreaScale      float64
	AreaMaxPixels  int64
	AreaBestEffort bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	catalogTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("CATALOG_TIMEOUT", "30s"))
	if err != nil || catalogTimeout <= 0 {
		return nil, errors.New("invalid CATALOG_TIMEOUT")
	}

	rateLimit, err := parseFloat("CATALOG_RATE_LIMIT", "5")
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid CATALOG_RATE_LIMIT: must be a positive number")
	}

	highTemp, err := parseFloat("HIGH_TEMP", "33")
	if err != nil {
		return nil, errors.New("invalid HIGH_TEMP")
	}

	highLitter, err := parseFloat("HIGH_LITTER", "55")
	if err != nil || highLitter < 0 || highLitter > 100 {
		return nil, errors.New("invalid HIGH_LITTER: must be a percentage 0-100")
	}

	epoch, err := time.Parse(time.DateOnly, sharedcfg.EnvOrDefault("LAND_COVER_EPOCH", "2016-01-01"))
	if err != nil {
		return nil, errors.New("invalid LAND_COVER_EPOCH: want YYYY-MM-DD")
	}

	areaScale, err := parseFloat("AREA_SCALE_METERS", "1000")
	if err != nil || areaScale <= 0 {
		return nil, errors.New("invalid AREA_SCALE_METERS: must be positive")
	}

	maxPixels, err := parseFloat("AREA_MAX_PIXELS", "1e9")
	if err != nil || maxPixels < 1 || maxPixels > math.MaxInt64 {
		return nil, errors.New("invalid AREA_MAX_PIXELS")
	}

	bestEffort, err := strconv.ParseBool(sharedcfg.EnvOrDefault("AREA_BEST_EFFORT", "true"))
	if err != nil {
		return nil, errors.New("invalid AREA_BEST_EFFORT: must be true or false")
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "risk-queries"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "risk-layers"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "wildfire-risk"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		CatalogURL:       sharedcfg.EnvOrDefault("CATALOG_URL", "https://catalog.example.invalid/v1"),
		CatalogToken:     os.Getenv("CATALOG_TOKEN"),
		CatalogFixture:   os.Getenv("CATALOG_FIXTURE"),
		CatalogTimeout:   catalogTimeout,
		CatalogCacheSize: parseCatalogCacheSize(),
		CatalogRateLimit: rateLimit,

		HighTemp:       highTemp,
		HighLitter:     highLitter,
		LandCoverEpoch: epoch,

		AreaScale:      areaScale,
		AreaMaxPixels:  int64(maxPixels),
		AreaBestEffort: bestEffort,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func parseFloat(key, fallback string) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, fallback), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("invalid " + key)
	}
	return v, nil
}

func parseCatalogCacheSize() int {
	if s := os.Getenv("CATALOG_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 64
}
