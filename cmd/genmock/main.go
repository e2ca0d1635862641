// Command genmock generates a synthetic raster catalog fixture and a set of
// sample query messages. It evaluates the sample queries with the real
// classifier so the printed stats match what the service would publish.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -catalog-out data/mock/catalog.json \
//	  -queries-out data/mock/queries.json \
//	  -date 2024-07-15 -days 7 -cell-size 0.25
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/wildfire-risk-service/internal/adapter/fixture"
	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
	"github.com/couchcryptid/wildfire-risk-service/internal/risk"
	"github.com/jonboulle/clockwork"
	"github.com/twpayne/go-geom"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	defaults := fixture.DefaultGenerateOptions()

	catalogOut := flag.String("catalog-out", "", "output path for the catalog fixture")
	queriesOut := flag.String("queries-out", "", "output path for sample query messages (optional)")
	bbox := flag.String("bbox", "", "minLon,minLat,maxLon,maxLat (default: western preset)")
	cellSize := flag.Float64("cell-size", defaults.CellSize, "land-cover cell size in degrees")
	dateFlag := flag.String("date", defaults.Date.Format(time.DateOnly), "last forecast day")
	days := flag.Int("days", defaults.Days, "number of forecast days")
	seed := flag.Uint64("seed", defaults.Seed, "random seed")
	flag.Parse()

	if *catalogOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -catalog-out")
	}

	opts := defaults
	opts.CellSize = *cellSize
	opts.Days = *days
	opts.Seed = *seed
	date, err := time.Parse(time.DateOnly, *dateFlag)
	if err != nil {
		return fmt.Errorf("invalid -date: %w", err)
	}
	opts.Date = date
	if *bbox != "" {
		b, err := parseBBox(*bbox)
		if err != nil {
			return err
		}
		opts.Bounds = b
	}

	// Fixed clock for reproducible processed_at timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(opts.Date.Add(30 * time.Hour)))
	defer domain.SetClock(nil)

	catalog, err := fixture.Generate(opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*catalogOut), 0o755); err != nil {
		return err
	}
	if err := catalog.Save(*catalogOut); err != nil {
		return fmt.Errorf("writing catalog fixture: %w", err)
	}
	log.Printf("wrote catalog fixture: %s (%d slices)", *catalogOut, catalog.Len())

	queries := sampleQueries(opts)
	if *queriesOut != "" {
		if err := writeJSON(*queriesOut, queries); err != nil {
			return fmt.Errorf("writing queries: %w", err)
		}
		log.Printf("wrote %d sample queries: %s", len(queries), *queriesOut)
	}

	return printStats(catalog, queries)
}

func parseBBox(s string) (*geom.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid -bbox %q: want 4 comma-separated values", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid -bbox %q: %w", s, err)
		}
		v[i] = f
	}
	return geom.NewBounds(geom.XY).Set(v[0], v[1], v[2], v[3]), nil
}

// sampleQueries covers every operation over the generated extent, plus a
// date with no forecast.
func sampleQueries(opts fixture.GenerateOptions) []domain.RawQuery {
	day := opts.Date.Format(time.DateOnly)
	before := opts.Date.AddDate(0, 0, -opts.Days).Format(time.DateOnly)
	return []domain.RawQuery{
		{ID: "sample-high-risk", Operation: string(domain.OpHighRisk), Date: day, RegionName: "western", Area: true},
		{ID: "sample-burned", Operation: string(domain.OpBurnedArea), Date: day, RegionName: "western", Area: true},
		{ID: "sample-forest", Operation: string(domain.OpForestDensity), Date: day, RegionName: "california"},
		{ID: "sample-no-data", Operation: string(domain.OpHighRisk), Date: before, RegionName: "western"},
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(catalog *fixture.Catalog, queries []domain.RawQuery) error {
	classifier := risk.New(catalog, risk.DefaultSettings(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Slices: %d\n", catalog.Len())
	for _, rq := range queries {
		body, err := json.Marshal(rq)
		if err != nil {
			return err
		}
		q, err := domain.ParseQuery(domain.RawMessage{Value: body})
		if err != nil {
			return fmt.Errorf("parse %s: %w", rq.ID, err)
		}
		res, err := classifier.Evaluate(context.Background(), q)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", rq.ID, err)
		}

		fmt.Printf("%-18s status=%s", rq.ID, res.Status)
		if res.Layer != nil {
			r := res.Layer.Raster
			fmt.Printf(" grid=%dx%d valid=%d true=%d", r.Grid.Cols, r.Grid.Rows, r.ValidCount(), r.Count(domain.True))
		}
		if res.Area != nil {
			fmt.Printf(" area=%.1fkm²", res.Area.SquareKilometers())
		}
		fmt.Println()
	}
	return nil
}
