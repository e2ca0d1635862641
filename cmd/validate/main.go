// Command validate performs integrity checks on a catalog fixture and the
// layers the classifier derives from it: series structure, value ranges,
// forecast coverage of the sample queries, and the classification
// properties the service guarantees (high risk within dense litter,
// repeatable results, area bounded by the region).
//
// Usage:
//
//	go run ./cmd/validate \
//	  -catalog data/mock/catalog.json \
//	  -queries data/mock/queries.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/wildfire-risk-service/internal/adapter/fixture"
	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
	"github.com/couchcryptid/wildfire-risk-service/internal/risk"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

// valueRanges bounds the plausible values of each band.
var valueRanges = map[string][2]float64{
	domain.BandShrublandLitter: {0, 100},
	domain.BandTreeCover:       {0, 100},
	domain.BandTemperature:     {-90, 60},
	domain.BandMaxFRP:          {0, 1e5},
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	catalogPath := flag.String("catalog", "", "path to the catalog fixture")
	queriesPath := flag.String("queries", "", "path to sample query messages (optional)")
	flag.Parse()

	if *catalogPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*catalogPath, *queriesPath); code != 0 {
		os.Exit(code)
	}
}

func run(catalogPath, queriesPath string) int {
	fmt.Println("=== Fire Risk Fixture Validation ===")
	fmt.Println()

	catalog, err := fixture.Load(catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load catalog: %v\n", err)
		return 1
	}

	var queries []domain.Query
	if queriesPath != "" {
		queries, err = loadQueries(queriesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load queries: %v\n", err)
			return 1
		}
	}

	classifier := risk.New(catalog, risk.DefaultSettings(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	// ── Run validation phases ──
	phases := []*phase{
		validateSeries(catalog),
		validateForecastCoverage(catalog, queries),
		validateClassification(classifier, queries),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Slices: %d, queries: %d\n", catalog.Len(), len(queries))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

func loadQueries(path string) ([]domain.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	// Fixed clock so queries without a date resolve the same way on every run.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.July, 16, 6, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	queries := make([]domain.Query, 0, len(raws))
	for i, raw := range raws {
		q, err := domain.ParseQuery(domain.RawMessage{Value: raw})
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// validateSeries checks that every series is present, valid, on one grid
// (forecasts excepted) and within its band's value range.
func validateSeries(catalog *fixture.Catalog) *phase {
	p := &phase{name: "Phase 1: Series structure"}

	seen := map[string]bool{}
	for _, s := range catalog.Series() {
		seen[s.Collection+"/"+s.Band] = true
		if len(s.Slices) == 0 {
			p.errorf("%s/%s: no slices", s.Collection, s.Band)
			continue
		}

		first := s.Slices[0].Raster.Grid
		limits, ranged := valueRanges[s.Band]
		for i, sl := range s.Slices {
			if err := sl.Raster.Validate(); err != nil {
				p.errorf("%s/%s slice %d: %v", s.Collection, s.Band, i, err)
				continue
			}
			if i > 0 && sl.Time.Before(s.Slices[i-1].Time) {
				p.errorf("%s/%s slice %d: out of time order", s.Collection, s.Band, i)
			}
			if s.Collection != domain.CollectionForecast && !sl.Raster.Grid.Equal(first) {
				p.errorf("%s/%s slice %d: grid differs from first slice", s.Collection, s.Band, i)
			}
			if !ranged {
				continue
			}
			for j, v := range sl.Raster.Values {
				if sl.Raster.Valid[j] && (v < limits[0] || v > limits[1]) {
					p.errorf("%s/%s slice %d cell %d: %g outside [%g, %g]", s.Collection, s.Band, i, j, v, limits[0], limits[1])
					break
				}
			}
		}
	}

	for _, want := range []string{
		domain.CollectionLandCover + "/" + domain.BandShrublandLitter,
		domain.CollectionLandCover + "/" + domain.BandTreeCover,
		domain.CollectionForecast + "/" + domain.BandTemperature,
		domain.CollectionFire + "/" + domain.BandMaxFRP,
	} {
		if !seen[want] {
			p.errorf("missing series %s", want)
		}
	}
	return p
}

// validateForecastCoverage reports the query dates without forecasts. A
// query is allowed to miss only if its ID says so.
func validateForecastCoverage(catalog *fixture.Catalog, queries []domain.Query) *phase {
	p := &phase{name: "Phase 2: Forecast coverage"}

	for _, q := range queries {
		if q.Operation != domain.OpHighRisk {
			continue
		}
		slices, err := catalog.Slices(context.Background(), domain.SliceQuery{
			Collection: domain.CollectionForecast,
			Band:       domain.BandTemperature,
			Range:      domain.Day(q.Date),
		})
		if err != nil {
			p.errorf("%s: %v", q.ID, err)
			continue
		}
		expectMissing := q.ID == "sample-no-data"
		if len(slices) == 0 && !expectMissing {
			p.errorf("%s: no forecast for %s", q.ID, q.Date.Format(time.DateOnly))
		}
		if len(slices) > 0 && expectMissing {
			p.errorf("%s: expected no forecast for %s, found %d slices", q.ID, q.Date.Format(time.DateOnly), len(slices))
		}
	}
	return p
}

// validateClassification evaluates each query twice and checks the
// classification properties of the result.
func validateClassification(classifier *risk.Classifier, queries []domain.Query) *phase {
	p := &phase{name: "Phase 3: Classification properties"}
	ctx := context.Background()

	for _, q := range queries {
		first, err := classifier.Evaluate(ctx, q)
		if err != nil {
			p.errorf("%s: %v", q.ID, err)
			continue
		}
		second, err := classifier.Evaluate(ctx, q)
		if err != nil {
			p.errorf("%s: second evaluation: %v", q.ID, err)
			continue
		}
		if first.Status != second.Status {
			p.errorf("%s: status changed between evaluations", q.ID)
		}
		if first.Layer != nil && second.Layer != nil {
			if diff := cmp.Diff(first.Layer.Raster, second.Layer.Raster); diff != "" {
				p.errorf("%s: layer not repeatable (-first +second):\n%s", q.ID, diff)
			}
		}

		if first.Area != nil && first.Area.SquareMeters > q.Region.Area()*1.0001 {
			p.errorf("%s: area %.0f m² exceeds region area %.0f m²", q.ID, first.Area.SquareMeters, q.Region.Area())
		}

		if q.Operation == domain.OpHighRisk && first.Layer != nil {
			checkWithinLitter(ctx, p, classifier, q, first.Layer.Raster)
		}
	}
	return p
}

func checkWithinLitter(ctx context.Context, p *phase, classifier *risk.Classifier, q domain.Query, highRisk domain.Raster) {
	litter, err := classifier.ThresholdLitter(ctx, q.Region)
	if err != nil {
		p.errorf("%s: litter: %v", q.ID, err)
		return
	}
	for row := 0; row < highRisk.Grid.Rows; row++ {
		for col := 0; col < highRisk.Grid.Cols; col++ {
			if v, ok := highRisk.At(col, row); !ok || v != domain.True {
				continue
			}
			lon, lat := highRisk.Grid.CellCenter(col, row)
			if lv, ok := litter.Sample(lon, lat); !ok || lv != domain.True {
				p.errorf("%s: high risk cell (%d,%d) outside dense litter", q.ID, col, row)
				return
			}
		}
	}
}
