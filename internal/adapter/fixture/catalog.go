// Package fixture serves catalog slices from a local JSON file. It backs
// offline runs (CATALOG_FIXTURE) and the test suites.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
)

// File is the on-disk fixture format.
type File struct {
	Series []Series `json:"series"`
}

// Series holds the slices of one band of one collection. Slice JSON
// matches the HTTP catalog's wire form.
type Series struct {
	Collection string         `json:"collection"`
	Band       string         `json:"band"`
	Slices     []domain.Slice `json:"slices"`
}

type seriesKey struct {
	collection string
	band       string
}

// Catalog is an in-memory domain.Catalog.
type Catalog struct {
	mu     sync.RWMutex
	series map[seriesKey][]domain.Slice
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{series: make(map[seriesKey][]domain.Slice)}
}

// Load reads a fixture file written by Save.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load fixture %s: %w", path, err)
	}
	return c, nil
}

// Decode reads the fixture format from r.
func Decode(r io.Reader) (*Catalog, error) {
	var file File
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	c := New()
	for _, s := range file.Series {
		if s.Collection == "" || s.Band == "" {
			return nil, fmt.Errorf("decode fixture: series without collection or band")
		}
		c.Add(s.Collection, s.Band, s.Slices...)
	}
	return c, nil
}

// Add appends slices to a series, keeping it ordered by time.
func (c *Catalog) Add(collection, band string, slices ...domain.Slice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := seriesKey{collection: collection, band: band}
	merged := append(c.series[k], slices...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Time.Before(merged[j].Time) })
	c.series[k] = merged
}

// Len returns the number of slices across all series.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, s := range c.series {
		n += len(s)
	}
	return n
}

// Slices implements domain.Catalog. Slices are filtered by range and
// cropped to the query bounds.
func (c *Catalog) Slices(ctx context.Context, q domain.SliceQuery) ([]domain.Slice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []domain.Slice
	for _, s := range c.series[seriesKey{collection: q.Collection, band: q.Band}] {
		if !q.Range.Contains(s.Time) {
			continue
		}
		r := s.Raster
		if q.Bounds != nil {
			r = domain.Crop(r, q.Bounds)
		} else {
			r = r.Clone()
		}
		out = append(out, domain.Slice{Time: s.Time, Raster: r})
	}
	return out, nil
}

// Series returns every series ordered by collection and band. The slice
// lists are copies but the rasters are shared and must not be modified.
func (c *Catalog) Series() []Series {
	c.mu.RLock()
	out := make([]Series, 0, len(c.series))
	for k, slices := range c.series {
		out = append(out, Series{Collection: k.collection, Band: k.band, Slices: append([]domain.Slice(nil), slices...)})
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Collection != out[j].Collection {
			return out[i].Collection < out[j].Collection
		}
		return out[i].Band < out[j].Band
	})
	return out
}

// Encode writes the catalog in the fixture format.
func (c *Catalog) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(File{Series: c.Series()}); err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	return nil
}

// Save writes the catalog to path.
func (c *Catalog) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create fixture: %w", err)
	}
	if err := c.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
