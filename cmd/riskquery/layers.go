package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/wildfire-risk-service/internal/adapter/catalog"
	"github.com/couchcryptid/wildfire-risk-service/internal/adapter/fixture"
	"github.com/couchcryptid/wildfire-risk-service/internal/adapter/regionfile"
	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
	"github.com/couchcryptid/wildfire-risk-service/internal/observability"
	"github.com/couchcryptid/wildfire-risk-service/internal/risk"
	"github.com/spf13/cobra"
)

// summary replaces the raster in --summary output.
type summary struct {
	QueryID   string             `json:"query_id"`
	Operation domain.Operation   `json:"operation"`
	Region    string             `json:"region"`
	Date      string             `json:"date"`
	Status    domain.Status      `json:"status"`
	Layer     string             `json:"layer,omitempty"`
	Cells     int                `json:"cells"`
	TrueCells int                `json:"true_cells"`
	Area      *domain.AreaResult `json:"area,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func layerCommand(op domain.Operation, use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := queryFromFlags(cmd, op)
			if err != nil {
				return err
			}

			cat, err := openCatalog()
			if err != nil {
				return err
			}
			classifier := risk.New(cat, risk.SettingsFromConfig(cfg), logger)

			res, err := classifier.Evaluate(cmd.Context(), q)
			if err != nil {
				return err
			}

			out, closeOut, err := outputFor(cmd)
			if err != nil {
				return err
			}
			defer closeOut()

			if asSummary, _ := cmd.Flags().GetBool("summary"); asSummary {
				return writeJSON(out, summarize(res))
			}
			return writeJSON(out, res)
		},
	}

	cmd.Flags().String("region", "western", "preset region name ("+strings.Join(domain.PresetNames(), ", ")+")")
	cmd.Flags().String("region-file", "", "GeoJSON or shapefile region; overrides --region")
	cmd.Flags().String("date", "", "forecast date (YYYY-MM-DD or RFC 3339); defaults to today")
	cmd.Flags().Bool("area", false, "compute the area of the layer inside the region")
	cmd.Flags().Bool("summary", false, "print cell counts instead of the raster")
	cmd.Flags().StringP("output", "o", "", "write JSON to a file instead of stdout")
	return cmd
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List preset regions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range domain.PresetNames() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(
		layerCommand(domain.OpHighRisk, "high-risk", "High fire risk areas: hot forecast over dense shrubland litter"),
		layerCommand(domain.OpBurnedArea, "burned", "Areas burned in the year before the date"),
		layerCommand(domain.OpForestDensity, "forest", "Forest density from tree cover"),
		regionsCmd,
	)
}

func queryFromFlags(cmd *cobra.Command, op domain.Operation) (domain.Query, error) {
	dateFlag, _ := cmd.Flags().GetString("date")
	date, err := domain.ParseDate(dateFlag)
	if err != nil {
		return domain.Query{}, err
	}

	var region domain.Region
	if path, _ := cmd.Flags().GetString("region-file"); path != "" {
		region, err = regionfile.Load(path, "")
	} else {
		name, _ := cmd.Flags().GetString("region")
		region, err = domain.PresetRegion(name)
	}
	if err != nil {
		return domain.Query{}, err
	}

	area, _ := cmd.Flags().GetBool("area")
	return domain.Query{
		ID:        "cli-" + string(op),
		Operation: op,
		Date:      date,
		Region:    region,
		Area:      area,
	}, nil
}

func openCatalog() (domain.Catalog, error) {
	if cfg.CatalogFixture != "" {
		return fixture.Load(cfg.CatalogFixture)
	}
	metrics := observability.NewMetricsForTesting()
	client := catalog.NewClient(cfg.CatalogURL, cfg.CatalogToken, cfg.CatalogTimeout, cfg.CatalogRateLimit, metrics, logger)
	return catalog.NewCachedCatalog(client, cfg.CatalogCacheSize, metrics), nil
}

func outputFor(cmd *cobra.Command) (io.Writer, func(), error) {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func summarize(res domain.Result) summary {
	s := summary{
		QueryID:   res.QueryID,
		Operation: res.Operation,
		Region:    res.Region,
		Date:      res.Date.Format("2006-01-02"),
		Status:    res.Status,
		Area:      res.Area,
		Error:     res.Error,
	}
	if res.Layer != nil {
		s.Layer = res.Layer.Name
		s.Cells = res.Layer.Raster.ValidCount()
		s.TrueCells = res.Layer.Raster.Count(domain.True)
	}
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
