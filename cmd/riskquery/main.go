// Command riskquery evaluates a single fire risk layer and prints the
// result as JSON.
//
// Usage:
//
//	riskquery high-risk --date 2024-07-15 --region western --area
//	riskquery burned --region-file sierra.geojson
//	riskquery forest --fixture data/mock/catalog.json --summary
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/wildfire-risk-service/internal/config"
	"github.com/couchcryptid/wildfire-risk-service/internal/observability"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "riskquery",
	Short: "Evaluate wildfire risk layers",
	Long:  "Classifies high fire risk, burned area and forest density for a region and date using the configured raster catalog.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if fixturePath, _ := cmd.Flags().GetString("fixture"); fixturePath != "" {
			c.CatalogFixture = fixturePath
		}
		// Logs share stdout with the JSON result; keep them to errors unless asked.
		if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
			c.LogLevel = "error"
		}
		cfg = c
		logger = observability.NewLogger(cfg)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("fixture", "", "read slices from a fixture catalog file instead of the catalog API")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log at LOG_LEVEL instead of errors only")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
