package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/finsent/internal/cache"
	"github.com/ppiankov/finsent/internal/sources"
	"github.com/ppiankov/finsent/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// metricsCmd represents the metrics command
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Fetch reported financial metrics from the SEC XBRL frames API",
	Long: `Metrics downloads one XBRL frame per (concept, calendar year) from
data.sec.gov and writes one CSV per concept with the columns
accn, cik, entityName, loc, end, val, year, metric.

Requests are rate limited (SEC allows at most 10 per second) and cached.
Frames that fail to download or parse are logged and skipped.

SEC requires a User-Agent with a contact address:
  export FINSENT_HTTP_USER_AGENT="Jane Doe jane@example.com"

Example:
  finsent metrics
  finsent metrics --start-year 2018 --end-year 2022 --output-dir ./metrics`,
	Args: cobra.NoArgs,
	RunE: runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)

	metricsCmd.Flags().Int("start-year", 2006, "first calendar year")
	metricsCmd.Flags().Int("end-year", 2022, "last calendar year")
	metricsCmd.Flags().String("output-dir", "datasets/metrics", "output directory")
	metricsCmd.Flags().Int("workers", 2, "concepts fetched concurrently")
	addHTTPFlags(metricsCmd)

	_ = viper.BindPFlag("metrics.start_year", metricsCmd.Flags().Lookup("start-year"))
	_ = viper.BindPFlag("metrics.end_year", metricsCmd.Flags().Lookup("end-year"))
	_ = viper.BindPFlag("metrics.output_dir", metricsCmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("metrics.workers", metricsCmd.Flags().Lookup("workers"))
}

func runMetrics(cmd *cobra.Command, args []string) error {
	mc := cfg.Metrics

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  finsent Metrics\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Concepts:     %d\n", len(mc.Concepts))
	fmt.Fprintf(os.Stderr, "  Years:        %d-%d\n", mc.StartYear, mc.EndYear)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", mc.OutputDir)
	fmt.Fprintf(os.Stderr, "  Cache:        %v\n", cfg.Cache.Enabled)
	fmt.Fprintf(os.Stderr, "\n")

	frames := sources.NewFrameFetcher(newFetcher(), mc, logger)
	paths, err := frames.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch metrics: %w", err)
	}

	for _, path := range paths {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	}
	fmt.Fprintf(os.Stderr, "\n")
	return nil
}

// addHTTPFlags adds the flags shared by the commands that make HTTP requests
func addHTTPFlags(cmd *cobra.Command) {
	cmd.Flags().String("ua", "", "HTTP User-Agent (SEC requires a contact address)")
	cmd.Flags().Bool("cache", true, "cache responses (disable to force fresh fetches)")
	cmd.Flags().String("http-proxy", "", "HTTP proxy URL")
	cmd.Flags().String("https-proxy", "", "HTTPS proxy URL")

	// Bound in PreRunE so only the running command's flags are attached
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		for key, flag := range map[string]string{
			"http.user_agent":  "ua",
			"cache.enabled":    "cache",
			"http.http_proxy":  "http-proxy",
			"http.https_proxy": "https-proxy",
		} {
			if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
				if err := viper.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	}
}

// newFetcher builds a rate limited, cached fetcher from the configuration
func newFetcher() *sources.Fetcher {
	return sources.NewFetcher(cfg.HTTP,
		sources.WithLimiter(worker.NewLimiterFromConfig(cfg.RateLimiting)),
		sources.WithCache(cache.New(cfg.Cache), 0),
		sources.WithLogger(logger))
}
