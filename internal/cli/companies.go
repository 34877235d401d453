package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/finsent/internal/sources"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// companiesCmd represents the companies command
var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Scrape the S&P 500 constituents page for company CIKs",
	Long: `Companies fetches the S&P 500 constituents page (robots.txt is honored),
finds the first table with a CIK column and writes the identifiers to a
one-column CSV.

The output can be passed to 'finsent extract --ciks' to restrict a run to
those companies.

Example:
  finsent companies
  finsent companies --output sp500.csv`,
	Args: cobra.NoArgs,
	RunE: runCompanies,
}

func init() {
	rootCmd.AddCommand(companiesCmd)

	companiesCmd.Flags().String("url", "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies", "index page URL")
	companiesCmd.Flags().String("column", "CIK", "table column to collect")
	companiesCmd.Flags().String("output", "cik.csv", "output path")
	addHTTPFlags(companiesCmd)

	_ = viper.BindPFlag("companies.url", companiesCmd.Flags().Lookup("url"))
	_ = viper.BindPFlag("companies.column", companiesCmd.Flags().Lookup("column"))
	_ = viper.BindPFlag("companies.output", companiesCmd.Flags().Lookup("output"))
}

func runCompanies(cmd *cobra.Command, args []string) error {
	cc := cfg.Companies

	fmt.Fprintf(os.Stderr, "⚙️  Fetching %s...\n", cc.URL)

	robots := sources.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	scraper := sources.NewCompanyScraper(newFetcher(), robots, logger)

	values, err := scraper.Scrape(cmd.Context(), cc.URL, cc.Column)
	if err != nil {
		return fmt.Errorf("scrape companies: %w", err)
	}
	if err := sources.WriteColumnFile(cc.Output, cc.Column, values); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "✓ Wrote %d identifiers to %s\n", len(values), cc.Output)
	return nil
}
