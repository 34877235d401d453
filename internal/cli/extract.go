package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/finsent/internal/nlp"
	"github.com/ppiankov/finsent/internal/pipeline"
	"github.com/ppiankov/finsent/internal/rules"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	metadataFile   string
	cikFile        string
	extractTimeout time.Duration
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <filings>",
	Short: "Extract metric sentences from 10-K sections and label forward-looking statements",
	Long: `Extract processes a batch of annual reports:
- Read filing records (JSON array, JSONL or CSV with a header row)
- Segment the risk factors, MD&A and market risk sections into sentences
- Keep sentences that discuss revenue, net income, EBIT, EPS or cash flow
- Label each sentence FLS or Non-FLS
- Write a deduplicated table plus a run summary

Each input record needs cik, company, year and the item_1A, item_7 and
item_7A section texts.

Example:
  finsent extract filings.jsonl
  finsent extract filings.csv --output facts.jsonl --workers 8
  finsent extract filings.json --ciks cik.csv --metadata datasets/metadata.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	// Output flags
	extractCmd.Flags().StringP("output", "o", "fls_with_metrics.csv", "output path (.csv, .json or .jsonl)")
	extractCmd.Flags().String("format", "", "output format: csv, json or jsonl (default: from extension)")
	extractCmd.Flags().Bool("summary", true, "write <output>.summary.json")

	// Extraction flags
	extractCmd.Flags().StringSlice("sections", []string{"item_1A", "item_7", "item_7A"}, "sections to process, in order")
	extractCmd.Flags().Int("workers", 0, "concurrent filings per section (default: number of CPUs)")
	extractCmd.Flags().String("rules", "", "rule table override (YAML)")
	extractCmd.Flags().Bool("strip-html", false, "extract visible text from sections that contain markup")

	// Input flags
	extractCmd.Flags().StringVar(&metadataFile, "metadata", "", "metadata CSV used to fill missing company names (CIK, Company columns)")
	extractCmd.Flags().StringVar(&cikFile, "ciks", "", "only process the CIKs listed in this file")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 0, "total timeout for the run (0: none)")

	_ = viper.BindPFlag("output.path", extractCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("output.format", extractCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("output.summary", extractCmd.Flags().Lookup("summary"))
	_ = viper.BindPFlag("extraction.sections", extractCmd.Flags().Lookup("sections"))
	_ = viper.BindPFlag("extraction.workers", extractCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("extraction.rules_file", extractCmd.Flags().Lookup("rules"))
	_ = viper.BindPFlag("extraction.strip_html", extractCmd.Flags().Lookup("strip-html"))
}

func runExtract(cmd *cobra.Command, args []string) error {
	input := args[0]
	ctx := cmd.Context()
	if extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, extractTimeout)
		defer cancel()
	}

	sections, err := cfg.Extraction.SectionList()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  finsent Extraction\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", input)
	fmt.Fprintf(os.Stderr, "  Sections:     %v\n", sections)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Extraction.Workers)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", cfg.Output.Path)
	fmt.Fprintf(os.Stderr, "\n")

	fmt.Fprintf(os.Stderr, "⚙️  Reading filings...\n")
	filings, err := pipeline.NewRegistry().ReadFile(input)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d filings\n", len(filings))

	if cikFile != "" {
		ids, err := pipeline.ReadIdentifiers(cikFile)
		if err != nil {
			return fmt.Errorf("read CIK list: %w", err)
		}
		filings = pipeline.FilterByCIK(filings, ids)
		fmt.Fprintf(os.Stderr, "✓ Kept %d filings for %d listed CIKs\n", len(filings), len(ids))
	}

	if metadataFile != "" {
		companies, err := pipeline.LoadCompanies(metadataFile)
		if err != nil {
			return err
		}
		filled := pipeline.JoinCompanies(filings, companies)
		logger.Debug("joined company names", zap.String("metadata", metadataFile), zap.Int("filled", filled))
	}

	if cfg.Extraction.StripHTML {
		pipeline.StripHTML(filings)
	}

	tables, err := loadRules(cfg.Extraction.RulesFile)
	if err != nil {
		return err
	}

	analyzer, err := nlp.NewProseAnalyzer()
	if err != nil {
		return fmt.Errorf("initialize analyzer: %w", err)
	}

	p := pipeline.New(analyzer, tables, pipeline.Options{
		Sections: sections,
		Workers:  cfg.Extraction.Workers,
		Logger:   logger,
	})

	fmt.Fprintf(os.Stderr, "⚙️  Extracting sentences...\n")
	result, err := p.Process(ctx, filings)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output)
	paths, err := renderer.RenderFile(cfg.Output.Path, result)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	renderer.RenderSummary(os.Stderr, result.Summary)
	for _, path := range paths {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	}

	return nil
}

// loadRules returns the embedded rule tables unless an override file is configured
func loadRules(path string) (*rules.Tables, error) {
	if path == "" {
		return rules.Default()
	}
	tables, err := rules.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	logger.Info("using rule override", zap.String("path", path))
	return tables, nil
}
