package model

import (
	"runtime"
	"time"
)

// Config is the complete finsent configuration
// Field tags serve both viper (mapstructure) and `config show` (yaml)
type Config struct {
	Extraction   ExtractionConfig   `yaml:"extraction" mapstructure:"extraction"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
	Companies    CompaniesConfig    `yaml:"companies" mapstructure:"companies"`
	Metadata     MetadataConfig     `yaml:"metadata" mapstructure:"metadata"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// ExtractionConfig controls the sentence extraction pipeline
type ExtractionConfig struct {
	Sections  []string `yaml:"sections" mapstructure:"sections"`     // Narrative sections, in processing order
	Workers   int      `yaml:"workers" mapstructure:"workers"`       // Concurrent filings per section
	RulesFile string   `yaml:"rules_file" mapstructure:"rules_file"` // Optional rule table override (YAML)
	StripHTML bool     `yaml:"strip_html" mapstructure:"strip_html"` // Extract visible text from sections containing markup
}

// OutputConfig controls rendering of the fact table
type OutputConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`       // Output file
	Format  string `yaml:"format" mapstructure:"format"`   // csv, json, jsonl (empty: from extension)
	Summary bool   `yaml:"summary" mapstructure:"summary"` // Write <path>.summary.json
	Verbose bool   `yaml:"-" mapstructure:"-"`
}

// HTTPConfig is shared by the collaborator commands
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"` // SEC requires a contact address
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitingConfig throttles requests per host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// CacheConfig controls the layered HTTP payload cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// Concept is an XBRL us-gaap concept and the metric name written for it
type Concept struct {
	Tag  string `yaml:"tag" mapstructure:"tag"`
	Name string `yaml:"name" mapstructure:"name"`
}

// MetricsConfig controls the XBRL frames fetcher
type MetricsConfig struct {
	BaseURL   string    `yaml:"base_url" mapstructure:"base_url"`
	Unit      string    `yaml:"unit" mapstructure:"unit"`
	Concepts  []Concept `yaml:"concepts" mapstructure:"concepts"`
	StartYear int       `yaml:"start_year" mapstructure:"start_year"`
	EndYear   int       `yaml:"end_year" mapstructure:"end_year"`
	OutputDir string    `yaml:"output_dir" mapstructure:"output_dir"`
	Workers   int       `yaml:"workers" mapstructure:"workers"` // Concepts fetched concurrently
}

// CompaniesConfig controls the company index scraper
type CompaniesConfig struct {
	URL    string `yaml:"url" mapstructure:"url"`
	Column string `yaml:"column" mapstructure:"column"`
	Output string `yaml:"output" mapstructure:"output"`
}

// MetadataConfig controls the filing metadata projection
type MetadataConfig struct {
	Columns []string `yaml:"columns" mapstructure:"columns"`
	Output  string   `yaml:"output" mapstructure:"output"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level    string `yaml:"level" mapstructure:"level"`       // debug, info, warn, error
	Encoding string `yaml:"encoding" mapstructure:"encoding"` // json or console
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			Sections: []string{string(SectionRiskFactors), string(SectionMDA), string(SectionMarketRisk)},
			Workers:  runtime.NumCPU(),
		},
		Output: OutputConfig{
			Path:    "fls_with_metrics.csv",
			Summary: true,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "finsent/0.1 (contact@example.com)",
			MaxBodyBytes: 50_000_000,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 8, // SEC fair access: at most 10 requests per second
			BurstSize:         4,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".finsent-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Metrics: MetricsConfig{
			BaseURL: "https://data.sec.gov/api/xbrl/frames/us-gaap",
			Unit:    "USD",
			Concepts: []Concept{
				{Tag: "NetIncomeLoss", Name: "Net Income (Loss)"},
				{Tag: "RevenueFromContractWithCustomerExcludingAssessedTax", Name: "Revenue"},
				{Tag: "EarningsPerShareDiluted", Name: "Diluted Earnings per share"},
				{Tag: "NetCashProvidedByUsedInContinuingOperations", Name: "Net Cash from Operating Activities"},
				{Tag: "NetCashProvidedByUsedInFinancingActivities", Name: "Net Cash from Financing Activities"},
				{Tag: "NetCashProvidedByUsedInInvestingActivities", Name: "Net Cash from Investing Activities"},
			},
			StartYear: 2006,
			EndYear:   2022,
			OutputDir: "datasets/metrics",
			Workers:   2,
		},
		Companies: CompaniesConfig{
			URL:    "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
			Column: "CIK",
			Output: "cik.csv",
		},
		Metadata: MetadataConfig{
			Columns: []string{"CIK", "Company", "Period of Report", "State of Inc", "State location", "Fiscal Year End"},
			Output:  "datasets/metadata.csv",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// SectionList parses the configured sections
func (c ExtractionConfig) SectionList() ([]Section, error) {
	if len(c.Sections) == 0 {
		return DefaultSections(), nil
	}
	out := make([]Section, 0, len(c.Sections))
	for _, raw := range c.Sections {
		s, err := ParseSection(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
