package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/ppiankov/finsent/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool

	cfg    *model.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "finsent",
	Short: "finsent - Forward-looking statements about financial metrics in 10-K filings",
	Long: `finsent extracts sentences that discuss financial metrics (revenue, net
income, EBIT, EPS, cash flow) from the narrative sections of annual reports
and labels each one as a forward-looking statement or not.

Classification is rule based: every label can be traced back to the rule
that produced it.

Collaborator commands fetch the inputs: XBRL metric frames from SEC, the
filing metadata table and the S&P 500 CIK list.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = newLogger(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if file := viper.ConfigFileUsed(); file != "" {
			logger.Debug("using config file", zap.String("path", file))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command; SIGINT and SIGTERM cancel the running command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of finsent.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("finsent %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.finsent/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig layers built-in defaults, the config file and FINSENT_* variables
func initConfig() {
	// An optional .env provides FINSENT_* variables such as the SEC contact User-Agent
	_ = godotenv.Load()

	defaults, err := yaml.Marshal(model.DefaultConfig())
	if err == nil {
		viper.SetConfigType("yaml")
		err = viper.ReadConfig(bytes.NewReader(defaults))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".finsent"))
		viper.SetConfigName("config")
	}

	// Read in environment variables that match FINSENT_*
	viper.SetEnvPrefix("FINSENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{"http.http_proxy", "http.https_proxy", "http.no_proxy"} {
		// Omitted from the defaults when empty, so bound explicitly
		_ = viper.BindEnv(key)
	}

	// If a config file is found, merge it over the defaults
	if err := viper.MergeInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", cfgFile, err)
	}
}

// loadConfig decodes the merged configuration
func loadConfig() (*model.Config, error) {
	c := model.DefaultConfig()
	if err := viper.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.Output.Verbose = verbose
	return c, nil
}

// newLogger builds a production zap logger writing to stderr
func newLogger(lc model.LoggingConfig, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	level := zapcore.InfoLevel
	if lc.Level != "" {
		parsed, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, fmt.Errorf("logging level: %w", err)
		}
		level = parsed
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	switch lc.Encoding {
	case "", "json":
	case "console":
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, fmt.Errorf("logging encoding %q (want json or console)", lc.Encoding)
	}

	return config.Build()
}
