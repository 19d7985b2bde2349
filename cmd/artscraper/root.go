package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"artscraper/pkg/config"
	"artscraper/pkg/fetch"
	"artscraper/pkg/logger"
	"artscraper/pkg/metrics"
	"artscraper/pkg/ratelimit"
	"artscraper/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "0.1.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd runs the gallery scrape when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "artscraper",
	Short: "Collect artwork images and museum collection data",
	Long: `artscraper builds image datasets of artworks.

Without a subcommand it scrapes the configured gallery site: every listing
page is parsed for artwork titles and image URLs, each image is saved under a
filesystem-safe name and the outcome of every artwork is written to a Parquet
manifest.

It also estimates and samples the Metropolitan Museum open-access collection,
and imports the open-access dataset published on Kaggle.

Configuration is read from (highest priority first):
  - command line flags
  - ARTSCRAPER_* environment variables (also from .env)
  - a YAML config file (--config, .artscraper.yaml, ~/.config/artscraper/config.yaml)
  - built-in defaults`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runGallery,
}

// Execute runs the root command and exits with status 1 on any error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .artscraper.yaml or ~/.config/artscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "print only summaries and errors")
	rootCmd.PersistentFlags().Int("rate-limit", 0, "maximum requests per minute (0 = unlimited)")

	addGalleryFlags(rootCmd)

	rootCmd.SetVersionTemplate(`artscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// stringFlags are passed to the config layer by name when set explicitly
var stringFlags = []string{
	"output", "manifest", "duplicate-policy", "metrics-file",
	"met-data-dir", "cache-dir", "target-dir", "log-level",
}

// flagOverrides collects the flags the user actually set, keyed the way
// config.MergeCommandLineFlags expects
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := cmd.Flags()

	for _, name := range stringFlags {
		if f := set.Lookup(name); f != nil && f.Changed {
			flags[name] = f.Value.String()
		}
	}
	if set.Changed("timeout") {
		if d, err := set.GetDuration("timeout"); err == nil {
			flags["timeout"] = d
		}
	}
	if set.Changed("rate-limit") {
		if n, err := set.GetInt("rate-limit"); err == nil {
			flags["rate-limit"] = n
		}
	}
	if set.Changed("sample-size") {
		if n, err := set.GetInt("sample-size"); err == nil {
			flags["sample-size"] = n
		}
	}
	if set.Changed("seed") {
		if n, err := set.GetInt64("seed"); err == nil {
			flags["seed"] = n
		}
	}
	return flags
}

// loadConfig resolves the configuration for cmd and sets up the global logger
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, flagOverrides(cmd))
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithFields(map[string]interface{}{
		"version": version,
		"command": cmd.CommandPath(),
	}).Debug("artscraper starting")
	return cfg, nil
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newConsole(cmd *cobra.Command) *ui.Console {
	console := ui.NewConsole(cmd.OutOrStdout())
	console.SetQuiet(quiet)
	return console
}

// newFetchClient builds the shared HTTP client of a command
func newFetchClient(cfg *config.Config, recorder *metrics.Recorder) *fetch.Client {
	client := fetch.NewClient(cfg.HTTP.Timeout, logger.GetLogger())
	if cfg.HTTP.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.HTTP.UserAgent)
	}
	if recorder != nil {
		client.SetObserver(recorder)
	}
	if limiter := ratelimit.PerMinute(cfg.HTTP.RequestsPerMinute); limiter != nil {
		client.SetLimiter(limiter)
	}
	return client
}

// writeMetrics saves the textfile when one is configured. Failures are only
// logged.
func writeMetrics(cfg *config.Config, recorder *metrics.Recorder) {
	if cfg.Metrics.Textfile == "" || recorder == nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Metrics.Textfile), 0755); err != nil {
		logger.WithError(err).Warn("Failed to create metrics directory")
		return
	}
	if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.WithError(err).WithField("path", cfg.Metrics.Textfile).Warn("Failed to write metrics textfile")
	}
}
