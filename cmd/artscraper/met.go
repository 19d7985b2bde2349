package main

import (
	"errors"
	"path/filepath"

	"artscraper/pkg/logger"
	"artscraper/pkg/met"
	"artscraper/pkg/metrics"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var metCmd = &cobra.Command{
	Use:   "met",
	Short: "Work with the Metropolitan Museum open-access collection",
	Long: `Commands that read the MetObjects.csv catalog from the Met data directory
and query the Met collection API.`,
}

var metEstimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the download size of all public-domain images",
	Long: `Pick a random sample of public-domain objects from the catalog, look up the
primary image of each through the collection API and extrapolate the total
size and transfer time of every public-domain image.`,
	Args: cobra.NoArgs,
	RunE: runMetEstimate,
}

var metSampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Download the image of one highlighted public-domain object",
	Args:  cobra.NoArgs,
	RunE:  runMetSample,
}

func init() {
	metCmd.PersistentFlags().String("met-data-dir", "", "directory holding MetObjects.csv")
	metCmd.PersistentFlags().Duration("timeout", 0, "per-request timeout (e.g. 10s)")
	metCmd.PersistentFlags().String("metrics-file", "", "write run metrics to this Prometheus textfile")

	metEstimateCmd.Flags().Int("sample-size", 0, "number of public-domain objects to sample")
	metEstimateCmd.Flags().Int64("seed", 0, "random seed for the sample (0 seeds from the clock)")

	metCmd.AddCommand(metEstimateCmd)
	metCmd.AddCommand(metSampleCmd)
	rootCmd.AddCommand(metCmd)
}

func runMetEstimate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	fs := afero.NewReadOnlyFs(afero.NewOsFs())
	catalogPath := filepath.Join(cfg.Met.DataDirectory, cfg.Met.ObjectsFile)
	console := newConsole(cmd)
	console.Printf("Reading %s...", catalogPath)

	catalog, err := met.LoadCatalog(fs, catalogPath)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	defer writeMetrics(cfg, recorder)

	estimator := met.NewEstimator(newFetchClient(cfg, recorder), cfg.Met.APIBaseURL, cfg.Met.SampleSeed, logger.GetLogger())
	estimator.SetProgress(console)

	estimate, err := estimator.Estimate(ctx, catalog, cfg.Met.SampleSize)
	if err != nil {
		return err
	}

	console.EstimateSummary(estimate)
	return nil
}

func runMetSample(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	console := newConsole(cmd)
	recorder := metrics.NewRecorder()
	defer writeMetrics(cfg, recorder)

	sampler := met.NewSampler(newFetchClient(cfg, recorder), cfg.Met.APIBaseURL, afero.NewOsFs(), logger.GetLogger())
	sampler.SetProgress(console)

	catalogPath := filepath.Join(cfg.Met.DataDirectory, cfg.Met.ObjectsFile)
	result, err := sampler.Download(ctx, catalogPath, filepath.Join(cfg.Met.DataDirectory, cfg.Met.TestDirectory))
	if errors.Is(err, met.ErrNoSample) {
		console.PrintWarning("No highlighted public-domain object with an image was found")
		return err
	}
	if err != nil {
		return err
	}

	console.SampleSaved(result)
	return nil
}
