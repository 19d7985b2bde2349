package main

import (
	"fmt"
	"time"

	"artscraper/pkg/auth"
	"artscraper/pkg/config"
	"artscraper/pkg/dataset"
	"artscraper/pkg/logger"
	"artscraper/pkg/metrics"
	"artscraper/pkg/ui"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Materialize the open-access dataset",
}

var datasetFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the dataset into the cache and import it",
	Long: `Download the configured Kaggle dataset into the local cache unless it is
already there, then import the cached files into the target directory.

CSV files are written as Parquet unless convert_csv is disabled. Credentials
come from KAGGLE_USERNAME/KAGGLE_KEY, ~/.kaggle/kaggle.json or an account
stored with "artscraper auth login".`,
	Args: cobra.NoArgs,
	RunE: runDatasetFetch,
}

var datasetImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an already downloaded dataset directory",
	Args:  cobra.NoArgs,
	RunE:  runDatasetImport,
}

// Dataset flags
var (
	datasetAccount string
	importFrom     string
)

// newCredentialManager is replaced in tests
var newCredentialManager = auth.NewManager

func init() {
	datasetCmd.PersistentFlags().String("target-dir", "", "directory the dataset files are imported into")

	datasetFetchCmd.Flags().String("cache-dir", "", "dataset cache directory")
	datasetFetchCmd.Flags().StringVar(&datasetAccount, "account", "", "stored Kaggle account to use")
	datasetFetchCmd.Flags().Duration("timeout", 0, "timeout for the whole archive download (e.g. 30m)")
	datasetFetchCmd.Flags().String("metrics-file", "", "write run metrics to this Prometheus textfile")

	datasetImportCmd.Flags().StringVar(&importFrom, "from", "", "directory holding the downloaded dataset files")
	_ = datasetImportCmd.MarkFlagRequired("from")

	datasetCmd.AddCommand(datasetFetchCmd)
	datasetCmd.AddCommand(datasetImportCmd)
	rootCmd.AddCommand(datasetCmd)
}

func runDatasetFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	console := newConsole(cmd)
	fs := afero.NewOsFs()
	recorder := metrics.NewRecorder()
	defer writeMetrics(cfg, recorder)

	source := dataset.NewKaggleSource(newFetchClient(cfg, recorder), fs, cfg.Dataset.APIBaseURL, cfg.Dataset.CacheDirectory, logger.GetLogger())

	reused := source.Cached(cfg.Dataset.Handle)
	if !reused {
		account, err := kaggleAccount()
		if err != nil {
			return err
		}
		source.SetCredentials(account.Username, account.Key)
		console.Printf("Downloading %s as %s...", cfg.Dataset.Handle, account.Username)
	}

	path, err := source.Download(ctx, cfg.Dataset.Handle)
	if err != nil {
		return err
	}
	console.DatasetCached(path, reused)

	return importDataset(console, fs, cfg, path)
}

func runDatasetImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return importDataset(newConsole(cmd), afero.NewOsFs(), cfg, importFrom)
}

func importDataset(console *ui.Console, fs afero.Fs, cfg *config.Config, from string) error {
	importer := dataset.NewImporter(fs, cfg.Dataset.ConvertCSV, logger.GetLogger())
	importer.SetProgress(console)

	start := time.Now()
	console.ImportStarted(cfg.Dataset.TargetDirectory)
	report, err := importer.Import(from, cfg.Dataset.TargetDirectory)
	if err != nil {
		return err
	}
	console.ImportFinished(report.Total(), cfg.Dataset.TargetDirectory, time.Since(start))
	return nil
}

// kaggleAccount resolves the credentials for a download: the --account
// flag names a stored account, otherwise the default lookup applies
func kaggleAccount() (*auth.Account, error) {
	manager, err := newCredentialManager()
	if err != nil {
		return nil, err
	}
	if datasetAccount != "" {
		return manager.Retrieve(datasetAccount)
	}
	account, err := manager.RetrieveDefault()
	if err != nil {
		return nil, fmt.Errorf("no Kaggle credentials found, run \"artscraper auth login\": %w", err)
	}
	return account, nil
}
