package main

import (
	"context"
	"io"
	"time"

	"artscraper/pkg/config"
	"artscraper/pkg/logger"
	"artscraper/pkg/metrics"
	"artscraper/pkg/scraper"
	"artscraper/pkg/ui/tui"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Scrape the configured gallery site",
	Long: `Fetch every configured listing page, download the artwork images it
lists and write a Parquet manifest with one row per artwork.

Images already present in the output directory are kept and not fetched again.
A failed download never stops the run; it is recorded in the manifest.`,
	Args: cobra.NoArgs,
	RunE: runGallery,
}

// Gallery flags
var (
	useTUI bool
)

// The dashboard is a drop-in progress sink for a run
var _ scraper.Progress = (*tui.Dashboard)(nil)

func init() {
	addGalleryFlags(galleryCmd)
	rootCmd.AddCommand(galleryCmd)
}

// addGalleryFlags registers the gallery flags on cmd. The root command
// carries them too since a bare invocation runs the gallery scrape.
func addGalleryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "directory images and the manifest are written to")
	cmd.Flags().String("manifest", "", "manifest file name inside the output directory")
	cmd.Flags().Duration("timeout", 0, "per-request timeout (e.g. 10s)")
	cmd.Flags().String("duplicate-policy", "", "how repeated titles are kept (last-wins, first-wins, collect-all)")
	cmd.Flags().String("metrics-file", "", "write run metrics to this Prometheus textfile")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "show a full-screen dashboard instead of progress lines")
}

func runGallery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	recorder := metrics.NewRecorder()
	opts := []scraper.Option{
		scraper.WithOutput(cmd.OutOrStdout()),
		scraper.WithRecorder(recorder),
	}

	if useTUI {
		return runGalleryDashboard(ctx, cfg, opts)
	}

	s, err := scraper.New(cfg, opts...)
	if err != nil {
		return err
	}
	s.Console().SetQuiet(quiet)

	report, err := s.Run(ctx)
	if err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"run_id":     report.RunID.String(),
		"successful": report.Summary.Successful(),
		"failed":     report.Summary.Failed,
		"started":    humanize.Time(report.StartedAt),
	}).Debug("Gallery run complete")
	return nil
}

// runGalleryDashboard runs the scrape in the background while the dashboard
// owns the terminal. Quitting the dashboard early cancels the run.
func runGalleryDashboard(ctx context.Context, cfg *config.Config, opts []scraper.Option) error {
	// Log lines would tear the alternate screen; only a log file stays active
	log, err := logger.NewWithWriter(&cfg.Logging, io.Discard)
	if err != nil {
		return err
	}
	logger.SetLogger(log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	dash := tui.NewDashboard(len(cfg.Gallery.PageURLs), cancel)
	opts = append(opts, scraper.WithProgress(dash), scraper.WithLogger(log))

	s, err := scraper.New(cfg, opts...)
	if err != nil {
		return err
	}

	runErr := make(chan error, 1)
	go func() {
		_, err := s.Run(runCtx)
		runErr <- err
		dash.Finish(err)
	}()

	if err := dash.Run(); err != nil {
		cancel()
		return err
	}

	// The user may quit before the run has wound down
	cancel()
	select {
	case err := <-runErr:
		return err
	case <-time.After(cfg.HTTP.Timeout + time.Second):
		return context.Canceled
	}
}
