package main

import (
	"fmt"
	"path/filepath"

	"artscraper/pkg/manifest"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect run manifests",
}

var manifestShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Summarize a manifest and list its failed artworks",
	Long: `Read a Parquet manifest and print how many artworks were acquired.

Without a path the manifest of the configured output directory is read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runManifestShow,
}

var showAll bool

func init() {
	manifestShowCmd.Flags().BoolVar(&showAll, "all", false, "list every row, not only failures")
	manifestCmd.AddCommand(manifestShowCmd)
	rootCmd.AddCommand(manifestCmd)
}

func runManifestShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.Output.Directory, cfg.Output.ManifestFile)
	if len(args) == 1 {
		path = args[0]
	}

	entries, err := manifest.Read(afero.NewReadOnlyFs(afero.NewOsFs()), path)
	if err != nil {
		return err
	}

	console := newConsole(cmd)
	summary := manifest.Summarize(entries)

	console.PrintRule()
	console.PrintHighlight("MANIFEST SUMMARY")
	console.PrintRule()
	console.PrintInfo("File", path)
	console.PrintInfo("Artworks", humanize.Comma(int64(summary.Total)))
	console.PrintInfo("Successful", humanize.Comma(int64(summary.Successful)))
	console.PrintInfo("Failed", humanize.Comma(int64(summary.Failed)))

	rows := manifest.Failed(entries)
	if showAll {
		rows = entries
	}
	if len(rows) == 0 {
		if summary.Failed == 0 && summary.Total > 0 {
			console.PrintSuccess("Every artwork was acquired")
		}
		return nil
	}

	console.Printf("")
	for _, e := range rows {
		line := fmt.Sprintf("%4d  %-7s  %s", e.ID, e.Status, e.OriginalTitle)
		if e.Status == manifest.StatusFailed {
			console.PrintWarning(fmt.Sprintf("%s (%s)", line, e.Error))
			continue
		}
		console.Printf("%s -> %s", line, e.Filename)
	}
	return nil
}
