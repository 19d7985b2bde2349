// Package scraper runs the complete gallery workflow.
//
// A run has three phases, executed in order:
//
//   - extraction: every configured listing page is fetched and its artwork
//     titles and image URLs are collected (package gallery)
//   - acquisition: each artwork image is downloaded into the output
//     directory unless a file of the same name is already there
//     (package acquire)
//   - manifest: one row per artwork is written to a Parquet file in the
//     output directory (package manifest)
//
// Usage:
//
//	cfg, err := config.Load("", nil)
//	if err != nil {
//	    return err
//	}
//
//	s, err := scraper.New(cfg, scraper.WithRecorder(metrics.NewRecorder()))
//	if err != nil {
//	    return err
//	}
//
//	report, err := s.Run(ctx)
//
// Re-running against the same output directory downloads only what is
// missing; files already present are reported as skipped and still appear
// in the manifest with status success.
package scraper
