// Package logger provides the structured logging interface used across
// artscraper.
//
// It wraps zerolog with a small API:
//   - levelled methods (Debug, Info, Warn, Error, Fatal)
//   - child loggers carrying fields (WithField, WithFields, WithError)
//   - coloured console output on stderr, optional JSON file output
//   - a global instance plus package-level shortcuts
//
// Usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "gallery")
//	log.InfoWithFields("Gallery page extracted", map[string]interface{}{
//	    "page":   1,
//	    "images": 96,
//	})
//
// Components take a Logger in their constructor; tests pass NewTestLogger
// or NewNopLogger.
package logger
