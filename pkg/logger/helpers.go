package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// orGlobal falls back to the global logger when l is nil
func orGlobal(l Logger) Logger {
	if l == nil {
		return GetLogger()
	}
	return l
}

// LogRequest logs a completed HTTP exchange. Status 0 means no response was
// received.
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": float64(duration.Microseconds()) / 1000,
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		orGlobal(l).DebugWithFields("HTTP request completed", fields)
	case statusCode >= 500:
		orGlobal(l).ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		orGlobal(l).WarnWithFields("HTTP request client error", fields)
	default:
		orGlobal(l).DebugWithFields("HTTP request finished", fields)
	}
}

// LogPage logs the outcome of extracting one gallery listing page
func LogPage(l Logger, pageURL string, number, images, added int, err error) {
	entry := orGlobal(l).WithFields(map[string]interface{}{
		"page":   number,
		"url":    pageURL,
		"images": images,
		"added":  added,
	})

	if err != nil {
		entry.WithError(err).Warn("Gallery page skipped")
		return
	}
	entry.Info("Gallery page extracted")
}

// LogDownload logs a single artwork acquisition
func LogDownload(l Logger, title, filename, outcome string, err error) {
	entry := orGlobal(l).WithFields(map[string]interface{}{
		"title":    title,
		"filename": filename,
		"outcome":  outcome,
	})

	switch {
	case err != nil:
		entry.WithError(err).Warn("Download failed")
	case outcome == "skipped":
		entry.Debug("Download skipped")
	default:
		entry.Debug("Download completed")
	}
}

// LogDuplicate logs a title that appeared more than once across pages
func LogDuplicate(l Logger, title, earlierURL, laterURL, policy string) {
	orGlobal(l).WarnWithFields("Duplicate artwork title", map[string]interface{}{
		"title":       title,
		"earlier_url": earlierURL,
		"later_url":   laterURL,
		"policy":      policy,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	entry := orGlobal(l).WithField("component", component)
	if len(settings) > 0 {
		entry = entry.WithFields(settings)
	}
	entry.Info("Component started")
}

// LogMetrics logs run totals
func LogMetrics(l Logger, operation string, metrics map[string]interface{}) {
	fields := map[string]interface{}{
		"operation": operation,
		"type":      "metrics",
	}
	for k, v := range metrics {
		fields[k] = v
	}
	orGlobal(l).InfoWithFields(fmt.Sprintf("%s finished", operation), fields)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
