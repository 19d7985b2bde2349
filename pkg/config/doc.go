// Package config loads the artscraper configuration.
//
// Sources are applied in order, later ones winning:
//
//	defaults < YAML file < .env < environment < command line flags
//
// Load with all sources:
//
//	cfg, err := config.Load("", nil)
//
// Load with a custom file and flags:
//
//	flags := map[string]interface{}{
//	    "output":           "./works",
//	    "duplicate-policy": "collect-all",
//	    "timeout":          30 * time.Second,
//	}
//	cfg, err := config.Load("/path/to/config.yaml", flags)
//
// Environment variables:
//
//	export ARTSCRAPER_OUTPUT_DIR="./works"
//	export ARTSCRAPER_HTTP_TIMEOUT="30s"
//	export ARTSCRAPER_DUPLICATE_POLICY="first-wins"
//	export ARTSCRAPER_LOG_LEVEL="debug"
package config
