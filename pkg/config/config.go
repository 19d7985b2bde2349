package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the artwork scraper
type Config struct {
	// Gallery listing pages and extraction rules
	Gallery GalleryConfig `yaml:"gallery" json:"gallery"`

	// Outbound HTTP settings shared by every request
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Metropolitan Museum collection settings
	Met MetConfig `yaml:"met" json:"met"`

	// Open-access dataset import
	Dataset DatasetConfig `yaml:"dataset" json:"dataset"`

	// Run metrics
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// GalleryConfig describes the static gallery site
type GalleryConfig struct {
	BaseURL         string   `yaml:"base_url" json:"base_url"`
	PageURLs        []string `yaml:"page_urls" json:"page_urls"`
	ContainerClass  string   `yaml:"container_class" json:"container_class"`
	DuplicatePolicy string   `yaml:"duplicate_policy" json:"duplicate_policy"`
}

// HTTPConfig holds the outbound request configuration
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	// RequestsPerMinute caps outbound requests; 0 means unlimited
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory    string `yaml:"directory" json:"directory"`
	ManifestFile string `yaml:"manifest_file" json:"manifest_file"`
}

// MetConfig holds Met Museum API and catalog configuration
type MetConfig struct {
	APIBaseURL    string `yaml:"api_base_url" json:"api_base_url"`
	DataDirectory string `yaml:"data_directory" json:"data_directory"`
	ObjectsFile   string `yaml:"objects_file" json:"objects_file"`
	SampleSize    int    `yaml:"sample_size" json:"sample_size"`
	SampleSeed    int64  `yaml:"sample_seed" json:"sample_seed"`
	TestDirectory string `yaml:"test_directory" json:"test_directory"`
}

// DatasetConfig holds the Kaggle dataset import configuration
type DatasetConfig struct {
	Handle          string `yaml:"handle" json:"handle"`
	APIBaseURL      string `yaml:"api_base_url" json:"api_base_url"`
	CacheDirectory  string `yaml:"cache_directory" json:"cache_directory"`
	TargetDirectory string `yaml:"target_directory" json:"target_directory"`
	ConvertCSV      bool   `yaml:"convert_csv" json:"convert_csv"`
}

// MetricsConfig holds run metrics configuration
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultPageURLs are the paginated listing pages of the complete works
var DefaultPageURLs = []string{
	"https://leonardoda-vinci.org/the-complete-works.html?ps=96",
	"https://leonardoda-vinci.org/the-complete-works_pageno-2.html?ps=96",
	"https://leonardoda-vinci.org/the-complete-works_pageno-3.html?ps=96",
	"https://leonardoda-vinci.org/the-complete-works_pageno-4.html?ps=96",
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	pages := make([]string, len(DefaultPageURLs))
	copy(pages, DefaultPageURLs)

	return &Config{
		Gallery: GalleryConfig{
			BaseURL:         "https://leonardoda-vinci.org",
			PageURLs:        pages,
			ContainerClass:  "row items-list-wrapper",
			DuplicatePolicy: "last-wins",
		},
		HTTP: HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Output: OutputConfig{
			Directory:    filepath.Join("data", "da-vinci-works"),
			ManifestFile: "manifest.parquet",
		},
		Met: MetConfig{
			APIBaseURL:    "https://collectionapi.metmuseum.org/public/collection/v1",
			DataDirectory: filepath.Join("data", "met-museum"),
			ObjectsFile:   "MetObjects.csv",
			SampleSize:    50,
			SampleSeed:    0,
			TestDirectory: "test",
		},
		Dataset: DatasetConfig{
			Handle:          "metmuseum/the-metropolitan-museum-of-art-open-access",
			APIBaseURL:      "https://www.kaggle.com/api/v1",
			CacheDirectory:  defaultCacheDirectory(),
			TargetDirectory: filepath.Join("data", "met-museum"),
			ConvertCSV:      true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultCacheDirectory() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "artscraper", "datasets")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "artscraper", "datasets")
	}
	return filepath.Join(".cache", "artscraper", "datasets")
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("ARTSCRAPER_GALLERY_BASE_URL"); v != "" {
		c.Gallery.BaseURL = v
	}
	if v := os.Getenv("ARTSCRAPER_DUPLICATE_POLICY"); v != "" {
		c.Gallery.DuplicatePolicy = v
	}

	if v := os.Getenv("ARTSCRAPER_HTTP_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ARTSCRAPER_HTTP_TIMEOUT: %w", err))
		} else {
			c.HTTP.Timeout = d
		}
	}
	if v := os.Getenv("ARTSCRAPER_USER_AGENT"); v != "" {
		c.HTTP.UserAgent = v
	}
	if v := os.Getenv("ARTSCRAPER_HTTP_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ARTSCRAPER_HTTP_RATE_LIMIT: %w", err))
		} else {
			c.HTTP.RequestsPerMinute = n
		}
	}

	if v := os.Getenv("ARTSCRAPER_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("ARTSCRAPER_MANIFEST_FILE"); v != "" {
		c.Output.ManifestFile = v
	}

	if v := os.Getenv("ARTSCRAPER_MET_DATA_DIR"); v != "" {
		c.Met.DataDirectory = v
	}
	if v := os.Getenv("ARTSCRAPER_MET_SAMPLE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ARTSCRAPER_MET_SAMPLE_SIZE: %w", err))
		} else if n > 0 {
			c.Met.SampleSize = n
		}
	}

	if v := os.Getenv("ARTSCRAPER_DATASET_CACHE_DIR"); v != "" {
		c.Dataset.CacheDirectory = v
	}

	if v := os.Getenv("ARTSCRAPER_METRICS_TEXTFILE"); v != "" {
		c.Metrics.Textfile = v
	}

	if v := os.Getenv("ARTSCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ARTSCRAPER_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// parseDuration accepts Go durations ("10s") and bare seconds ("10")
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".artscraper.yaml",
		".artscraper.yml",
		filepath.Join(home, ".config", "artscraper", "config.yaml"),
		filepath.Join(home, ".config", "artscraper", "config.yml"),
		filepath.Join(home, ".artscraper.yaml"),
		filepath.Join(home, ".artscraper.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Gallery
	if err := validateHTTPURL(c.Gallery.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("gallery base URL: %w", err))
	}
	if len(c.Gallery.PageURLs) == 0 {
		errs = append(errs, errors.New("at least one gallery page URL is required"))
	}
	for i, page := range c.Gallery.PageURLs {
		if err := validateHTTPURL(page); err != nil {
			errs = append(errs, fmt.Errorf("gallery page URL %d: %w", i+1, err))
		}
	}
	if strings.TrimSpace(c.Gallery.ContainerClass) == "" {
		errs = append(errs, errors.New("gallery container class is required"))
	}
	switch strings.ToLower(strings.TrimSpace(c.Gallery.DuplicatePolicy)) {
	case "", "last-wins", "first-wins", "collect-all":
	default:
		errs = append(errs, fmt.Errorf("invalid duplicate policy: %q", c.Gallery.DuplicatePolicy))
	}

	// HTTP
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("HTTP timeout must be positive"))
	}
	if c.HTTP.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("HTTP rate limit cannot be negative"))
	}

	// Output
	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.ManifestFile == "" {
		errs = append(errs, errors.New("manifest file name is required"))
	}

	// Met
	if err := validateHTTPURL(c.Met.APIBaseURL); err != nil {
		errs = append(errs, fmt.Errorf("met API base URL: %w", err))
	}
	if c.Met.SampleSize <= 0 {
		errs = append(errs, errors.New("met sample size must be positive"))
	}

	// Dataset
	if c.Dataset.Handle != "" && strings.Count(c.Dataset.Handle, "/") != 1 {
		errs = append(errs, fmt.Errorf("dataset handle must be owner/slug, got %q", c.Dataset.Handle))
	}

	// Logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if manifest, ok := flags["manifest"].(string); ok && manifest != "" {
		c.Output.ManifestFile = manifest
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.HTTP.Timeout = timeout
	}
	if limit, ok := flags["rate-limit"].(int); ok && limit >= 0 {
		c.HTTP.RequestsPerMinute = limit
	}
	if policy, ok := flags["duplicate-policy"].(string); ok && policy != "" {
		c.Gallery.DuplicatePolicy = policy
	}
	if textfile, ok := flags["metrics-file"].(string); ok && textfile != "" {
		c.Metrics.Textfile = textfile
	}
	if sampleSize, ok := flags["sample-size"].(int); ok && sampleSize > 0 {
		c.Met.SampleSize = sampleSize
	}
	if seed, ok := flags["seed"].(int64); ok && seed != 0 {
		c.Met.SampleSeed = seed
	}
	if dataDir, ok := flags["met-data-dir"].(string); ok && dataDir != "" {
		c.Met.DataDirectory = dataDir
	}
	if cacheDir, ok := flags["cache-dir"].(string); ok && cacheDir != "" {
		c.Dataset.CacheDirectory = cacheDir
	}
	if target, ok := flags["target-dir"].(string); ok && target != "" {
		c.Dataset.TargetDirectory = target
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".artscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
