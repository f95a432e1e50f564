package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds acquisition and output configuration.
type Config struct {
	SiteURL       string
	DownloadURL   string
	Timeout       time.Duration
	HealthTimeout time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	Delay         time.Duration
	UserAgent     string
	OutputFile    string
	OutputFormat  string // table, csv, json, dual or sqlite
	BatchSize     int
	Workers       int
	MetricsAddr   string
	Verbose       bool

	// CSVCacheSize bounds the downloaded CSV bodies kept in memory; 0
	// disables the cache. Entries expire after CSVCacheTTL.
	CSVCacheSize int
	CSVCacheTTL  time.Duration
}

// DefaultConfig returns defaults for the public VitiBrasil site.
func DefaultConfig() *Config {
	return &Config{
		SiteURL:       "http://vitibrasil.cnpuv.embrapa.br/index.php",
		DownloadURL:   "http://vitibrasil.cnpuv.embrapa.br/download/",
		Timeout:       10 * time.Second,
		HealthTimeout: 5 * time.Second,
		MaxAttempts:   3,
		RetryBackoff:  2 * time.Second,
		Delay:         0,
		UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		OutputFile:    "",
		OutputFormat:  "table",
		BatchSize:     256,
		Workers:       2,
		MetricsAddr:   "",
		Verbose:       false,
		CSVCacheSize:  16,
		CSVCacheTTL:   15 * time.Minute,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := validateURL("site URL", c.SiteURL); err != nil {
		return err
	}
	if err := validateURL("download URL", c.DownloadURL); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.HealthTimeout <= 0 {
		return fmt.Errorf("health timeout must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	switch c.OutputFormat {
	case "table", "csv", "json", "dual", "sqlite":
	default:
		return fmt.Errorf("output format must be table, csv, json, dual, or sqlite")
	}
	if c.OutputFormat != "table" && c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty for %s output", c.OutputFormat)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.CSVCacheSize < 0 {
		return fmt.Errorf("csv cache size cannot be negative")
	}
	if c.CSVCacheSize > 0 && c.CSVCacheTTL <= 0 {
		return fmt.Errorf("csv cache ttl must be positive")
	}
	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer when it is set.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvDuration parses key as a time.Duration when it is set.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// LoadEnv overrides fields from VITIBRASIL_* variables that are set.
func (c *Config) LoadEnv() error {
	for key, dst := range map[string]*string{
		"VITIBRASIL_SITE_URL":     &c.SiteURL,
		"VITIBRASIL_DOWNLOAD_URL": &c.DownloadURL,
		"VITIBRASIL_OUTPUT":       &c.OutputFile,
		"VITIBRASIL_FORMAT":       &c.OutputFormat,
		"VITIBRASIL_METRICS_ADDR": &c.MetricsAddr,
	} {
		if value, ok := EnvString(key); ok {
			*dst = value
		}
	}
	for key, dst := range map[string]*int{
		"VITIBRASIL_MAX_ATTEMPTS":   &c.MaxAttempts,
		"VITIBRASIL_WORKERS":        &c.Workers,
		"VITIBRASIL_BATCH_SIZE":     &c.BatchSize,
		"VITIBRASIL_CSV_CACHE_SIZE": &c.CSVCacheSize,
	} {
		value, ok, err := EnvInt(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}
	for key, dst := range map[string]*time.Duration{
		"VITIBRASIL_TIMEOUT":        &c.Timeout,
		"VITIBRASIL_HEALTH_TIMEOUT": &c.HealthTimeout,
		"VITIBRASIL_RETRY_BACKOFF":  &c.RetryBackoff,
		"VITIBRASIL_DELAY":          &c.Delay,
		"VITIBRASIL_CSV_CACHE_TTL":  &c.CSVCacheTTL,
	} {
		value, ok, err := EnvDuration(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}
	c.OutputFormat = strings.ToLower(c.OutputFormat)
	return nil
}
