package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty site url",
			mutate: func(cfg *Config) {
				cfg.SiteURL = ""
			},
			wantErr: "site URL",
		},
		{
			name: "download url without host",
			mutate: func(cfg *Config) {
				cfg.DownloadURL = "http://"
			},
			wantErr: "download URL",
		},
		{
			name: "zero attempts",
			mutate: func(cfg *Config) {
				cfg.MaxAttempts = 0
			},
			wantErr: "max attempts",
		},
		{
			name: "negative backoff",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = -time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "zero health timeout",
			mutate: func(cfg *Config) {
				cfg.HealthTimeout = 0
			},
			wantErr: "health timeout",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "file format without file",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "sqlite"
				cfg.OutputFile = ""
			},
			wantErr: "output file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("VITIBRASIL_TEST_INT", " 4 ")
	t.Setenv("VITIBRASIL_TEST_BAD", "four")
	t.Setenv("VITIBRASIL_TEST_DURATION", "150ms")
	t.Setenv("VITIBRASIL_TEST_EMPTY", "   ")

	if n, ok, err := EnvInt("VITIBRASIL_TEST_INT"); err != nil || !ok || n != 4 {
		t.Fatalf("EnvInt = %d, %v, %v; want 4, true, nil", n, ok, err)
	}
	if _, _, err := EnvInt("VITIBRASIL_TEST_BAD"); err == nil {
		t.Fatalf("expected parse error for non-numeric value")
	}
	if d, ok, err := EnvDuration("VITIBRASIL_TEST_DURATION"); err != nil || !ok || d != 150*time.Millisecond {
		t.Fatalf("EnvDuration = %v, %v, %v; want 150ms, true, nil", d, ok, err)
	}
	if _, ok := EnvString("VITIBRASIL_TEST_EMPTY"); ok {
		t.Fatalf("blank value should be treated as unset")
	}
	if _, ok := EnvString("VITIBRASIL_TEST_MISSING"); ok {
		t.Fatalf("missing value should be unset")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("VITIBRASIL_FORMAT", "CSV")
	t.Setenv("VITIBRASIL_OUTPUT", "out/records.csv")
	t.Setenv("VITIBRASIL_MAX_ATTEMPTS", "5")
	t.Setenv("VITIBRASIL_RETRY_BACKOFF", "500ms")

	cfg := DefaultConfig()
	if err := cfg.LoadEnv(); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.OutputFormat != "csv" || cfg.OutputFile != "out/records.csv" {
		t.Fatalf("output = %s %s", cfg.OutputFormat, cfg.OutputFile)
	}
	if cfg.MaxAttempts != 5 || cfg.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("retry = %d %v", cfg.MaxAttempts, cfg.RetryBackoff)
	}
	if cfg.Timeout != DefaultConfig().Timeout {
		t.Fatalf("unset variables must keep defaults")
	}

	t.Setenv("VITIBRASIL_WORKERS", "many")
	if err := DefaultConfig().LoadEnv(); err == nil {
		t.Fatalf("expected error for invalid VITIBRASIL_WORKERS")
	}
}
