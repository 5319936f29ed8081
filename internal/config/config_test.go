package config

import (
	"testing"

	"surveystat/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DATA_RAW_PATH", "DATA_PROCESSED_PATH", "DATA_OUTPUT_PATH",
		"DEFAULT_SIGNIFICANCE_LEVEL", "DEFAULT_CONFIDENCE_INTERVAL", "MAX_MISSING_THRESHOLD",
		"DEFAULT_DPI", "DEFAULT_FIGURE_SIZE", "ANALYSIS_WORKERS", "REPORT_STORE",
		"DATABASE_URL", "PORT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if *cfg != *want {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DEFAULT_SIGNIFICANCE_LEVEL", "0.01")
	t.Setenv("DEFAULT_FIGURE_SIZE", "10, 6")
	t.Setenv("DEFAULT_DPI", "150")
	t.Setenv("ANALYSIS_WORKERS", "8")
	t.Setenv("REPORT_STORE", "POSTGRES")
	t.Setenv("DATABASE_URL", "postgres://localhost/survey")
	t.Setenv("DATA_OUTPUT_PATH", "/tmp/reports")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.SignificanceLevel != 0.01 {
		t.Errorf("significance = %v", cfg.Analysis.SignificanceLevel)
	}
	if cfg.Charts.Width != 10 || cfg.Charts.Height != 6 || cfg.Charts.DPI != 150 {
		t.Errorf("charts = %+v", cfg.Charts)
	}
	if cfg.Analysis.Workers != 8 {
		t.Errorf("workers = %d", cfg.Analysis.Workers)
	}
	if cfg.Store.Backend != StorePostgres {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	if cfg.Paths.Output != "/tmp/reports" {
		t.Errorf("output = %q", cfg.Paths.Output)
	}
}

func TestLoadRejectsBadFigureSize(t *testing.T) {
	t.Setenv("DEFAULT_FIGURE_SIZE", "12x8")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.GetCode(err) != errors.CodeConfigInvalid {
		t.Errorf("code = %s", errors.GetCode(err))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"alpha zero", func(c *Config) { c.Analysis.SignificanceLevel = 0 }},
		{"alpha one", func(c *Config) { c.Analysis.SignificanceLevel = 1 }},
		{"confidence", func(c *Config) { c.Analysis.ConfidenceInterval = 1.2 }},
		{"threshold", func(c *Config) { c.Analysis.MaxMissingThreshold = -0.1 }},
		{"workers", func(c *Config) { c.Analysis.Workers = 0 }},
		{"dpi", func(c *Config) { c.Charts.DPI = 0 }},
		{"height", func(c *Config) { c.Charts.Height = 0 }},
		{"postgres without url", func(c *Config) { c.Store.Backend = StorePostgres }},
		{"unknown store", func(c *Config) { c.Store.Backend = "s3" }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if errors.GetCode(err) != errors.CodeConfigInvalid {
				t.Errorf("code = %s", errors.GetCode(err))
			}
		})
	}
}

func TestParseFigureSize(t *testing.T) {
	w, h, err := ParseFigureSize("12,8")
	if err != nil || w != 12 || h != 8 {
		t.Fatalf("ParseFigureSize = %v, %v, %v", w, h, err)
	}
	for _, bad := range []string{"", "12", "a,b", "0,8", "12,-1"} {
		if _, _, err := ParseFigureSize(bad); err == nil {
			t.Errorf("ParseFigureSize(%q) should fail", bad)
		}
	}
}
