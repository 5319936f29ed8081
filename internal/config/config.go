package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"surveystat/internal/errors"
)

// Report store backends
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	Paths    PathConfig
	Analysis AnalysisConfig
	Charts   ChartConfig
	Store    StoreConfig
	Server   ServerConfig
	Log      LogConfig
}

// PathConfig holds data directories
type PathConfig struct {
	Raw       string
	Processed string
	Output    string
}

// AnalysisConfig holds statistical defaults
type AnalysisConfig struct {
	SignificanceLevel   float64
	ConfidenceInterval  float64
	MaxMissingThreshold float64
	Workers             int
}

// ChartConfig holds figure settings. Sizes are in inches.
type ChartConfig struct {
	DPI    int
	Width  float64
	Height float64
}

// StoreConfig selects where report runs are archived
type StoreConfig struct {
	Backend     string
	DatabaseURL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	charts, err := loadChartConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load chart configuration")
	}

	config := &Config{
		Paths:    loadPathConfig(),
		Analysis: loadAnalysisConfig(),
		Charts:   charts,
		Store:    loadStoreConfig(),
		Server:   ServerConfig{Port: getEnvOrDefault("PORT", "8080")},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Default returns the built-in defaults without reading the environment
func Default() *Config {
	return &Config{
		Paths: PathConfig{
			Raw:       "data/raw",
			Processed: "data/processed",
			Output:    "data/output",
		},
		Analysis: AnalysisConfig{
			SignificanceLevel:   0.05,
			ConfidenceInterval:  0.95,
			MaxMissingThreshold: 0.1,
			Workers:             4,
		},
		Charts: ChartConfig{DPI: 300, Width: 12, Height: 8},
		Store:  StoreConfig{Backend: StoreFile},
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

func loadPathConfig() PathConfig {
	return PathConfig{
		Raw:       getEnvOrDefault("DATA_RAW_PATH", "data/raw"),
		Processed: getEnvOrDefault("DATA_PROCESSED_PATH", "data/processed"),
		Output:    getEnvOrDefault("DATA_OUTPUT_PATH", "data/output"),
	}
}

func loadAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		SignificanceLevel:   getEnvFloatOrDefault("DEFAULT_SIGNIFICANCE_LEVEL", 0.05),
		ConfidenceInterval:  getEnvFloatOrDefault("DEFAULT_CONFIDENCE_INTERVAL", 0.95),
		MaxMissingThreshold: getEnvFloatOrDefault("MAX_MISSING_THRESHOLD", 0.1),
		Workers:             getEnvIntOrDefault("ANALYSIS_WORKERS", 4),
	}
}

func loadChartConfig() (ChartConfig, error) {
	width, height, err := ParseFigureSize(getEnvOrDefault("DEFAULT_FIGURE_SIZE", "12,8"))
	if err != nil {
		return ChartConfig{}, err
	}
	return ChartConfig{
		DPI:    getEnvIntOrDefault("DEFAULT_DPI", 300),
		Width:  width,
		Height: height,
	}, nil
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		Backend:     strings.ToLower(getEnvOrDefault("REPORT_STORE", StoreFile)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}

// ParseFigureSize parses "width,height" in inches
func ParseFigureSize(value string) (float64, float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, errors.ConfigInvalid(fmt.Sprintf("DEFAULT_FIGURE_SIZE must be \"width,height\", got %q", value))
	}
	width, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, errors.ConfigInvalid(fmt.Sprintf("invalid figure width %q", parts[0]))
	}
	height, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, errors.ConfigInvalid(fmt.Sprintf("invalid figure height %q", parts[1]))
	}
	if width <= 0 || height <= 0 {
		return 0, 0, errors.ConfigInvalid(fmt.Sprintf("figure size must be positive, got %q", value))
	}
	return width, height, nil
}

// Validate checks ranges and cross-field requirements
func (c *Config) Validate() error {
	a := c.Analysis
	if a.SignificanceLevel <= 0 || a.SignificanceLevel >= 1 {
		return errors.ConfigInvalid(fmt.Sprintf("significance level must be in (0,1), got %v", a.SignificanceLevel))
	}
	if a.ConfidenceInterval <= 0 || a.ConfidenceInterval >= 1 {
		return errors.ConfigInvalid(fmt.Sprintf("confidence interval must be in (0,1), got %v", a.ConfidenceInterval))
	}
	if a.MaxMissingThreshold < 0 || a.MaxMissingThreshold > 1 {
		return errors.ConfigInvalid(fmt.Sprintf("missing threshold must be in [0,1], got %v", a.MaxMissingThreshold))
	}
	if a.Workers < 1 {
		return errors.ConfigInvalid("ANALYSIS_WORKERS must be at least 1")
	}
	if c.Charts.DPI <= 0 {
		return errors.ConfigInvalid(fmt.Sprintf("DPI must be positive, got %d", c.Charts.DPI))
	}
	if c.Charts.Width <= 0 || c.Charts.Height <= 0 {
		return errors.ConfigInvalid("figure size must be positive")
	}
	switch c.Store.Backend {
	case StoreFile:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required when REPORT_STORE=postgres")
		}
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown REPORT_STORE %q", c.Store.Backend))
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
