package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	CacheDir    string
	BaseURL     string
	BoundaryURL string
	StylePath   string

	// EPSG codes for the source archives and the rendering CRS.
	SourceCRS int
	TargetCRS int

	HTTPTimeout     time.Duration
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string
}

// Defaults for the public USDM portal and the Census national boundary file.
const (
	defaultBaseURL     = "https://droughtmonitor.unl.edu"
	defaultBoundaryURL = "https://www2.census.gov/geo/tiger/GENZ2023/shp/cb_2023_us_state_20m.zip"
)

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	httpTimeout, err := parseDuration("HTTP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	sourceCRS, err := parseEPSG("SOURCE_CRS", "EPSG:4326")
	if err != nil {
		return nil, err
	}

	targetCRS, err := parseEPSG("TARGET_CRS", "EPSG:4326")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CacheDir:    envOrDefault("CACHE_DIR", ".cache"),
		BaseURL:     strings.TrimSuffix(envOrDefault("USDM_BASE_URL", defaultBaseURL), "/"),
		BoundaryURL: envOrDefault("BOUNDARY_URL", defaultBoundaryURL),
		StylePath:   os.Getenv("STYLE_PATH"),

		SourceCRS: sourceCRS,
		TargetCRS: targetCRS,

		HTTPTimeout:     httpTimeout,
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.CacheDir == "" {
		return nil, errors.New("CACHE_DIR is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("USDM_BASE_URL is required")
	}
	if cfg.BoundaryURL == "" {
		return nil, errors.New("BOUNDARY_URL is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// parseEPSG accepts a bare numeric code or the "EPSG:<code>" form.
func parseEPSG(key, def string) (int, error) {
	v := envOrDefault(key, def)
	trimmed := strings.TrimPrefix(strings.ToUpper(v), "EPSG:")
	code, err := strconv.Atoi(trimmed)
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return code, nil
}
