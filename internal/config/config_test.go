package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".cache", cfg.CacheDir)
	assert.Equal(t, "https://droughtmonitor.unl.edu", cfg.BaseURL)
	assert.Contains(t, cfg.BoundaryURL, "census.gov")
	assert.Empty(t, cfg.StylePath)
	assert.Equal(t, 4326, cfg.SourceCRS)
	assert.Equal(t, 4326, cfg.TargetCRS)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("CACHE_DIR", "/var/cache/droughtmap")
	t.Setenv("USDM_BASE_URL", "http://localhost:9000/")
	t.Setenv("BOUNDARY_URL", "http://localhost:9000/us.zip")
	t.Setenv("STYLE_PATH", "style.yaml")
	t.Setenv("SOURCE_CRS", "EPSG:3857")
	t.Setenv("TARGET_CRS", "4326")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/droughtmap", cfg.CacheDir)
	assert.Equal(t, "http://localhost:9000", cfg.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, "http://localhost:9000/us.zip", cfg.BoundaryURL)
	assert.Equal(t, "style.yaml", cfg.StylePath)
	assert.Equal(t, 3857, cfg.SourceCRS)
	assert.Equal(t, 4326, cfg.TargetCRS)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_InvalidHTTPTimeout(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidSourceCRS(t *testing.T) {
	t.Setenv("SOURCE_CRS", "WGS84")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOURCE_CRS")
}

func TestLoad_InvalidTargetCRS(t *testing.T) {
	t.Setenv("TARGET_CRS", "EPSG:")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TARGET_CRS")
}

func TestParseEPSG_Forms(t *testing.T) {
	t.Setenv("SOURCE_CRS", "epsg:3857")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3857, cfg.SourceCRS)
}
