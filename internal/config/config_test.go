package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgproxy/internal/config"
	"imgproxy/internal/derivative"
	"imgproxy/internal/params"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HOST", "PORT", "BASE_FILE_API_URL", "BASE_FILE_API_URL_TIMEOUT", "API_KEY",
		"STORAGE_IMPLEMENTATION", "PROCESSING_CACHE_IMPLEMENTATION", "STORAGE_CACHE_SIZE",
		"PROCESSING_CACHE_SIZE", "PERSISTENT_STORAGE_DIR", "CLIENT_CACHE_TTL", "MAX_IMAGE_RESIZE",
		"DEFAULT_EXTENSION", "ALLOW_CUSTOM_EXTENSION", "MAX_OPTIONS_PER_IMAGE",
		"MAX_OPTIONS_PER_IMAGE_OVERFLOW_POLICY", "ENABLE_DOCS",
	} {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 3021, cfg.Port)
	assert.Equal(t, config.InMemory, cfg.StorageImplementation)
	assert.Equal(t, config.InMemory, cfg.CacheImplementation)
	assert.Equal(t, 256, cfg.StorageCacheSize)
	assert.Equal(t, 1024, cfg.ProcessingCacheSize)
	assert.Equal(t, 1920, cfg.MaxResizeWidth)
	assert.Equal(t, 1080, cfg.MaxResizeHeight)
	assert.Equal(t, params.Webp, cfg.DefaultExtension)
	assert.True(t, cfg.AllowCustomExtension)
	assert.Equal(t, 32, cfg.MaxOptionsPerImage)
	assert.Equal(t, derivative.Rewrite, cfg.MaxOptionsOverflowPolicy)
	assert.True(t, cfg.EnableDocs)
	assert.False(t, cfg.FetchEnabled())
}

func TestLoad_RejectsInvalidImplementation(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("STORAGE_IMPLEMENTATION", "Bogus"))
	defer os.Unsetenv("STORAGE_IMPLEMENTATION")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidOverflowPolicy(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("MAX_OPTIONS_PER_IMAGE_OVERFLOW_POLICY", "Bogus"))
	defer os.Unsetenv("MAX_OPTIONS_PER_IMAGE_OVERFLOW_POLICY")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsMalformedMaxImageResize(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("MAX_IMAGE_RESIZE", "not-a-size"))
	defer os.Unsetenv("MAX_IMAGE_RESIZE")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidDefaultExtension(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("DEFAULT_EXTENSION", "Bogus"))
	defer os.Unsetenv("DEFAULT_EXTENSION")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsNonHTTPFileAPIURL(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("BASE_FILE_API_URL", "ftp://example.com"))
	defer os.Unsetenv("BASE_FILE_API_URL")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_FetchEnabledWhenURLSet(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("BASE_FILE_API_URL", "http://files.internal"))
	defer os.Unsetenv("BASE_FILE_API_URL")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.FetchEnabled())
}
