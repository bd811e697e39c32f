// Package config loads server configuration from the environment, in the
// same getEnv/getEnvBool/getEnvInt style the teacher uses.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"imgproxy/internal/derivative"
	"imgproxy/internal/params"
)

// Implementation selects between the in-memory and persistent variants of a
// tier (C2/C3), per spec.md §6.
type Implementation string

const (
	InMemory   Implementation = "InMemory"
	Persistent Implementation = "Persistent"
)

// Config holds every environment-configurable option from spec.md §6.
type Config struct {
	Host string
	Port int

	BaseFileAPIURL        string
	BaseFileAPITimeoutSec int

	APIKey string

	StorageImplementation    Implementation
	CacheImplementation      Implementation
	StorageCacheSize         int
	ProcessingCacheSize      int
	PersistentStorageDir     string
	ClientCacheTTLSeconds    int
	MaxResizeWidth           int
	MaxResizeHeight          int
	DefaultExtension         params.Extension
	AllowCustomExtension     bool
	MaxOptionsPerImage       int
	MaxOptionsOverflowPolicy derivative.OverflowPolicy
	EnableDocs               bool
}

// Load reads Config from the environment, applying the defaults from
// spec.md §6.
func Load() (*Config, error) {
	maxW, maxH, err := parseMaxResize(getEnv("MAX_IMAGE_RESIZE", "1920,1080"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Host: getEnv("HOST", "0.0.0.0"),
		Port: getEnvInt("PORT", 3021),

		BaseFileAPIURL:        getEnv("BASE_FILE_API_URL", ""),
		BaseFileAPITimeoutSec: getEnvInt("BASE_FILE_API_URL_TIMEOUT", 30),

		APIKey: getEnv("API_KEY", ""),

		StorageImplementation:    Implementation(getEnv("STORAGE_IMPLEMENTATION", string(InMemory))),
		CacheImplementation:      Implementation(getEnv("PROCESSING_CACHE_IMPLEMENTATION", string(InMemory))),
		StorageCacheSize:         getEnvInt("STORAGE_CACHE_SIZE", 256),
		ProcessingCacheSize:      getEnvInt("PROCESSING_CACHE_SIZE", 1024),
		PersistentStorageDir:     getEnv("PERSISTENT_STORAGE_DIR", ".imgr-serve"),
		ClientCacheTTLSeconds:    getEnvInt("CLIENT_CACHE_TTL", 31536000),
		MaxResizeWidth:           maxW,
		MaxResizeHeight:          maxH,
		DefaultExtension:         params.Extension(getEnv("DEFAULT_EXTENSION", string(params.Webp))),
		AllowCustomExtension:     getEnvBool("ALLOW_CUSTOM_EXTENSION", true),
		MaxOptionsPerImage:       getEnvInt("MAX_OPTIONS_PER_IMAGE", 32),
		MaxOptionsOverflowPolicy: derivative.OverflowPolicy(getEnv("MAX_OPTIONS_PER_IMAGE_OVERFLOW_POLICY", string(derivative.Rewrite))),
		EnableDocs:               getEnvBool("ENABLE_DOCS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configuration combinations that would otherwise fail
// obscurely later (an unrecognized tier implementation, an invalid overflow
// policy, or a BaseFileAPIURL without a usable scheme).
func (c *Config) Validate() error {
	if c.StorageImplementation != InMemory && c.StorageImplementation != Persistent {
		return fmt.Errorf("config: invalid STORAGE_IMPLEMENTATION %q", c.StorageImplementation)
	}
	if c.CacheImplementation != InMemory && c.CacheImplementation != Persistent {
		return fmt.Errorf("config: invalid PROCESSING_CACHE_IMPLEMENTATION %q", c.CacheImplementation)
	}
	if c.MaxOptionsOverflowPolicy != derivative.Restrict && c.MaxOptionsOverflowPolicy != derivative.Rewrite {
		return fmt.Errorf("config: invalid MAX_OPTIONS_PER_IMAGE_OVERFLOW_POLICY %q", c.MaxOptionsOverflowPolicy)
	}
	if c.MaxOptionsPerImage <= 0 {
		return fmt.Errorf("config: MAX_OPTIONS_PER_IMAGE must be positive")
	}
	if !c.DefaultExtension.Valid() {
		return fmt.Errorf("config: invalid DEFAULT_EXTENSION %q", c.DefaultExtension)
	}
	if c.BaseFileAPIURL != "" && !strings.HasPrefix(c.BaseFileAPIURL, "http://") && !strings.HasPrefix(c.BaseFileAPIURL, "https://") {
		return fmt.Errorf("config: BASE_FILE_API_URL must be an http(s) URL")
	}
	return nil
}

// FetchEnabled reports whether upstream fetch is configured.
func (c *Config) FetchEnabled() bool { return c.BaseFileAPIURL != "" }

// Bounds derives the params.Bounds request validation is checked against.
func (c *Config) Bounds() params.Bounds {
	return params.Bounds{
		MaxWidth:         c.MaxResizeWidth,
		MaxHeight:        c.MaxResizeHeight,
		DefaultExtension: c.DefaultExtension,
		AllowCustomExt:   c.AllowCustomExtension,
	}
}

func parseMaxResize(raw string) (int, int, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("config: MAX_IMAGE_RESIZE must be \"<width>,<height>\", got %q", raw)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("config: invalid MAX_IMAGE_RESIZE width %q", parts[0])
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("config: invalid MAX_IMAGE_RESIZE height %q", parts[1])
	}
	return w, h, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
