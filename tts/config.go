package tts

import (
	"fmt"
	"time"
)

// Config holds the full ttskit configuration: routing behavior, engine
// blocks, cache limits, and the HTTP server settings.
type Config struct {
	// Routing
	DefaultLanguage string
	FallbackMode    string // "best-only" or "full-chain"
	Policies        map[string][]string

	// Engine blocks
	GTTS        GTTSConfig
	GoogleCloud GoogleCloudConfig
	Piper       PiperConfig
	Mock        MockConfig

	// Response cache
	Cache CacheConfig

	// HTTP API server
	Server ServerConfig
}

// GTTSConfig configures the Google Translate TTS engine.
type GTTSConfig struct {
	Enabled           bool
	Slow              bool // Use the slow speaking variant
	Timeout           time.Duration
	RequestsPerMinute int // Throttle on outgoing requests, 0 uses the default
}

// GoogleCloudConfig configures the Google Cloud Text-to-Speech engine.
type GoogleCloudConfig struct {
	Enabled         bool
	CredentialsFile string // Service account JSON; empty uses ADC
	Timeout         time.Duration
}

// PiperConfig configures the local Piper neural TTS engine.
type PiperConfig struct {
	Enabled    bool
	Binary     string
	ModelPath  string
	ConfigPath string // Defaults to ModelPath with .json extension
	SpeakerID  int
	Timeout    time.Duration
}

// MockConfig configures the deterministic mock engine used for testing and
// offline demos.
type MockConfig struct {
	Enabled         bool
	GenerationDelay time.Duration
	FailureRate     float64 // 0.0 never fails, 1.0 always fails
}

// CacheConfig configures the two-level response cache.
type CacheConfig struct {
	Enabled          bool
	Dir              string // Disk cache directory; empty uses the app cache dir
	MemoryCapacityMB int
	DiskCapacityMB   int
	CompressionLevel int // Zstd level, 0 disables compression
	TTLDays          int
}

// ServerConfig configures the HTTP API front end.
type ServerConfig struct {
	Addr           string
	RateLimitRPM   int // Requests per minute per client, 0 disables limiting
	RateLimitBurst int
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		DefaultLanguage: "en",
		FallbackMode:    "best-only",
		Policies:        map[string][]string{},
		GTTS: GTTSConfig{
			Enabled:           true,
			Timeout:           10 * time.Second,
			RequestsPerMinute: 50,
		},
		GoogleCloud: GoogleCloudConfig{
			Timeout: 10 * time.Second,
		},
		Piper: PiperConfig{
			Binary:  "piper",
			Timeout: 30 * time.Second,
		},
		Mock: MockConfig{
			GenerationDelay: 100 * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled:          true,
			MemoryCapacityMB: 100,
			DiskCapacityMB:   1024,
			CompressionLevel: 3,
			TTLDays:          7,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RateLimitRPM:   120,
			RateLimitBurst: 10,
			AllowedOrigins: []string{"*"},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
		},
	}
}

// Validate checks configuration values for consistency.
func (c Config) Validate() error {
	if _, err := ParseFallbackMode(c.FallbackMode); err != nil {
		return err
	}
	if c.DefaultLanguage == "" {
		return fmt.Errorf("default language cannot be empty")
	}
	if c.Mock.FailureRate < 0 || c.Mock.FailureRate > 1 {
		return fmt.Errorf("mock failure rate must be between 0.0 and 1.0, got %.2f", c.Mock.FailureRate)
	}
	if c.Cache.Enabled {
		if c.Cache.MemoryCapacityMB < 1 || c.Cache.MemoryCapacityMB > 10000 {
			return fmt.Errorf("cache memory capacity must be between 1 and 10000 MB, got %d", c.Cache.MemoryCapacityMB)
		}
		if c.Cache.CompressionLevel < 0 || c.Cache.CompressionLevel > 22 {
			return fmt.Errorf("cache compression level must be between 0 and 22, got %d", c.Cache.CompressionLevel)
		}
	}
	if c.Server.RateLimitRPM < 0 {
		return fmt.Errorf("rate limit rpm cannot be negative, got %d", c.Server.RateLimitRPM)
	}
	if c.GTTS.RequestsPerMinute < 0 {
		return fmt.Errorf("gtts requests per minute cannot be negative, got %d", c.GTTS.RequestsPerMinute)
	}
	if c.Piper.Enabled && c.Piper.ModelPath == "" {
		return fmt.Errorf("piper engine enabled but no model path configured")
	}
	return nil
}
