package tts

import (
	"testing"

	"github.com/spf13/viper"
)

func TestConfig_DefaultsValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.DefaultLanguage != "en" {
		t.Errorf("DefaultLanguage = %q, want en", cfg.DefaultLanguage)
	}
	if cfg.FallbackMode != "best-only" {
		t.Errorf("FallbackMode = %q, want best-only", cfg.FallbackMode)
	}
	if !cfg.GTTS.Enabled {
		t.Error("gtts should be enabled by default")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(*Config) {}, false},
		{"bad fallback mode", func(c *Config) { c.FallbackMode = "sometimes" }, true},
		{"empty default language", func(c *Config) { c.DefaultLanguage = "" }, true},
		{"mock failure rate too high", func(c *Config) { c.Mock.FailureRate = 1.5 }, true},
		{"mock failure rate negative", func(c *Config) { c.Mock.FailureRate = -0.1 }, true},
		{"zero memory capacity with cache on", func(c *Config) { c.Cache.MemoryCapacityMB = 0 }, true},
		{"zero memory capacity with cache off", func(c *Config) {
			c.Cache.Enabled = false
			c.Cache.MemoryCapacityMB = 0
		}, false},
		{"compression level out of range", func(c *Config) { c.Cache.CompressionLevel = 23 }, true},
		{"negative rate limit", func(c *Config) { c.Server.RateLimitRPM = -1 }, true},
		{"negative gtts throttle", func(c *Config) { c.GTTS.RequestsPerMinute = -1 }, true},
		{"piper enabled without model", func(c *Config) { c.Piper.Enabled = true }, true},
		{"piper enabled with model", func(c *Config) {
			c.Piper.Enabled = true
			c.Piper.ModelPath = "/models/en.onnx"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFromViper_Overrides(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("default_language", "fa")
	viper.Set("fallback_mode", "full-chain")
	viper.Set("engines.gtts.enabled", false)
	viper.Set("engines.gtts.requests_per_minute", 20)
	viper.Set("engines.mock.enabled", true)
	viper.Set("engines.mock.failure_rate", 0.25)
	viper.Set("cache.enabled", false)
	viper.Set("server.addr", ":9090")

	cfg, err := LoadConfigFromViper()
	if err != nil {
		t.Fatalf("LoadConfigFromViper failed: %v", err)
	}

	if cfg.DefaultLanguage != "fa" {
		t.Errorf("DefaultLanguage = %q, want fa", cfg.DefaultLanguage)
	}
	if cfg.FallbackMode != "full-chain" {
		t.Errorf("FallbackMode = %q, want full-chain", cfg.FallbackMode)
	}
	if cfg.GTTS.Enabled {
		t.Error("gtts should be disabled by override")
	}
	if cfg.GTTS.RequestsPerMinute != 20 {
		t.Errorf("gtts RequestsPerMinute = %d, want 20", cfg.GTTS.RequestsPerMinute)
	}
	if !cfg.Mock.Enabled || cfg.Mock.FailureRate != 0.25 {
		t.Errorf("mock config = %+v", cfg.Mock)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled by override")
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("server addr = %q, want :9090", cfg.Server.Addr)
	}

	// Keys never set keep their defaults.
	if cfg.Server.RateLimitRPM != 120 {
		t.Errorf("RateLimitRPM = %d, want default 120", cfg.Server.RateLimitRPM)
	}
}

func TestLoadConfigFromViper_Unset(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cfg, err := LoadConfigFromViper()
	if err != nil {
		t.Fatalf("LoadConfigFromViper failed: %v", err)
	}

	want := DefaultConfig()
	if cfg.DefaultLanguage != want.DefaultLanguage ||
		cfg.FallbackMode != want.FallbackMode ||
		cfg.Cache != want.Cache ||
		cfg.GTTS != want.GTTS {
		t.Errorf("unset viper should yield defaults, got %+v", cfg)
	}
}
