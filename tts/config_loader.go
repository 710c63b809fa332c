package tts

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadConfigFromViper builds a Config from Viper, starting from the defaults
// and overriding only the keys that are explicitly set.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("default_language") {
		cfg.DefaultLanguage = viper.GetString("default_language")
	}
	if viper.IsSet("fallback_mode") {
		cfg.FallbackMode = viper.GetString("fallback_mode")
	}
	if viper.IsSet("policies") {
		cfg.Policies = viper.GetStringMapStringSlice("policies")
	}

	cfg.GTTS = loadGTTSConfig()
	cfg.GoogleCloud = loadGoogleCloudConfig()
	cfg.Piper = loadPiperConfig()
	cfg.Mock = loadMockConfig()
	cfg.Cache = loadCacheConfig()
	cfg.Server = loadServerConfig()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid ttskit configuration: %w", err)
	}
	return cfg, nil
}

func loadGTTSConfig() GTTSConfig {
	cfg := DefaultConfig().GTTS

	if viper.IsSet("engines.gtts.enabled") {
		cfg.Enabled = viper.GetBool("engines.gtts.enabled")
	}
	if viper.IsSet("engines.gtts.slow") {
		cfg.Slow = viper.GetBool("engines.gtts.slow")
	}
	if viper.IsSet("engines.gtts.timeout") {
		cfg.Timeout = viper.GetDuration("engines.gtts.timeout")
	}
	if viper.IsSet("engines.gtts.requests_per_minute") {
		cfg.RequestsPerMinute = viper.GetInt("engines.gtts.requests_per_minute")
	}
	return cfg
}

func loadGoogleCloudConfig() GoogleCloudConfig {
	cfg := DefaultConfig().GoogleCloud

	if viper.IsSet("engines.googlecloud.enabled") {
		cfg.Enabled = viper.GetBool("engines.googlecloud.enabled")
	}
	if viper.IsSet("engines.googlecloud.credentials_file") {
		cfg.CredentialsFile = viper.GetString("engines.googlecloud.credentials_file")
	}
	if viper.IsSet("engines.googlecloud.timeout") {
		cfg.Timeout = viper.GetDuration("engines.googlecloud.timeout")
	}
	return cfg
}

func loadPiperConfig() PiperConfig {
	cfg := DefaultConfig().Piper

	if viper.IsSet("engines.piper.enabled") {
		cfg.Enabled = viper.GetBool("engines.piper.enabled")
	}
	if viper.IsSet("engines.piper.binary") {
		cfg.Binary = viper.GetString("engines.piper.binary")
	}
	if viper.IsSet("engines.piper.model_path") {
		cfg.ModelPath = viper.GetString("engines.piper.model_path")
	}
	if viper.IsSet("engines.piper.config_path") {
		cfg.ConfigPath = viper.GetString("engines.piper.config_path")
	}
	if viper.IsSet("engines.piper.speaker_id") {
		cfg.SpeakerID = viper.GetInt("engines.piper.speaker_id")
	}
	if viper.IsSet("engines.piper.timeout") {
		cfg.Timeout = viper.GetDuration("engines.piper.timeout")
	}
	return cfg
}

func loadMockConfig() MockConfig {
	cfg := DefaultConfig().Mock

	if viper.IsSet("engines.mock.enabled") {
		cfg.Enabled = viper.GetBool("engines.mock.enabled")
	}
	if viper.IsSet("engines.mock.generation_delay") {
		cfg.GenerationDelay = viper.GetDuration("engines.mock.generation_delay")
	}
	if viper.IsSet("engines.mock.failure_rate") {
		cfg.FailureRate = viper.GetFloat64("engines.mock.failure_rate")
	}
	return cfg
}

func loadCacheConfig() CacheConfig {
	cfg := DefaultConfig().Cache

	if viper.IsSet("cache.enabled") {
		cfg.Enabled = viper.GetBool("cache.enabled")
	}
	if viper.IsSet("cache.dir") {
		cfg.Dir = viper.GetString("cache.dir")
	}
	if viper.IsSet("cache.memory_capacity_mb") {
		cfg.MemoryCapacityMB = viper.GetInt("cache.memory_capacity_mb")
	}
	if viper.IsSet("cache.disk_capacity_mb") {
		cfg.DiskCapacityMB = viper.GetInt("cache.disk_capacity_mb")
	}
	if viper.IsSet("cache.compression_level") {
		cfg.CompressionLevel = viper.GetInt("cache.compression_level")
	}
	if viper.IsSet("cache.ttl_days") {
		cfg.TTLDays = viper.GetInt("cache.ttl_days")
	}
	return cfg
}

func loadServerConfig() ServerConfig {
	cfg := DefaultConfig().Server

	if viper.IsSet("server.addr") {
		cfg.Addr = viper.GetString("server.addr")
	}
	if viper.IsSet("server.rate_limit_rpm") {
		cfg.RateLimitRPM = viper.GetInt("server.rate_limit_rpm")
	}
	if viper.IsSet("server.rate_limit_burst") {
		cfg.RateLimitBurst = viper.GetInt("server.rate_limit_burst")
	}
	if viper.IsSet("server.allowed_origins") {
		cfg.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}
	if viper.IsSet("server.read_timeout") {
		cfg.ReadTimeout = viper.GetDuration("server.read_timeout")
	}
	if viper.IsSet("server.write_timeout") {
		cfg.WriteTimeout = viper.GetDuration("server.write_timeout")
	}
	return cfg
}
