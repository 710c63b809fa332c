// Package synth combines the router with the audio cache. It is the layer
// the CLI and the HTTP API call into: cache lookup first, routed synthesis
// on a miss, with the result stored for next time.
package synth

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dibbed/ttskit/internal/cache"
	"github.com/dibbed/ttskit/tts"
)

// Result is a completed synthesis: the audio, the engine that produced it,
// and whether it came from cache.
type Result struct {
	Audio    []byte
	Engine   string
	Cached   bool
	Duration time.Duration
}

// Service routes synthesis requests through an optional cache.
type Service struct {
	router *tts.Router
	cache  *cache.Manager // nil when caching is disabled
}

// NewService creates a synthesis service. A nil cache manager disables
// caching entirely.
func NewService(router *tts.Router, cacheManager *cache.Manager) *Service {
	return &Service{router: router, cache: cacheManager}
}

// Router exposes the underlying router for stats and policy management.
func (s *Service) Router() *tts.Router {
	return s.router
}

// CacheStats returns cache metrics, or false when caching is disabled.
func (s *Service) CacheStats() (cache.ManagerStats, bool) {
	if s.cache == nil {
		return cache.ManagerStats{}, false
	}
	return s.cache.Stats(), true
}

// ClearCache drops all cached audio. No-op when caching is disabled.
func (s *Service) ClearCache() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear()
}

// Synthesize returns cached audio when the exact request was seen before,
// otherwise routes the request and caches the outcome. Cache hits do not
// touch engine statistics.
func (s *Service) Synthesize(ctx context.Context, text, lang string, req *tts.Requirements, opts tts.SynthOptions) (Result, error) {
	if text == "" {
		return Result{}, tts.ErrEmptyText
	}

	var key string
	if s.cache != nil {
		key = cache.Key(text, lang, opts.Voice, opts.Rate, opts.Pitch)
		if entry, ok := s.cache.Get(key); ok {
			log.Debug("cache hit", "engine", entry.Engine, "language", lang)
			return Result{Audio: entry.Audio, Engine: entry.Engine, Cached: true}, nil
		}
	}

	start := time.Now()
	audio, engine, err := s.router.Synthesize(ctx, text, lang, req, opts)
	if err != nil {
		return Result{}, err
	}
	elapsed := time.Since(start)

	if s.cache != nil {
		if err := s.cache.Put(key, cache.Entry{Audio: audio, Engine: engine}); err != nil {
			log.Warn("caching synthesis result failed", "error", err)
		}
	}

	return Result{Audio: audio, Engine: engine, Duration: elapsed}, nil
}

// Close releases the cache manager if one is attached.
func (s *Service) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

// CacheFromConfig builds a cache manager from the user configuration.
// Returns nil when caching is disabled.
func CacheFromConfig(cfg tts.CacheConfig) (*cache.Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Dir = cfg.Dir
	if cfg.MemoryCapacityMB > 0 {
		cacheCfg.MemoryCapacity = int64(cfg.MemoryCapacityMB) * 1024 * 1024
	}
	if cfg.DiskCapacityMB > 0 {
		cacheCfg.DiskCapacity = int64(cfg.DiskCapacityMB) * 1024 * 1024
	}
	cacheCfg.CompressionLevel = cfg.CompressionLevel
	if cfg.TTLDays > 0 {
		cacheCfg.TTL = time.Duration(cfg.TTLDays) * 24 * time.Hour
	}

	manager, err := cache.NewManager(cacheCfg)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return manager, nil
}
