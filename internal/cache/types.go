// Package cache provides a two-level audio cache: an in-memory LRU tier
// backed by a compressed on-disk tier. Keys are derived from the synthesis
// request; values carry the audio bytes and the engine that produced them.
package cache

import (
	"errors"
	"time"
)

var (
	// ErrItemTooLarge is returned when a value exceeds a tier's capacity.
	ErrItemTooLarge = errors.New("item too large for cache")
)

// Entry is a cached synthesis result.
type Entry struct {
	Audio  []byte
	Engine string
}

// Stats holds per-tier cache metrics.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
}

// ManagerStats aggregates metrics across both tiers.
type ManagerStats struct {
	TotalHits   int64
	TotalMisses int64
	HitRate     float64
	MemoryHits  int64
	DiskHits    int64
	Promotions  int64
	CleanupRuns int64
	LastCleanup time.Time

	Memory Stats
	Disk   Stats
}

// Config holds cache tier sizes and cleanup settings.
type Config struct {
	Dir string

	MemoryCapacity int64 // bytes
	DiskCapacity   int64 // bytes

	// Zstd level for the disk tier; 0 disables compression.
	CompressionLevel int

	TTL             time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns the cache defaults: 100MB memory, 1GB disk,
// balanced zstd compression, one week TTL.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   100 * 1024 * 1024,
		DiskCapacity:     1024 * 1024 * 1024,
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}
