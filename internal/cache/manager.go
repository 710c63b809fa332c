package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager coordinates the memory and disk tiers. Reads check memory first
// and promote disk hits; writes land in memory immediately and reach disk
// asynchronously. A background goroutine handles TTL expiry.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache

	config Config

	cleanupStop   chan struct{}
	cleanupTicker *time.Ticker
	cleanupWg     sync.WaitGroup

	mu    sync.Mutex
	stats struct {
		totalHits   int64
		totalMisses int64
		memoryHits  int64
		diskHits    int64
		promotions  int64
		cleanupRuns int64
		lastCleanup time.Time
	}
}

// NewManager creates a cache manager. An empty Dir defaults to
// ~/.cache/ttskit/audio.
func NewManager(config Config) (*Manager, error) {
	if config.Dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		config.Dir = filepath.Join(homeDir, ".cache", "ttskit", "audio")
	}

	disk, err := NewDiskCache(config.Dir, config.DiskCapacity, config.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("creating disk cache: %w", err)
	}

	m := &Manager{
		memory:      NewMemoryCache(config.MemoryCapacity),
		disk:        disk,
		config:      config,
		cleanupStop: make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		m.startCleanup()
	}

	return m, nil
}

// Get checks the memory tier, then disk. Disk hits are promoted to memory.
func (m *Manager) Get(key string) (Entry, bool) {
	if entry, ok := m.memory.Get(key); ok {
		m.mu.Lock()
		m.stats.memoryHits++
		m.stats.totalHits++
		m.mu.Unlock()
		return entry, true
	}

	if entry, ok := m.disk.Get(key); ok {
		m.mu.Lock()
		m.stats.diskHits++
		m.stats.totalHits++
		m.stats.promotions++
		m.mu.Unlock()

		// Promotion is best effort.
		_ = m.memory.Put(key, entry)
		return entry, true
	}

	m.mu.Lock()
	m.stats.totalMisses++
	m.mu.Unlock()
	return Entry{}, false
}

// Put stores an entry in memory and schedules the disk write.
func (m *Manager) Put(key string, entry Entry) error {
	if err := m.memory.Put(key, entry); err != nil && err != ErrItemTooLarge {
		return fmt.Errorf("memory cache: %w", err)
	}

	go func() {
		if err := m.disk.Put(key, entry); err != nil && err != ErrItemTooLarge {
			log.Warn("disk cache write failed", "error", err)
		}
	}()

	return nil
}

// Delete removes an entry from both tiers.
func (m *Manager) Delete(key string) {
	m.memory.Delete(key)
	m.disk.Delete(key)
}

// Clear drops all entries from both tiers.
func (m *Manager) Clear() error {
	m.memory.Clear()
	return m.disk.Clear()
}

// Stats returns combined metrics for both tiers.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := ManagerStats{
		TotalHits:   m.stats.totalHits,
		TotalMisses: m.stats.totalMisses,
		MemoryHits:  m.stats.memoryHits,
		DiskHits:    m.stats.diskHits,
		Promotions:  m.stats.promotions,
		CleanupRuns: m.stats.cleanupRuns,
		LastCleanup: m.stats.lastCleanup,
		Memory:      m.memory.Stats(),
		Disk:        m.disk.Stats(),
	}
	if total := stats.TotalHits + stats.TotalMisses; total > 0 {
		stats.HitRate = float64(stats.TotalHits) / float64(total)
	}
	return stats
}

// Close stops the cleanup goroutine and persists the disk index.
func (m *Manager) Close() error {
	if m.cleanupTicker != nil {
		close(m.cleanupStop)
		m.cleanupWg.Wait()
		m.cleanupTicker.Stop()
	}
	return m.disk.Close()
}

func (m *Manager) startCleanup() {
	m.cleanupTicker = time.NewTicker(m.config.CleanupInterval)
	m.cleanupWg.Add(1)

	go func() {
		defer m.cleanupWg.Done()
		for {
			select {
			case <-m.cleanupTicker.C:
				m.runCleanup()
			case <-m.cleanupStop:
				return
			}
		}
	}()
}

func (m *Manager) runCleanup() {
	m.mu.Lock()
	m.stats.cleanupRuns++
	m.stats.lastCleanup = time.Now()
	m.mu.Unlock()

	if m.config.TTL <= 0 {
		return
	}

	cutoff := time.Now().Add(-m.config.TTL)
	removed := m.disk.RemoveOlderThan(cutoff)
	pruned := m.memory.Prune(m.config.TTL)
	if removed > 0 || pruned > 0 {
		log.Debug("cache cleanup", "diskRemoved", removed, "memoryPruned", pruned)
	}
}
