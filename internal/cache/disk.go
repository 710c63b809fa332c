package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DiskCache is the L2 tier: audio files on disk with a gob index, optionally
// zstd-compressed. Entries survive process restarts.
type DiskCache struct {
	basePath string
	capacity int64
	size     int64

	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder

	index map[string]*diskEntry

	mu sync.RWMutex

	stats Stats
}

type diskEntry struct {
	Key        string
	Engine     string
	FilePath   string
	Size       int64 // bytes on disk, after compression
	Timestamp  time.Time
	LastAccess time.Time
	Compressed bool
}

// NewDiskCache creates a disk cache rooted at basePath. A compressionLevel
// of zero stores audio uncompressed.
func NewDiskCache(basePath string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dc := &DiskCache{
		basePath: basePath,
		capacity: capacity,
		compress: compressionLevel > 0,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if dc.compress {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
	}
	// The decoder is level-independent and always present so a cache written
	// with compression stays readable after compression is turned off.
	var err error
	dc.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	if err := dc.loadIndex(); err != nil {
		dc.index = make(map[string]*diskEntry)
	}
	dc.recomputeSize()

	return dc, nil
}

// Get reads an entry from disk, decompressing if needed. Missing or
// corrupted files are dropped from the index and count as misses.
func (dc *DiskCache) Get(key string) (Entry, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return Entry{}, false
	}

	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		dc.dropEntry(key, entry)
		dc.stats.Misses++
		return Entry{}, false
	}

	if entry.Compressed {
		decompressed, err := dc.decoder.DecodeAll(data, nil)
		if err != nil {
			os.Remove(entry.FilePath)
			dc.dropEntry(key, entry)
			dc.stats.Misses++
			return Entry{}, false
		}
		data = decompressed
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++

	return Entry{Audio: data, Engine: entry.Engine}, true
}

// Put writes an entry to disk, compressing payloads over 1KB when that
// actually shrinks them.
func (dc *DiskCache) Put(key string, entry Entry) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	dataToWrite := entry.Audio
	var compressed bool
	if dc.compress && len(entry.Audio) > 1024 {
		compressedData := dc.encoder.EncodeAll(entry.Audio, nil)
		if len(compressedData) < len(entry.Audio) {
			dataToWrite = compressedData
			compressed = true
		}
	}

	diskSize := int64(len(dataToWrite))
	if diskSize > dc.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := dc.index[key]; ok {
		os.Remove(existing.FilePath)
		dc.size -= existing.Size
	}

	for dc.size+diskSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	filePath := dc.filePath(key)
	if err := writeAtomic(filePath, dataToWrite); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	dc.index[key] = &diskEntry{
		Key:        key,
		Engine:     entry.Engine,
		FilePath:   filePath,
		Size:       diskSize,
		Timestamp:  time.Now(),
		LastAccess: time.Now(),
		Compressed: compressed,
	}
	dc.size += diskSize

	dc.stats.Size = dc.size
	dc.stats.ItemCount = int64(len(dc.index))
	return nil
}

// Delete removes an entry and its file.
func (dc *DiskCache) Delete(key string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if entry, ok := dc.index[key]; ok {
		os.Remove(entry.FilePath)
		dc.dropEntry(key, entry)
	}
}

// Clear removes all entries and persists the empty index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for _, entry := range dc.index {
		os.Remove(entry.FilePath)
	}
	dc.index = make(map[string]*diskEntry)
	dc.size = 0
	dc.stats.Size = 0
	dc.stats.ItemCount = 0

	return dc.saveIndex()
}

// Size returns the on-disk size in bytes.
func (dc *DiskCache) Size() int64 {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.size
}

// Contains reports presence without reading the file.
func (dc *DiskCache) Contains(key string) bool {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	_, ok := dc.index[key]
	return ok
}

// Stats returns a snapshot of tier metrics.
func (dc *DiskCache) Stats() Stats {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	stats := dc.stats
	stats.Size = dc.size
	stats.ItemCount = int64(len(dc.index))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// RemoveOlderThan drops entries created before cutoff. Returns the count
// removed.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for key, entry := range dc.index {
		if entry.Timestamp.Before(cutoff) {
			os.Remove(entry.FilePath)
			dc.dropEntry(key, entry)
			removed++
		}
	}
	return removed
}

// Close persists the index to disk.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.saveIndex()
}

// lock held
func (dc *DiskCache) dropEntry(key string, entry *diskEntry) {
	delete(dc.index, key)
	dc.size -= entry.Size
	dc.stats.Size = dc.size
	dc.stats.ItemCount = int64(len(dc.index))
}

// lock held
func (dc *DiskCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range dc.index {
		if oldestKey == "" || entry.LastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccess
		}
	}

	if oldestKey != "" {
		entry := dc.index[oldestKey]
		os.Remove(entry.FilePath)
		dc.dropEntry(oldestKey, entry)
		dc.stats.Evictions++
	}
}

func (dc *DiskCache) filePath(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(dc.basePath, hex.EncodeToString(hash[:16])+".audio")
}

func (dc *DiskCache) loadIndex() error {
	file, err := os.Open(filepath.Join(dc.basePath, "cache.index"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&dc.index)
}

func (dc *DiskCache) saveIndex() error {
	indexPath := filepath.Join(dc.basePath, "cache.index")
	tempPath := indexPath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	err = gob.NewEncoder(file).Encode(dc.index)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}
	return os.Rename(tempPath, indexPath)
}

func (dc *DiskCache) recomputeSize() {
	dc.size = 0
	for _, entry := range dc.index {
		dc.size += entry.Size
	}
	dc.stats.Size = dc.size
	dc.stats.ItemCount = int64(len(dc.index))
}

// writeAtomic writes through a temp file and renames into place.
func writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}
	return os.Rename(tempPath, path)
}
