package tts

import (
	"sync"
	"time"
)

// windowSize bounds the per-engine rolling window of recent synthesis
// durations. Oldest samples are evicted first.
const windowSize = 100

// EngineStats is a point-in-time projection of one engine's recent
// performance, computed on demand from the rolling window.
type EngineStats struct {
	AvgDuration time.Duration
	MinDuration time.Duration
	MaxDuration time.Duration
	Successes   int64
	Failures    int64
	SuccessRate float64 // successes / (successes + failures), 0 when no samples
	LastUsed    time.Time
}

// AggregateStats counts whole requests handled by the router, independent of
// how many candidates each request tried.
type AggregateStats struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	SuccessRate        float64
}

// perfTracker holds the mutable performance counters for one engine.
// All fields are guarded by mu so concurrent RecordSuccess/RecordFailure
// calls from parallel requests cannot corrupt the window.
type perfTracker struct {
	mu        sync.Mutex
	window    []time.Duration // bounded FIFO, most recent last
	successes int64
	failures  int64
	lastUsed  time.Time
}

func newPerfTracker() *perfTracker {
	return &perfTracker{window: make([]time.Duration, 0, windowSize)}
}

// recordSuccess counts a success and, for positive durations, appends the
// sample to the rolling window. Non-positive durations count the success but
// skip the window (pure "ping" successes).
func (p *perfTracker) recordSuccess(duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successes++
	p.lastUsed = time.Now()

	if duration <= 0 {
		return
	}
	if len(p.window) >= windowSize {
		copy(p.window, p.window[1:])
		p.window = p.window[:windowSize-1]
	}
	p.window = append(p.window, duration)
}

// recordFailure increments the failure counter. Failures do not contribute
// duration samples.
func (p *perfTracker) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failures++
	p.lastUsed = time.Now()
}

// snapshot computes current stats from the window and counters.
func (p *perfTracker) snapshot() EngineStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := EngineStats{
		Successes: p.successes,
		Failures:  p.failures,
		LastUsed:  p.lastUsed,
	}

	if total := p.successes + p.failures; total > 0 {
		stats.SuccessRate = float64(p.successes) / float64(total)
	}

	if len(p.window) == 0 {
		return stats
	}

	var sum time.Duration
	stats.MinDuration = p.window[0]
	stats.MaxDuration = p.window[0]
	for _, d := range p.window {
		sum += d
		if d < stats.MinDuration {
			stats.MinDuration = d
		}
		if d > stats.MaxDuration {
			stats.MaxDuration = d
		}
	}
	stats.AvgDuration = sum / time.Duration(len(p.window))
	return stats
}

// reset zeroes all counters and drops the window without touching
// registration state.
func (p *perfTracker) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.window = p.window[:0]
	p.successes = 0
	p.failures = 0
	p.lastUsed = time.Time{}
}
