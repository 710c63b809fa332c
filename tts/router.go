package tts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// scoreEpsilon prevents division by zero in the ranking score and
	// rewards both reliability and speed.
	scoreEpsilon = 0.1

	// neutralScore is assigned to candidates with no recorded history, so
	// new engines stay eligible without dominating proven ones.
	neutralScore = 0.5
)

// FallbackMode controls how many candidates a request may attempt.
type FallbackMode int

const (
	// FallbackBestOnly tries only the single best-ranked engine and fails
	// the request if that engine fails.
	FallbackBestOnly FallbackMode = iota

	// FallbackFullChain iterates the full ranked candidate list until one
	// engine succeeds.
	FallbackFullChain
)

// String returns the configuration name of the mode.
func (m FallbackMode) String() string {
	switch m {
	case FallbackBestOnly:
		return "best-only"
	case FallbackFullChain:
		return "full-chain"
	default:
		return "unknown"
	}
}

// ParseFallbackMode converts a configuration string into a FallbackMode.
func ParseFallbackMode(s string) (FallbackMode, error) {
	switch s {
	case "", "best-only":
		return FallbackBestOnly, nil
	case "full-chain":
		return FallbackFullChain, nil
	default:
		return FallbackBestOnly, fmt.Errorf("invalid fallback mode %q", s)
	}
}

// Router selects the best engine for each request, executes the attempt
// chain sequentially, and records outcomes on both its own metrics and the
// registry's. Multiple requests may run concurrently against one Router.
type Router struct {
	registry *Registry
	mode     FallbackMode

	// Router-local per-engine metrics, independent of the registry's.
	mu    sync.RWMutex
	local map[string]*perfTracker

	// Aggregate counters, incremented once per request.
	aggMu      sync.Mutex
	total      int64
	successful int64
	failed     int64
}

// NewRouter creates a router over the given registry using FallbackBestOnly.
func NewRouter(registry *Registry) *Router {
	return NewRouterWithMode(registry, FallbackBestOnly)
}

// NewRouterWithMode creates a router with an explicit fallback mode.
func NewRouterWithMode(registry *Registry, mode FallbackMode) *Router {
	return &Router{
		registry: registry,
		mode:     mode,
		local:    make(map[string]*perfTracker),
	}
}

// Mode returns the router's fallback mode.
func (r *Router) Mode() FallbackMode {
	return r.mode
}

// SelectEngine returns the first candidate, in policy order, that meets the
// requirements and is currently available.
func (r *Router) SelectEngine(lang string, req *Requirements) (string, bool) {
	for _, name := range r.registry.EnginesForLanguage(lang) {
		if r.registry.MeetsRequirements(name, req) {
			return name, true
		}
	}
	return "", false
}

// BestEngine returns the qualifying available candidate with the highest
// ranking score. Ties are broken by iteration order: first seen wins.
func (r *Router) BestEngine(lang string, req *Requirements) (string, bool) {
	best := ""
	bestScore := -1.0
	for _, name := range r.registry.EnginesForLanguage(lang) {
		if !r.registry.MeetsRequirements(name, req) {
			continue
		}
		if score := r.score(name); score > bestScore {
			best = name
			bestScore = score
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// EngineRanking returns all qualifying available candidates sorted by
// descending ranking score. Used for diagnostics and as the attempt list in
// full-chain mode.
func (r *Router) EngineRanking(lang string, req *Requirements) []string {
	type ranked struct {
		name  string
		score float64
	}
	var rankings []ranked
	for _, name := range r.registry.EnginesForLanguage(lang) {
		if !r.registry.MeetsRequirements(name, req) {
			continue
		}
		rankings = append(rankings, ranked{name: name, score: r.score(name)})
	}

	// Stable sort keeps first-seen order for equal scores.
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].score > rankings[j].score
	})

	names := make([]string, len(rankings))
	for i, rk := range rankings {
		names[i] = rk.name
	}
	return names
}

// score computes successRate/(avgSeconds+epsilon) from the registry's live
// stats, or the neutral default when the engine has no recorded history.
func (r *Router) score(name string) float64 {
	stats, ok := r.registry.Stats(name)
	if !ok {
		return 0
	}
	if stats.Successes+stats.Failures == 0 {
		return neutralScore
	}
	return stats.SuccessRate / (stats.AvgDuration.Seconds() + scoreEpsilon)
}

// Synthesize routes one synthesis request. It computes the attempt list for
// the configured fallback mode, tries each candidate strictly sequentially,
// and returns the audio bytes together with the name of the engine that
// produced them.
//
// It fails with *EngineNotFoundError when no candidate qualifies before any
// attempt is made, and with *AllEnginesFailedError when every attempted
// candidate failed.
func (r *Router) Synthesize(ctx context.Context, text, lang string, req *Requirements, opts SynthOptions) ([]byte, string, error) {
	if text == "" {
		r.finishRequest(false)
		return nil, "", ErrEmptyText
	}

	candidates, err := r.attemptList(lang, req)
	if err != nil {
		r.finishRequest(false)
		return nil, "", err
	}

	var lastErr error
	attempts := 0
	for _, name := range candidates {
		// Re-check at attempt time: rankings were computed once at request
		// start and conditions may have shifted since.
		if !r.registry.MeetsRequirements(name, req) {
			log.Debug("Candidate does not meet requirements", "engine", name)
			continue
		}
		engine, ok := r.registry.Get(name)
		if !ok || !probeAvailable(engine) {
			log.Debug("Candidate not available", "engine", name)
			continue
		}

		start := time.Now()
		audio, err := invoke(ctx, engine, text, opts)
		duration := time.Since(start)

		if err != nil {
			log.Warn("Engine failed", "engine", name, "duration", duration, "error", err)
			lastErr = err
			attempts++
			r.recordLocalFailure(name)
			r.registry.RecordFailure(name)
			continue
		}

		log.Info("Synthesis succeeded", "engine", name, "language", lang,
			"textLength", len(text), "audioBytes", len(audio), "duration", duration)
		r.recordLocalSuccess(name, duration)
		r.registry.RecordSuccess(name, duration)
		r.finishRequest(true)
		return audio, name, nil
	}

	r.finishRequest(false)
	if attempts == 0 {
		// Every candidate was skipped before invocation; nothing actually
		// ran, so report it as a selection gap.
		return nil, "", &EngineNotFoundError{
			Language:   lang,
			Considered: r.registry.AvailableEngines(),
		}
	}
	return nil, "", &AllEnginesFailedError{Language: lang, Attempts: attempts, LastErr: lastErr}
}

// attemptList builds the ordered candidate list for the configured mode.
func (r *Router) attemptList(lang string, req *Requirements) ([]string, error) {
	switch r.mode {
	case FallbackFullChain:
		ranking := r.EngineRanking(lang, req)
		if len(ranking) == 0 {
			return nil, &EngineNotFoundError{
				Language:   lang,
				Considered: r.registry.AvailableEngines(),
			}
		}
		return ranking, nil
	default:
		best, ok := r.BestEngine(lang, req)
		if !ok {
			return nil, &EngineNotFoundError{
				Language:   lang,
				Considered: r.registry.AvailableEngines(),
			}
		}
		return []string{best}, nil
	}
}

// invoke calls the engine, converting a panic into an ordinary error so one
// misbehaving backend is just a failed candidate.
func invoke(ctx context.Context, engine Engine, text string, opts SynthOptions) (audio []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			audio = nil
			err = fmt.Errorf("engine panicked: %v", rec)
		}
	}()
	return engine.Synthesize(ctx, text, opts)
}

func (r *Router) recordLocalSuccess(name string, duration time.Duration) {
	r.localTracker(name).recordSuccess(duration)
}

func (r *Router) recordLocalFailure(name string) {
	r.localTracker(name).recordFailure()
}

func (r *Router) localTracker(name string) *perfTracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracker, ok := r.local[name]
	if !ok {
		tracker = newPerfTracker()
		r.local[name] = tracker
	}
	return tracker
}

// finishRequest updates the aggregate counters exactly once per request.
func (r *Router) finishRequest(success bool) {
	r.aggMu.Lock()
	defer r.aggMu.Unlock()

	r.total++
	if success {
		r.successful++
	} else {
		r.failed++
	}
}

// EngineStats returns the router-local statistics for one engine.
func (r *Router) EngineStats(name string) (EngineStats, bool) {
	r.mu.RLock()
	tracker, ok := r.local[name]
	r.mu.RUnlock()
	if !ok {
		return EngineStats{}, false
	}
	return tracker.snapshot(), true
}

// AllStats combines the registry's per-engine statistics with the router's
// aggregate request counters.
func (r *Router) AllStats() (map[string]EngineStats, AggregateStats) {
	return r.registry.AllStats(), r.Aggregate()
}

// Aggregate returns the whole-request counters.
func (r *Router) Aggregate() AggregateStats {
	r.aggMu.Lock()
	defer r.aggMu.Unlock()

	agg := AggregateStats{
		TotalRequests:      r.total,
		SuccessfulRequests: r.successful,
		FailedRequests:     r.failed,
	}
	if r.total > 0 {
		agg.SuccessRate = float64(r.successful) / float64(r.total)
	}
	return agg
}

// ResetStats clears the router-local metrics, the aggregate counters, and
// the registry's per-engine statistics. Idempotent.
func (r *Router) ResetStats() {
	r.mu.Lock()
	for _, tracker := range r.local {
		tracker.reset()
	}
	r.mu.Unlock()

	r.aggMu.Lock()
	r.total = 0
	r.successful = 0
	r.failed = 0
	r.aggMu.Unlock()

	r.registry.ResetStats()
}
