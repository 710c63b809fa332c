package tts

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// engineEntry bundles everything the registry owns about one engine:
// the dispatch handle, its declared capabilities, and its live counters.
type engineEntry struct {
	name         string
	engine       Engine
	capabilities Capabilities
	perf         *perfTracker
}

// Registry is the central catalog of synthesis engines. It owns the mapping
// of engine name to handle and capability descriptor, tracks per-engine
// rolling performance statistics, and answers capability queries.
//
// A Registry is safe for concurrent use. Construct one explicitly and pass
// it to the Router and front-end layers; there is no package-level instance.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*engineEntry
	order    []string // registration order, drives deterministic iteration
	policies *PolicyTable
}

// NewRegistry creates an empty registry with an empty policy table.
func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[string]*engineEntry),
		policies: NewPolicyTable(),
	}
}

// Register adds an engine under a unique non-empty name. Registering a name
// that already exists overwrites the previous entry: capabilities are
// replaced and all statistics are reset.
func (r *Registry) Register(name string, engine Engine, capabilities Capabilities) error {
	if name == "" {
		return ErrEmptyEngineName
	}
	if engine == nil {
		return ErrNilEngine
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = &engineEntry{
		name:         name,
		engine:       engine,
		capabilities: capabilities.clone(),
		perf:         newPerfTracker(),
	}

	log.Info("Engine registered", "engine", name, "offline", capabilities.Offline,
		"languages", len(capabilities.Languages))
	return nil
}

// Unregister removes an engine and drops all of its associated state.
// It reports whether the name was registered.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; !ok {
		return false
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	log.Info("Engine unregistered", "engine", name)
	return true
}

// Get returns the engine handle registered under name.
func (r *Registry) Get(name string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return entry.engine, true
}

// Names returns all registered engine names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// AvailableEngines returns the names of engines whose availability probe
// currently succeeds, in registration order. Probe panics are treated as
// "not available" so a misbehaving backend cannot take down selection.
func (r *Registry) AvailableEngines() []string {
	r.mu.RLock()
	entries := make([]*engineEntry, 0, len(r.order))
	for _, name := range r.order {
		entries = append(entries, r.entries[name])
	}
	r.mu.RUnlock()

	available := make([]string, 0, len(entries))
	for _, entry := range entries {
		if probeAvailable(entry.engine) {
			available = append(available, entry.name)
		}
	}
	return available
}

// probeAvailable calls IsAvailable, converting a panic into false.
func probeAvailable(engine Engine) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn("Availability probe panicked", "panic", rec)
			ok = false
		}
	}()
	return engine.IsAvailable()
}

// MeetsRequirements evaluates each present constraint against the engine's
// capability descriptor. Boolean constraints require an exact match,
// language and voice require set membership, and TextLength requires
// requested <= MaxTextLength. An unknown engine meets no requirements.
func (r *Registry) MeetsRequirements(name string, req *Requirements) bool {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if req == nil {
		return true
	}

	caps := entry.capabilities
	if req.Offline != nil && caps.Offline != *req.Offline {
		return false
	}
	if req.SSML != nil && caps.SSML != *req.SSML {
		return false
	}
	if req.RateControl != nil && caps.RateControl != *req.RateControl {
		return false
	}
	if req.PitchControl != nil && caps.PitchControl != *req.PitchControl {
		return false
	}
	if req.Language != "" && !caps.SupportsLanguage(req.Language) {
		return false
	}
	if req.Voice != "" && !caps.SupportsVoice(req.Voice) {
		return false
	}
	if req.TextLength > 0 && req.TextLength > caps.MaxTextLength {
		return false
	}
	return true
}

// RecordSuccess counts a successful dispatch for an engine. Positive
// durations enter the rolling window; a non-positive duration records the
// success without a timing sample. Unknown names are ignored.
func (r *Registry) RecordSuccess(name string, duration time.Duration) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return
	}
	entry.perf.recordSuccess(duration)
}

// RecordFailure counts a failed dispatch for an engine. Unknown names are
// ignored.
func (r *Registry) RecordFailure(name string) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return
	}
	entry.perf.recordFailure()
}

// Stats returns the live performance statistics for an engine. The second
// return value is false for unregistered names; that is not an error.
func (r *Registry) Stats(name string) (EngineStats, bool) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return EngineStats{}, false
	}
	return entry.perf.snapshot(), true
}

// AllStats returns statistics for every registered engine.
func (r *Registry) AllStats() map[string]EngineStats {
	r.mu.RLock()
	entries := make(map[string]*engineEntry, len(r.entries))
	for name, entry := range r.entries {
		entries[name] = entry
	}
	r.mu.RUnlock()

	out := make(map[string]EngineStats, len(entries))
	for name, entry := range entries {
		out[name] = entry.perf.snapshot()
	}
	return out
}

// ResetStats clears the counters and rolling windows of every engine
// without removing any registration. Calling it repeatedly is idempotent.
func (r *Registry) ResetStats() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.entries {
		entry.perf.reset()
	}
}

// ResetEngineStats clears the counters of a single engine. It reports
// whether the name was registered.
func (r *Registry) ResetEngineStats(name string) bool {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	entry.perf.reset()
	return true
}

// CapabilitiesSummary returns a read-only projection of every engine's
// capability descriptor, keyed by engine name.
func (r *Registry) CapabilitiesSummary() map[string]Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Capabilities, len(r.entries))
	for name, entry := range r.entries {
		out[name] = entry.capabilities.clone()
	}
	return out
}

// Capabilities returns the descriptor registered for one engine.
func (r *Registry) Capabilities(name string) (Capabilities, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return Capabilities{}, false
	}
	return entry.capabilities.clone(), true
}

// SetPolicy replaces the engine preference order for a language.
func (r *Registry) SetPolicy(lang string, orderedNames []string) {
	r.policies.Set(lang, orderedNames)
	log.Info("Policy set", "language", lang, "order", orderedNames)
}

// GetPolicy returns the engine preference order for a language. See
// PolicyTable.Get for the unknown-language default.
func (r *Registry) GetPolicy(lang string) []string {
	return r.policies.Get(lang)
}

// Policies exposes the underlying policy table.
func (r *Registry) Policies() *PolicyTable {
	return r.policies
}

// EnginesForLanguage intersects the language's policy order with the
// currently available engines, preserving policy order. When no policy
// exists it returns all available engines in registration order.
func (r *Registry) EnginesForLanguage(lang string) []string {
	available := r.AvailableEngines()
	policy := r.policies.Get(lang)
	if len(policy) == 0 {
		return available
	}

	availSet := make(map[string]struct{}, len(available))
	for _, name := range available {
		availSet[name] = struct{}{}
	}

	out := make([]string, 0, len(policy))
	for _, name := range policy {
		if _, ok := availSet[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
