// Package mock provides a deterministic TTS engine for testing and offline
// demos.
package mock

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/dibbed/ttskit/tts"
)

// Engine implements tts.Engine with fully controllable behavior.
type Engine struct {
	mu           sync.Mutex
	capabilities tts.Capabilities
	delay        time.Duration
	failureRate  float64
	forcedErr    error
	available    bool
	callCount    int
	rng          *rand.Rand
}

// Compile-time interface assertion.
var _ tts.Engine = (*Engine)(nil)

// New creates a mock engine with permissive default capabilities.
func New() *Engine {
	return &Engine{
		capabilities: tts.Capabilities{
			Offline:       true,
			SSML:          false,
			RateControl:   true,
			PitchControl:  true,
			Languages:     []string{"en", "es", "fr", "de"},
			Voices:        []string{"mock-voice-1", "mock-voice-2"},
			MaxTextLength: 10000,
		},
		available: true,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewFromConfig creates a mock engine honoring the configured delay and
// failure rate.
func NewFromConfig(cfg tts.MockConfig) *Engine {
	e := New()
	e.delay = cfg.GenerationDelay
	e.failureRate = cfg.FailureRate
	return e
}

// IsAvailable returns the configured availability state.
func (e *Engine) IsAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available
}

// Capabilities returns the engine's configured capability descriptor.
func (e *Engine) Capabilities() tts.Capabilities {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.capabilities
}

// ListVoices returns the configured voices. The language filter is ignored;
// mock voices are language-agnostic.
func (e *Engine) ListVoices(lang string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.capabilities.Voices...), nil
}

// Synthesize produces a silence payload sized to the estimated speaking
// duration of the text, or fails per the configured failure settings.
func (e *Engine) Synthesize(ctx context.Context, text string, opts tts.SynthOptions) ([]byte, error) {
	e.mu.Lock()
	e.callCount++
	delay := e.delay
	forcedErr := e.forcedErr
	shouldFail := forcedErr == nil && e.failureRate > 0 && e.rng.Float64() < e.failureRate
	e.mu.Unlock()

	if forcedErr != nil {
		return nil, forcedErr
	}
	if shouldFail {
		return nil, tts.ErrEngineNotAvailable
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Roughly 150 words per minute at 5 chars per word, 22050Hz 16-bit mono.
	words := len(text) / 5
	if words < 1 {
		words = 1
	}
	seconds := float64(words) * 60.0 / 150.0
	samples := int(seconds * 22050)
	return make([]byte, samples*2), nil
}

// Test control methods.

// SetDelay sets the simulated generation delay.
func (e *Engine) SetDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
}

// SetFailure makes every Synthesize call fail with err until ClearFailure.
func (e *Engine) SetFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forcedErr = err
}

// ClearFailure restores normal operation.
func (e *Engine) ClearFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forcedErr = nil
}

// SetAvailable sets the value returned by IsAvailable.
func (e *Engine) SetAvailable(available bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.available = available
}

// SetCapabilities overrides the capability descriptor.
func (e *Engine) SetCapabilities(caps tts.Capabilities) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.capabilities = caps
}

// CallCount returns the number of Synthesize invocations.
func (e *Engine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callCount
}
