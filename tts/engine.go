// Package tts provides the engine capability registry and the smart router
// that selects, invokes, and falls back across interchangeable speech
// synthesis backends.
package tts

import (
	"context"
)

// Engine defines the interface all synthesis backends must satisfy.
// The registry stores engines behind this interface so the router never
// branches on a concrete backend type.
type Engine interface {
	// IsAvailable performs a lightweight runtime check to determine if the
	// engine can currently be used. It must not panic.
	IsAvailable() bool

	// Capabilities returns the engine's declared feature set and limits.
	// The result is stable for the lifetime of the engine.
	Capabilities() Capabilities

	// ListVoices returns the voice names available for the given language.
	// An empty language returns all voices.
	ListVoices(lang string) ([]string, error)

	// Synthesize converts text to audio bytes. Implementations should honor
	// the context deadline; the router treats a timeout as an ordinary
	// failure of this engine.
	Synthesize(ctx context.Context, text string, opts SynthOptions) ([]byte, error)
}

// Capabilities describes what an engine can do. It is created once per
// registration and never mutated; capability changes require re-registration.
type Capabilities struct {
	Offline       bool     // Works without network access
	SSML          bool     // Accepts SSML markup input
	RateControl   bool     // Supports speech rate adjustment
	PitchControl  bool     // Supports pitch adjustment
	Languages     []string // Supported language codes
	Voices        []string // Supported voice names
	MaxTextLength int      // Maximum input length per request
}

// SupportsLanguage reports whether lang is in the engine's language set.
func (c Capabilities) SupportsLanguage(lang string) bool {
	for _, l := range c.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// SupportsVoice reports whether voice is in the engine's voice set.
func (c Capabilities) SupportsVoice(voice string) bool {
	for _, v := range c.Voices {
		if v == voice {
			return true
		}
	}
	return false
}

// clone returns a deep copy so callers cannot mutate registered capabilities.
func (c Capabilities) clone() Capabilities {
	out := c
	out.Languages = append([]string(nil), c.Languages...)
	out.Voices = append([]string(nil), c.Voices...)
	return out
}

// SynthOptions holds per-request synthesis parameters.
type SynthOptions struct {
	Language string  // Language code (e.g. "en")
	Voice    string  // Voice name, engine-specific ("" = engine default)
	Rate     float64 // Speech rate multiplier (1.0 = normal)
	Pitch    float64 // Pitch adjustment in semitones (0.0 = normal)
}

// DefaultSynthOptions returns options with neutral rate and pitch.
func DefaultSynthOptions() SynthOptions {
	return SynthOptions{Rate: 1.0, Pitch: 0.0}
}

// Requirements is an ephemeral, per-request constraint set evaluated against
// engine capabilities. Nil pointer and zero-value fields are not checked:
// unspecified means don't-care.
type Requirements struct {
	Offline      *bool  // Require exact offline-capability match
	SSML         *bool  // Require exact SSML-support match
	RateControl  *bool  // Require exact rate-control match
	PitchControl *bool  // Require exact pitch-control match
	Language     string // Require language set membership ("" = don't care)
	Voice        string // Require voice set membership ("" = don't care)
	TextLength   int    // Require TextLength <= MaxTextLength (0 = don't care)
}

// Bool is a convenience helper for building Requirements literals.
func Bool(v bool) *bool { return &v }
