package tts

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors for the routing core.
var (
	ErrEmptyEngineName      = errors.New("engine name cannot be empty")
	ErrNilEngine            = errors.New("engine handle cannot be nil")
	ErrEngineNotRegistered  = errors.New("engine is not registered")
	ErrEngineNotAvailable   = errors.New("engine is not available")
	ErrEmptyText            = errors.New("text cannot be empty")
	ErrTextTooLong          = errors.New("text exceeds engine maximum length")
	ErrVoiceNotSupported    = errors.New("requested voice not supported")
	ErrLanguageNotSupported = errors.New("requested language not supported")
)

// EngineNotFoundError is returned when no registered engine satisfies the
// language and requirement combination. No synthesis attempt was made; this
// signals a configuration or capability gap rather than a runtime failure.
type EngineNotFoundError struct {
	Language   string
	Considered []string // Engines that were available when selection ran
}

// Error implements the error interface.
func (e *EngineNotFoundError) Error() string {
	msg := fmt.Sprintf("no suitable engine found for language %q", e.Language)
	if len(e.Considered) > 0 {
		msg += fmt.Sprintf(" (available: %s)", strings.Join(e.Considered, ", "))
	}
	return msg
}

// AllEnginesFailedError is returned when at least one synthesis attempt was
// made and every attempted candidate failed. LastErr carries the final
// underlying error for diagnostics.
type AllEnginesFailedError struct {
	Language string
	Attempts int
	LastErr  error
}

// Error implements the error interface.
func (e *AllEnginesFailedError) Error() string {
	return fmt.Sprintf("all engines failed for language %q after %d attempt(s): %v",
		e.Language, e.Attempts, e.LastErr)
}

// Unwrap returns the last underlying engine error.
func (e *AllEnginesFailedError) Unwrap() error {
	return e.LastErr
}
