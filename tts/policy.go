package tts

import "sync"

// LanguageUnknown is the sentinel language code used when the caller could
// not detect the input language.
const LanguageUnknown = "unknown"

// DefaultFallbackOrder is the engine order used for the "unknown" language
// when no explicit policy exists: one online engine, one offline engine.
var DefaultFallbackOrder = []string{"gtts", "piper"}

// PolicyTable maps language codes to ordered engine preference lists.
// Policies are declarative: they may reference engines that are not
// currently registered; such names are skipped at selection time.
type PolicyTable struct {
	mu       sync.RWMutex
	policies map[string][]string
}

// NewPolicyTable creates an empty policy table.
func NewPolicyTable() *PolicyTable {
	return &PolicyTable{policies: make(map[string][]string)}
}

// Set replaces the engine preference order for a language.
func (t *PolicyTable) Set(lang string, orderedNames []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.policies[lang] = append([]string(nil), orderedNames...)
}

// Get returns the configured order for a language. The "unknown" sentinel
// falls back to DefaultFallbackOrder when unconfigured; any other
// unconfigured language returns an empty list, and callers must be prepared
// to fall back to all available engines in that case.
func (t *PolicyTable) Get(lang string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if order, ok := t.policies[lang]; ok {
		return append([]string(nil), order...)
	}
	if lang == LanguageUnknown {
		return append([]string(nil), DefaultFallbackOrder...)
	}
	return nil
}

// Delete removes the policy for a language. Returns false if none existed.
func (t *PolicyTable) Delete(lang string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.policies[lang]; !ok {
		return false
	}
	delete(t.policies, lang)
	return true
}

// Languages returns all languages with an explicit policy.
func (t *PolicyTable) Languages() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	langs := make([]string, 0, len(t.policies))
	for lang := range t.policies {
		langs = append(langs, lang)
	}
	return langs
}
