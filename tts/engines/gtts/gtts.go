// Package gtts implements a TTS engine backed by the Google Translate
// text-to-speech endpoint. It needs no credentials but offers no SSML and no
// rate or pitch control.
package gtts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dibbed/ttskit/tts"
)

const (
	endpoint = "https://translate.google.com/translate_tts"

	// The translate endpoint caps a single request; longer texts are split
	// on whitespace into chunks of at most this size.
	maxChunkLen = 200

	// maxTextLength bounds one synthesis request across all chunks.
	maxTextLength = 5000

	// availabilityTTL is how long a probe result is trusted before the
	// endpoint is contacted again.
	availabilityTTL = 30 * time.Second

	// defaultRequestsPerMinute throttles chunk fetches so Google does not
	// block the client.
	defaultRequestsPerMinute = 50
)

// languages supported by the translate endpoint.
var languages = []string{
	"en", "ar", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh", "fa",
	"hi", "nl", "pl", "tr", "sv",
}

// Engine implements tts.Engine over plain HTTP.
type Engine struct {
	client  *http.Client
	slow    bool
	limiter *rate.Limiter

	mu          sync.Mutex
	lastProbe   time.Time
	lastHealthy bool
}

// Compile-time interface assertion.
var _ tts.Engine = (*Engine)(nil)

// New creates a Google Translate TTS engine.
func New(cfg tts.GTTSConfig) *Engine {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}
	return &Engine{
		client:  &http.Client{Timeout: timeout},
		slow:    cfg.Slow,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

// IsAvailable probes the endpoint, caching the result briefly so selection
// does not hammer the network.
func (e *Engine) IsAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if time.Since(e.lastProbe) < availabilityTTL {
		return e.lastHealthy
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		e.lastProbe = time.Now()
		e.lastHealthy = false
		return false
	}
	resp, err := e.client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}

	e.lastProbe = time.Now()
	// The endpoint answers HEAD without query params with a 4xx; any HTTP
	// response at all means it is reachable.
	e.lastHealthy = err == nil
	if !e.lastHealthy {
		log.Debug("gtts endpoint unreachable", "error", err)
	}
	return e.lastHealthy
}

// Capabilities returns the engine's declared feature set.
func (e *Engine) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		Offline:       false,
		SSML:          false,
		RateControl:   false,
		PitchControl:  false,
		Languages:     append([]string(nil), languages...),
		Voices:        nil, // Voice selection is not supported
		MaxTextLength: maxTextLength,
	}
}

// ListVoices returns an empty list; the translate endpoint exposes a single
// implicit voice per language.
func (e *Engine) ListVoices(lang string) ([]string, error) {
	return nil, nil
}

// Synthesize fetches MP3 audio for the text, splitting long inputs into
// endpoint-sized chunks and concatenating the responses.
func (e *Engine) Synthesize(ctx context.Context, text string, opts tts.SynthOptions) ([]byte, error) {
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if n := utf8.RuneCountInString(text); n > maxTextLength {
		return nil, fmt.Errorf("%w: %d characters (max %d)", tts.ErrTextTooLong, n, maxTextLength)
	}

	lang := opts.Language
	if lang == "" {
		lang = "en"
	}

	var audio bytes.Buffer
	for _, chunk := range splitChunks(text, maxChunkLen) {
		data, err := e.fetchChunk(ctx, chunk, lang)
		if err != nil {
			return nil, err
		}
		audio.Write(data)
	}

	log.Debug("gtts synthesis complete", "language", lang, "textLength", len(text),
		"audioBytes", audio.Len())
	return audio.Bytes(), nil
}

// fetchChunk requests MP3 bytes for one chunk of text.
func (e *Engine) fetchChunk(ctx context.Context, chunk, lang string) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gtts rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("q", chunk)
	params.Set("tl", lang)
	if e.slow {
		params.Set("ttsspeed", "0.3")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building gtts request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gtts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gtts returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading gtts response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("gtts returned no audio data")
	}
	return data, nil
}

// splitChunks splits text into pieces of at most max bytes, preferring to
// break at the last space inside each window. Unspaced text (CJK and the
// like) is cut on a rune boundary so every chunk stays valid UTF-8.
func splitChunks(text string, max int) []string {
	var chunks []string
	for len(text) > max {
		cut := 0
		for i := max; i > 0; i-- {
			if text[i-1] == ' ' {
				cut = i
				break
			}
		}
		if cut == 0 {
			cut = max
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(text)
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}
