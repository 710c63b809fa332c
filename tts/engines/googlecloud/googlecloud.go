// Package googlecloud implements a TTS engine backed by the Google Cloud
// Text-to-Speech API. It supports SSML, rate and pitch control, and named
// neural voices.
package googlecloud

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/charmbracelet/log"
	"google.golang.org/api/option"

	"github.com/dibbed/ttskit/tts"
)

const maxTextLength = 10000

// languages the engine advertises. The API supports more; these cover the
// default policy set.
var languages = []string{
	"en", "ar", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh",
}

// defaultVoices advertised in the capability descriptor.
var defaultVoices = []string{
	"en-US-Neural2-A", "en-US-Neural2-F", "en-GB-Neural2-B",
	"de-DE-Neural2-C", "fr-FR-Neural2-D", "es-ES-Neural2-E",
	"ja-JP-Neural2-B", "ko-KR-Neural2-A",
}

// Engine implements tts.Engine using the Cloud SDK client.
type Engine struct {
	client  *texttospeech.Client
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// Compile-time interface assertion.
var _ tts.Engine = (*Engine)(nil)

// New creates a Cloud TTS engine. With an empty credentials file the client
// uses Application Default Credentials.
func New(ctx context.Context, cfg tts.GoogleCloudConfig) (*Engine, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating cloud tts client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	log.Info("Google Cloud TTS engine initialized")
	return &Engine{client: client, timeout: timeout}, nil
}

// IsAvailable reports whether the client is open. Credential problems
// surface as synthesis failures, which the router treats as fallback events.
func (e *Engine) IsAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && e.client != nil
}

// Capabilities returns the engine's declared feature set.
func (e *Engine) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		Offline:       false,
		SSML:          true,
		RateControl:   true,
		PitchControl:  true,
		Languages:     append([]string(nil), languages...),
		Voices:        append([]string(nil), defaultVoices...),
		MaxTextLength: maxTextLength,
	}
}

// ListVoices queries the API for voices matching the language code.
func (e *Engine) ListVoices(lang string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	resp, err := e.client.ListVoices(ctx, &ttspb.ListVoicesRequest{LanguageCode: lang})
	if err != nil {
		return nil, fmt.Errorf("listing cloud tts voices: %w", err)
	}

	names := make([]string, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		names = append(names, v.Name)
	}
	return names, nil
}

// Synthesize converts text to MP3 audio. SSML input is detected by a leading
// <speak> element.
func (e *Engine) Synthesize(ctx context.Context, text string, opts tts.SynthOptions) ([]byte, error) {
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if n := utf8.RuneCountInString(text); n > maxTextLength {
		return nil, fmt.Errorf("%w: %d characters (max %d)", tts.ErrTextTooLong, n, maxTextLength)
	}

	input := &ttspb.SynthesisInput{}
	if strings.HasPrefix(strings.TrimSpace(text), "<speak>") {
		input.InputSource = &ttspb.SynthesisInput_Ssml{Ssml: text}
	} else {
		input.InputSource = &ttspb.SynthesisInput_Text{Text: text}
	}

	voice := &ttspb.VoiceSelectionParams{
		LanguageCode: languageCode(opts),
		Name:         opts.Voice,
	}

	rate := opts.Rate
	if rate <= 0 {
		rate = 1.0
	}

	req := &ttspb.SynthesizeSpeechRequest{
		Input: input,
		Voice: voice,
		AudioConfig: &ttspb.AudioConfig{
			AudioEncoding:   ttspb.AudioEncoding_MP3,
			SpeakingRate:    rate,
			Pitch:           opts.Pitch,
			SampleRateHertz: 22050,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("cloud tts synthesis failed: %w", err)
	}

	log.Debug("cloud tts synthesis complete", "voice", voice.Name,
		"language", voice.LanguageCode, "audioBytes", len(resp.AudioContent))
	return resp.AudioContent, nil
}

// Close releases the underlying gRPC client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.client.Close()
}

// languageCode derives a BCP-47 code from the request. Voice names like
// "en-US-Neural2-A" carry their own region; bare languages get a default
// region.
func languageCode(opts tts.SynthOptions) string {
	if parts := strings.Split(opts.Voice, "-"); len(parts) >= 2 && opts.Voice != "" {
		return parts[0] + "-" + parts[1]
	}
	switch opts.Language {
	case "", "en":
		return "en-US"
	case "zh":
		return "zh-CN"
	case "ja":
		return "ja-JP"
	case "ko":
		return "ko-KR"
	default:
		return opts.Language + "-" + strings.ToUpper(opts.Language)
	}
}
