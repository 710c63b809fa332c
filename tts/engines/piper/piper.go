// Package piper implements an offline TTS engine that shells out to the
// piper binary. Each synthesis runs a fresh process with pre-configured
// stdin to avoid races on the child's input pipe.
package piper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/dibbed/ttskit/tts"
)

const (
	maxTextLength = 2000
	// Piper can emit very large raw PCM for long inputs; cap output to keep
	// one request from eating the process.
	maxAudioSize = 10 * 1024 * 1024

	defaultTimeout = 10 * time.Second
)

// Engine implements tts.Engine on top of a local piper installation.
type Engine struct {
	binary     string
	modelPath  string
	configPath string
	speakerID  int
	timeout    time.Duration

	mu sync.RWMutex
}

var _ tts.Engine = (*Engine)(nil)

// New creates a piper engine. The model file must exist; the config path
// defaults to the model path with a .json extension.
func New(cfg tts.PiperConfig) (*Engine, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("piper: model path is required")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("piper: model file not found: %w", err)
	}

	binary := cfg.Binary
	if binary == "" {
		binary = "piper"
	}

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = strings.TrimSuffix(cfg.ModelPath, filepath.Ext(cfg.ModelPath)) + ".json"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Engine{
		binary:     binary,
		modelPath:  cfg.ModelPath,
		configPath: configPath,
		speakerID:  cfg.SpeakerID,
		timeout:    timeout,
	}, nil
}

// IsAvailable reports whether the piper binary is on PATH and the model file
// is readable.
func (e *Engine) IsAvailable() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := exec.LookPath(e.binary); err != nil {
		return false
	}
	if _, err := os.Stat(e.modelPath); err != nil {
		return false
	}
	return true
}

// Capabilities returns the engine's declared feature set. Languages follow
// the loaded model; the common piper voices cover these.
func (e *Engine) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		Offline:       true,
		SSML:          false,
		RateControl:   true,
		PitchControl:  false,
		Languages:     []string{"en", "de", "fr", "es", "it", "pt", "ru", "zh"},
		MaxTextLength: maxTextLength,
	}
}

// ListVoices returns the model name as the single available voice. Piper
// binds voices to model files rather than runtime parameters.
func (e *Engine) ListVoices(lang string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	name := strings.TrimSuffix(filepath.Base(e.modelPath), filepath.Ext(e.modelPath))
	return []string{name}, nil
}

// Synthesize runs piper with the text on stdin and returns raw 16-bit mono
// PCM at the model's sample rate.
func (e *Engine) Synthesize(ctx context.Context, text string, opts tts.SynthOptions) ([]byte, error) {
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if n := utf8.RuneCountInString(text); n > maxTextLength {
		return nil, fmt.Errorf("%w: %d characters (max %d)", tts.ErrTextTooLong, n, maxTextLength)
	}

	e.mu.RLock()
	binary := e.binary
	modelPath := e.modelPath
	configPath := e.configPath
	speakerID := e.speakerID
	timeout := e.timeout
	e.mu.RUnlock()

	rate := opts.Rate
	if rate <= 0 {
		rate = 1.0
	}
	// Piper expresses speed inversely: half speed is length-scale 2.0.
	lengthScale := 1.0 / rate

	args := []string{
		"--model", modelPath,
		"--config", configPath,
		"--output-raw",
		"--length-scale", fmt.Sprintf("%.2f", lengthScale),
	}
	if speakerID > 0 {
		args = append(args, "--speaker", strconv.Itoa(speakerID))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)

	// Stdin must be set before Start so piper never races our write.
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("piper: synthesis timeout: %w", ctx.Err())
		}
		return nil, fmt.Errorf("piper: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	audio := stdout.Bytes()
	if len(audio) == 0 {
		return nil, fmt.Errorf("piper: no audio output, stderr: %s", strings.TrimSpace(stderr.String()))
	}
	if len(audio) > maxAudioSize {
		return nil, fmt.Errorf("piper: output too large: %d bytes (max %d)", len(audio), maxAudioSize)
	}

	log.Debug("piper synthesis complete", "textChars", len(text), "audioBytes", len(audio))
	return audio, nil
}
