package piper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dibbed/ttskit/tts"
)

func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "en_US-test-medium.onnx")
	if err := os.WriteFile(path, []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(tts.PiperConfig{}); err == nil {
		t.Error("New must fail without a model path")
	}
	if _, err := New(tts.PiperConfig{ModelPath: "/does/not/exist.onnx"}); err == nil {
		t.Error("New must fail for a missing model file")
	}
}

func TestNew_Defaults(t *testing.T) {
	model := writeModel(t)

	engine, err := New(tts.PiperConfig{ModelPath: model})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if engine.binary != "piper" {
		t.Errorf("binary = %q, want piper", engine.binary)
	}
	want := strings.TrimSuffix(model, ".onnx") + ".json"
	if engine.configPath != want {
		t.Errorf("configPath = %q, want %q", engine.configPath, want)
	}
	if engine.timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", engine.timeout, defaultTimeout)
	}
}

func TestEngine_SynthesizeValidation(t *testing.T) {
	model := writeModel(t)
	engine, err := New(tts.PiperConfig{ModelPath: model})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := engine.Synthesize(context.Background(), "", tts.DefaultSynthOptions()); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("empty text: got %v, want ErrEmptyText", err)
	}

	long := strings.Repeat("a", maxTextLength+1)
	if _, err := engine.Synthesize(context.Background(), long, tts.DefaultSynthOptions()); !errors.Is(err, tts.ErrTextTooLong) {
		t.Errorf("long text: got %v, want ErrTextTooLong", err)
	}

	longRunes := strings.Repeat("你", maxTextLength+1)
	if _, err := engine.Synthesize(context.Background(), longRunes, tts.DefaultSynthOptions()); !errors.Is(err, tts.ErrTextTooLong) {
		t.Errorf("long multibyte text: got %v, want ErrTextTooLong", err)
	}

	// Multibyte text under the rune limit must clear validation even though
	// its byte length exceeds the limit.
	underLimit := strings.Repeat("你", maxTextLength)
	if _, err := engine.Synthesize(context.Background(), underLimit, tts.DefaultSynthOptions()); errors.Is(err, tts.ErrTextTooLong) {
		t.Errorf("multibyte text under the rune limit rejected: %v", err)
	}
}

func TestEngine_ListVoices(t *testing.T) {
	model := writeModel(t)
	engine, err := New(tts.PiperConfig{ModelPath: model})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	voices, err := engine.ListVoices("en")
	if err != nil {
		t.Fatalf("ListVoices failed: %v", err)
	}
	if len(voices) != 1 || voices[0] != "en_US-test-medium" {
		t.Errorf("ListVoices = %v, want [en_US-test-medium]", voices)
	}
}

func TestEngine_Capabilities(t *testing.T) {
	model := writeModel(t)
	engine, err := New(tts.PiperConfig{ModelPath: model})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	caps := engine.Capabilities()
	if !caps.Offline {
		t.Error("piper is an offline engine")
	}
	if !caps.RateControl || caps.PitchControl {
		t.Error("piper supports rate control but not pitch control")
	}
}
