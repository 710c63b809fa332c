package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dibbed/ttskit/tts"
)

func TestEngine_Synthesize(t *testing.T) {
	engine := New()

	audio, err := engine.Synthesize(context.Background(), "hello world", tts.DefaultSynthOptions())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(audio) == 0 {
		t.Error("Synthesize produced no audio")
	}
	if engine.CallCount() != 1 {
		t.Errorf("CallCount = %d, want 1", engine.CallCount())
	}

	// Longer text produces more audio.
	longer, err := engine.Synthesize(context.Background(),
		"a considerably longer sentence that should take more time to speak aloud",
		tts.DefaultSynthOptions())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(longer) <= len(audio) {
		t.Errorf("longer text produced %d bytes, short text %d", len(longer), len(audio))
	}
}

func TestEngine_ForcedFailure(t *testing.T) {
	engine := New()
	boom := errors.New("boom")

	engine.SetFailure(boom)
	if _, err := engine.Synthesize(context.Background(), "hi", tts.DefaultSynthOptions()); !errors.Is(err, boom) {
		t.Errorf("got %v, want forced error", err)
	}

	engine.ClearFailure()
	if _, err := engine.Synthesize(context.Background(), "hi", tts.DefaultSynthOptions()); err != nil {
		t.Errorf("Synthesize failed after ClearFailure: %v", err)
	}
}

func TestEngine_AlwaysFailRate(t *testing.T) {
	engine := NewFromConfig(tts.MockConfig{FailureRate: 1.0})

	for i := 0; i < 5; i++ {
		if _, err := engine.Synthesize(context.Background(), "hi", tts.DefaultSynthOptions()); err == nil {
			t.Fatal("failure rate 1.0 must fail every call")
		}
	}
}

func TestEngine_DelayHonorsContext(t *testing.T) {
	engine := New()
	engine.SetDelay(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := engine.Synthesize(ctx, "hi", tts.DefaultSynthOptions())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Synthesize did not return promptly on context cancellation")
	}
}

func TestEngine_Availability(t *testing.T) {
	engine := New()
	if !engine.IsAvailable() {
		t.Error("new mock engine should be available")
	}
	engine.SetAvailable(false)
	if engine.IsAvailable() {
		t.Error("SetAvailable(false) not honored")
	}
}

func TestEngine_ListVoices(t *testing.T) {
	engine := New()
	voices, err := engine.ListVoices("en")
	if err != nil {
		t.Fatalf("ListVoices failed: %v", err)
	}
	if len(voices) != 2 {
		t.Errorf("ListVoices = %v, want 2 voices", voices)
	}

	// Returned slice is a copy.
	voices[0] = "mutated"
	again, _ := engine.ListVoices("en")
	if again[0] == "mutated" {
		t.Error("ListVoices returned a shared slice")
	}
}
