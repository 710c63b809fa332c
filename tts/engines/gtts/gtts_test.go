package gtts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/dibbed/ttskit/tts"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{"empty", "", 10, nil},
		{"fits", "hello", 10, []string{"hello"}},
		{"exact boundary", "hello", 5, []string{"hello"}},
		{"breaks at space", "hello world", 8, []string{"hello ", "world"}},
		{"no space falls back to hard cut", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{
			"multiple chunks",
			"one two three four five",
			10,
			[]string{"one two ", "three ", "four five"},
		},
		{"multibyte hard cut stays on rune boundary", "你好世界", 7, []string{"你好", "世界"}},
		{"single rune wider than max is kept whole", "你", 2, []string{"你"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitChunks(tt.text, tt.max)
			if len(got) != len(tt.want) {
				t.Fatalf("splitChunks(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
			// Chunks must reassemble to the original text.
			if strings.Join(got, "") != tt.text {
				t.Errorf("chunks lose content: %q", strings.Join(got, ""))
			}
		})
	}
}

func TestSplitChunks_UnspacedTextStaysValidUTF8(t *testing.T) {
	// Space-less languages exercise the hard-cut path on every chunk.
	text := strings.Repeat("你好世界", 400)
	chunks := splitChunks(text, maxChunkLen)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d is invalid UTF-8: %q", i, chunk)
		}
		if len(chunk) > maxChunkLen {
			t.Errorf("chunk %d is %d bytes, max %d", i, len(chunk), maxChunkLen)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("chunks lose content")
	}
}

func TestEngine_SynthesizeValidation(t *testing.T) {
	engine := New(tts.GTTSConfig{})

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
}

func TestEngine_LengthLimitCountsRunes(t *testing.T) {
	engine := New(tts.GTTSConfig{})

	// More bytes than maxTextLength but fewer runes; must pass validation.
	// The canceled context stops the request before it leaves the process.
	text := strings.Repeat("你", maxTextLength-1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Synthesize(ctx, text, tts.DefaultSynthOptions())
	if errors.Is(err, tts.ErrTextTooLong) {
		t.Fatalf("multibyte text under the rune limit rejected: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestEngine_RequestThrottle(t *testing.T) {
	engine := New(tts.GTTSConfig{})
	if engine.limiter == nil {
		t.Fatal("limiter not configured")
	}
	if got, want := engine.limiter.Limit(), rate.Every(time.Minute/defaultRequestsPerMinute); got != want {
		t.Errorf("default limit = %v, want %v", got, want)
	}

	engine = New(tts.GTTSConfig{RequestsPerMinute: 10})
	if got, want := engine.limiter.Limit(), rate.Every(time.Minute/10); got != want {
		t.Errorf("configured limit = %v, want %v", got, want)
	}
}

func TestEngine_Capabilities(t *testing.T) {
	engine := New(tts.GTTSConfig{})
	caps := engine.Capabilities()

	if caps.Offline {
		t.Error("gtts is an online engine")
	}
	if caps.SSML || caps.PitchControl {
		t.Error("gtts supports neither SSML nor pitch control")
	}
	if !caps.SupportsLanguage("en") {
		t.Error("gtts should support en")
	}
	if caps.MaxTextLength != maxTextLength {
		t.Errorf("MaxTextLength = %d, want %d", caps.MaxTextLength, maxTextLength)
	}
}
