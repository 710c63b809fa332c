package synth

import (
	"context"
	"errors"
	"testing"

	"github.com/dibbed/ttskit/internal/cache"
	"github.com/dibbed/ttskit/tts"
	"github.com/dibbed/ttskit/tts/engines/mock"
)

func newTestService(t *testing.T, withCache bool) (*Service, *mock.Engine) {
	t.Helper()

	engine := mock.New()
	registry := tts.NewRegistry()
	if err := registry.Register("mock", engine, engine.Capabilities()); err != nil {
		t.Fatal(err)
	}
	router := tts.NewRouter(registry)

	var manager *cache.Manager
	if withCache {
		cfg := cache.DefaultConfig()
		cfg.Dir = t.TempDir()
		cfg.CleanupInterval = 0

		var err error
		manager, err = cache.NewManager(cfg)
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
	}

	service := NewService(router, manager)
	t.Cleanup(func() { service.Close() })
	return service, engine
}

func TestService_SynthesizeAndCacheHit(t *testing.T) {
	service, engine := newTestService(t, true)

	first, err := service.Synthesize(context.Background(), "hello world", "en", nil, tts.DefaultSynthOptions())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if first.Cached {
		t.Error("first request reported as cached")
	}
	if first.Engine != "mock" {
		t.Errorf("Engine = %q, want mock", first.Engine)
	}
	if engine.CallCount() != 1 {
		t.Errorf("CallCount = %d, want 1", engine.CallCount())
	}

	second, err := service.Synthesize(context.Background(), "hello world", "en", nil, tts.DefaultSynthOptions())
	if err != nil {
		t.Fatalf("cached Synthesize failed: %v", err)
	}
	if !second.Cached {
		t.Error("second identical request missed the cache")
	}
	if second.Engine != "mock" {
		t.Errorf("cached Engine = %q, want mock", second.Engine)
	}
	if engine.CallCount() != 1 {
		t.Errorf("CallCount = %d after cache hit, want 1", engine.CallCount())
	}

	// Cache hits must not touch routing statistics.
	agg := service.Router().Aggregate()
	if agg.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1 (cache hit bypasses router)", agg.TotalRequests)
	}
}

func TestService_DifferentOptionsMissCache(t *testing.T) {
	service, engine := newTestService(t, true)

	opts := tts.DefaultSynthOptions()
	if _, err := service.Synthesize(context.Background(), "hello", "en", nil, opts); err != nil {
		t.Fatal(err)
	}

	opts.Rate = 1.5
	if _, err := service.Synthesize(context.Background(), "hello", "en", nil, opts); err != nil {
		t.Fatal(err)
	}

	if engine.CallCount() != 2 {
		t.Errorf("CallCount = %d, want 2 (rate change must bust the cache)", engine.CallCount())
	}
}

func TestService_WithoutCache(t *testing.T) {
	service, engine := newTestService(t, false)

	for i := 0; i < 2; i++ {
		result, err := service.Synthesize(context.Background(), "hello", "en", nil, tts.DefaultSynthOptions())
		if err != nil {
			t.Fatalf("Synthesize failed: %v", err)
		}
		if result.Cached {
			t.Error("cacheless service reported a cache hit")
		}
	}
	if engine.CallCount() != 2 {
		t.Errorf("CallCount = %d, want 2", engine.CallCount())
	}

	if _, ok := service.CacheStats(); ok {
		t.Error("CacheStats reported ok without a cache")
	}
}

func TestService_EmptyText(t *testing.T) {
	service, _ := newTestService(t, true)

	if _, err := service.Synthesize(context.Background(), "", "en", nil, tts.DefaultSynthOptions()); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("got %v, want ErrEmptyText", err)
	}
}

func TestService_RoutingErrorPassesThrough(t *testing.T) {
	service, engine := newTestService(t, true)
	engine.SetFailure(errors.New("backend down"))

	_, err := service.Synthesize(context.Background(), "hello", "en", nil, tts.DefaultSynthOptions())

	var allFailed *tts.AllEnginesFailedError
	if !errors.As(err, &allFailed) {
		t.Fatalf("got %v, want *AllEnginesFailedError", err)
	}

	// Failures are never cached: a retry reaches the engine again.
	engine.ClearFailure()
	result, err := service.Synthesize(context.Background(), "hello", "en", nil, tts.DefaultSynthOptions())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.Cached {
		t.Error("retry after failure served from cache")
	}
}

func TestCacheFromConfig(t *testing.T) {
	manager, err := CacheFromConfig(tts.CacheConfig{Enabled: false})
	if err != nil || manager != nil {
		t.Errorf("disabled cache: got (%v, %v), want (nil, nil)", manager, err)
	}

	manager, err = CacheFromConfig(tts.CacheConfig{
		Enabled:          true,
		Dir:              t.TempDir(),
		MemoryCapacityMB: 1,
		DiskCapacityMB:   1,
		CompressionLevel: 3,
		TTLDays:          1,
	})
	if err != nil {
		t.Fatalf("CacheFromConfig failed: %v", err)
	}
	if manager == nil {
		t.Fatal("CacheFromConfig returned nil manager while enabled")
	}
	manager.Close()
}
