package cache

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %v, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, _ := c.Get(ctx, "alloc:1"); hit {
		t.Fatal("empty cache should miss")
	}
	if err := c.Set(ctx, "alloc:1", []byte("payload"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "alloc:1")
	if err != nil || !hit || string(data) != "payload" {
		t.Fatalf("Get = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "alloc:1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "alloc:1"); hit {
		t.Error("deleted key should miss")
	}
	if err := c.Delete(ctx, "alloc:1"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "old", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "forever", []byte("y"), 0); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl should not expire")
	}

	n, err := c.Prune()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Prune removed %d, want 1", n)
	}
	entries, _, _ := c.Stats()
	if entries != 1 {
		t.Errorf("Stats entries = %d, want 1", entries)
	}
}

func TestFileCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("k"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v", hit, err)
	}
}

func TestFileCache_Clear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}
	if n, size, _ := c.Stats(); n != 3 || size == 0 {
		t.Fatalf("Stats = %d entries, %d bytes", n, size)
	}
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if n, _, _ := c.Stats(); n != 0 {
		t.Errorf("after Clear: %d entries", n)
	}
	if _, err := os.Stat(c.Dir()); err != nil {
		t.Errorf("Clear should recreate the directory: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}

	type pair struct{ A, B int }
	if HashJSON(pair{1, 2}) != HashJSON(pair{1, 2}) {
		t.Error("HashJSON should be deterministic")
	}
	if HashJSON(pair{1, 2}) == HashJSON(pair{2, 1}) {
		t.Error("HashJSON should depend on values")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	a1 := k.AllocationKey("Main", "h", AllocationKeyOpts{Strategy: "port-grouping", Rule: "port-range"})
	a2 := k.AllocationKey("Main", "h", AllocationKeyOpts{Strategy: "sequential", Rule: "universe"})
	a3 := k.AllocationKey("main", "h", AllocationKeyOpts{Strategy: "port-grouping", Rule: "port-range"})
	if a1 == a2 {
		t.Error("different strategies should produce different keys")
	}
	if a1 != a3 {
		t.Error("controller names should match case-insensitively")
	}
	if !strings.HasPrefix(a1, "alloc:") {
		t.Errorf("AllocationKey prefix: %s", a1)
	}

	r1 := k.ArtifactKey("d", ArtifactKeyOpts{Format: "svg"})
	r2 := k.ArtifactKey("d", ArtifactKeyOpts{Format: "png"})
	if r1 == r2 {
		t.Error("different formats should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "show:1:")
	inner := NewDefaultKeyer()

	opts := ArtifactKeyOpts{Format: "svg"}
	if got := scoped.ArtifactKey("d", opts); got != "show:1:"+inner.ArtifactKey("d", opts) {
		t.Errorf("ArtifactKey = %s", got)
	}
	aopts := AllocationKeyOpts{Strategy: "sequential"}
	if got := scoped.AllocationKey("c", "h", aopts); got != "show:1:"+inner.AllocationKey("c", "h", aopts) {
		t.Errorf("AllocationKey = %s", got)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("wrapped error should unwrap to ErrNetwork")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	retryDelay = time.Millisecond
	ctx := context.Background()

	calls := 0
	if err := RetryWithBackoff(ctx, func() error { calls++; return nil }); err != nil || calls != 1 {
		t.Errorf("success: err=%v calls=%d", err, calls)
	}

	plain := errors.New("plain")
	calls = 0
	if err := RetryWithBackoff(ctx, func() error { calls++; return plain }); err != plain || calls != 1 {
		t.Errorf("non-retryable: err=%v calls=%d", err, calls)
	}

	calls = 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retry: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error { calls++; return Retryable(ErrNetwork) })
	if !IsRetryable(err) || calls != 3 {
		t.Errorf("exhausted: err=%v calls=%d", err, calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error { return Retryable(ErrNetwork) })
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}

func TestClassify(t *testing.T) {
	if classify(nil) != nil {
		t.Error("nil should stay nil")
	}
	if IsRetryable(classify(errors.New("WRONGTYPE"))) {
		t.Error("server errors are not retryable")
	}
	netErr := &timeoutErr{}
	if !IsRetryable(classify(netErr)) {
		t.Error("network errors should be retryable")
	}
}

type timeoutErr struct{}

func (*timeoutErr) Error() string   { return "i/o timeout" }
func (*timeoutErr) Timeout() bool   { return true }
func (*timeoutErr) Temporary() bool { return true }

func TestWithMaxTTL(t *testing.T) {
	if got := WithMaxTTL(NewNullCache(), 0); got != NewNullCache() {
		t.Errorf("zero max should return the cache unchanged, got %T", got)
	}

	rec := &ttlRecorder{}
	c := WithMaxTTL(rec, time.Hour)
	ctx := context.Background()

	tests := []struct {
		in, want time.Duration
	}{
		{0, time.Hour},
		{time.Minute, time.Minute},
		{48 * time.Hour, time.Hour},
	}
	for _, tt := range tests {
		if err := c.Set(ctx, "k", nil, tt.in); err != nil {
			t.Fatal(err)
		}
		if rec.ttl != tt.want {
			t.Errorf("Set(ttl=%v) stored %v, want %v", tt.in, rec.ttl, tt.want)
		}
	}
}

type ttlRecorder struct {
	NullCache
	ttl time.Duration
}

func (r *ttlRecorder) Set(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
	r.ttl = ttl
	return nil
}
