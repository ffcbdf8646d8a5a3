package id

import (
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	if gen.Generate().String() == gen.Generate().String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestTypedIDPrefixes(t *testing.T) {
	ids := map[string]string{
		"req":   NewRequestID().String(),
		"trace": NewTraceID().String(),
		"span":  NewSpanID().String(),
		"sub":   NewSubscriberID().String(),
	}

	for prefix, id := range ids {
		parts := strings.Split(id, "_")
		if len(parts) != 2 {
			t.Fatalf("ID should have format 'prefix_ulid', got: %s", id)
		}
		if parts[0] != prefix {
			t.Errorf("Expected prefix '%s', got '%s'", prefix, parts[0])
		}
		if !IsValid(parts[1]) {
			t.Errorf("ULID part should be valid: %s", parts[1])
		}
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid(NewGenerator().GenerateString()) {
		t.Error("Generated ULID should be valid")
	}

	for _, bad := range []string{"", "invalid", "zzzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		if IsValid(bad) {
			t.Errorf("ID should be invalid: %s", bad)
		}
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().UnixMilli()
	id := NewGenerator().GenerateString()
	after := time.Now().UnixMilli()

	ts, err := Timestamp(id)
	if err != nil {
		t.Fatalf("Failed to extract timestamp: %v", err)
	}
	if ms := ts.UnixMilli(); ms < before || ms > after {
		t.Errorf("Timestamp should be between %d and %d ms, got %d ms", before, after, ms)
	}
}

func TestAllocatorStartsAtOne(t *testing.T) {
	a := NewAllocator()

	if a.Peek() != 0 {
		t.Errorf("fresh allocator should peek 0, got %d", a.Peek())
	}

	for want := uint64(1); want <= 3; want++ {
		got, err := a.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if got != want {
			t.Errorf("expected id %d, got %d", want, got)
		}
	}

	if a.Peek() != 3 {
		t.Errorf("expected peek 3, got %d", a.Peek())
	}
}

func TestAllocatorExhaustion(t *testing.T) {
	a := NewAllocator()
	a.last.Store(math.MaxUint64 - 1)

	last, err := a.Next()
	if err != nil || last != math.MaxUint64 {
		t.Fatalf("expected final id %d, got %d (%v)", uint64(math.MaxUint64), last, err)
	}

	_, err = a.Next()
	if status.CodeOf(err) != status.Malloc {
		t.Errorf("expected Malloc, got %v", err)
	}
	if a.Peek() != math.MaxUint64 {
		t.Error("exhausted allocator must not wrap")
	}
}

func TestAllocatorConcurrentUnique(t *testing.T) {
	a := NewAllocator()

	const goroutines = 50
	const perGoroutine = 200

	var wg sync.WaitGroup
	out := make(chan uint64, goroutines*perGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				n, err := a.Next()
				if err != nil {
					t.Error(err)
					return
				}
				out <- n
			}
		}()
	}
	wg.Wait()
	close(out)

	seen := make(map[uint64]bool)
	for n := range out {
		if seen[n] {
			t.Errorf("duplicate id %d", n)
		}
		seen[n] = true
	}
	if len(seen) != goroutines*perGoroutine {
		t.Errorf("expected %d ids, got %d", goroutines*perGoroutine, len(seen))
	}
	if a.Peek() != goroutines*perGoroutine {
		t.Errorf("expected peek %d, got %d", goroutines*perGoroutine, a.Peek())
	}
}

func BenchmarkAllocatorNext(b *testing.B) {
	a := NewAllocator()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = a.Next()
		}
	})
}

func BenchmarkGenerateWithPrefix(b *testing.B) {
	gen := NewGenerator()

	for i := 0; i < b.N; i++ {
		_ = gen.GenerateWithPrefix(RequestPrefix)
	}
}
