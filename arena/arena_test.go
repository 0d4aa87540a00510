package arena

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestAllocBytes(t *testing.T) {
	a := New(1024)
	defer a.Free()

	b, err := a.AllocBytes(100)
	if err != nil {
		t.Fatalf("AllocBytes: %v", err)
	}
	if len(b) != 100 {
		t.Fatalf("len = %d, want 100", len(b))
	}
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, v)
		}
	}
}

func TestAllocBytesZeroSize(t *testing.T) {
	a := New(1024)
	defer a.Free()

	b, err := a.AllocBytes(0)
	if err != nil || b != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", b, err)
	}
}

func TestAllocAlignment(t *testing.T) {
	a := New(1024)
	defer a.Free()

	// Odd-sized allocations must not misalign the next one.
	if _, err := a.AllocBytes(3); err != nil {
		t.Fatal(err)
	}
	b, err := a.AllocBytes(8)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}

	stats := a.Stats()
	if stats.BytesWasted == 0 {
		t.Error("expected alignment padding for the 3-byte alloc")
	}
}

func TestAllocLarge(t *testing.T) {
	a := New(1024)
	defer a.Free()

	b, err := a.AllocBytes(10_000)
	if err != nil {
		t.Fatalf("large alloc: %v", err)
	}
	if len(b) != 10_000 {
		t.Fatalf("len = %d, want 10000", len(b))
	}

	// The bump path stays usable afterwards.
	if _, err := a.AllocBytes(16); err != nil {
		t.Fatal(err)
	}
}

func TestAllocFloat32Slice(t *testing.T) {
	a := New(1024)
	defer a.Free()

	v, err := a.AllocFloat32Slice(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 10 {
		t.Fatalf("len = %d, want 10", len(v))
	}
	for i := range v {
		if v[i] != 0 {
			t.Fatalf("element %d not zeroed", i)
		}
		v[i] = float32(i)
	}

	w, err := a.AllocFloat32Slice(10)
	if err != nil {
		t.Fatal(err)
	}
	for i := range w {
		if w[i] != 0 {
			t.Fatal("second slice overlaps the first")
		}
	}
}

func TestChunkSizeRounding(t *testing.T) {
	a := New(1000)
	if a.chunkSize != 1024 {
		t.Fatalf("chunkSize = %d, want 1024", a.chunkSize)
	}

	d := New(0)
	if d.chunkSize != DefaultChunkSize {
		t.Fatalf("chunkSize = %d, want %d", d.chunkSize, DefaultChunkSize)
	}
}

func TestStats(t *testing.T) {
	a := New(1024)
	defer a.Free()

	if _, err := a.AllocBytes(64); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AllocBytes(64); err != nil {
		t.Fatal(err)
	}

	stats := a.Stats()
	if stats.TotalAllocs != 2 {
		t.Errorf("TotalAllocs = %d, want 2", stats.TotalAllocs)
	}
	if stats.BytesUsed != 128 {
		t.Errorf("BytesUsed = %d, want 128", stats.BytesUsed)
	}
	if stats.ChunksAllocated != 1 {
		t.Errorf("ChunksAllocated = %d, want 1", stats.ChunksAllocated)
	}
}

func TestReset(t *testing.T) {
	a := New(1024)
	defer a.Free()

	if _, err := a.AllocBytes(512); err != nil {
		t.Fatal(err)
	}
	a.Reset()

	stats := a.Stats()
	if stats.BytesReserved != 0 {
		t.Errorf("BytesReserved = %d after reset, want 0", stats.BytesReserved)
	}

	if _, err := a.AllocBytes(512); err != nil {
		t.Fatalf("alloc after reset: %v", err)
	}
}

func TestAllocAfterFree(t *testing.T) {
	a := New(1024)
	if _, err := a.AllocBytes(64); err != nil {
		t.Fatal(err)
	}
	a.Free()

	if _, err := a.AllocBytes(64); !errors.Is(err, ErrClosed) {
		t.Fatalf("alloc after free: got %v, want ErrClosed", err)
	}
	if _, err := a.AllocBytes(10_000); !errors.Is(err, ErrClosed) {
		t.Fatalf("large alloc after free: got %v, want ErrClosed", err)
	}
}

func TestConcurrentAlloc(t *testing.T) {
	a := New(4096)
	defer a.Free()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b, err := a.AllocBytes(32)
				if err != nil {
					t.Error(err)
					return
				}
				b[0] = 1
			}
		}()
	}
	wg.Wait()

	stats := a.Stats()
	if stats.TotalAllocs != 800 {
		t.Errorf("TotalAllocs = %d, want 800", stats.TotalAllocs)
	}
}

type fakeAcquirer struct {
	acquired int64
	released int64
	fail     bool
}

func (f *fakeAcquirer) AcquireMemory(_ context.Context, amount int64) error {
	if f.fail {
		return errors.New("budget exceeded")
	}
	f.acquired += amount
	return nil
}

func (f *fakeAcquirer) ReleaseMemory(amount int64) { f.released += amount }

func TestMemoryAcquirer(t *testing.T) {
	fa := &fakeAcquirer{}
	a := New(1024, WithMemoryAcquirer(fa))

	if _, err := a.AllocBytes(100); err != nil {
		t.Fatal(err)
	}
	if fa.acquired != 1024 {
		t.Errorf("acquired = %d, want 1024", fa.acquired)
	}

	a.Free()
	if fa.released != 1024 {
		t.Errorf("released = %d, want 1024", fa.released)
	}
}

func TestMemoryAcquirerDenied(t *testing.T) {
	fa := &fakeAcquirer{fail: true}
	a := New(1024, WithMemoryAcquirer(fa))
	defer a.Free()

	if _, err := a.AllocBytes(100); err == nil {
		t.Fatal("expected error from denied budget")
	}
}
