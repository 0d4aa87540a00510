// Package arena provides a chunked bump allocator for same-lifetime data.
//
// A vocabulary owns one long-lived arena for every permanent lexeme and
// vector buffer; callers performing out-of-vocabulary lookups supply their
// own scratch arena and release it as a unit when they are done. Allocations
// are never freed individually.
//
// # Concurrency Model
//
// The allocation fast path is lock-free (CAS on the chunk offset), so
// read-mostly callers may allocate from multiple goroutines. Reset and Free
// must not run concurrently with allocations. The vocabulary itself follows
// a single-writer contract and never shares its permanent arena.
package arena

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/lexgo/internal/conv"
)

// MemoryAcquirer is an interface for acquiring memory from a budget.
type MemoryAcquirer interface {
	AcquireMemory(ctx context.Context, amount int64) error
	ReleaseMemory(amount int64)
}

var (
	// ErrMaxChunksExceeded is returned when the arena exceeds the maximum number of chunks.
	ErrMaxChunksExceeded = errors.New("arena: max chunks exceeded")
	// ErrClosed is returned when allocating from a freed arena.
	ErrClosed = errors.New("arena: closed")
)

const (
	// DefaultChunkSize is the default size of a chunk (256 KiB).
	DefaultChunkSize = 256 * 1024
	// DefaultAlignment is the default memory alignment (8 bytes).
	DefaultAlignment = 8
	// MaxChunks limits the number of chunks to bound addressable space.
	MaxChunks = 65536
)

// Stats tracks arena memory usage.
type Stats struct {
	ChunksAllocated uint64 // Historical: total chunks ever created
	BytesReserved   uint64 // Current: total memory reserved
	BytesUsed       uint64 // Current: actual bytes requested
	BytesWasted     uint64 // Current: alignment padding
	TotalAllocs     uint64 // Historical: total allocations
}

type atomicStats struct {
	ChunksAllocated atomic.Uint64
	BytesReserved   atomic.Uint64
	BytesUsed       atomic.Uint64
	BytesWasted     atomic.Uint64
	TotalAllocs     atomic.Uint64
}

type chunk struct {
	data   []byte
	offset atomic.Int64
}

// Arena is a chunked memory arena.
type Arena struct {
	chunkSize int
	alignment int
	mu        sync.Mutex
	chunks    []*chunk
	current   atomic.Pointer[chunk]
	closed    atomic.Bool
	stats     atomicStats
	acquirer  MemoryAcquirer
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithMemoryAcquirer sets the memory acquirer for the arena. Chunk
// reservations block until the budget admits them.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// New creates a new Arena. chunkSize <= 0 selects DefaultChunkSize;
// the size is rounded up to the next power of two.
func New(chunkSize int, opts ...Option) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	chunkSize = 1 << bits.Len(uint(chunkSize-1))

	a := &Arena{
		chunkSize: chunkSize,
		alignment: DefaultAlignment,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Arena) allocateChunkLocked(ctx context.Context) error {
	if len(a.chunks) >= MaxChunks {
		return ErrMaxChunksExceeded
	}

	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(ctx, int64(a.chunkSize)); err != nil {
			return fmt.Errorf("arena: memory budget: %w", err)
		}
	}

	c := &chunk{data: make([]byte, a.chunkSize)}
	a.chunks = append(a.chunks, c)

	a.stats.ChunksAllocated.Add(1)
	reserved, _ := conv.IntToUint64(a.chunkSize)
	a.stats.BytesReserved.Add(reserved)

	a.current.Store(c)
	return nil
}

// AllocBytes allocates a zeroed, aligned byte slice of the given size.
// Sizes larger than the chunk size get a dedicated chunk.
func (a *Arena) AllocBytes(size int) ([]byte, error) {
	return a.AllocBytesContext(context.Background(), size)
}

// AllocBytesContext allocates with a context governing budget waits.
func (a *Arena) AllocBytesContext(ctx context.Context, size int) ([]byte, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	if size <= 0 {
		return nil, nil
	}
	if size > a.chunkSize {
		return a.allocLarge(ctx, size)
	}

	mask := a.alignment - 1
	alignedSize := (size + mask) & ^mask

	for {
		curr := a.current.Load()
		if curr != nil {
			if data, ok := a.tryAllocInChunk(curr, size, alignedSize); ok {
				return data, nil
			}
		}

		a.mu.Lock()
		if a.current.Load() != curr {
			a.mu.Unlock()
			continue
		}
		if err := a.allocateChunkLocked(ctx); err != nil {
			a.mu.Unlock()
			return nil, err
		}
		a.mu.Unlock()
	}
}

func (a *Arena) tryAllocInChunk(curr *chunk, size, alignedSize int) ([]byte, bool) {
	oldOffset := curr.offset.Load()
	newOffset := oldOffset + int64(alignedSize)
	if newOffset > int64(len(curr.data)) {
		return nil, false
	}
	if !curr.offset.CompareAndSwap(oldOffset, newOffset) {
		return nil, false
	}

	used, _ := conv.IntToUint64(size)
	a.stats.BytesUsed.Add(used)
	wasted, _ := conv.IntToUint64(alignedSize - size)
	a.stats.BytesWasted.Add(wasted)
	a.stats.TotalAllocs.Add(1)

	return curr.data[oldOffset:newOffset:newOffset], true
}

// allocLarge gives oversized allocations their own chunk so they never
// starve the bump path.
func (a *Arena) allocLarge(ctx context.Context, size int) ([]byte, error) {
	mask := a.alignment - 1
	alignedSize := (size + mask) & ^mask

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.chunks) >= MaxChunks {
		return nil, ErrMaxChunksExceeded
	}
	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(ctx, int64(alignedSize)); err != nil {
			return nil, fmt.Errorf("arena: memory budget: %w", err)
		}
	}

	c := &chunk{data: make([]byte, alignedSize)}
	c.offset.Store(int64(alignedSize))
	a.chunks = append(a.chunks, c)

	a.stats.ChunksAllocated.Add(1)
	reserved, _ := conv.IntToUint64(alignedSize)
	a.stats.BytesReserved.Add(reserved)
	used, _ := conv.IntToUint64(size)
	a.stats.BytesUsed.Add(used)
	a.stats.TotalAllocs.Add(1)

	return c.data[:size:alignedSize], nil
}

// AllocFloat32Slice allocates a zeroed float32 slice of length n.
func (a *Arena) AllocFloat32Slice(n int) ([]float32, error) {
	return a.AllocFloat32SliceContext(context.Background(), n)
}

// AllocFloat32SliceContext allocates with a context governing budget waits.
func (a *Arena) AllocFloat32SliceContext(ctx context.Context, n int) ([]float32, error) {
	if n <= 0 {
		return nil, nil
	}
	b, err := a.AllocBytesContext(ctx, n*4)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n), nil
}

// Stats returns a snapshot of the arena's usage counters.
func (a *Arena) Stats() Stats {
	return Stats{
		ChunksAllocated: a.stats.ChunksAllocated.Load(),
		BytesReserved:   a.stats.BytesReserved.Load(),
		BytesUsed:       a.stats.BytesUsed.Load(),
		BytesWasted:     a.stats.BytesWasted.Load(),
		TotalAllocs:     a.stats.TotalAllocs.Load(),
	}
}

// Reset drops all chunks but keeps the arena usable. Previously returned
// slices become invalid. Must not run concurrently with allocations.
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
}

// Free releases all memory. Subsequent allocations fail with ErrClosed.
func (a *Arena) Free() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed.Store(true)
	a.releaseLocked()
}

func (a *Arena) releaseLocked() {
	if a.acquirer != nil {
		for _, c := range a.chunks {
			a.acquirer.ReleaseMemory(int64(len(c.data)))
		}
	}
	a.chunks = nil
	a.current.Store(nil)
	a.stats.BytesReserved.Store(0)
	a.stats.BytesUsed.Store(0)
	a.stats.BytesWasted.Store(0)
}
