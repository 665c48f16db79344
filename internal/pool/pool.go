// Package pool recycles fixed-shape records across frames.
//
// Records live in an arena and are addressed by 1-based uint32 handles, so
// handle 0 can mean "none" in the structures built on top. Released handles
// go onto a separate free stack; the records themselves are never zeroed,
// callers must reinitialise every field after Acquire.
package pool

import (
	"fmt"

	"fortio.org/safecast"
)

// Handle addresses a record inside a Pool. The zero Handle is never issued.
type Handle uint32

// None is the zero handle.
const None Handle = 0

// IsValid reports whether h could have been issued by a pool.
func (h Handle) IsValid() bool { return h != None }

// chunkSize records are allocated at a time. Chunks never move, so a *T
// handed out by Acquire or Get stays valid for the life of the pool.
const (
	chunkBits = 8
	chunkSize = 1 << chunkBits
)

// Pool is a grow-only arena of T with a free list of idle handles.
type Pool[T any] struct {
	chunks [][]T
	n      int // records ever allocated
	free   []Handle
}

// New returns a pool whose chunk table and free list are preallocated for
// capHint records.
func New[T any](capHint int) *Pool[T] {
	if capHint < 0 {
		capHint = 0
	}
	return &Pool[T]{
		chunks: make([][]T, 0, (capHint+chunkSize-1)/chunkSize),
		free:   make([]Handle, 0, capHint),
	}
}

func (p *Pool[T]) slot(h Handle) *T {
	i := int(h) - 1
	return &p.chunks[i>>chunkBits][i&(chunkSize-1)]
}

// Acquire pops an idle record or grows the arena by one.
// The returned record keeps whatever its previous user left in it.
func (p *Pool[T]) Acquire() (Handle, *T) {
	if n := len(p.free); n > 0 {
		h := p.free[n-1]
		p.free = p.free[:n-1]
		return h, p.slot(h)
	}
	next, err := safecast.Conv[uint32](p.n + 1)
	if err != nil {
		panic(fmt.Errorf("pool: arena overflow: %w", err))
	}
	if p.n%chunkSize == 0 {
		p.chunks = append(p.chunks, make([]T, chunkSize))
	}
	p.n++
	h := Handle(next)
	return h, p.slot(h)
}

// Release returns h to the free list. Releasing None is a no-op.
func (p *Pool[T]) Release(h Handle) {
	if h == None {
		return
	}
	p.free = append(p.free, h)
}

// Get returns the record behind h, or nil for None and unknown handles.
// Idle records are still returned; the pool does not track liveness.
func (p *Pool[T]) Get(h Handle) *T {
	if h == None || int(h) > p.n {
		return nil
	}
	return p.slot(h)
}

// Len is the number of records ever allocated.
func (p *Pool[T]) Len() int { return p.n }

// Free is the number of idle records.
func (p *Pool[T]) Free() int { return len(p.free) }

// InUse is the number of records handed out and not yet released.
func (p *Pool[T]) InUse() int { return p.n - len(p.free) }
