// Package frame keeps the fixed-size history of recorded frames.
package frame

import (
	"errors"

	"perfring/internal/scope"
)

// Capacity is the number of frames the ring holds.
const Capacity = 64

// ErrNoActiveFrame is returned by End when no frame is being written.
var ErrNoActiveFrame = errors.New("frame: no active frame")

// Counters are opaque per-frame numbers filled in by an external allocator
// hook. The ring only clears them when a slot is reused.
type Counters struct {
	MemUsage uint64 // bytes in use at frame end
	Allocs   uint64 // allocations made during the frame
}

// Frame is one recorded execution cycle.
type Frame struct {
	Seq      uint64
	Start    uint64
	End      uint64 // zero while the frame is active
	Tree     scope.Tree
	Counters Counters
}

// Completed reports whether both timestamps were written.
func (f *Frame) Completed() bool { return f.Start != 0 && f.End != 0 }

// Elapsed is End - Start in ticks, or 0 for a frame that is not completed.
func (f *Frame) Elapsed() uint64 {
	if !f.Completed() || f.End < f.Start {
		return 0
	}
	return f.End - f.Start
}

// Retired describes the frame evicted by Begin.
type Retired struct {
	Seq    uint64
	Scopes int
	Err    error
}

// Ring is a circular array of frames. Begin overwrites the oldest slot after
// giving its scope tree back to the store.
type Ring struct {
	frames  [Capacity]Frame
	store   *scope.Store
	markers scope.MarkerReleaser
	counter uint64
	idx     int
	last    int
	hasLast bool
	active  bool
}

// NewRing returns an empty ring that retires trees into store and markers.
func NewRing(store *scope.Store, markers scope.MarkerReleaser) *Ring {
	return &Ring{store: store, markers: markers}
}

// Begin advances to the next slot, retires whatever it held and starts a new
// active frame there. A frame that was still active stays incomplete.
func (r *Ring) Begin(now uint64) (*Frame, Retired) {
	r.counter++
	r.idx = int(r.counter % Capacity)
	f := &r.frames[r.idx]

	var ret Retired
	if f.Seq != 0 {
		ret.Seq = f.Seq
		ret.Scopes, ret.Err = r.store.Retire(&f.Tree, r.markers)
	}
	*f = Frame{Seq: r.counter, Start: now}
	r.active = true
	return f, ret
}

// End stamps the active frame and makes it the newest completed one.
func (r *Ring) End(now uint64) (*Frame, error) {
	if !r.active {
		return nil, ErrNoActiveFrame
	}
	f := &r.frames[r.idx]
	f.End = now
	r.last = r.idx
	r.hasLast = true
	r.active = false
	return f, nil
}

// Active returns the frame being written, or nil between End and Begin.
func (r *Ring) Active() *Frame {
	if !r.active {
		return nil
	}
	return &r.frames[r.idx]
}

// At returns the completed frame offset slots before the newest completed
// one. Offsets outside [0, Capacity) and slots that were never completed or
// have been reopened report false.
func (r *Ring) At(offset int) (*Frame, bool) {
	if offset < 0 || offset >= Capacity || !r.hasLast {
		return nil, false
	}
	f := &r.frames[(r.last+Capacity-offset)%Capacity]
	if !f.Completed() {
		return nil, false
	}
	return f, true
}

// Counter is the number of frames begun so far.
func (r *Ring) Counter() uint64 { return r.counter }

// Index is the slot of the most recently begun frame.
func (r *Ring) Index() int { return r.idx }
