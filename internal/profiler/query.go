package profiler

import (
	"iter"
	"time"

	"perfring/internal/clock"
	"perfring/internal/frame"
	"perfring/internal/marker"
	"perfring/internal/scope"
)

// ScopeInfo is one recorded scope as seen by inspection code.
type ScopeInfo struct {
	ID     scope.ID
	Marker marker.ID
	Name   string
	Color  marker.Color
	Start  uint64
	End    uint64 // zero if the scope was never closed
	Depth  int
}

// Open reports whether the scope was still open when the frame ended.
func (s ScopeInfo) Open() bool { return s.End == 0 }

// Elapsed is End - Start in ticks, 0 for open scopes.
func (s ScopeInfo) Elapsed() uint64 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// View is a read-only handle on one completed frame. It stays valid until
// the frame's ring slot is reused, that is frame.Capacity BeginFrame calls
// later; Valid reports whether that has happened. Only views obtained with
// ok == true may be queried: every accessor except Valid and Seq needs the
// frame and panics on the zero View.
type View struct {
	p   *Profiler
	f   *frame.Frame
	seq uint64
}

// FrameAt returns the completed frame offset slots before the newest one
// (offset 0 is the newest). It reports false for frames that do not exist,
// have not completed or have been overwritten; the View is then the zero
// View and must not be used beyond Valid.
func (p *Profiler) FrameAt(offset int) (View, bool) {
	f, ok := p.ring.At(offset)
	if !ok {
		return View{}, false
	}
	return View{p: p, f: f, seq: f.Seq}, true
}

// Frames yields the available completed frames from newest to oldest.
func (p *Profiler) Frames() iter.Seq2[int, View] {
	return func(yield func(int, View) bool) {
		for off := range frame.Capacity {
			v, ok := p.FrameAt(off)
			if !ok {
				continue
			}
			if !yield(off, v) {
				return
			}
		}
	}
}

// Valid reports whether the view still refers to the frame it was made for.
func (v View) Valid() bool {
	return v.f != nil && v.f.Seq == v.seq && v.f.Completed()
}

// Seq is the frame sequence number, starting at 1.
func (v View) Seq() uint64 { return v.seq }

// Start is the frame start tick.
func (v View) Start() uint64 { return v.f.Start }

// End is the frame end tick.
func (v View) End() uint64 { return v.f.End }

// Elapsed is End - Start in ticks.
func (v View) Elapsed() uint64 { return v.f.Elapsed() }

// Duration converts Elapsed to wall time with the clock frequency.
func (v View) Duration() time.Duration {
	return clock.ToDuration(v.f.Elapsed(), v.p.clock.Frequency())
}

// OverBudget reports whether the frame took longer than the configured budget.
func (v View) OverBudget() bool { return v.f.Elapsed() > v.p.budget }

// Counters returns the memory counters attached to the frame.
func (v View) Counters() frame.Counters { return v.f.Counters }

// Len is the number of scopes recorded in the frame.
func (v View) Len() int { return v.f.Tree.Len() }

// Scopes yields the frame's scopes in pre-order with their depth. Siblings
// come newest first. The sequence can be ranged over repeatedly.
func (v View) Scopes() iter.Seq[ScopeInfo] {
	return func(yield func(ScopeInfo) bool) {
		for e := range v.p.scopes.All(&v.f.Tree) {
			m, _ := v.p.markers.Lookup(e.Scope.Marker)
			info := ScopeInfo{
				ID:     e.ID,
				Marker: e.Scope.Marker,
				Name:   m.Name,
				Color:  m.Color,
				Start:  e.Scope.Start,
				End:    e.Scope.End,
				Depth:  e.Depth,
			}
			if !yield(info) {
				return
			}
		}
	}
}

// Depth computes the depth of a scope by walking its parent links.
func (v View) Depth(id scope.ID) int { return v.p.scopes.Depth(id) }

// Scope looks up one scope of this frame by ID.
func (v View) Scope(id scope.ID) (ScopeInfo, bool) {
	for s := range v.Scopes() {
		if s.ID == id {
			return s, true
		}
	}
	return ScopeInfo{}, false
}

// Snapshot is an owned copy of a completed frame, safe to hand to another
// goroutine.
type Snapshot struct {
	Seq        uint64
	Start      uint64
	End        uint64
	Elapsed    uint64
	Duration   time.Duration
	OverBudget bool
	Counters   frame.Counters
	Frequency  uint64 // clock ticks per second
	Scopes     []ScopeInfo
}

// TicksToDuration converts a tick count of this snapshot to wall time.
func (s Snapshot) TicksToDuration(ticks uint64) time.Duration {
	return clock.ToDuration(ticks, s.Frequency)
}

// Snapshot copies the frame out of the ring.
func (v View) Snapshot() Snapshot {
	s := Snapshot{
		Seq:        v.seq,
		Start:      v.f.Start,
		End:        v.f.End,
		Elapsed:    v.Elapsed(),
		Duration:   v.Duration(),
		OverBudget: v.OverBudget(),
		Counters:   v.f.Counters,
		Frequency:  v.p.clock.Frequency(),
		Scopes:     make([]ScopeInfo, 0, v.f.Tree.Len()),
	}
	for info := range v.Scopes() {
		s.Scopes = append(s.Scopes, info)
	}
	return s
}

// Select pins the inspection selection to the frame at offset. It reports
// false, leaving the selection unchanged, if that frame is unavailable.
func (p *Profiler) Select(offset int) bool {
	v, ok := p.FrameAt(offset)
	if !ok {
		return false
	}
	p.follow = false
	if v.seq != p.selectedSeq {
		p.selectedScope = scope.NoID
	}
	p.selectedSeq = v.seq
	return true
}

// SelectLatest makes the selection follow the newest completed frame again.
func (p *Profiler) SelectLatest() {
	p.follow = true
	if v, ok := p.FrameAt(0); ok {
		if v.seq != p.selectedSeq {
			p.selectedScope = scope.NoID
		}
		p.selectedSeq = v.seq
	}
}

// Following reports whether the selection tracks the newest frame.
func (p *Profiler) Following() bool { return p.follow }

// Selected returns the selected frame and its current offset. It reports
// false once the selected frame has been overwritten.
func (p *Profiler) Selected() (View, int, bool) {
	newest, ok := p.FrameAt(0)
	if !ok || p.selectedSeq == 0 || p.selectedSeq > newest.seq {
		return View{}, 0, false
	}
	diff := newest.seq - p.selectedSeq
	if diff >= frame.Capacity {
		return View{}, 0, false
	}
	offset := int(diff)
	v, ok := p.FrameAt(offset)
	if !ok || v.seq != p.selectedSeq {
		return View{}, 0, false
	}
	return v, offset, true
}

// SelectScope marks a scope of the selected frame. It reports false if the
// scope is not part of that frame.
func (p *Profiler) SelectScope(id scope.ID) bool {
	v, _, ok := p.Selected()
	if !ok {
		return false
	}
	if _, ok := v.Scope(id); !ok {
		return false
	}
	p.selectedScope = id
	return true
}

// SelectedScope returns the selected scope of the selected frame.
func (p *Profiler) SelectedScope() (ScopeInfo, bool) {
	if p.selectedScope == scope.NoID {
		return ScopeInfo{}, false
	}
	v, _, ok := p.Selected()
	if !ok {
		return ScopeInfo{}, false
	}
	return v.Scope(p.selectedScope)
}
