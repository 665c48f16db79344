// Package profiler records per-frame trees of named timed scopes into a
// fixed ring of frames and exposes them read-only for inspection.
//
// Instrumented code calls BeginFrame, then nested BeginScope/EndScope pairs,
// then EndFrame, all from one goroutine. Recording reuses pooled records, so
// a steady workload allocates nothing once the ring has filled up.
package profiler

import (
	"errors"
	"fmt"
	"strconv"

	"perfring/internal/clock"
	"perfring/internal/frame"
	"perfring/internal/marker"
	"perfring/internal/scope"
	"perfring/internal/trace"
)

var (
	// ErrNoFrame is reported for scope calls and EndFrame outside a frame.
	ErrNoFrame = frame.ErrNoActiveFrame
	// ErrUnbalanced is reported for EndScope with no open scope.
	ErrUnbalanced = scope.ErrUnbalanced
	// ErrUnclosedScope is reported when a frame ends with open scopes.
	ErrUnclosedScope = errors.New("profiler: frame ended with open scopes")
	// ErrFrameNotEnded is reported when BeginFrame interrupts an active frame.
	ErrFrameNotEnded = errors.New("profiler: frame begun before previous frame ended")
)

// Profiler is the frame lifecycle controller. It is not safe for concurrent
// use: every method, queries included, belongs to the recording goroutine.
type Profiler struct {
	clock   clock.Source
	gate    Gate
	tracer  trace.Tracer
	level   trace.Level
	sampler Sampler
	budget  uint64 // in ticks
	strict  bool

	markers *marker.Registry
	scopes  *scope.Store
	ring    *frame.Ring

	follow        bool
	selectedSeq   uint64
	selectedScope scope.ID

	violations uint64
	lastErr    error
}

// New returns a profiler with an empty ring.
func New(cfg Config) *Profiler {
	cfg = cfg.withDefaults()
	p := &Profiler{
		clock:   cfg.Clock,
		gate:    cfg.Gate,
		tracer:  cfg.Tracer,
		level:   cfg.Tracer.Level(),
		sampler: cfg.Sampler,
		budget:  clock.ToTicks(cfg.Budget, cfg.Clock.Frequency()),
		strict:  cfg.Strict,
		markers: marker.NewRegistry(cfg.MarkerHint),
		scopes:  scope.NewStore(cfg.ScopeHint),
		follow:  true,
	}
	p.ring = frame.NewRing(p.scopes, p.markers)
	return p
}

// BeginFrame retires the oldest frame if the ring is full and starts a new
// active frame.
func (p *Profiler) BeginFrame() {
	if !p.gate.Active() {
		return
	}
	if prev := p.ring.Active(); prev != nil {
		p.violate(fmt.Errorf("frame %d: %w", prev.Seq, ErrFrameNotEnded))
	}
	f, retired := p.ring.Begin(p.clock.Now())
	if retired.Err != nil {
		p.violate(retired.Err)
	}
	if retired.Seq != 0 && p.level.ShouldEmit(trace.CategoryRetire) {
		p.tracer.Emit(&trace.Event{
			Ticks:    f.Start,
			Kind:     trace.KindPoint,
			Category: trace.CategoryRetire,
			Frame:    retired.Seq,
			Name:     "retire",
			Extra: map[string]string{
				"scopes":  strconv.Itoa(retired.Scopes),
				"markers": strconv.Itoa(p.markers.Live()),
			},
		})
	}
	if p.level.ShouldEmit(trace.CategoryFrame) {
		p.tracer.Emit(&trace.Event{
			Ticks:    f.Start,
			Kind:     trace.KindBegin,
			Category: trace.CategoryFrame,
			Frame:    f.Seq,
			Name:     "frame",
		})
	}
}

// EndFrame stamps the active frame and makes it the newest completed one.
// Scopes still open stay open in the recorded tree.
func (p *Profiler) EndFrame() {
	if !p.gate.Active() {
		return
	}
	active := p.ring.Active()
	if active == nil {
		p.violate(fmt.Errorf("end frame: %w", ErrNoFrame))
		return
	}
	if open := active.Tree.OpenDepth(); open > 0 {
		p.violate(fmt.Errorf("frame %d: %w (%d)", active.Seq, ErrUnclosedScope, open))
	}
	f, err := p.ring.End(p.clock.Now())
	if err != nil {
		p.violate(err)
		return
	}
	if p.sampler != nil {
		f.Counters = p.sampler.Sample()
	}
	if p.follow {
		p.selectedSeq = f.Seq
		p.selectedScope = scope.NoID
	}
	if p.level.ShouldEmit(trace.CategoryFrame) {
		p.tracer.Emit(&trace.Event{
			Ticks:    f.End,
			Kind:     trace.KindEnd,
			Category: trace.CategoryFrame,
			Frame:    f.Seq,
			Name:     "frame",
			Detail:   strconv.FormatUint(f.Elapsed(), 10) + " ticks",
		})
	}
}

// BeginScope opens a scope named name under the innermost open scope.
func (p *Profiler) BeginScope(name string, color marker.Color) {
	if !p.gate.Active() {
		return
	}
	f := p.ring.Active()
	if f == nil {
		p.violate(fmt.Errorf("begin scope %q: %w", name, ErrNoFrame))
		return
	}
	m := p.markers.Intern(name, color)
	now := p.clock.Now()
	p.scopes.Begin(&f.Tree, m, now)
	if p.level.ShouldEmit(trace.CategoryZone) {
		p.tracer.Emit(&trace.Event{
			Ticks:    now,
			Kind:     trace.KindBegin,
			Category: trace.CategoryZone,
			Frame:    f.Seq,
			Depth:    f.Tree.OpenDepth(),
			Name:     name,
		})
	}
}

// EndScope closes the innermost open scope.
func (p *Profiler) EndScope() {
	if !p.gate.Active() {
		return
	}
	f := p.ring.Active()
	if f == nil {
		p.violate(fmt.Errorf("end scope: %w", ErrNoFrame))
		return
	}
	now := p.clock.Now()
	id, err := p.scopes.End(&f.Tree, now)
	if err != nil {
		p.violate(fmt.Errorf("frame %d: %w", f.Seq, err))
		return
	}
	if p.level.ShouldEmit(trace.CategoryZone) {
		sc, _ := p.scopes.Get(id)
		p.tracer.Emit(&trace.Event{
			Ticks:    now,
			Kind:     trace.KindEnd,
			Category: trace.CategoryZone,
			Frame:    f.Seq,
			Depth:    f.Tree.OpenDepth() + 1,
			Name:     p.markers.Name(sc.Marker),
			Detail:   strconv.FormatUint(sc.End-sc.Start, 10) + " ticks",
		})
	}
}

// Scope opens a scope and returns the function that closes it, for use
// with defer. The closure is allocated on every call; hot paths should call
// BeginScope/EndScope directly.
func (p *Profiler) Scope(name string, color marker.Color) func() {
	p.BeginScope(name, color)
	return p.EndScope
}

// SetCounters stores externally measured counters on the active frame.
// It reports false when no frame is active.
func (p *Profiler) SetCounters(c frame.Counters) bool {
	f := p.ring.Active()
	if f == nil {
		return false
	}
	f.Counters = c
	return true
}

func (p *Profiler) violate(err error) {
	p.violations++
	p.lastErr = err
	if p.level.ShouldEmit(trace.CategoryFault) {
		var seq uint64
		if f := p.ring.Active(); f != nil {
			seq = f.Seq
		}
		p.tracer.Emit(&trace.Event{
			Ticks:    p.clock.Now(),
			Kind:     trace.KindPoint,
			Category: trace.CategoryFault,
			Frame:    seq,
			Name:     "violation",
			Detail:   err.Error(),
		})
	}
	if p.strict {
		panic(err)
	}
}

// Violations is the number of contract violations seen so far.
func (p *Profiler) Violations() uint64 { return p.violations }

// Err returns the most recent contract violation, or nil.
func (p *Profiler) Err() error { return p.lastErr }

// Stats describes pool and registry occupancy.
type Stats struct {
	Frames       uint64 // frames begun
	LiveMarkers  int
	FreeMarkers  int
	ScopesInUse  int
	FreeScopes   int
	ScopeRecords int // scope records ever allocated
	Violations   uint64
}

// Stats returns current occupancy numbers.
func (p *Profiler) Stats() Stats {
	return Stats{
		Frames:       p.ring.Counter(),
		LiveMarkers:  p.markers.Live(),
		FreeMarkers:  p.markers.Free(),
		ScopesInUse:  p.scopes.InUse(),
		FreeScopes:   p.scopes.Free(),
		ScopeRecords: p.scopes.Allocated(),
		Violations:   p.violations,
	}
}

// Frequency is the tick rate of the profiler clock.
func (p *Profiler) Frequency() uint64 { return p.clock.Frequency() }

// Recording reports whether a frame is currently being written.
func (p *Profiler) Recording() bool { return p.ring.Active() != nil }
