package profiler

import (
	"sync/atomic"
	"time"

	"perfring/internal/clock"
	"perfring/internal/frame"
	"perfring/internal/trace"
)

// DefaultBudget is the frame time of a 60 Hz loop.
const DefaultBudget = 16667 * time.Microsecond

// Gate tells the profiler whether the host is running the workload that
// should be recorded. All instrumentation calls are no-ops while it is false.
type Gate interface {
	Active() bool
}

// GateFunc adapts a function to Gate.
type GateFunc func() bool

func (f GateFunc) Active() bool { return f() }

type alwaysOn struct{}

func (alwaysOn) Active() bool { return true }

// Always is a Gate that never suppresses recording.
var Always Gate = alwaysOn{}

// Switch is a Gate toggled by the host, e.g. on pause/resume. It may be
// flipped from another goroutine.
type Switch struct {
	on atomic.Bool
}

// NewSwitch returns a Switch in the given state.
func NewSwitch(on bool) *Switch {
	s := &Switch{}
	s.on.Store(on)
	return s
}

func (s *Switch) Active() bool { return s.on.Load() }

// Set changes the state of the switch.
func (s *Switch) Set(on bool) { s.on.Store(on) }

// Sampler fills in the opaque per-frame counters when a frame ends.
type Sampler interface {
	Sample() frame.Counters
}

// Config holds profiler configuration. The zero value is usable.
type Config struct {
	Clock   clock.Source  // default: clock.NewMonotonic()
	Gate    Gate          // default: Always
	Tracer  trace.Tracer  // default: trace.Nop
	Sampler Sampler       // optional
	Budget  time.Duration // frame budget for OverBudget, default DefaultBudget

	// Strict panics on contract violations instead of reporting them.
	Strict bool

	// Capacity hints for the marker and scope pools.
	MarkerHint int
	ScopeHint  int
}

func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = clock.NewMonotonic()
	}
	if c.Gate == nil {
		c.Gate = Always
	}
	if c.Tracer == nil {
		c.Tracer = trace.Nop
	}
	if c.Budget <= 0 {
		c.Budget = DefaultBudget
	}
	if c.MarkerHint <= 0 {
		c.MarkerHint = 32
	}
	if c.ScopeHint <= 0 {
		c.ScopeHint = frame.Capacity * 16
	}
	return c
}
