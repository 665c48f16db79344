// Package clock supplies tick sources for the profiler.
package clock

import "time"

// Source is a monotonic tick counter. Now must never return 0: zero marks
// unwritten timestamps in recorded frames.
type Source interface {
	Now() uint64
	Frequency() uint64 // ticks per second
}

// Monotonic counts nanoseconds since it was created, starting at 1.
type Monotonic struct {
	base time.Time
}

// NewMonotonic returns a Monotonic anchored at the current instant.
func NewMonotonic() *Monotonic {
	return &Monotonic{base: time.Now()}
}

func (m *Monotonic) Now() uint64 {
	// time.Since uses the monotonic reading and never goes backwards
	return uint64(time.Since(m.base)) + 1
}

func (m *Monotonic) Frequency() uint64 { return uint64(time.Second) }

// Manual is a hand-driven Source for tests and replays.
type Manual struct {
	now  uint64
	freq uint64
}

// NewManual starts at tick start (raised to 1 if zero) with the given
// frequency (1e6 if zero).
func NewManual(start, freq uint64) *Manual {
	if start == 0 {
		start = 1
	}
	if freq == 0 {
		freq = 1_000_000
	}
	return &Manual{now: start, freq: freq}
}

func (m *Manual) Now() uint64       { return m.now }
func (m *Manual) Frequency() uint64 { return m.freq }

// Advance moves the clock forward by d ticks.
func (m *Manual) Advance(d uint64) { m.now += d }

// Set jumps to tick t; going backwards is ignored.
func (m *Manual) Set(t uint64) {
	if t > m.now {
		m.now = t
	}
}

// Stepping advances by a fixed step on every Now call.
type Stepping struct {
	Manual
	step uint64
}

// NewStepping returns a Source that ticks step forward each time it is read.
func NewStepping(start, freq, step uint64) *Stepping {
	return &Stepping{Manual: *NewManual(start, freq), step: step}
}

func (s *Stepping) Now() uint64 {
	t := s.now
	s.now += s.step
	return t
}
