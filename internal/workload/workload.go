// Package workload drives a profiler with deterministic synthetic frames.
package workload

import (
	"context"
	"math/rand/v2"
	"time"

	"perfring/internal/config"
	"perfring/internal/marker"
	"perfring/internal/profiler"
)

// Recorder is the instrumentation surface of a profiler.
type Recorder interface {
	BeginFrame()
	EndFrame()
	BeginScope(name string, color marker.Color)
	EndScope()
}

// Generator produces nested scopes from a seeded random source, so two
// generators with the same settings record identical trees.
type Generator struct {
	names  []string
	depth  int
	fanout int
	pause  int
	rng    *rand.Rand
	sink   uint64
}

// New returns a generator for w. w is expected to be validated.
func New(w config.Workload) *Generator {
	seed := uint64(w.Seed)
	return &Generator{
		names:  w.Names,
		depth:  w.Depth,
		fanout: w.Fanout,
		pause:  w.PauseEvery,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Color is the marker color used for the i-th configured name.
func Color(i int) marker.Color { return marker.Color(i%255 + 1) }

// Frame records one frame into r.
func (g *Generator) Frame(r Recorder) {
	r.BeginFrame()
	g.children(r, 1)
	r.EndFrame()
}

func (g *Generator) children(r Recorder, level int) {
	n := 1 + g.rng.IntN(g.fanout)
	for range n {
		i := g.rng.IntN(len(g.names))
		r.BeginScope(g.names[i], Color(i))
		g.work(1 + g.rng.IntN(2000))
		// deeper levels get sparser
		if level < g.depth && g.rng.IntN(level+1) == 0 {
			g.children(r, level+1)
		}
		g.work(1 + g.rng.IntN(500))
		r.EndScope()
	}
}

func (g *Generator) work(n int) {
	x := g.sink | 1
	for range n {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
	}
	g.sink = x
}

// Paused reports whether frame i (0-based) falls into a pause. With
// PauseEvery = k, every k-th frame after the first k is skipped.
func (g *Generator) Paused(i int) bool {
	return g.pause > 0 && i > 0 && i%g.pause == 0
}

// Options control Run.
type Options struct {
	Frames int
	// Gate is switched off for paused frames; without a gate pauses are
	// not simulated.
	Gate *profiler.Switch
	// Pace is the minimum wall time per frame, zero for none.
	Pace time.Duration
	// After is called once per driven frame, recorded or not.
	After func(i int)
}

// Run drives opts.Frames frames through r. It returns ctx.Err() if the
// context is cancelled first.
func (g *Generator) Run(ctx context.Context, r Recorder, opts Options) error {
	var ticker *time.Ticker
	if opts.Pace > 0 {
		ticker = time.NewTicker(opts.Pace)
		defer ticker.Stop()
	}
	for i := range opts.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.Gate != nil {
			opts.Gate.Set(!g.Paused(i))
		}
		g.Frame(r)
		if opts.After != nil {
			opts.After(i)
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
	if opts.Gate != nil {
		opts.Gate.Set(true)
	}
	return nil
}
