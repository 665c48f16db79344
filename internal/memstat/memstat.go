// Package memstat samples Go runtime memory metrics once per frame.
package memstat

import (
	"runtime/metrics"

	"perfring/internal/frame"
)

const (
	heapObjectsBytes = "/memory/classes/heap/objects:bytes"
	heapAllocObjects = "/gc/heap/allocs:objects"
)

// Sampler reads the live heap size and the number of heap allocations made
// since the previous sample. The sample buffer is reused, so steady sampling
// does not allocate.
type Sampler struct {
	samples    [2]metrics.Sample
	lastAllocs uint64
}

// New returns a Sampler whose first Sample reports allocations since New.
func New() *Sampler {
	s := &Sampler{}
	s.samples[0].Name = heapObjectsBytes
	s.samples[1].Name = heapAllocObjects
	s.lastAllocs = s.read().Allocs
	return s
}

// Sample implements profiler.Sampler.
func (s *Sampler) Sample() frame.Counters {
	cur := s.read()
	delta := uint64(0)
	if cur.Allocs >= s.lastAllocs {
		delta = cur.Allocs - s.lastAllocs
	}
	s.lastAllocs = cur.Allocs
	return frame.Counters{MemUsage: cur.MemUsage, Allocs: delta}
}

// read returns raw cumulative values. Metrics unsupported by the running
// toolchain read as zero.
func (s *Sampler) read() frame.Counters {
	metrics.Read(s.samples[:])
	var c frame.Counters
	if v := s.samples[0].Value; v.Kind() == metrics.KindUint64 {
		c.MemUsage = v.Uint64()
	}
	if v := s.samples[1].Value; v.Kind() == metrics.KindUint64 {
		c.Allocs = v.Uint64()
	}
	return c
}
