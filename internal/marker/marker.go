// Package marker interns scope names into shared, reference-counted descriptors.
//
// Every distinct name that is referenced by at least one recorded scope has
// exactly one live Marker. Scopes retain their marker when they are opened
// and release it when their frame is retired; the record returns to the pool
// once nothing references it.
package marker

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"perfring/internal/pool"
)

// ID identifies a marker record. NoID is never live.
type ID uint32

// NoID is the zero marker ID.
const NoID ID = 0

func (id ID) IsValid() bool { return id != NoID }

// Color is an opaque display tag carried with a marker. The inspector maps it
// onto a 16-entry palette.
type Color uint8

// ErrNotLive is returned when releasing a marker that has no references left.
var ErrNotLive = errors.New("marker: not live")

// Marker describes one distinct scope name.
type Marker struct {
	Hash  uint32
	Color Color
	Refs  uint32
	Name  string

	slot int // position in Registry.live
}

// Registry owns the live markers of one profiler instance. It is not safe
// for concurrent use.
type Registry struct {
	records *pool.Pool[Marker]
	live    []ID
}

// NewRegistry returns an empty registry sized for capHint distinct names.
func NewRegistry(capHint int) *Registry {
	return &Registry{
		records: pool.New[Marker](capHint),
		live:    make([]ID, 0, capHint),
	}
}

// Hash is the 32-bit FNV-1a hash of name.
func Hash(name string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(name); i++ {
		h ^= uint32(name[i])
		h *= prime32
	}
	return h
}

// Intern returns the live marker for name, adding one reference, or creates
// it with a single reference. A new marker takes color; an existing one keeps
// the color it was created with.
//
// Candidates are found by hash and confirmed by comparing the names, so two
// names that collide on Hash still get separate markers.
func (r *Registry) Intern(name string, color Color) ID {
	h := Hash(name)
	for _, id := range r.live {
		m := r.records.Get(pool.Handle(id))
		if m.Hash == h && m.Name == name {
			m.Refs++
			return id
		}
	}

	hd, m := r.records.Acquire()
	*m = Marker{
		Hash:  h,
		Color: color,
		Refs:  1,
		Name:  strings.Clone(name),
		slot:  len(r.live),
	}
	id := ID(hd)
	r.live = append(r.live, id)
	return id
}

// Release drops one reference. The last release unlinks the marker and
// returns its record to the pool.
func (r *Registry) Release(id ID) error {
	m := r.records.Get(pool.Handle(id))
	if m == nil || m.Refs == 0 {
		return fmt.Errorf("release %d: %w", id, ErrNotLive)
	}
	m.Refs--
	if m.Refs > 0 {
		return nil
	}

	last := len(r.live) - 1
	moved := r.live[last]
	r.live[m.slot] = moved
	r.records.Get(pool.Handle(moved)).slot = m.slot
	r.live = r.live[:last]

	m.Name = ""
	r.records.Release(pool.Handle(id))
	return nil
}

// Lookup returns a copy of the marker behind id if it is live.
func (r *Registry) Lookup(id ID) (Marker, bool) {
	m := r.records.Get(pool.Handle(id))
	if m == nil || m.Refs == 0 {
		return Marker{}, false
	}
	return *m, true
}

// Name returns the name of a live marker, or "" for anything else.
func (r *Registry) Name(id ID) string {
	m := r.records.Get(pool.Handle(id))
	if m == nil || m.Refs == 0 {
		return ""
	}
	return m.Name
}

// All yields every live marker. Do not intern or release while iterating.
func (r *Registry) All() iter.Seq2[ID, Marker] {
	return func(yield func(ID, Marker) bool) {
		for _, id := range r.live {
			if !yield(id, *r.records.Get(pool.Handle(id))) {
				return
			}
		}
	}
}

// Live is the number of live markers.
func (r *Registry) Live() int { return len(r.live) }

// Free is the number of idle marker records waiting for reuse.
func (r *Registry) Free() int { return r.records.Free() }

// Allocated is the number of marker records ever allocated.
func (r *Registry) Allocated() int { return r.records.Len() }
