// Package scope builds the per-frame tree of timed regions.
//
// Scope records are shared by all frames through a Store and linked with
// integer handles: Parent, first Child and next Sibling. A new scope becomes
// the first child of the open one, so siblings enumerate newest first.
package scope

import (
	"errors"
	"fmt"
	"iter"

	"perfring/internal/marker"
	"perfring/internal/pool"
)

// ID identifies a scope record. NoID stands for the frame root.
type ID uint32

// NoID is the zero scope ID.
const NoID ID = 0

func (id ID) IsValid() bool { return id != NoID }

// ErrUnbalanced reports an End with no open scope.
var ErrUnbalanced = errors.New("scope: end without matching begin")

// Scope is one timed region. End is zero while the scope is open.
type Scope struct {
	Marker  marker.ID
	Start   uint64
	End     uint64
	Parent  ID
	Child   ID
	Sibling ID
}

// Open reports whether the scope has not been ended yet.
func (s *Scope) Open() bool { return s.End == 0 }

// Tree holds the root links of one frame. The zero value is an empty tree.
type Tree struct {
	first   ID // root's first child
	current ID // innermost open scope, NoID at the root
	count   int
	open    int
}

// Reset empties the tree without touching any records. Use Store.Retire to
// give the records back.
func (t *Tree) Reset() { *t = Tree{} }

// First is the newest top-level scope.
func (t *Tree) First() ID { return t.first }

// Current is the innermost open scope, NoID when only the root is open.
func (t *Tree) Current() ID { return t.current }

// Len is the number of scopes attached to the tree.
func (t *Tree) Len() int { return t.count }

// OpenDepth is the number of scopes currently open.
func (t *Tree) OpenDepth() int { return t.open }

// Entry is one scope yielded by a walk, with its depth below the root.
type Entry struct {
	ID    ID
	Depth int
	Scope Scope
}

// MarkerReleaser takes back marker references held by retired scopes.
type MarkerReleaser interface {
	Release(id marker.ID) error
}

// Store owns the scope records of every frame.
type Store struct {
	records *pool.Pool[Scope]
}

// NewStore returns a store preallocated for capHint scopes.
func NewStore(capHint int) *Store {
	return &Store{records: pool.New[Scope](capHint)}
}

func (s *Store) get(id ID) *Scope {
	return s.records.Get(pool.Handle(id))
}

// Get returns a copy of the scope behind id.
func (s *Store) Get(id ID) (Scope, bool) {
	sc := s.get(id)
	if sc == nil {
		return Scope{}, false
	}
	return *sc, true
}

// Begin opens a scope for m under the current scope of t.
func (s *Store) Begin(t *Tree, m marker.ID, now uint64) ID {
	h, sc := s.records.Acquire()
	id := ID(h)
	*sc = Scope{
		Marker: m,
		Start:  now,
		Parent: t.current,
	}
	if t.current == NoID {
		sc.Sibling = t.first
		t.first = id
	} else {
		parent := s.get(t.current)
		sc.Sibling = parent.Child
		parent.Child = id
	}
	t.current = id
	t.count++
	t.open++
	return id
}

// End closes the current scope of t and steps back to its parent.
func (s *Store) End(t *Tree, now uint64) (ID, error) {
	if t.current == NoID {
		return NoID, ErrUnbalanced
	}
	id := t.current
	sc := s.get(id)
	sc.End = now
	t.current = sc.Parent
	t.open--
	return id, nil
}

// Depth counts parent hops from id to the root. The root (NoID) is depth 0,
// and so is any id this store never issued.
func (s *Store) Depth(id ID) int {
	depth := 0
	for id != NoID {
		sc := s.get(id)
		if sc == nil {
			return 0
		}
		depth++
		id = sc.Parent
	}
	return depth
}

// All walks t in pre-order: a scope, then its children, then its next
// sibling. The walk allocates nothing and can be restarted any number of
// times while t is not modified.
func (s *Store) All(t *Tree) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		id, depth := t.first, 1
		for id != NoID {
			sc := s.get(id)
			if !yield(Entry{ID: id, Depth: depth, Scope: *sc}) {
				return
			}
			if sc.Child != NoID {
				id = sc.Child
				depth++
				continue
			}
			for id != NoID {
				sc = s.get(id)
				if sc.Sibling != NoID {
					id = sc.Sibling
					break
				}
				id = sc.Parent
				depth--
			}
		}
	}
}

// Retire returns every scope of t to the pool, children and later siblings
// before the scope itself, and hands each marker reference to rel. Open
// scopes are reclaimed like closed ones. t is reset afterwards.
//
// It reports how many scopes were released and the first marker release error.
func (s *Store) Retire(t *Tree, rel MarkerReleaser) (int, error) {
	var firstErr error
	released := 0
	id := t.first
	for id != NoID {
		for c := s.get(id).Child; c != NoID; c = s.get(id).Child {
			id = c
		}
		for {
			sc := s.get(id)
			next, parent := sc.Sibling, sc.Parent
			if err := rel.Release(sc.Marker); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("retire scope %d: %w", id, err)
			}
			s.records.Release(pool.Handle(id))
			released++
			if next != NoID {
				id = next
				break
			}
			if parent == NoID {
				id = NoID
				break
			}
			id = parent
		}
	}
	t.Reset()
	return released, firstErr
}

// Free is the number of idle scope records.
func (s *Store) Free() int { return s.records.Free() }

// InUse is the number of scope records attached to some frame.
func (s *Store) InUse() int { return s.records.InUse() }

// Allocated is the number of scope records ever allocated.
func (s *Store) Allocated() int { return s.records.Len() }
