// Package testkit holds invariant checks shared by the tests of several packages.
package testkit

import (
	"fmt"

	"perfring/internal/profiler"
	"perfring/internal/scope"
)

// CheckTree runs the structural invariants of one frame tree:
// 1) every child points back at its parent
// 2) the pre-order walk visits exactly tree.Len() scopes and its depths match Depth
// 3) exactly the scopes on the path from Current to the root are open
// 4) closed scopes end after they start and lie inside a closed parent
func CheckTree(store *scope.Store, tree *scope.Tree) error {
	if store == nil || tree == nil {
		return fmt.Errorf("nil store or tree")
	}

	onPath := make(map[scope.ID]bool, tree.OpenDepth())
	for id := tree.Current(); id != scope.NoID; {
		sc, ok := store.Get(id)
		if !ok {
			return fmt.Errorf("current path references unknown scope %d", id)
		}
		onPath[id] = true
		id = sc.Parent
	}
	if len(onPath) != tree.OpenDepth() {
		return fmt.Errorf("open path has %d scopes, tree reports %d open", len(onPath), tree.OpenDepth())
	}

	visited := 0
	for e := range store.All(tree) {
		visited++
		if visited > tree.Len() {
			return fmt.Errorf("walk visits more than %d scopes", tree.Len())
		}
		sc := e.Scope

		// 1) child links
		for c := sc.Child; c != scope.NoID; {
			child, ok := store.Get(c)
			if !ok {
				return fmt.Errorf("scope %d has unknown child %d", e.ID, c)
			}
			if child.Parent != e.ID {
				return fmt.Errorf("child %d of %d points at parent %d", c, e.ID, child.Parent)
			}
			c = child.Sibling
		}

		// 2) depth
		if d := store.Depth(e.ID); d != e.Depth {
			return fmt.Errorf("scope %d: walk depth %d, Depth() %d", e.ID, e.Depth, d)
		}

		// 3) open iff on the current path
		if sc.Open() != onPath[e.ID] {
			return fmt.Errorf("scope %d: open=%v but on current path=%v", e.ID, sc.Open(), onPath[e.ID])
		}

		// 4) timing
		if sc.Start == 0 {
			return fmt.Errorf("scope %d has zero start", e.ID)
		}
		if !sc.Open() && sc.End < sc.Start {
			return fmt.Errorf("scope %d ends before it starts: %d < %d", e.ID, sc.End, sc.Start)
		}
		if sc.Parent != scope.NoID {
			parent, _ := store.Get(sc.Parent)
			if sc.Start < parent.Start {
				return fmt.Errorf("scope %d starts before its parent %d", e.ID, sc.Parent)
			}
			if !parent.Open() && (sc.Open() || sc.End > parent.End) {
				return fmt.Errorf("scope %d outlives its closed parent %d", e.ID, sc.Parent)
			}
		}
	}
	if visited != tree.Len() {
		return fmt.Errorf("walk visited %d scopes, tree holds %d", visited, tree.Len())
	}
	return nil
}

// CheckView runs the invariants visible through the query interface:
// pre-order depths never jump by more than one, Depth agrees with the walk,
// and closed scopes lie inside the frame bounds.
func CheckView(v profiler.View) error {
	if !v.Valid() {
		return fmt.Errorf("view of frame %d is no longer valid", v.Seq())
	}
	if v.End() < v.Start() {
		return fmt.Errorf("frame %d ends before it starts", v.Seq())
	}
	if v.Elapsed() != v.End()-v.Start() {
		return fmt.Errorf("frame %d: elapsed %d != end-start %d", v.Seq(), v.Elapsed(), v.End()-v.Start())
	}
	prev, n := 0, 0
	for s := range v.Scopes() {
		n++
		if s.Depth < 1 || s.Depth > prev+1 {
			return fmt.Errorf("scope %d (%s): depth %d after %d", s.ID, s.Name, s.Depth, prev)
		}
		if d := v.Depth(s.ID); d != s.Depth {
			return fmt.Errorf("scope %d (%s): Depth() %d, walk %d", s.ID, s.Name, d, s.Depth)
		}
		if s.Start < v.Start() || (!s.Open() && s.End > v.End()) {
			return fmt.Errorf("scope %d (%s) lies outside frame %d", s.ID, s.Name, v.Seq())
		}
		if s.Name == "" {
			return fmt.Errorf("scope %d has no live marker", s.ID)
		}
		prev = s.Depth
	}
	if n != v.Len() {
		return fmt.Errorf("frame %d: walked %d scopes, Len %d", v.Seq(), n, v.Len())
	}
	return nil
}
