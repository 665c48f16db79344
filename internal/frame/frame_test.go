package frame

import (
	"errors"
	"testing"

	"perfring/internal/marker"
	"perfring/internal/scope"
)

func newRing() (*Ring, *scope.Store, *marker.Registry) {
	store := scope.NewStore(0)
	reg := marker.NewRegistry(0)
	return NewRing(store, reg), store, reg
}

func TestRingBeginEnd(t *testing.T) {
	r, _, _ := newRing()
	if _, ok := r.At(0); ok {
		t.Fatal("At(0) available before any frame")
	}

	f, ret := r.Begin(10)
	if ret.Seq != 0 || ret.Scopes != 0 {
		t.Errorf("first Begin retired %+v", ret)
	}
	if f.Seq != 1 || f.Start != 10 || f.End != 0 {
		t.Errorf("active frame = %+v", *f)
	}
	if r.Active() != f {
		t.Error("Active() does not return the begun frame")
	}
	if _, ok := r.At(0); ok {
		t.Error("active frame visible through At")
	}

	done, err := r.End(25)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if done != f || f.End != 25 || f.Elapsed() != 15 {
		t.Errorf("completed frame = %+v", *f)
	}
	if r.Active() != nil {
		t.Error("Active() non-nil after End")
	}
	got, ok := r.At(0)
	if !ok || got != f {
		t.Errorf("At(0) = %v, %v", got, ok)
	}
	if _, err := r.End(30); !errors.Is(err, ErrNoActiveFrame) {
		t.Errorf("second End err = %v, want ErrNoActiveFrame", err)
	}
}

func TestRingOffsets(t *testing.T) {
	r, _, _ := newRing()
	now := uint64(1)
	for range 5 {
		r.Begin(now)
		now += 10
		if _, err := r.End(now); err != nil {
			t.Fatal(err)
		}
		now += 1
	}
	for off := 0; off < 5; off++ {
		f, ok := r.At(off)
		if !ok {
			t.Fatalf("At(%d) unavailable", off)
		}
		if want := uint64(5 - off); f.Seq != want {
			t.Errorf("At(%d).Seq = %d, want %d", off, f.Seq, want)
		}
	}
	for _, off := range []int{5, Capacity - 1, Capacity, -1} {
		if _, ok := r.At(off); ok {
			t.Errorf("At(%d) should be unavailable", off)
		}
	}
}

func TestRingWrapRetiresOldest(t *testing.T) {
	r, store, reg := newRing()
	now := uint64(1)
	record := func(names ...string) {
		f, _ := r.Begin(now)
		for _, n := range names {
			now++
			store.Begin(&f.Tree, reg.Intern(n, 0), now)
		}
		for range names {
			now++
			if _, err := store.End(&f.Tree, now); err != nil {
				t.Fatal(err)
			}
		}
		now++
		if _, err := r.End(now); err != nil {
			t.Fatal(err)
		}
	}

	record("only-first", "nested")
	for range Capacity - 1 {
		record("steady")
	}
	if reg.Live() != 3 {
		t.Fatalf("Live = %d, want 3", reg.Live())
	}
	scopesFree, markersFree := store.Free(), reg.Free()

	f, ret := r.Begin(now)
	if ret.Seq != 1 || ret.Scopes != 2 || ret.Err != nil {
		t.Fatalf("retired %+v, want seq 1 with 2 scopes", ret)
	}
	if store.Free()-scopesFree != 2 {
		t.Errorf("scope pool grew by %d, want 2", store.Free()-scopesFree)
	}
	if reg.Free()-markersFree != 2 {
		t.Errorf("marker pool grew by %d, want 2", reg.Free()-markersFree)
	}
	if f.Seq != Capacity+1 || f.Tree.Len() != 0 {
		t.Errorf("reused slot = %+v", *f)
	}
	if _, ok := r.At(Capacity - 1); ok {
		t.Error("slot being written is reachable through At")
	}
}

func TestRingIncompleteFrameStaysUnavailable(t *testing.T) {
	r, _, _ := newRing()
	r.Begin(1)
	if _, err := r.End(2); err != nil {
		t.Fatal(err)
	}
	r.Begin(3) // never ended
	r.Begin(4)
	if _, err := r.End(5); err != nil {
		t.Fatal(err)
	}
	if f, ok := r.At(0); !ok || f.Seq != 3 {
		t.Fatalf("At(0) = %v, %v", f, ok)
	}
	if _, ok := r.At(1); ok {
		t.Error("frame that was never ended is available")
	}
	if f, ok := r.At(2); !ok || f.Seq != 1 {
		t.Errorf("At(2) = %v, %v", f, ok)
	}
}
