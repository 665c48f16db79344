package testkit

import (
	"testing"

	"perfring/internal/marker"
	"perfring/internal/scope"
)

func TestCheckTreeAcceptsOpenPath(t *testing.T) {
	store := scope.NewStore(0)
	reg := marker.NewRegistry(0)
	var tree scope.Tree
	m := reg.Intern("a", 0)

	store.Begin(&tree, m, 1)
	store.Begin(&tree, m, 2)
	if _, err := store.End(&tree, 3); err != nil {
		t.Fatal(err)
	}
	store.Begin(&tree, m, 4)

	if err := CheckTree(store, &tree); err != nil {
		t.Errorf("CheckTree: %v", err)
	}
}

func TestCheckTreeRejectsBrokenTiming(t *testing.T) {
	store := scope.NewStore(0)
	reg := marker.NewRegistry(0)
	var tree scope.Tree
	m := reg.Intern("a", 0)

	store.Begin(&tree, m, 10)
	if _, err := store.End(&tree, 5); err != nil {
		t.Fatal(err)
	}
	if err := CheckTree(store, &tree); err == nil {
		t.Error("CheckTree accepted a scope ending before it starts")
	}
}
