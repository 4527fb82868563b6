package gc

import (
	"testing"

	scriptruntime "github.com/moikas-code/script-sub004"
	"github.com/moikas-code/script-sub004/errors"
)

func TestRegistry_RegisterLookup(t *testing.T) {
	r := newRegistry(16, DefaultMaxObjectSize)

	h := scriptruntime.NewHandle(1, 1)
	obj, err := r.register(h, 7, 128)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if obj.Handle != h || obj.TypeTag != 7 || obj.Size != 128 {
		t.Fatalf("registered %+v", obj)
	}
	if obj.RegisteredAt.IsZero() {
		t.Fatal("RegisteredAt not set")
	}

	got, ok := r.lookup(h)
	if !ok || got.Generation != obj.Generation {
		t.Fatalf("lookup = %+v, %v", got, ok)
	}
	if _, ok := r.lookup(scriptruntime.NewHandle(2, 1)); ok {
		t.Fatal("lookup of unregistered handle succeeded")
	}
}

func TestRegistry_GenerationsUnique(t *testing.T) {
	r := newRegistry(16, DefaultMaxObjectSize)

	h := scriptruntime.NewHandle(1, 1)
	first, err := r.register(h, 1, 64)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	r.unregister(h)

	// Re-registering the same handle gets a fresh generation; rejected
	// attempts in between still advance the counter.
	if _, err := r.register(h, 1, 0); err == nil {
		t.Fatal("zero size accepted")
	}
	second, err := r.register(h, 1, 64)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if second.Generation <= first.Generation {
		t.Fatalf("generation %d not after %d", second.Generation, first.Generation)
	}
}

func TestRegistry_Capacity(t *testing.T) {
	r := newRegistry(2, DefaultMaxObjectSize)

	for i := uint32(1); i <= 2; i++ {
		if _, err := r.register(scriptruntime.NewHandle(i, 1), 1, 64); err != nil {
			t.Fatalf("register #%d: %v", i, err)
		}
	}
	_, err := r.register(scriptruntime.NewHandle(3, 1), 1, 64)
	if !errors.IsKind(err, errors.KindResourceLimit) {
		t.Fatalf("got %v, want resource_limit", err)
	}

	// Unregistering frees capacity.
	r.unregister(scriptruntime.NewHandle(1, 1))
	if _, err := r.register(scriptruntime.NewHandle(3, 1), 1, 64); err != nil {
		t.Fatalf("register after unregister: %v", err)
	}
}

func TestRootSet_AddRemove(t *testing.T) {
	s := newRootSet(4)

	h := scriptruntime.NewHandle(1, 1)
	if err := s.add(h); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.add(h); err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if s.len() != 1 {
		t.Fatalf("len = %d, want 1", s.len())
	}

	s.remove(h)
	s.remove(h)
	if s.len() != 0 {
		t.Fatalf("len = %d, want 0", s.len())
	}
}

func TestRootSet_Capacity(t *testing.T) {
	s := newRootSet(2)

	for i := uint32(1); i <= 2; i++ {
		if err := s.add(scriptruntime.NewHandle(i, 1)); err != nil {
			t.Fatalf("add #%d: %v", i, err)
		}
	}
	err := s.add(scriptruntime.NewHandle(3, 1))
	if !errors.IsKind(err, errors.KindResourceLimit) {
		t.Fatalf("got %v, want resource_limit", err)
	}
}

func TestRootSet_TakeSnapshot(t *testing.T) {
	s := newRootSet(8)

	want := map[scriptruntime.Handle]struct{}{}
	for i := uint32(1); i <= 3; i++ {
		h := scriptruntime.NewHandle(i, 1)
		want[h] = struct{}{}
		if err := s.add(h); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	snap := s.takeSnapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot has %d handles, want 3", len(snap))
	}
	for _, h := range snap {
		if _, ok := want[h]; !ok {
			t.Fatalf("unexpected handle %#x in snapshot", uint64(h))
		}
	}
	if s.len() != 0 {
		t.Fatal("snapshot did not drain the set")
	}
	if s.takeSnapshot() != nil {
		t.Fatal("empty snapshot not nil")
	}
}
