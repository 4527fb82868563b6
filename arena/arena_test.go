package arena

import (
	"sync"
	"testing"

	scriptruntime "github.com/moikas-code/script-sub004"
)

type testNode struct {
	refs []scriptruntime.Handle
}

func (n *testNode) Trace(visit func(scriptruntime.Handle)) {
	for _, h := range n.refs {
		visit(h)
	}
}

func TestArena_AllocAndAccess(t *testing.T) {
	a := New()

	h, err := a.Alloc(7, 128, &testNode{})
	if err != nil {
		t.Fatal(err)
	}
	if !h.IsValid() {
		t.Fatal("expected valid handle")
	}

	if n, ok := a.StrongCount(h); !ok || n != 1 {
		t.Fatalf("expected strong count 1, got %d (ok=%v)", n, ok)
	}
	if n, ok := a.WeakCount(h); !ok || n != 1 {
		t.Fatalf("expected weak count 1, got %d (ok=%v)", n, ok)
	}
	if c, ok := a.Color(h); !ok || c != scriptruntime.Black {
		t.Fatalf("new object should be black, got %v (ok=%v)", c, ok)
	}
	if tag, ok := a.TypeTag(h); !ok || tag != 7 {
		t.Fatalf("expected tag 7, got %d", tag)
	}
	if size, ok := a.Size(h); !ok || size != 128 {
		t.Fatalf("expected size 128, got %d", size)
	}
}

func TestArena_NilPayload(t *testing.T) {
	a := New()
	if _, err := a.Alloc(1, 8, nil); err != ErrNilPayload {
		t.Fatalf("expected ErrNilPayload, got %v", err)
	}
}

func TestArena_RefCounts(t *testing.T) {
	a := New()
	h, _ := a.Alloc(1, 8, &testNode{})

	if n, _ := a.IncStrong(h); n != 2 {
		t.Fatalf("expected 2 after inc, got %d", n)
	}
	if n, _ := a.DecStrong(h); n != 1 {
		t.Fatalf("expected 1 after dec, got %d", n)
	}
	if n, _ := a.DecStrong(h); n != 0 {
		t.Fatalf("expected 0 after dec, got %d", n)
	}
	if _, ok := a.DecStrong(h); ok {
		t.Fatal("decrementing a zero count should fail")
	}
}

func TestArena_GenerationCheck(t *testing.T) {
	a := New()
	h1, _ := a.Alloc(1, 8, &testNode{})

	if _, ok := a.Free(h1); !ok {
		t.Fatal("Free failed")
	}
	if a.Contains(h1) {
		t.Fatal("freed handle should not resolve")
	}
	if _, ok := a.Free(h1); ok {
		t.Fatal("double free should fail")
	}

	// The freed slot is reused under a new generation; the old handle must
	// not alias the new occupant.
	h2, _ := a.Alloc(2, 16, &testNode{})
	if h2.Index() != h1.Index() {
		t.Fatalf("expected slot reuse: %d != %d", h2.Index(), h1.Index())
	}
	if h2.Generation() == h1.Generation() {
		t.Fatal("reused slot must carry a new generation")
	}
	if a.Contains(h1) {
		t.Fatal("stale handle resolves against reused slot")
	}
	if tag, ok := a.TypeTag(h2); !ok || tag != 2 {
		t.Fatalf("new occupant not reachable: tag=%d ok=%v", tag, ok)
	}
}

func TestArena_ZeroHandle(t *testing.T) {
	a := New()
	if a.Contains(0) {
		t.Fatal("zero handle must be invalid")
	}
	if _, ok := a.Free(0); ok {
		t.Fatal("freeing zero handle should fail")
	}
}

func TestArena_ColorAndFlags(t *testing.T) {
	a := New()
	h, _ := a.Alloc(1, 8, &testNode{})

	if !a.SetColor(h, scriptruntime.White) {
		t.Fatal("SetColor failed")
	}
	if c, _ := a.Color(h); c != scriptruntime.White {
		t.Fatalf("expected white, got %v", c)
	}

	if !a.SetBuffered(h, true) {
		t.Fatal("SetBuffered failed")
	}
	if b, _ := a.Buffered(h); !b {
		t.Fatal("expected buffered")
	}

	if !a.SetTraced(h, true) {
		t.Fatal("SetTraced failed")
	}
	if tr, _ := a.Traced(h); !tr {
		t.Fatal("expected traced")
	}
}

func TestArena_LenAndEach(t *testing.T) {
	a := New()
	h1, _ := a.Alloc(1, 8, &testNode{})
	h2, _ := a.Alloc(2, 8, &testNode{})

	if a.Len() != 2 {
		t.Fatalf("expected 2 live objects, got %d", a.Len())
	}

	seen := map[scriptruntime.Handle]bool{}
	a.Each(func(h scriptruntime.Handle, _ scriptruntime.TypeTag, _ scriptruntime.Traceable) bool {
		seen[h] = true
		return true
	})
	if !seen[h1] || !seen[h2] {
		t.Fatalf("Each missed handles: %v", seen)
	}

	a.Free(h1)
	if a.Len() != 1 {
		t.Fatalf("expected 1 live object, got %d", a.Len())
	}
}

func TestArena_Close(t *testing.T) {
	a := New()
	h, _ := a.Alloc(1, 8, &testNode{})

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if a.Contains(h) {
		t.Fatal("objects should be gone after Close")
	}
	if _, err := a.Alloc(1, 8, &testNode{}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatal("Close should be idempotent")
	}
}

func TestArena_ConcurrentCounts(t *testing.T) {
	a := New()
	h, _ := a.Alloc(1, 8, &testNode{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				a.IncStrong(h)
				a.DecStrong(h)
			}
		}()
	}
	wg.Wait()

	if n, _ := a.StrongCount(h); n != 1 {
		t.Fatalf("count drifted under contention: %d", n)
	}
}
