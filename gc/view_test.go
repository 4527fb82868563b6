package gc

import (
	stderrors "errors"
	"testing"

	scriptruntime "github.com/moikas-code/script-sub004"
	"github.com/moikas-code/script-sub004/arena"
	"github.com/moikas-code/script-sub004/errors"
	"github.com/moikas-code/script-sub004/typereg"
)

func newViewFixture(t *testing.T) (*arena.Arena, *typereg.Registry, scriptruntime.TypeTag, scriptruntime.Handle) {
	t.Helper()

	ar := arena.New()
	t.Cleanup(func() { ar.Close() })

	types := typereg.NewRegistry()
	tag := types.Register("node", nil)

	h, err := ar.Alloc(tag, testObjSize, &testNode{})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	return ar, types, tag, h
}

func TestSecureObjectView_Access(t *testing.T) {
	ar, types, tag, h := newViewFixture(t)

	obj := RegisteredObject{Handle: h, TypeTag: tag, Size: testObjSize}
	v, err := NewSecureObjectView(ar, types, obj, true)
	if err != nil {
		t.Fatalf("NewSecureObjectView: %v", err)
	}

	n, err := v.StrongCount()
	if err != nil {
		t.Fatalf("StrongCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("StrongCount = %d, want 1", n)
	}

	if err := v.SetColor(scriptruntime.Gray); err != nil {
		t.Fatalf("SetColor: %v", err)
	}
	col, err := v.Color()
	if err != nil {
		t.Fatalf("Color: %v", err)
	}
	if col != scriptruntime.Gray {
		t.Fatalf("Color = %v, want gray", col)
	}

	if err := v.SetBuffered(true); err != nil {
		t.Fatalf("SetBuffered: %v", err)
	}
	b, err := v.Buffered()
	if err != nil {
		t.Fatalf("Buffered: %v", err)
	}
	if !b {
		t.Fatal("Buffered = false after SetBuffered(true)")
	}
}

func TestSecureObjectView_TypeMismatch(t *testing.T) {
	ar, types, _, h := newViewFixture(t)
	other := types.Register("list", nil)

	// Registration metadata claims a different type than the arena stores.
	obj := RegisteredObject{Handle: h, TypeTag: other, Size: testObjSize}
	v, err := NewSecureObjectView(ar, types, obj, true)
	if err != nil {
		t.Fatalf("NewSecureObjectView: %v", err)
	}

	_, err = v.StrongCount()
	if !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Fatalf("got %v, want type_mismatch", err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("not a structured error: %v", err)
	}
	if e.Expected != "list" || e.Actual != "node" {
		t.Fatalf("expected/actual = %q/%q, want list/node", e.Expected, e.Actual)
	}

	if err := v.SetColor(scriptruntime.Black); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Fatalf("SetColor: got %v, want type_mismatch", err)
	}
}

func TestSecureObjectView_ValidationDisabled(t *testing.T) {
	ar, types, _, h := newViewFixture(t)
	other := types.Register("list", nil)

	obj := RegisteredObject{Handle: h, TypeTag: other, Size: testObjSize}
	v, err := NewSecureObjectView(ar, types, obj, false)
	if err != nil {
		t.Fatalf("NewSecureObjectView: %v", err)
	}
	if _, err := v.StrongCount(); err != nil {
		t.Fatalf("StrongCount with validation off: %v", err)
	}
}

func TestSecureObjectView_StaleHandle(t *testing.T) {
	ar, types, tag, h := newViewFixture(t)

	obj := RegisteredObject{Handle: h, TypeTag: tag, Size: testObjSize}
	v, err := NewSecureObjectView(ar, types, obj, true)
	if err != nil {
		t.Fatalf("NewSecureObjectView: %v", err)
	}

	ar.Free(h)

	if _, err := v.StrongCount(); !errors.IsKind(err, errors.KindStaleHandle) {
		t.Fatalf("got %v, want stale_handle", err)
	}
	if _, err := NewSecureObjectView(ar, types, obj, true); !errors.IsKind(err, errors.KindStaleHandle) {
		t.Fatalf("construction on freed handle: got %v, want stale_handle", err)
	}
	if _, err := NewSecureObjectView(ar, types, RegisteredObject{TypeTag: tag, Size: testObjSize}, true); !errors.IsKind(err, errors.KindStaleHandle) {
		t.Fatalf("zero handle: got %v, want stale_handle", err)
	}
}

func TestSecureObjectView_SizeBelowHeader(t *testing.T) {
	ar, types, tag, h := newViewFixture(t)

	obj := RegisteredObject{Handle: h, TypeTag: tag, Size: headerSize - 1}
	if _, err := NewSecureObjectView(ar, types, obj, true); !errors.IsKind(err, errors.KindInvalidSize) {
		t.Fatalf("got %v, want invalid_size", err)
	}
}

func TestSecureObjectView_InvalidColor(t *testing.T) {
	ar, types, tag, h := newViewFixture(t)

	ar.SetColor(h, scriptruntime.Color(7))

	obj := RegisteredObject{Handle: h, TypeTag: tag, Size: testObjSize}
	v, err := NewSecureObjectView(ar, types, obj, true)
	if err != nil {
		t.Fatalf("NewSecureObjectView: %v", err)
	}
	if _, err := v.Color(); !errors.IsKind(err, errors.KindInvalidColor) {
		t.Fatalf("got %v, want invalid_color", err)
	}
}

func TestSecureObjectView_TraceChildren(t *testing.T) {
	ar, types, tag, h := newViewFixture(t)

	child, err := ar.Alloc(tag, testObjSize, &testNode{})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	payload, _ := ar.Payload(h)
	payload.(*testNode).refs = []scriptruntime.Handle{child}

	obj := RegisteredObject{Handle: h, TypeTag: tag, Size: testObjSize}
	v, err := NewSecureObjectView(ar, types, obj, true)
	if err != nil {
		t.Fatalf("NewSecureObjectView: %v", err)
	}

	var got []scriptruntime.Handle
	if err := v.TraceChildren(func(ch scriptruntime.Handle) {
		got = append(got, ch)
	}); err != nil {
		t.Fatalf("TraceChildren: %v", err)
	}
	if len(got) != 1 || got[0] != child {
		t.Fatalf("traced %v, want [%#x]", got, uint64(child))
	}
}

func TestSecureObjectView_TraceUnknownType(t *testing.T) {
	ar, types, _, _ := newViewFixture(t)

	const bogus scriptruntime.TypeTag = 999
	h, err := ar.Alloc(bogus, testObjSize, &testNode{})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	obj := RegisteredObject{Handle: h, TypeTag: bogus, Size: testObjSize}
	v, err := NewSecureObjectView(ar, types, obj, true)
	if err != nil {
		t.Fatalf("NewSecureObjectView: %v", err)
	}
	if err := v.TraceChildren(func(scriptruntime.Handle) {}); !errors.IsKind(err, errors.KindTypeNotFound) {
		t.Fatalf("got %v, want type_not_found", err)
	}
}
