package gc

import (
	scriptruntime "github.com/moikas-code/script-sub004"
	"github.com/moikas-code/script-sub004/arena"
	"github.com/moikas-code/script-sub004/errors"
	"github.com/moikas-code/script-sub004/typereg"
)

// headerField describes one field of the managed-object header layout. The
// offsets are the fixed contract between the allocator and this collector;
// every access validates against them even though the arena indexes by
// handle, so corrupted registration metadata is caught before any access.
type headerField struct {
	name   string
	offset uint64
	size   uint64
	align  uint64
}

var (
	fieldStrong   = headerField{name: "strong", offset: 0, size: 8, align: 8}
	fieldWeak     = headerField{name: "weak", offset: 8, size: 8, align: 8}
	fieldColor    = headerField{name: "color", offset: 16, size: 1, align: 1}
	fieldBuffered = headerField{name: "buffered", offset: 17, size: 1, align: 1}
	fieldTraced   = headerField{name: "traced", offset: 18, size: 1, align: 1}
	fieldTypeTag  = headerField{name: "type_tag", offset: 20, size: 4, align: 4}
)

// headerSize is the byte size of the managed-object header. A registered
// size below this cannot hold a header and is rejected at view construction.
const headerSize = 24

// SecureObjectView is a validated accessor for one object's GC header. It is
// built from a RegisteredObject, never from a bare handle or address, and
// every access re-checks liveness, bounds and (when enabled) the stored type
// tag before touching the header.
type SecureObjectView struct {
	ar           *arena.Arena
	types        *typereg.Registry
	obj          RegisteredObject
	validateType bool
}

// NewSecureObjectView validates the registration metadata and returns a view.
// The object size must hold at least the header, and the handle must still
// resolve in the arena.
func NewSecureObjectView(ar *arena.Arena, types *typereg.Registry, obj RegisteredObject, validateType bool) (*SecureObjectView, error) {
	if !obj.Handle.IsValid() {
		return nil, errors.StaleHandle(errors.PhaseView, uint64(obj.Handle))
	}
	if obj.Size < headerSize {
		return nil, errors.InvalidSize(errors.PhaseView, uint64(obj.Handle), obj.Size, headerSize)
	}
	if !ar.Contains(obj.Handle) {
		return nil, errors.StaleHandle(errors.PhaseView, uint64(obj.Handle))
	}
	return &SecureObjectView{
		ar:           ar,
		types:        types,
		obj:          obj,
		validateType: validateType,
	}, nil
}

// Handle returns the viewed object's handle.
func (v *SecureObjectView) Handle() scriptruntime.Handle {
	return v.obj.Handle
}

// checkField validates bounds and alignment for a header field access.
func (v *SecureObjectView) checkField(f headerField) error {
	if f.offset+f.size > v.obj.Size {
		return errors.OutOfBounds(errors.PhaseView, uint64(v.obj.Handle), f.offset, f.size, v.obj.Size)
	}
	if f.align != 0 && f.offset%f.align != 0 {
		return errors.InvalidAlignment(errors.PhaseView, uint64(v.obj.Handle), f.offset)
	}
	return nil
}

// checkType compares the stored type tag against the registered one.
// Disagreement means the registration metadata and the object diverged; the
// access is refused without touching the header.
func (v *SecureObjectView) checkType() error {
	if !v.validateType {
		return nil
	}
	if err := v.checkField(fieldTypeTag); err != nil {
		return err
	}
	actual, ok := v.ar.TypeTag(v.obj.Handle)
	if !ok {
		return errors.StaleHandle(errors.PhaseView, uint64(v.obj.Handle))
	}
	if actual != v.obj.TypeTag {
		return errors.TypeMismatch(errors.PhaseView, uint64(v.obj.Handle),
			v.types.Name(v.obj.TypeTag), v.types.Name(actual))
	}
	return nil
}

// StrongCount reads the strong reference count.
func (v *SecureObjectView) StrongCount() (uint64, error) {
	if err := v.checkType(); err != nil {
		return 0, err
	}
	if err := v.checkField(fieldStrong); err != nil {
		return 0, err
	}
	n, ok := v.ar.StrongCount(v.obj.Handle)
	if !ok {
		return 0, errors.StaleHandle(errors.PhaseView, uint64(v.obj.Handle))
	}
	return n, nil
}

// WeakCount reads the weak reference count.
func (v *SecureObjectView) WeakCount() (uint64, error) {
	if err := v.checkType(); err != nil {
		return 0, err
	}
	if err := v.checkField(fieldWeak); err != nil {
		return 0, err
	}
	n, ok := v.ar.WeakCount(v.obj.Handle)
	if !ok {
		return 0, errors.StaleHandle(errors.PhaseView, uint64(v.obj.Handle))
	}
	return n, nil
}

// Color reads the marking color.
func (v *SecureObjectView) Color() (scriptruntime.Color, error) {
	if err := v.checkType(); err != nil {
		return scriptruntime.Black, err
	}
	if err := v.checkField(fieldColor); err != nil {
		return scriptruntime.Black, err
	}
	c, ok := v.ar.Color(v.obj.Handle)
	if !ok {
		return scriptruntime.Black, errors.StaleHandle(errors.PhaseView, uint64(v.obj.Handle))
	}
	if c > scriptruntime.Black {
		return scriptruntime.Black, errors.New(errors.PhaseView, errors.KindInvalidColor).
			Handle(uint64(v.obj.Handle)).
			Detail("color value %d", uint8(c)).Build()
	}
	return c, nil
}

// SetColor writes the marking color.
func (v *SecureObjectView) SetColor(c scriptruntime.Color) error {
	if err := v.checkType(); err != nil {
		return err
	}
	if err := v.checkField(fieldColor); err != nil {
		return err
	}
	if !v.ar.SetColor(v.obj.Handle, c) {
		return errors.StaleHandle(errors.PhaseView, uint64(v.obj.Handle))
	}
	return nil
}

// Buffered reads the buffered flag.
func (v *SecureObjectView) Buffered() (bool, error) {
	if err := v.checkType(); err != nil {
		return false, err
	}
	if err := v.checkField(fieldBuffered); err != nil {
		return false, err
	}
	b, ok := v.ar.Buffered(v.obj.Handle)
	if !ok {
		return false, errors.StaleHandle(errors.PhaseView, uint64(v.obj.Handle))
	}
	return b, nil
}

// SetBuffered writes the buffered flag.
func (v *SecureObjectView) SetBuffered(b bool) error {
	if err := v.checkType(); err != nil {
		return err
	}
	if err := v.checkField(fieldBuffered); err != nil {
		return err
	}
	if !v.ar.SetBuffered(v.obj.Handle, b) {
		return errors.StaleHandle(errors.PhaseView, uint64(v.obj.Handle))
	}
	return nil
}

// TraceChildren invokes the type's trace function over the payload, calling
// visit once per outgoing managed reference. The collector never inspects
// payload bytes itself; discovery goes through the registered Traceable.
func (v *SecureObjectView) TraceChildren(visit func(scriptruntime.Handle)) error {
	if err := v.checkType(); err != nil {
		return err
	}
	if _, ok := v.types.Get(v.obj.TypeTag); !ok {
		return errors.TypeNotFound(errors.PhaseTrace, uint64(v.obj.Handle), uint32(v.obj.TypeTag))
	}
	payload, ok := v.ar.Payload(v.obj.Handle)
	if !ok {
		return errors.StaleHandle(errors.PhaseTrace, uint64(v.obj.Handle))
	}
	payload.Trace(visit)
	return nil
}
