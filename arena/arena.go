package arena

import (
	"errors"
	"sync"
	"sync/atomic"

	scriptruntime "github.com/moikas-code/script-sub004"
)

var (
	ErrClosed     = errors.New("arena closed")
	ErrNilPayload = errors.New("nil payload")
	ErrExhausted  = errors.New("arena slot index space exhausted")
)

// slot holds one managed object: its GC header and its payload, co-located.
// Reference counts and marking state are atomics because mutator threads
// update the counts while the collector reads them mid-pass.
type slot struct {
	payload    scriptruntime.Traceable
	strong     atomic.Uint64
	weak       atomic.Uint64
	color      atomic.Uint32
	buffered   atomic.Bool
	traced     atomic.Bool
	size       uint64
	typeTag    scriptruntime.TypeTag
	generation uint32
	live       bool
}

// Arena is an owning slot map keyed by generation-checked handles. Freed slots
// are reused through a free list; each reuse bumps the slot generation so a
// stale handle can never reach the new occupant.
type Arena struct {
	slots    []*slot
	freeList []uint32
	mu       sync.RWMutex
	closed   bool
}

// New creates an empty arena. Slot index 0 is reserved so that the zero
// Handle stays invalid.
func New() *Arena {
	return &Arena{
		slots:    make([]*slot, 1, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Alloc stores a payload under a fresh handle. New objects start with one
// strong reference, one implicit weak reference, and Black color: a freshly
// allocated object is live by definition.
func (a *Arena) Alloc(tag scriptruntime.TypeTag, size uint64, payload scriptruntime.Traceable) (scriptruntime.Handle, error) {
	if payload == nil {
		return 0, ErrNilPayload
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, ErrClosed
	}

	var (
		idx uint32
		s   *slot
	)
	if n := len(a.freeList); n > 0 {
		idx = a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		s = a.slots[idx]
	} else {
		if len(a.slots) > int(^uint32(0)) {
			return 0, ErrExhausted
		}
		idx = uint32(len(a.slots))
		s = &slot{generation: 1}
		a.slots = append(a.slots, s)
	}

	s.payload = payload
	s.typeTag = tag
	s.size = size
	s.live = true
	s.strong.Store(1)
	s.weak.Store(1)
	s.color.Store(uint32(scriptruntime.Black))
	s.buffered.Store(false)
	s.traced.Store(false)

	return scriptruntime.NewHandle(idx, s.generation), nil
}

// resolve returns the slot for a handle if it is still the handle's object.
func (a *Arena) resolve(h scriptruntime.Handle) (*slot, bool) {
	if !h.IsValid() {
		return nil, false
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	idx := h.Index()
	if int(idx) >= len(a.slots) || idx == 0 {
		return nil, false
	}
	s := a.slots[idx]
	if s == nil || !s.live || s.generation != h.Generation() {
		return nil, false
	}
	return s, true
}

// Free invalidates the handle's slot and returns the payload so the caller
// can run its finalizer. The slot generation is bumped immediately, making
// every outstanding handle to this object stale. Freeing an already-freed or
// unknown handle returns false.
func (a *Arena) Free(h scriptruntime.Handle) (scriptruntime.Traceable, bool) {
	if !h.IsValid() {
		return nil, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	idx := h.Index()
	if int(idx) >= len(a.slots) || idx == 0 {
		return nil, false
	}
	s := a.slots[idx]
	if s == nil || !s.live || s.generation != h.Generation() {
		return nil, false
	}

	payload := s.payload
	s.payload = nil
	s.live = false
	s.generation++
	s.strong.Store(0)
	s.weak.Store(0)
	a.freeList = append(a.freeList, idx)

	return payload, true
}

// Contains reports whether the handle still refers to a live object.
func (a *Arena) Contains(h scriptruntime.Handle) bool {
	_, ok := a.resolve(h)
	return ok
}

// StrongCount returns the object's strong reference count.
func (a *Arena) StrongCount(h scriptruntime.Handle) (uint64, bool) {
	s, ok := a.resolve(h)
	if !ok {
		return 0, false
	}
	return s.strong.Load(), true
}

// IncStrong increments the strong count and returns the new value.
func (a *Arena) IncStrong(h scriptruntime.Handle) (uint64, bool) {
	s, ok := a.resolve(h)
	if !ok {
		return 0, false
	}
	return s.strong.Add(1), true
}

// DecStrong decrements the strong count and returns the new value. The count
// never goes below zero; decrementing a zero count fails.
func (a *Arena) DecStrong(h scriptruntime.Handle) (uint64, bool) {
	s, ok := a.resolve(h)
	if !ok {
		return 0, false
	}
	for {
		cur := s.strong.Load()
		if cur == 0 {
			return 0, false
		}
		if s.strong.CompareAndSwap(cur, cur-1) {
			return cur - 1, true
		}
	}
}

// WeakCount returns the object's weak reference count.
func (a *Arena) WeakCount(h scriptruntime.Handle) (uint64, bool) {
	s, ok := a.resolve(h)
	if !ok {
		return 0, false
	}
	return s.weak.Load(), true
}

// IncWeak increments the weak count and returns the new value.
func (a *Arena) IncWeak(h scriptruntime.Handle) (uint64, bool) {
	s, ok := a.resolve(h)
	if !ok {
		return 0, false
	}
	return s.weak.Add(1), true
}

// DecWeak decrements the weak count and returns the new value.
func (a *Arena) DecWeak(h scriptruntime.Handle) (uint64, bool) {
	s, ok := a.resolve(h)
	if !ok {
		return 0, false
	}
	for {
		cur := s.weak.Load()
		if cur == 0 {
			return 0, false
		}
		if s.weak.CompareAndSwap(cur, cur-1) {
			return cur - 1, true
		}
	}
}

// Color returns the object's marking color.
func (a *Arena) Color(h scriptruntime.Handle) (scriptruntime.Color, bool) {
	s, ok := a.resolve(h)
	if !ok {
		return scriptruntime.Black, false
	}
	return scriptruntime.Color(s.color.Load()), true
}

// SetColor sets the object's marking color.
func (a *Arena) SetColor(h scriptruntime.Handle, c scriptruntime.Color) bool {
	s, ok := a.resolve(h)
	if !ok {
		return false
	}
	s.color.Store(uint32(c))
	return true
}

// Buffered reports whether the object is tracked in the possible-root set.
func (a *Arena) Buffered(h scriptruntime.Handle) (bool, bool) {
	s, ok := a.resolve(h)
	if !ok {
		return false, false
	}
	return s.buffered.Load(), true
}

// SetBuffered sets the object's buffered flag.
func (a *Arena) SetBuffered(h scriptruntime.Handle, v bool) bool {
	s, ok := a.resolve(h)
	if !ok {
		return false
	}
	s.buffered.Store(v)
	return true
}

// Traced reports whether the object has been traced in the current pass.
func (a *Arena) Traced(h scriptruntime.Handle) (bool, bool) {
	s, ok := a.resolve(h)
	if !ok {
		return false, false
	}
	return s.traced.Load(), true
}

// SetTraced sets the object's traced flag.
func (a *Arena) SetTraced(h scriptruntime.Handle, v bool) bool {
	s, ok := a.resolve(h)
	if !ok {
		return false
	}
	s.traced.Store(v)
	return true
}

// TypeTag returns the type tag the object was allocated with.
func (a *Arena) TypeTag(h scriptruntime.Handle) (scriptruntime.TypeTag, bool) {
	s, ok := a.resolve(h)
	if !ok {
		return 0, false
	}
	return s.typeTag, true
}

// Size returns the byte size the object was allocated with.
func (a *Arena) Size(h scriptruntime.Handle) (uint64, bool) {
	s, ok := a.resolve(h)
	if !ok {
		return 0, false
	}
	return s.size, true
}

// Payload returns the object's payload.
func (a *Arena) Payload(h scriptruntime.Handle) (scriptruntime.Traceable, bool) {
	s, ok := a.resolve(h)
	if !ok {
		return nil, false
	}
	return s.payload, true
}

// Len returns the number of live objects.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	count := 0
	for _, s := range a.slots {
		if s != nil && s.live {
			count++
		}
	}
	return count
}

// Each iterates over all live objects. The callback must not allocate or
// free in the same arena.
func (a *Arena) Each(fn func(scriptruntime.Handle, scriptruntime.TypeTag, scriptruntime.Traceable) bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for i, s := range a.slots {
		if s == nil || !s.live {
			continue
		}
		if !fn(scriptruntime.NewHandle(uint32(i), s.generation), s.typeTag, s.payload) {
			break
		}
	}
}

// Close frees all live objects and stops accepting allocations.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	for _, s := range a.slots {
		if s != nil && s.live {
			s.live = false
			s.payload = nil
			s.generation++
		}
	}
	a.slots = a.slots[:1]
	a.freeList = a.freeList[:0]
	return nil
}
