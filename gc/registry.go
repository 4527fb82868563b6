package gc

import (
	"sync"
	"sync/atomic"
	"time"

	scriptruntime "github.com/moikas-code/script-sub004"
	"github.com/moikas-code/script-sub004/errors"
)

// RegisteredObject is the collector-side metadata for one managed object.
type RegisteredObject struct {
	RegisteredAt time.Time
	Handle       scriptruntime.Handle
	Generation   uint64
	Size         uint64
	TypeTag      scriptruntime.TypeTag
}

// registry maps handles to collector-side metadata. Guarded by a
// reader-writer lock: lookups are concurrent, register/unregister exclusive.
type registry struct {
	objects    map[scriptruntime.Handle]RegisteredObject
	mu         sync.RWMutex
	generation atomic.Uint64
	maxEntries int
	maxSize    uint64
}

func newRegistry(maxEntries int, maxSize uint64) *registry {
	return &registry{
		objects:    make(map[scriptruntime.Handle]RegisteredObject),
		maxEntries: maxEntries,
		maxSize:    maxSize,
	}
}

// register validates and stores an entry, assigning a fresh generation id.
// The global generation counter advances even for rejected registrations so
// generation values stay unique across the process lifetime.
func (r *registry) register(h scriptruntime.Handle, tag scriptruntime.TypeTag, size uint64) (RegisteredObject, error) {
	if !h.IsValid() {
		return RegisteredObject{}, errors.New(errors.PhaseRegister, errors.KindStaleHandle).
			Detail("zero handle").Build()
	}
	if size == 0 || size > r.maxSize {
		return RegisteredObject{}, errors.InvalidSize(errors.PhaseRegister, uint64(h), size, r.maxSize)
	}

	gen := r.generation.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.objects) >= r.maxEntries {
		return RegisteredObject{}, errors.ResourceLimit(errors.PhaseRegister, "registered_objects", uint64(len(r.objects)))
	}

	obj := RegisteredObject{
		Handle:       h,
		TypeTag:      tag,
		Generation:   gen,
		Size:         size,
		RegisteredAt: time.Now(),
	}
	r.objects[h] = obj
	return obj, nil
}

// unregister removes an entry. Removing an absent handle is a no-op: ordinary
// deallocation and post-collection cleanup may race to call it.
func (r *registry) unregister(h scriptruntime.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.objects, h)
}

// lookup returns the entry for a handle.
func (r *registry) lookup(h scriptruntime.Handle) (RegisteredObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[h]
	return obj, ok
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}
