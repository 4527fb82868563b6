package gc

import (
	"sync"
	"sync/atomic"

	scriptruntime "github.com/moikas-code/script-sub004"
	"github.com/moikas-code/script-sub004/arena"
	"github.com/moikas-code/script-sub004/errors"
	"github.com/moikas-code/script-sub004/typereg"
)

// Collector reclaims reference cycles the ordinary counting layer cannot
// free. It owns the collector-side registry and possible-root set; the arena
// and type registry are shared with the rest of the runtime.
type Collector struct {
	ar        *arena.Arena
	types     *typereg.Registry
	reg       *registry
	roots     *rootSet
	events    SecurityEventHandler
	worker    *worker
	inc       *passState
	stats     statsBox
	cfg       Config
	threshold atomic.Int64
	collectMu sync.Mutex
	workerMu  sync.Mutex
}

// Option configures a Collector.
type Option func(*Collector)

// WithEventHandler injects a security event sink. Events are audit-only;
// handling one never alters the triggering operation's outcome.
func WithEventHandler(h SecurityEventHandler) Option {
	return func(c *Collector) {
		if h != nil {
			c.events = h
		}
	}
}

// WithTypeRegistry uses a dedicated type registry instead of the process
// default.
func WithTypeRegistry(r *typereg.Registry) Option {
	return func(c *Collector) {
		if r != nil {
			c.types = r
		}
	}
}

// New creates a collector over an arena. The background worker is not
// started; call Start for periodic collection.
func New(cfg Config, ar *arena.Arena, opts ...Option) (*Collector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if ar == nil {
		return nil, errors.InvalidConfig("nil arena")
	}

	c := &Collector{
		ar:     ar,
		types:  typereg.Default(),
		reg:    newRegistry(cfg.MaxRegistered, cfg.MaxObjectSize),
		roots:  newRootSet(cfg.MaxPossibleRoots),
		events: logEventHandler{},
		cfg:    cfg,
	}
	c.threshold.Store(int64(cfg.CollectThreshold))
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Register records an allocated object with the collector. Called by the
// allocation path; rejects zero or oversized objects and enforces the
// registry capacity ceiling.
func (c *Collector) Register(h scriptruntime.Handle, tag scriptruntime.TypeTag, size uint64) error {
	_, err := c.reg.register(h, tag, size)
	if err != nil && errors.IsKind(err, errors.KindResourceLimit) {
		c.emit(SecurityEvent{
			Kind:  EventResourceLimit,
			Limit: "registered_objects",
			Value: uint64(c.reg.len()),
		})
	}
	return err
}

// Unregister removes an object from the collector's tables. Idempotent:
// ordinary deallocation and post-collection cleanup may race to call it.
func (c *Collector) Unregister(h scriptruntime.Handle) {
	c.reg.unregister(h)
	c.roots.remove(h)
}

// Lookup returns the collector-side metadata for a handle.
func (c *Collector) Lookup(h scriptruntime.Handle) (RegisteredObject, bool) {
	return c.reg.lookup(h)
}

// AddPossibleRoot records a handle whose strong count was decremented
// without reaching zero; it might now head an unreachable cycle. On a full
// set this fails with a resource-limit error; dropping the hint is safe.
func (c *Collector) AddPossibleRoot(h scriptruntime.Handle) error {
	if !h.IsValid() {
		return errors.StaleHandle(errors.PhaseRoot, uint64(h))
	}
	if err := c.roots.add(h); err != nil {
		c.emit(SecurityEvent{
			Kind:   EventResourceLimit,
			Limit:  "possible_roots",
			Value:  uint64(c.roots.len()),
			Handle: uint64(h),
		})
		return err
	}
	c.maybeKick()
	return nil
}

// Retain increments an object's strong count on behalf of a mutator.
func (c *Collector) Retain(h scriptruntime.Handle) error {
	if _, ok := c.ar.IncStrong(h); !ok {
		return errors.StaleHandle(errors.PhaseRegister, uint64(h))
	}
	return nil
}

// Release decrements an object's strong count. Reaching zero frees the
// object immediately through the ordinary reference-counting path, before
// any collector involvement; a decrement that does not reach zero queues
// the handle as a possible cycle root. A dropped hint (full root set) is
// swallowed here: it only delays reclamation.
func (c *Collector) Release(h scriptruntime.Handle) error {
	n, ok := c.ar.DecStrong(h)
	if !ok {
		return errors.StaleHandle(errors.PhaseRegister, uint64(h))
	}
	if n == 0 {
		c.destroy(h)
		return nil
	}
	if err := c.roots.add(h); err != nil {
		c.emit(SecurityEvent{
			Kind:   EventResourceLimit,
			Limit:  "possible_roots",
			Value:  uint64(c.roots.len()),
			Handle: uint64(h),
		})
		return nil
	}
	c.maybeKick()
	return nil
}

// NewObject allocates a payload in the arena and registers it in one step.
// The returned object carries one strong reference owned by the caller.
func (c *Collector) NewObject(tag scriptruntime.TypeTag, size uint64, payload scriptruntime.Traceable) (scriptruntime.Handle, error) {
	h, err := c.ar.Alloc(tag, size, payload)
	if err != nil {
		return 0, errors.New(errors.PhaseRegister, errors.KindCorruption).
			Cause(err).Detail("arena allocation failed").Build()
	}
	if err := c.Register(h, tag, size); err != nil {
		c.ar.Free(h)
		return 0, err
	}
	return h, nil
}

// destroy frees one object: finalizer, arena slot, registry entry, and the
// strong references it held. Releasing those references may cascade through
// further zero counts; references into already-freed slots simply miss their
// generation and stop the cascade, which is what makes freeing a whole cycle
// at once safe. Returns the number of objects freed including cascades.
func (c *Collector) destroy(h scriptruntime.Handle) int {
	tag, _ := c.ar.TypeTag(h)
	payload, ok := c.ar.Free(h)
	if !ok {
		return 0
	}
	c.reg.unregister(h)
	c.roots.remove(h)

	if info, found := c.types.Get(tag); found && info.Finalize != nil {
		info.Finalize(payload)
	}

	freed := 1
	payload.Trace(func(child scriptruntime.Handle) {
		freed += c.releaseChild(child)
	})
	return freed
}

// releaseChild drops one strong reference held by a freed object.
func (c *Collector) releaseChild(h scriptruntime.Handle) int {
	n, ok := c.ar.DecStrong(h)
	if !ok {
		return 0
	}
	if n == 0 {
		return c.destroy(h)
	}
	// Still externally held; it may now head a cycle of its own.
	if err := c.roots.add(h); err != nil {
		c.emit(SecurityEvent{
			Kind:   EventResourceLimit,
			Limit:  "possible_roots",
			Value:  uint64(c.roots.len()),
			Handle: uint64(h),
		})
	}
	return 0
}

// view builds a validated header accessor for a registered handle. Returns
// (nil, nil) when the handle is not registered or was freed after
// registration; both mean the object left the collector's jurisdiction.
func (c *Collector) view(h scriptruntime.Handle) (*SecureObjectView, error) {
	obj, ok := c.reg.lookup(h)
	if !ok {
		return nil, nil
	}
	v, err := NewSecureObjectView(c.ar, c.types, obj, c.cfg.EnableTypeValidation)
	if err != nil {
		if errors.IsKind(err, errors.KindStaleHandle) {
			c.reg.unregister(h)
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// ShouldCollect reports whether the possible-root set has crossed the
// collection threshold. Advisory only.
func (c *Collector) ShouldCollect() bool {
	return int64(c.roots.len()) > c.threshold.Load()
}

// SetThreshold adjusts the root-set size above which the background worker
// collects.
func (c *Collector) SetThreshold(n int) {
	if n < 0 {
		n = 0
	}
	c.threshold.Store(int64(n))
}

// Stats returns a snapshot of the collection counters.
func (c *Collector) Stats() CollectionStats {
	return c.stats.snapshot()
}

// ResetStats zeroes the collection counters.
func (c *Collector) ResetStats() {
	c.stats.reset()
}

// RootSetLen returns the current possible-root count.
func (c *Collector) RootSetLen() int {
	return c.roots.len()
}

// RegisteredLen returns the current registry size.
func (c *Collector) RegisteredLen() int {
	return c.reg.len()
}
