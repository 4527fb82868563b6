// Package arena provides the owning object store for the Script runtime's
// reference-counted heap.
//
// Each managed object occupies one slot holding its GC header (strong and
// weak counts, tri-color mark, buffered and traced flags, type tag, size) and
// its payload, co-located the way the original allocator kept header and
// value in one block. Objects are addressed by generation-checked handles
// instead of raw pointers: a freed slot's generation is bumped on free and on
// reuse, so stale handles always miss.
//
//	ar := arena.New()
//	h, err := ar.Alloc(listTag, 64, &List{})
//	count, ok := ar.StrongCount(h)
//	payload, ok := ar.Free(h) // run finalizer on payload afterwards
//
// # Concurrency
//
// Reference counts and marking state are atomics: mutator threads own the
// count increments/decrements while a collection pass reads them. Structural
// operations (Alloc, Free, Each) take the arena lock. Handle resolution takes
// a read lock only, so header access does not serialize mutators against each
// other.
package arena
