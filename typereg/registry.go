package typereg

import (
	"sync"
	"sync/atomic"

	scriptruntime "github.com/moikas-code/script-sub004"
)

// TypeInfo describes a registered runtime type.
type TypeInfo struct {
	// Finalize runs the type's destructor over the payload. May be nil for
	// types with no cleanup beyond releasing managed references.
	Finalize func(payload scriptruntime.Traceable)
	Name     string
	Tag      scriptruntime.TypeTag
}

// Registry maps type tags to type information. Safe for concurrent use.
type Registry struct {
	byTag  map[scriptruntime.TypeTag]TypeInfo
	byName map[string]TypeInfo
	mu     sync.RWMutex
	next   atomic.Uint32
}

// NewRegistry creates an empty type registry. Tag 0 is never issued.
func NewRegistry() *Registry {
	return &Registry{
		byTag:  make(map[scriptruntime.TypeTag]TypeInfo),
		byName: make(map[string]TypeInfo),
	}
}

// Register assigns a fresh tag to the named type and stores its metadata.
// Registering a name that already exists returns the existing tag.
func (r *Registry) Register(name string, finalize func(scriptruntime.Traceable)) scriptruntime.TypeTag {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, ok := r.byName[name]; ok {
		return info.Tag
	}

	tag := scriptruntime.TypeTag(r.next.Add(1))
	info := TypeInfo{
		Tag:      tag,
		Name:     name,
		Finalize: finalize,
	}
	r.byTag[tag] = info
	r.byName[name] = info
	return tag
}

// Get returns the type info for a tag.
func (r *Registry) Get(tag scriptruntime.TypeTag) (TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byTag[tag]
	return info, ok
}

// GetByName returns the type info registered under name.
func (r *Registry) GetByName(name string) (TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byName[name]
	return info, ok
}

// Name returns the registered name for a tag, or "unknown" if absent.
func (r *Registry) Name(tag scriptruntime.TypeTag) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if info, ok := r.byTag[tag]; ok {
		return info.Name
	}
	return "unknown"
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTag)
}

// Default is the process-wide registry used by runtimes that do not carry
// their own.
var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register registers a type with the process-wide registry.
func Register(name string, finalize func(scriptruntime.Traceable)) scriptruntime.TypeTag {
	return defaultRegistry.Register(name, finalize)
}

// Get looks up a tag in the process-wide registry.
func Get(tag scriptruntime.TypeTag) (TypeInfo, bool) {
	return defaultRegistry.Get(tag)
}
