package scriptruntime

// Handle is a generation-checked reference to a managed object in an arena.
// The low 32 bits are the slot index, the high 32 bits the slot generation at
// the time the handle was issued. Handle 0 is reserved and always invalid.
type Handle uint64

// NewHandle packs a slot index and generation into a Handle.
func NewHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

// Index returns the slot index encoded in the handle.
func (h Handle) Index() uint32 {
	return uint32(h)
}

// Generation returns the slot generation encoded in the handle.
func (h Handle) Generation() uint32 {
	return uint32(h >> 32)
}

// IsValid reports whether the handle could refer to an object. It does not
// check liveness; the arena does that against the slot generation.
func (h Handle) IsValid() bool {
	return h != 0
}

// TypeTag identifies a registered runtime type. Tag 0 is reserved.
type TypeTag uint32

// Color is the tri-color marking state used by trial deletion. The collector
// uses it in the Bacon-Rajan sense: White objects are cycle candidates, Gray
// objects are under evaluation, Black objects are confirmed live.
type Color uint8

const (
	White Color = iota
	Gray
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Gray:
		return "gray"
	case Black:
		return "black"
	default:
		return "invalid"
	}
}

// Traceable is implemented by every payload that can hold managed references.
// Trace must call visit once per outgoing Handle currently held by the value.
// Payloads with no references implement Trace as a no-op.
type Traceable interface {
	Trace(visit func(Handle))
}

// NoRefs is a ready-made Traceable for payloads that hold no managed
// references. Embed it or use it directly as a leaf payload.
type NoRefs struct{}

func (NoRefs) Trace(func(Handle)) {}
