package gc

import (
	"time"

	"go.uber.org/zap"
)

// EventKind classifies a security event.
type EventKind uint8

const (
	// EventResourceLimit signals an exceeded resource ceiling.
	EventResourceLimit EventKind = iota
	// EventTypeValidation signals a failed type check before header access.
	EventTypeValidation
	// EventTimeout signals a collection pass exceeding its time budget.
	EventTimeout
	// EventAttack signals a traversal shape consistent with adversarial input.
	EventAttack
	// EventCorruption signals inconsistent collector-internal state.
	EventCorruption
)

func (k EventKind) String() string {
	switch k {
	case EventResourceLimit:
		return "resource_limit"
	case EventTypeValidation:
		return "type_validation"
	case EventTimeout:
		return "timeout"
	case EventAttack:
		return "attack"
	case EventCorruption:
		return "corruption"
	default:
		return "unknown"
	}
}

// SecurityEvent is an audit record emitted when validation or a resource
// guard fires. Events are observability-only: handling one never changes the
// outcome of the operation that produced it.
type SecurityEvent struct {
	Duration time.Duration
	Limit    string
	Expected string
	Actual   string
	Detail   string
	Value    uint64
	Handle   uint64
	Kind     EventKind
}

// SecurityEventHandler receives security events. Implementations must be
// safe for concurrent use; they are called from mutator threads, collection
// passes, and the background worker.
type SecurityEventHandler interface {
	HandleEvent(SecurityEvent)
}

// logEventHandler is the default handler. It reports through the package
// logger.
type logEventHandler struct{}

func (logEventHandler) HandleEvent(e SecurityEvent) {
	Logger().Warn("gc security event",
		zap.String("kind", e.Kind.String()),
		zap.String("limit", e.Limit),
		zap.Uint64("value", e.Value),
		zap.Uint64("handle", e.Handle),
		zap.String("expected", e.Expected),
		zap.String("actual", e.Actual),
		zap.Duration("duration", e.Duration),
		zap.String("detail", e.Detail),
	)
}

// emit forwards an event to the configured handler when monitoring is on,
// and counts it in the stats either way.
func (c *Collector) emit(e SecurityEvent) {
	c.stats.recordEvent(e.Kind)
	if !c.cfg.EnableMonitoring {
		return
	}
	c.events.HandleEvent(e)
}
