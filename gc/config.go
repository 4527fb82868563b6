package gc

import (
	"time"

	"github.com/moikas-code/script-sub004/errors"
)

// DefaultMaxObjectSize caps registered object sizes at 1 GiB. Anything larger
// is treated as a corrupted or adversarial registration.
const DefaultMaxObjectSize = 1 << 30

// Config holds the collector's resource ceilings and feature switches.
type Config struct {
	// MaxPossibleRoots bounds the possible-root set. Insertions beyond the
	// cap fail; dropped hints are retried by later decrements or the worker.
	MaxPossibleRoots int

	// MaxRegistered bounds the registry. Registration beyond the cap fails.
	MaxRegistered int

	// MaxObjectSize bounds a single registered object's byte size.
	MaxObjectSize uint64

	// MaxCollectionTime bounds one synchronous collection pass.
	MaxCollectionTime time.Duration

	// MaxGraphDepth bounds the number of handles a single pass may traverse.
	MaxGraphDepth int

	// MaxIncrementalWork is the default work budget per incremental step.
	MaxIncrementalWork int

	// CollectThreshold is the possible-root count above which the background
	// worker triggers a pass. Adjustable at runtime via SetThreshold.
	CollectThreshold int

	// WorkerInterval is how often the background worker re-evaluates the
	// threshold even without a wakeup.
	WorkerInterval time.Duration

	// EnableMonitoring forwards security events to the event handler.
	EnableMonitoring bool

	// EnableTypeValidation re-checks stored type tags before header access.
	EnableTypeValidation bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxPossibleRoots:     100_000,
		MaxRegistered:        1_000_000,
		MaxObjectSize:        DefaultMaxObjectSize,
		MaxCollectionTime:    time.Second,
		MaxGraphDepth:        10_000,
		MaxIncrementalWork:   1000,
		CollectThreshold:     100,
		WorkerInterval:       100 * time.Millisecond,
		EnableMonitoring:     true,
		EnableTypeValidation: true,
	}
}

func (c Config) validate() error {
	switch {
	case c.MaxPossibleRoots <= 0:
		return errors.InvalidConfig("MaxPossibleRoots must be positive")
	case c.MaxRegistered <= 0:
		return errors.InvalidConfig("MaxRegistered must be positive")
	case c.MaxObjectSize == 0:
		return errors.InvalidConfig("MaxObjectSize must be positive")
	case c.MaxCollectionTime <= 0:
		return errors.InvalidConfig("MaxCollectionTime must be positive")
	case c.MaxGraphDepth <= 0:
		return errors.InvalidConfig("MaxGraphDepth must be positive")
	case c.MaxIncrementalWork <= 0:
		return errors.InvalidConfig("MaxIncrementalWork must be positive")
	case c.CollectThreshold < 0:
		return errors.InvalidConfig("CollectThreshold must not be negative")
	case c.WorkerInterval <= 0:
		return errors.InvalidConfig("WorkerInterval must be positive")
	}
	return nil
}
