package gc

import (
	"sync"

	scriptruntime "github.com/moikas-code/script-sub004"
	"github.com/moikas-code/script-sub004/arena"
	"github.com/moikas-code/script-sub004/errors"
)

// Process-wide collector for hosts that want a single shared instance. All
// package-level operations fail with a not_initialized error before
// Initialize and after Shutdown.
var (
	globalMu sync.RWMutex
	global   *Collector
	globalAr *arena.Arena
)

// Initialize creates the process-wide collector and starts its background
// worker. A second call before Shutdown is rejected.
func Initialize(cfg Config, opts ...Option) error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return errors.InvalidConfig("collector already initialized")
	}

	ar := arena.New()
	c, err := New(cfg, ar, opts...)
	if err != nil {
		ar.Close()
		return err
	}
	c.Start()
	global = c
	globalAr = ar
	return nil
}

// Shutdown stops the background worker, runs a final collection, and tears
// the process-wide collector down. Idempotent.
func Shutdown() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		return nil
	}
	global.Stop()
	_, err := global.Collect()
	global = nil
	ar := globalAr
	globalAr = nil
	if cerr := ar.Close(); err == nil {
		err = cerr
	}
	return err
}

// Default returns the process-wide collector, or nil before Initialize.
func Default() *Collector {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

func acquire() (*Collector, error) {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if global == nil {
		return nil, errors.NotInitialized("collector")
	}
	return global, nil
}

// Register records an object with the process-wide collector.
func Register(h scriptruntime.Handle, tag scriptruntime.TypeTag, size uint64) error {
	c, err := acquire()
	if err != nil {
		return err
	}
	return c.Register(h, tag, size)
}

// Unregister removes an object from the process-wide collector.
func Unregister(h scriptruntime.Handle) error {
	c, err := acquire()
	if err != nil {
		return err
	}
	c.Unregister(h)
	return nil
}

// AddPossibleRoot hints the process-wide collector at a potential cycle root.
func AddPossibleRoot(h scriptruntime.Handle) error {
	c, err := acquire()
	if err != nil {
		return err
	}
	return c.AddPossibleRoot(h)
}

// Collect runs one synchronous pass on the process-wide collector.
func Collect() (int, error) {
	c, err := acquire()
	if err != nil {
		return 0, err
	}
	return c.Collect()
}

// ShouldCollect reports whether the process-wide collector wants a pass.
func ShouldCollect() (bool, error) {
	c, err := acquire()
	if err != nil {
		return false, err
	}
	return c.ShouldCollect(), nil
}

// GetStats snapshots the process-wide collector's counters.
func GetStats() (CollectionStats, error) {
	c, err := acquire()
	if err != nil {
		return CollectionStats{}, err
	}
	return c.Stats(), nil
}

// SetThreshold adjusts the process-wide collection threshold.
func SetThreshold(n int) error {
	c, err := acquire()
	if err != nil {
		return err
	}
	c.SetThreshold(n)
	return nil
}
