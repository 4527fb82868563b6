package gc

import (
	"sync"
	"time"
)

// CollectionStats are process-wide monotonic counters for one collector.
// They reset only on an explicit ResetStats call.
type CollectionStats struct {
	// Collections is the number of completed collection passes.
	Collections uint64
	// CyclesDetected counts passes that reclaimed at least one object.
	CyclesDetected uint64
	// ObjectsCollected is the total number of reclaimed objects.
	ObjectsCollected uint64
	// TotalTime is the accumulated wall-clock time spent collecting.
	TotalTime time.Duration
	// LastCollection is when the most recent pass finished.
	LastCollection time.Time
	// SecurityEvents counts all emitted security events.
	SecurityEvents uint64
	// ResourceViolations counts resource limit events.
	ResourceViolations uint64
	// TypeViolations counts failed type validations.
	TypeViolations uint64
	// Timeouts counts passes aborted on the time budget.
	Timeouts uint64
	// WorkerErrors counts errors swallowed by the background worker.
	WorkerErrors uint64
}

type statsBox struct {
	mu sync.Mutex
	s  CollectionStats
}

func (b *statsBox) recordPass(collected int, elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.s.Collections++
	b.s.ObjectsCollected += uint64(collected)
	if collected > 0 {
		b.s.CyclesDetected++
	}
	b.s.TotalTime += elapsed
	b.s.LastCollection = time.Now()
}

func (b *statsBox) recordEvent(kind EventKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.s.SecurityEvents++
	switch kind {
	case EventResourceLimit, EventAttack:
		b.s.ResourceViolations++
	case EventTypeValidation:
		b.s.TypeViolations++
	case EventTimeout:
		b.s.Timeouts++
	}
}

func (b *statsBox) recordWorkerError() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.s.WorkerErrors++
}

func (b *statsBox) snapshot() CollectionStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.s
}

func (b *statsBox) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.s = CollectionStats{}
}
