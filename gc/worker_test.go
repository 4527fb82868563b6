package gc

import (
	"testing"
	"time"
)

func TestWorker_CollectsAboveThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerInterval = 5 * time.Millisecond
	cfg.CollectThreshold = 0
	c, ar, tag, _ := newTestCollector(t, cfg)

	c.Start()
	defer c.Stop()

	a, na := mustAlloc(t, c, tag)
	b, nb := mustAlloc(t, c, tag)
	link(t, c, na, b)
	link(t, c, nb, a)
	release(t, c, a)
	release(t, c, b)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !ar.Contains(a) && !ar.Contains(b) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if ar.Contains(a) || ar.Contains(b) {
		t.Fatal("worker never collected the cycle")
	}
	if got := c.Stats().ObjectsCollected; got != 2 {
		t.Fatalf("ObjectsCollected = %d, want 2", got)
	}
}

func TestWorker_BelowThresholdIdle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerInterval = 5 * time.Millisecond
	cfg.CollectThreshold = 100
	c, _, tag, _ := newTestCollector(t, cfg)

	c.Start()
	defer c.Stop()

	a, _ := mustAlloc(t, c, tag)
	if err := c.AddPossibleRoot(a); err != nil {
		t.Fatalf("AddPossibleRoot: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := c.Stats().Collections; got != 0 {
		t.Fatalf("worker ran %d passes below threshold", got)
	}
	if c.RootSetLen() != 1 {
		t.Fatal("hint lost without a pass")
	}
}

func TestWorker_StartStopIdempotent(t *testing.T) {
	c, _, _, _ := newTestCollector(t, DefaultConfig())

	c.Start()
	c.Start()
	c.Stop()
	c.Stop()

	// A fresh start after stop works.
	c.Start()
	c.Stop()
}

func TestWorker_StopWaitsForWorker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerInterval = time.Millisecond
	c, _, tag, _ := newTestCollector(t, cfg)
	c.SetThreshold(0)

	c.Start()
	for i := 0; i < 100; i++ {
		h, n := mustAlloc(t, c, tag)
		link(t, c, n, h)
		release(t, c, h)
	}

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	// No passes run after Stop returns.
	got := c.Stats().Collections
	time.Sleep(20 * time.Millisecond)
	if now := c.Stats().Collections; now != got {
		t.Fatalf("collections advanced after Stop: %d -> %d", got, now)
	}
}
