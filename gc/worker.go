package gc

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// worker runs periodic collection in the background. It wakes on a fixed
// interval and whenever the root set crosses the threshold, collects if
// warranted, and records but never propagates pass errors.
type worker struct {
	kick chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

// Start launches the background worker. Calling Start on a running
// collector is a no-op.
func (c *Collector) Start() {
	c.workerMu.Lock()
	defer c.workerMu.Unlock()
	if c.worker != nil {
		return
	}

	w := &worker{
		kick: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	c.worker = w
	w.wg.Add(1)
	go c.runWorker(w)
}

// Stop shuts the background worker down and waits for the in-flight pass,
// if any, to finish. Idempotent.
func (c *Collector) Stop() {
	c.workerMu.Lock()
	w := c.worker
	c.worker = nil
	c.workerMu.Unlock()
	if w == nil {
		return
	}
	close(w.stop)
	w.wg.Wait()
}

// maybeKick nudges the worker without blocking. A full kick channel means a
// wakeup is already pending.
func (c *Collector) maybeKick() {
	c.workerMu.Lock()
	w := c.worker
	c.workerMu.Unlock()
	if w == nil || !c.ShouldCollect() {
		return
	}
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (c *Collector) runWorker(w *worker) {
	defer w.wg.Done()

	ticker := time.NewTicker(c.cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
		case <-w.kick:
		}

		if !c.ShouldCollect() {
			continue
		}
		collected, err := c.Collect()
		if err != nil {
			c.stats.recordWorkerError()
			Logger().Warn("background collection failed",
				zap.Error(err))
			continue
		}
		if collected > 0 {
			Logger().Debug("background collection",
				zap.Int("collected", collected))
		}
	}
}
