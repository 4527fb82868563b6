package gc

import (
	stderrors "errors"
	"time"

	scriptruntime "github.com/moikas-code/script-sub004"
	"github.com/moikas-code/script-sub004/errors"
)

// Trial deletion over a snapshot of the possible-root set. A pass runs as a
// resumable state machine so the synchronous and incremental entry points
// share one implementation and reclaim identical sets of objects.
type passPhase uint8

const (
	phaseMarkWhite passPhase = iota
	phaseScanRoots
	phaseScanGray
	phaseCollectWhite
	phaseDone
)

// passState is the resumable state of one collection pass. One unit of work
// is roughly one handle examined.
type passState struct {
	visited   map[scriptruntime.Handle]struct{}
	scanned   map[scriptruntime.Handle]struct{}
	blackened map[scriptruntime.Handle]struct{}
	inDegree  map[scriptruntime.Handle]int
	roots     []scriptruntime.Handle
	toScan    []scriptruntime.Handle
	whites    []scriptruntime.Handle
	rootIdx   int
	whiteIdx  int
	depth     int
	collected int
	elapsed   time.Duration
	start     time.Time
	cur       passPhase
	deadline  bool
}

func (c *Collector) newPass(roots []scriptruntime.Handle, deadline bool) *passState {
	return &passState{
		visited:   make(map[scriptruntime.Handle]struct{}, len(roots)),
		scanned:   make(map[scriptruntime.Handle]struct{}, len(roots)),
		blackened: make(map[scriptruntime.Handle]struct{}),
		inDegree:  make(map[scriptruntime.Handle]int),
		roots:     roots,
		start:     time.Now(),
		deadline:  deadline,
	}
}

// step advances a pass by up to budget units of work. Phase transitions and
// the small bookkeeping they carry (recoloring survivors, building the white
// list) are not charged against the budget.
func (c *Collector) step(ps *passState, budget int) error {
	t0 := time.Now()
	defer func() { ps.elapsed += time.Since(t0) }()

	used := 0
	for used < budget && ps.cur != phaseDone {
		if ps.deadline && time.Since(ps.start) > c.cfg.MaxCollectionTime {
			c.emit(SecurityEvent{
				Kind:     EventTimeout,
				Limit:    "collection_time",
				Duration: time.Since(ps.start),
			})
			return errors.Timeout(errors.PhaseCollect,
				time.Since(ps.start).String(), c.cfg.MaxCollectionTime.String())
		}

		var err error
		switch ps.cur {
		case phaseMarkWhite:
			err = c.stepMarkWhite(ps)
		case phaseScanRoots:
			err = c.stepScanRoots(ps)
		case phaseScanGray:
			err = c.stepScanGray(ps)
		case phaseCollectWhite:
			c.stepCollectWhite(ps)
		}
		if err != nil {
			if errors.IsKind(err, errors.KindTypeMismatch) {
				c.noteTypeMismatch(err)
			}
			return err
		}
		used++
	}
	return nil
}

// stepMarkWhite whitens one snapshot root and marks it buffered. Roots that
// were freed or unregistered since being hinted are skipped; a root whose
// strong count already reached zero is treated as collected elsewhere and
// dropped from the registry.
func (c *Collector) stepMarkWhite(ps *passState) error {
	if ps.rootIdx >= len(ps.roots) {
		ps.rootIdx = 0
		ps.cur = phaseScanRoots
		return nil
	}
	h := ps.roots[ps.rootIdx]
	ps.rootIdx++

	v, err := c.view(h)
	if err != nil || v == nil {
		return err
	}
	n, err := v.StrongCount()
	if err != nil {
		return err
	}
	if n == 0 {
		c.reg.unregister(h)
		return nil
	}
	if err := v.SetColor(scriptruntime.White); err != nil {
		return err
	}
	if err := v.SetBuffered(true); err != nil {
		return err
	}
	ps.visited[h] = struct{}{}
	return nil
}

// stepScanRoots begins trial deletion from one whitened root.
func (c *Collector) stepScanRoots(ps *passState) error {
	if ps.rootIdx >= len(ps.roots) {
		ps.cur = phaseScanGray
		return nil
	}
	h := ps.roots[ps.rootIdx]
	ps.rootIdx++

	if _, ok := ps.visited[h]; !ok {
		return nil
	}
	return c.scanCandidate(ps, h)
}

// scanCandidate evaluates one object during the scan. An object with more
// than one strong reference is externally held, so it and everything it
// reaches is live; an object held only by the graph under trial goes Gray
// for interior scanning.
func (c *Collector) scanCandidate(ps *passState, h scriptruntime.Handle) error {
	if _, ok := ps.scanned[h]; ok {
		return nil
	}
	ps.scanned[h] = struct{}{}

	v, err := c.view(h)
	if err != nil || v == nil {
		return err
	}
	n, err := v.StrongCount()
	if err != nil {
		return err
	}
	if n == 0 {
		c.reg.unregister(h)
		delete(ps.visited, h)
		return nil
	}
	ps.visited[h] = struct{}{}
	if n > 1 {
		return c.scanBlack(ps, h)
	}
	if err := v.SetColor(scriptruntime.Gray); err != nil {
		return err
	}
	ps.toScan = append(ps.toScan, h)
	return nil
}

// scanBlack proves a subgraph live: the object and everything reachable
// from it is blackened and unbuffered regardless of strong counts.
func (c *Collector) scanBlack(ps *passState, h scriptruntime.Handle) error {
	stack := getHandleBuf()
	defer putHandleBuf(stack)
	stack = append(stack, h)

	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, done := ps.blackened[x]; done {
			continue
		}
		ps.depth++
		if ps.depth > c.cfg.MaxGraphDepth {
			return c.depthExceeded(ps)
		}
		ps.blackened[x] = struct{}{}
		ps.scanned[x] = struct{}{}

		v, err := c.view(x)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		ps.visited[x] = struct{}{}
		if err := v.SetColor(scriptruntime.Black); err != nil {
			return err
		}
		if err := v.SetBuffered(false); err != nil {
			return err
		}

		children := getHandleBuf()
		err = v.TraceChildren(func(ch scriptruntime.Handle) {
			children = append(children, ch)
		})
		if err != nil {
			putHandleBuf(children)
			return err
		}
		stack = append(stack, children...)
		putHandleBuf(children)
	}
	return nil
}

// stepScanGray pops one Gray object and scans its children. Objects
// recolored Black since being queued are skipped. Pop count doubles as the
// traversal depth guard.
func (c *Collector) stepScanGray(ps *passState) error {
	if len(ps.toScan) == 0 {
		return c.beginCollectWhite(ps)
	}
	h := ps.toScan[len(ps.toScan)-1]
	ps.toScan = ps.toScan[:len(ps.toScan)-1]

	ps.depth++
	if ps.depth > c.cfg.MaxGraphDepth {
		return c.depthExceeded(ps)
	}

	v, err := c.view(h)
	if err != nil || v == nil {
		return err
	}
	col, err := v.Color()
	if err != nil {
		return err
	}
	if col != scriptruntime.Gray {
		return nil
	}

	children := getHandleBuf()
	defer putHandleBuf(children)
	err = v.TraceChildren(func(ch scriptruntime.Handle) {
		children = append(children, ch)
	})
	if err != nil {
		return err
	}
	for _, ch := range children {
		ps.inDegree[ch]++
		if err := c.scanCandidate(ps, ch); err != nil {
			return err
		}
	}
	return nil
}

// beginCollectWhite seals the scan. A Gray object whose strong count exceeds
// the number of references it received from inside the trial graph is held
// by something outside it; that proves it live, and everything it reaches
// with it. What remains Gray after that sweep was supported only by the
// trial graph itself, so it is garbage and turns White. The white list is
// the pass's reclamation plan.
func (c *Collector) beginCollectWhite(ps *passState) error {
	grays := getHandleBuf()
	defer putHandleBuf(grays)
	for h := range ps.visited {
		if col, ok := c.ar.Color(h); ok && col == scriptruntime.Gray {
			grays = append(grays, h)
		}
	}

	for _, h := range grays {
		if col, ok := c.ar.Color(h); !ok || col != scriptruntime.Gray {
			continue
		}
		v, err := c.view(h)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		n, err := v.StrongCount()
		if err != nil {
			return err
		}
		if n > uint64(ps.inDegree[h]) {
			if err := c.scanBlack(ps, h); err != nil {
				return err
			}
		}
	}

	for h := range ps.visited {
		col, ok := c.ar.Color(h)
		if !ok {
			continue
		}
		if col == scriptruntime.Gray {
			c.ar.SetColor(h, scriptruntime.White)
			col = scriptruntime.White
		}
		if col == scriptruntime.White {
			ps.whites = append(ps.whites, h)
		}
	}
	ps.cur = phaseCollectWhite
	return nil
}

// stepCollectWhite frees one condemned object. The handle's generation is
// re-checked immediately before freeing (Contains), so an object already
// destroyed by an earlier cascade in this pass is skipped rather than
// double-freed.
func (c *Collector) stepCollectWhite(ps *passState) {
	if ps.whiteIdx >= len(ps.whites) {
		ps.cur = phaseDone
		return
	}
	h := ps.whites[ps.whiteIdx]
	ps.whiteIdx++

	if !c.ar.Contains(h) {
		return
	}
	col, ok := c.ar.Color(h)
	if !ok || col != scriptruntime.White {
		return
	}
	ps.collected += c.destroy(h)
}

func (c *Collector) depthExceeded(ps *passState) error {
	c.emit(SecurityEvent{
		Kind:  EventAttack,
		Limit: "graph_depth",
		Value: uint64(ps.depth),
	})
	return errors.ResourceLimit(errors.PhaseTrace, "graph_depth", uint64(c.cfg.MaxGraphDepth))
}

func (c *Collector) noteTypeMismatch(err error) {
	ev := SecurityEvent{Kind: EventTypeValidation}
	var se *errors.Error
	if stderrors.As(err, &se) {
		ev.Expected = se.Expected
		ev.Actual = se.Actual
		ev.Handle = se.Handle
	}
	c.emit(ev)
}

// Collect runs one full collection pass synchronously. The wall-clock
// deadline MaxCollectionTime applies; an aborted pass leaves colors
// conservative (nothing is freed on abort) and drops its root snapshot,
// which only delays reclamation of surviving cycles.
func (c *Collector) Collect() (int, error) {
	c.collectMu.Lock()
	defer c.collectMu.Unlock()

	// A full pass supersedes any partially advanced incremental pass.
	c.inc = nil

	roots := c.roots.takeSnapshot()
	if len(roots) == 0 {
		return 0, nil
	}
	ps := c.newPass(roots, true)
	for ps.cur != phaseDone {
		if err := c.step(ps, 1024); err != nil {
			return 0, err
		}
	}
	c.stats.recordPass(ps.collected, ps.elapsed)
	return ps.collected, nil
}

// CollectIncremental advances the current pass by at most maxWork units,
// starting a new pass over a fresh root snapshot if none is in flight.
// maxWork <= 0 uses the configured default. Returns true when the pass
// completed. A sequence of incremental calls reclaims exactly the objects a
// single Collect over the same snapshot would; no deadline applies, the
// budget bounds each call instead.
func (c *Collector) CollectIncremental(maxWork int) (bool, error) {
	c.collectMu.Lock()
	defer c.collectMu.Unlock()

	if maxWork <= 0 {
		maxWork = c.cfg.MaxIncrementalWork
	}
	if c.inc == nil {
		roots := c.roots.takeSnapshot()
		if len(roots) == 0 {
			return true, nil
		}
		c.inc = c.newPass(roots, false)
	}
	if err := c.step(c.inc, maxWork); err != nil {
		c.inc = nil
		return false, err
	}
	if c.inc.cur == phaseDone {
		c.stats.recordPass(c.inc.collected, c.inc.elapsed)
		c.inc = nil
		return true, nil
	}
	return false, nil
}
