package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	scriptruntime "github.com/moikas-code/script-sub004"
	"github.com/moikas-code/script-sub004/arena"
	"github.com/moikas-code/script-sub004/gc"
	"github.com/moikas-code/script-sub004/typereg"
)

func main() {
	var (
		cycles      = flag.Int("cycles", 100, "Cyclic pairs to allocate per round")
		rounds      = flag.Int("rounds", 10, "Rounds of allocate+collect")
		threshold   = flag.Int("threshold", 100, "Possible-root count that triggers the worker")
		incremental = flag.Int("inc", 0, "Incremental work budget per step (0 = synchronous)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose collector logging")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		gc.SetLogger(logger)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*threshold); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*cycles, *rounds, *threshold, *incremental); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cell is the synthetic managed object the monitor allocates: a bag of
// outgoing strong references.
type cell struct {
	refs []scriptruntime.Handle
}

func (n *cell) Trace(visit func(scriptruntime.Handle)) {
	for _, h := range n.refs {
		visit(h)
	}
}

const cellSize = 64

// workload drives a collector with synthetic object graphs.
type workload struct {
	ar   *arena.Arena
	c    *gc.Collector
	tag  scriptruntime.TypeTag
	live []scriptruntime.Handle
}

func newWorkload(threshold int) (*workload, error) {
	ar := arena.New()
	types := typereg.NewRegistry()
	tag := types.Register("cell", nil)

	cfg := gc.DefaultConfig()
	cfg.CollectThreshold = threshold
	c, err := gc.New(cfg, ar, gc.WithTypeRegistry(types))
	if err != nil {
		ar.Close()
		return nil, err
	}
	return &workload{ar: ar, c: c, tag: tag}, nil
}

func (w *workload) close() {
	w.c.Stop()
	w.ar.Close()
}

// allocCycles allocates n two-object reference cycles and drops the external
// references, leaving garbage only trial deletion can reclaim.
func (w *workload) allocCycles(n int) error {
	for i := 0; i < n; i++ {
		pa := &cell{}
		pb := &cell{}
		a, err := w.c.NewObject(w.tag, cellSize, pa)
		if err != nil {
			return err
		}
		b, err := w.c.NewObject(w.tag, cellSize, pb)
		if err != nil {
			return err
		}
		if err := w.c.Retain(b); err != nil {
			return err
		}
		pa.refs = append(pa.refs, b)
		if err := w.c.Retain(a); err != nil {
			return err
		}
		pb.refs = append(pb.refs, a)

		if err := w.c.Release(a); err != nil {
			return err
		}
		if err := w.c.Release(b); err != nil {
			return err
		}
	}
	return nil
}

// allocLive allocates n objects and keeps their external references, so they
// must survive every pass.
func (w *workload) allocLive(n int) error {
	for i := 0; i < n; i++ {
		h, err := w.c.NewObject(w.tag, cellSize, &cell{})
		if err != nil {
			return err
		}
		w.live = append(w.live, h)
	}
	return nil
}

// dropLive releases half of the held external references.
func (w *workload) dropLive() error {
	half := len(w.live) / 2
	for _, h := range w.live[:half] {
		if err := w.c.Release(h); err != nil {
			return err
		}
	}
	w.live = w.live[half:]
	return nil
}

func run(cycles, rounds, threshold, incremental int) error {
	w, err := newWorkload(threshold)
	if err != nil {
		return err
	}
	defer w.close()

	fmt.Printf("Workload: %d cyclic pairs x %d rounds", cycles, rounds)
	if incremental > 0 {
		fmt.Printf(", incremental budget %d", incremental)
	}
	fmt.Println()

	for round := 1; round <= rounds; round++ {
		if err := w.allocCycles(cycles); err != nil {
			return err
		}

		var collected int
		if incremental > 0 {
			before := w.c.Stats().ObjectsCollected
			for {
				done, err := w.c.CollectIncremental(incremental)
				if err != nil {
					return err
				}
				if done {
					break
				}
			}
			collected = int(w.c.Stats().ObjectsCollected - before)
		} else {
			collected, err = w.c.Collect()
			if err != nil {
				return err
			}
		}
		fmt.Printf("Round %2d: allocated %d, collected %d, arena %d\n",
			round, cycles*2, collected, w.ar.Len())
	}

	s := w.c.Stats()
	fmt.Printf("\nCollections:       %d\n", s.Collections)
	fmt.Printf("Cycles detected:   %d\n", s.CyclesDetected)
	fmt.Printf("Objects collected: %d\n", s.ObjectsCollected)
	fmt.Printf("Total time:        %s\n", s.TotalTime)
	fmt.Printf("Security events:   %d\n", s.SecurityEvents)
	return nil
}
