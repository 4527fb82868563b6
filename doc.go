// Package scriptruntime provides the memory-management core of the Script
// language runtime: a reference-counted object model complemented by a
// Bacon-Rajan-style cycle collector.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	scriptruntime/       Root package with core Handle, Color and Traceable contracts
//	├── arena/           Owning slot arena storing headers and payloads by handle
//	├── typereg/         Runtime type registry mapping type tags to trace metadata
//	├── gc/              The cycle collector: trial deletion, background worker
//	├── errors/          Structured error types for debugging
//	└── cmd/gcmon/       CLI and TUI monitor driving a synthetic workload
//
// # Quick Start
//
// Create an arena and a collector, allocate objects, and let the collector
// reclaim reference cycles that plain counting cannot free:
//
//	ar := arena.New()
//	col, err := gc.New(gc.DefaultConfig(), ar)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	col.Start()
//	defer col.Stop()
//
//	a, _ := col.NewObject(nodeTag, nodeSize, &Node{})
//	b, _ := col.NewObject(nodeTag, nodeSize, &Node{})
//	// ... link a and b into a cycle, drop the external references ...
//	freed, err := col.Collect()
//
// # Handles
//
// Objects are addressed by Handle, a generation-checked slot reference. A freed
// slot may be reused, but reuse bumps the slot generation so stale handles can
// never alias a new object. Handle 0 is reserved and always invalid.
//
// # Thread Safety
//
// The arena's reference counts are lock-free atomics owned by mutator threads.
// Registry and root-set operations are safe for concurrent use. At most one
// collection pass runs at a time; mutators may keep allocating and hinting
// while a pass executes.
package scriptruntime
