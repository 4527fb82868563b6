// Package gc implements cycle collection for the runtime's reference-counted
// object graph using Bacon-Rajan trial deletion.
//
// Ordinary reference counting frees acyclic garbage immediately; this package
// reclaims the rest. Decrements that do not reach zero queue the handle as a
// possible cycle root. A collection pass snapshots those roots, trially
// deletes references inside the reachable subgraph, and frees every object
// whose only support came from within it:
//
//	MarkWhite     whiten snapshot roots, mark them buffered
//	ScanRoots     trial-delete from each root; externally held objects
//	              blacken themselves and their descendants
//	ScanGray      propagate the scan through Gray objects
//	CollectWhite  surviving Gray objects turn White; all White objects
//	              the pass touched are freed, cascading through their
//	              strong references
//
// Every header access during a pass goes through SecureObjectView, which
// validates handle generation, bounds, alignment, and type tags before
// touching the arena. Passes are bounded by configurable resource limits
// (root count, wall-clock time, traversal depth); limit violations surface
// as structured errors and as SecurityEvents on the configured handler.
//
// Collect runs a full pass synchronously. CollectIncremental advances the
// same state machine in bounded slices and reclaims exactly the same set of
// objects. Start launches a background worker that collects whenever the
// root set crosses the threshold.
package gc
