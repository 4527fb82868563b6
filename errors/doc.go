// Package errors provides structured error types for the Script runtime's
// cycle collector.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: the offending handle,
// expected/actual type names, and the exceeded resource limit.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseView, errors.KindTypeMismatch).
//		Handle(uint64(h)).
//		Expected("List").
//		Actual("Closure").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseView, uint64(h), "List", "Closure")
//	err := errors.ResourceLimit(errors.PhaseRoot, "possible_roots", 100000)
//
// All errors implement the standard error interface and support errors.Is/As.
// The collector returns these for every failure; it never panics.
package errors
