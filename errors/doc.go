// Package errors provides structured error types for the audio-unit bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the offending value, an optional Go type name, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseWrap, errors.KindAllocation).
//		GoType("arigato.AudioUnit").
//		Detail("table at capacity").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseLookup, "handle", h)
//	err := errors.Invalidated(errors.PhaseWrap, "audio unit")
//
// All errors implement the standard error interface and support errors.Is/As.
// The ErrAllocation, ErrNotFound, ErrInvalidated and ErrClosed sentinels match
// any phase.
package errors
