// ABOUTME: Sentinel errors for descriptor contract violations and registry lookups
// ABOUTME: Protocol calls panic with these wrapped errors; lookups return them

package gc

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is raised when a descriptor spec cannot describe a valid type.
	ErrMalformed = errors.New("malformed descriptor")

	// ErrSizeMismatch is returned when an object size disagrees with its descriptor.
	ErrSizeMismatch = errors.New("object size does not match descriptor")

	// ErrPhase is raised when a protocol call happens in the wrong cycle phase.
	ErrPhase = errors.New("collector phase violation")

	// ErrDangling is raised when a strong slot targets an object with no forwarding entry.
	ErrDangling = errors.New("dangling strong reference")

	// ErrFinalizeLive is raised when finalization is requested for a surviving object.
	ErrFinalizeLive = errors.New("finalize called on surviving object")

	// ErrUnknownType is returned when no descriptor carries the requested name.
	ErrUnknownType = errors.New("unknown structure type")

	// ErrAmbiguousType is returned when several descriptors share the requested name.
	ErrAmbiguousType = errors.New("ambiguous structure type name")
)

// violation aborts the caller. The descriptor layer has no failure channel, so
// a broken contract is fatal to the cycle that observed it.
func violation(err error, format string, args ...any) {
	panic(fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...)))
}
