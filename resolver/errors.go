package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/amiresolve/types"
)

// Sentinel errors for resolution failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrMalformedRequest indicates both or neither of image id and name were set.
	// Raised before any lookup is attempted.
	ErrMalformedRequest = types.ErrMalformedRequest

	// ErrNotFound indicates the seed image does not exist in the home partition.
	ErrNotFound = errors.New("image not found")

	// ErrEnumeration indicates the partition list could not be retrieved.
	ErrEnumeration = errors.New("partition enumeration failed")

	// ErrLookup indicates a single lookup failed at the transport or auth layer.
	// Fatal during seed resolution, downgraded to a miss during fan-out.
	ErrLookup = errors.New("lookup failed")
)

// Error wraps an underlying error with resolution classification and enough
// context (operation, partition, offending value) to diagnose the failure.
type Error struct {
	// Kind is the sentinel error for classification (e.g., ErrNotFound).
	Kind error
	// Op is the operation that failed (e.g., "describe images").
	Op string
	// Partition is the partition involved, if any.
	Partition types.PartitionID
	// Value is the offending image id or name, if any.
	Value string
	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Value != "" {
		fmt.Fprintf(&b, " %q", e.Value)
	}
	if e.Partition != "" {
		fmt.Fprintf(&b, " in %s", e.Partition)
	}
	fmt.Fprintf(&b, ": %v", e.Kind)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func notFound(op string, partition types.PartitionID, value string) *Error {
	return &Error{Kind: ErrNotFound, Op: op, Partition: partition, Value: value}
}

func lookupFailed(op string, partition types.PartitionID, value string, err error) *Error {
	return &Error{Kind: ErrLookup, Op: op, Partition: partition, Value: value, Err: err}
}

func enumerationFailed(partition types.PartitionID, err error) *Error {
	return &Error{Kind: ErrEnumeration, Op: "list partitions", Partition: partition, Err: err}
}
