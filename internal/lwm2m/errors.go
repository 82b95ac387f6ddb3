package lwm2m

import "errors"

// Domain errors for the lwm2m package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, lwm2m.ErrNotFound) {
//	    // respond 4.04
//	}
var (
	// ErrTypeMismatch is returned when a candidate value cannot be coerced
	// into the kind of the target cell.
	ErrTypeMismatch = errors.New("lwm2m: type mismatch")

	// ErrDuplicateID is returned when registering an ID that is already in
	// use at the same level of the tree.
	ErrDuplicateID = errors.New("lwm2m: duplicate id")

	// ErrNotFound is returned when an object, instance or resource does not exist.
	ErrNotFound = errors.New("lwm2m: not found")

	// ErrInvalidAddress is returned when a resource path cannot be parsed.
	ErrInvalidAddress = errors.New("lwm2m: invalid address")

	// ErrInvalidKind is returned when a value kind or resource variant is not
	// recognised, or when a nil node is registered.
	ErrInvalidKind = errors.New("lwm2m: invalid kind")

	// ErrCapabilityMismatch is returned when an entry point is invoked on a
	// resource variant that does not provide it.
	ErrCapabilityMismatch = errors.New("lwm2m: capability mismatch")

	// ErrAlreadyAttached is returned when a second engine is attached to a client.
	ErrAlreadyAttached = errors.New("lwm2m: engine already attached")
)
