package graph

import "errors"

// Sentinel errors. Callers test for them with errors.Is; returned errors usually wrap
// one of these with the offending argument.
var (
	// ErrInvalidArgument is returned for a reserved or empty property key, a nil
	// property value, a nil id on lookup, an empty edge label or a duplicate index name.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIllegalState is returned when removing or mutating an element that is no
	// longer part of the graph, or using a dropped index.
	ErrIllegalState = errors.New("illegal state")

	// ErrUnsupported is returned for index pattern queries and for asking an edge for
	// its single vertex in direction Both.
	ErrUnsupported = errors.New("unsupported operation")
)
