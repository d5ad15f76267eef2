package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a vertex or an edge. IDs are allocated from one sequence shared by
// both kinds and are never reused within a store.
type ID uint64

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Kind selects vertices or edges for index operations.
type Kind int

const (
	KindVertex Kind = iota
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindVertex:
		return "vertex"
	case KindEdge:
		return "edge"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses "vertex" or "edge" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "vertex", "vertices", "v":
		return KindVertex, nil
	case "edge", "edges", "e":
		return KindEdge, nil
	}
	return 0, fmt.Errorf("%w: unknown element kind %q", ErrInvalidArgument, s)
}

func (k Kind) valid() bool {
	return k == KindVertex || k == KindEdge
}

// Direction selects incident edges relative to a vertex.
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
	DirectionBoth
)

func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "OUT"
	case DirectionIn:
		return "IN"
	case DirectionBoth:
		return "BOTH"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Element is the behavior shared by vertices and edges.
type Element interface {
	ID() ID
	Kind() Kind

	// Property returns the value stored under key, or nil when absent.
	Property(key string) (any, error)

	// SetProperty stores v under key. Reserved keys ("", "id", "label") and nil
	// values are rejected with ErrInvalidArgument.
	SetProperty(key string, v any) error

	// RemoveProperty deletes key and returns the value it held (nil when absent).
	RemoveProperty(key string) (any, error)

	// PropertyKeys lists the keys of all properties, in ascending order.
	PropertyKeys() ([]string, error)

	// Remove deletes the element from the graph.
	Remove() error
}

// parseID converts a lookup argument into an ID. Strings (and any other value,
// through its default formatting) are parsed as unsigned decimal numbers; ok is false
// when that fails.
func parseID(id any) (ID, bool, error) {
	switch x := id.(type) {
	case nil:
		return 0, false, fmt.Errorf("%w: nil id", ErrInvalidArgument)
	case ID:
		return x, true, nil
	case uint64:
		return ID(x), true, nil
	case int:
		return signedID(int64(x))
	case int64:
		return signedID(x)
	case *Vertex:
		if x == nil {
			return 0, false, fmt.Errorf("%w: nil id", ErrInvalidArgument)
		}
		return x.id, true, nil
	case *Edge:
		if x == nil {
			return 0, false, fmt.Errorf("%w: nil id", ErrInvalidArgument)
		}
		return x.id, true, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(fmt.Sprint(id)), 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return ID(n), true, nil
}

func signedID(n int64) (ID, bool, error) {
	if n < 0 {
		return 0, false, nil
	}
	return ID(n), true, nil
}
