package graph

import "fmt"

// Edge is a handle to an edge. Its endpoints and label are fixed at creation.
type Edge struct {
	g     *Graph
	id    ID
	out   ID
	in    ID
	label string
}

var _ Element = (*Edge)(nil)

// ID returns the edge id.
func (e *Edge) ID() ID { return e.id }

// Kind returns KindEdge.
func (e *Edge) Kind() Kind { return KindEdge }

// Label returns the edge label.
func (e *Edge) Label() string { return e.label }

// OutID returns the id of the tail vertex.
func (e *Edge) OutID() ID { return e.out }

// InID returns the id of the head vertex.
func (e *Edge) InID() ID { return e.in }

func (e *Edge) String() string {
	return fmt.Sprintf("e[%d][%d-%s->%d]", e.id, e.out, e.label, e.in)
}

// Vertex returns the tail (DirectionOut) or head (DirectionIn) vertex.
// DirectionBoth returns ErrUnsupported.
func (e *Edge) Vertex(dir Direction) (*Vertex, error) {
	switch dir {
	case DirectionOut:
		return &Vertex{g: e.g, id: e.out}, nil
	case DirectionIn:
		return &Vertex{g: e.g, id: e.in}, nil
	}
	return nil, fmt.Errorf("%w: edge has no single vertex for direction %s", ErrUnsupported, dir)
}

// Property returns the value of key, or nil.
func (e *Edge) Property(key string) (any, error) {
	return e.g.getProperty(KindEdge, e.id, key)
}

// SetProperty stores val under key and updates the key index when key is indexed.
func (e *Edge) SetProperty(key string, val any) error {
	return e.g.setProperty(KindEdge, e.id, key, val)
}

// RemoveProperty deletes key and returns its previous value.
func (e *Edge) RemoveProperty(key string) (any, error) {
	return e.g.removeProperty(KindEdge, e.id, key)
}

// PropertyKeys lists the edge's property keys in ascending order.
func (e *Edge) PropertyKeys() ([]string, error) {
	return e.g.propertyKeys(KindEdge, e.id)
}

// Remove removes the edge from the graph.
func (e *Edge) Remove() error {
	return e.g.RemoveEdge(e)
}
