package graph

import "fmt"

// Vertex is a handle to a vertex. It holds only the id; all state lives in the
// store, so a handle to a removed vertex reads as empty and rejects writes.
type Vertex struct {
	g  *Graph
	id ID
}

var _ Element = (*Vertex)(nil)

// ID returns the vertex id.
func (v *Vertex) ID() ID { return v.id }

// Kind returns KindVertex.
func (v *Vertex) Kind() Kind { return KindVertex }

func (v *Vertex) String() string {
	return fmt.Sprintf("v[%d]", v.id)
}

// Property returns the value of key, or nil.
func (v *Vertex) Property(key string) (any, error) {
	return v.g.getProperty(KindVertex, v.id, key)
}

// SetProperty stores val under key and updates the key index when key is indexed.
func (v *Vertex) SetProperty(key string, val any) error {
	return v.g.setProperty(KindVertex, v.id, key, val)
}

// RemoveProperty deletes key and returns its previous value.
func (v *Vertex) RemoveProperty(key string) (any, error) {
	return v.g.removeProperty(KindVertex, v.id, key)
}

// PropertyKeys lists the vertex's property keys in ascending order.
func (v *Vertex) PropertyKeys() ([]string, error) {
	return v.g.propertyKeys(KindVertex, v.id)
}

// Remove removes the vertex and its incident edges from the graph.
func (v *Vertex) Remove() error {
	return v.g.RemoveVertex(v)
}

// Edges lists the incident edges in direction dir, restricted to labels when any are
// given. With DirectionBoth, outgoing edges come first and a self-loop is listed twice.
func (v *Vertex) Edges(dir Direction, labels ...string) *Iterator[*Edge] {
	return resolve(v.g.adjacency.query(v.id, dir, labels), v.g.edgeResolver)
}

// Vertices lists the vertices at the other end of the incident edges in direction
// dir, in the same order as Edges.
func (v *Vertex) Vertices(dir Direction, labels ...string) *Iterator[*Vertex] {
	edges := v.Edges(dir, labels...)
	return newIterator(func() (*Vertex, bool, error) {
		if !edges.Next() {
			return nil, false, edges.Err()
		}
		e := edges.Item()
		other := e.in
		if e.in == v.id {
			other = e.out
		}
		return &Vertex{g: v.g, id: other}, true, nil
	})
}

// AddEdge creates an edge from v to in with the given label.
func (v *Vertex) AddEdge(label string, in *Vertex) (*Edge, error) {
	return v.g.AddEdge(v, in, label)
}
