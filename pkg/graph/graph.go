// Package graph implements a mutable property graph on top of the ordered
// key-value store in package storage.
//
// Every structure is a range of composite keys (see package tuple):
//
//	0x02 / 0x03  vertex / edge id sets          (id)
//	0x04 / 0x05  vertex / edge properties       (id, key) -> value
//	0x06         adjacency                      (vertex, out, label, edge)
//	0x07 / 0x08  vertex / edge value index      (key, value, id)
//	0x09 / 0x0A  vertex / edge named indexes    (name, key, value, id)
//	0x0B / 0x0C  vertex / edge indexed keys     (key)
//	0x0D / 0x0E  vertex / edge index registry   (name)
//	0x0F / 0x10  named index entries by element (id, name, key, value)
//
// Element records (vertex: id; edge: id, out, in, label) are stored as storage
// records whose handle is the element id.
//
// Consistency model: a Graph assumes a single writer. Each logical mutation is a
// sequence of independent store writes with no surrounding transaction, so a crash
// or error part way through (for example in the middle of a cascading vertex
// removal) can leave derived structures out of step with the element records.
// Graph.Check reports such damage.
package graph

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/orneryd/kvgraph/pkg/logging"
	"github.com/orneryd/kvgraph/pkg/storage"
	"github.com/orneryd/kvgraph/pkg/value"
)

// Graph is a property graph stored in a storage.Store.
//
// Example:
//
//	g, err := graph.Open(graph.Options{Storage: storage.Options{DataDir: "./data"}})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer g.Shutdown()
//
//	alice, _ := g.AddVertex()
//	bob, _ := g.AddVertex()
//	alice.SetProperty("name", "alice")
//	g.AddEdge(alice, bob, "knows")
type Graph struct {
	store     *storage.Store
	ids       idAllocator
	elements  elementStore
	props     propertyStore
	adjacency adjacencyIndex
	keys      keyIndex
	named     namedIndexes

	mu       sync.Mutex
	shutdown bool
}

// Options configures Open.
type Options struct {
	Storage storage.Options

	// CompressionThreshold is the encoded size above which property values are
	// snappy-compressed. 0 uses value.DefaultCompressionThreshold; negative disables
	// compression.
	CompressionThreshold int
}

// New creates a Graph over an open store using the default value codec.
func New(store *storage.Store) *Graph {
	return NewWithCodec(store, value.DefaultCodec)
}

// NewWithCodec creates a Graph over an open store with a custom value codec.
func NewWithCodec(store *storage.Store, codec value.Codec) *Graph {
	props := propertyStore{store: store, codec: codec}
	return &Graph{
		store:     store,
		ids:       idAllocator{store: store},
		elements:  elementStore{store: store},
		props:     props,
		adjacency: adjacencyIndex{store: store},
		keys:      keyIndex{store: store, props: props},
		named:     namedIndexes{store: store},
	}
}

// Open opens the store described by opts and returns a Graph over it.
func Open(opts Options) (*Graph, error) {
	store, err := storage.Open(opts.Storage)
	if err != nil {
		return nil, err
	}
	codec := value.DefaultCodec
	if opts.CompressionThreshold != 0 {
		codec = value.Codec{CompressionThreshold: opts.CompressionThreshold}
	}
	return NewWithCodec(store, codec), nil
}

// OpenInMemory returns a Graph backed by an in-memory store, for tests.
func OpenInMemory() (*Graph, error) {
	return Open(Options{Storage: storage.Options{InMemory: true}})
}

// Store returns the underlying store.
func (g *Graph) Store() *storage.Store {
	return g.store
}

// Shutdown commits outstanding writes and closes the store.
// Calling Shutdown more than once is a no-op.
func (g *Graph) Shutdown() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.shutdown {
		return nil
	}
	g.shutdown = true

	commitErr := g.store.Commit()
	if err := g.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	if commitErr != nil {
		return fmt.Errorf("failed to commit: %w", commitErr)
	}
	return nil
}

func (g *Graph) String() string {
	dir := g.store.DataDir()
	if g.store.IsInMemory() {
		dir = "memory"
	}
	g.mu.Lock()
	closed := g.shutdown
	g.mu.Unlock()
	if closed {
		return fmt.Sprintf("kvgraph[%s CLOSED]", dir)
	}
	vertices, _ := g.elements.count(KindVertex)
	edges, _ := g.elements.count(KindEdge)
	return fmt.Sprintf("kvgraph[%s vertices:%d edges:%d]", dir, vertices, edges)
}

// Backup streams a consistent snapshot of the whole graph to w.
func (g *Graph) Backup(w io.Writer) error {
	_, err := g.store.Backup(w)
	return err
}

// ============================================================================
// Vertices
// ============================================================================

// AddVertex creates a vertex with no properties.
func (g *Graph) AddVertex() (*Vertex, error) {
	id, err := g.ids.reserve()
	if err != nil {
		return nil, err
	}
	if err := g.ids.finalize(id, encodeVertexRecord(id)); err != nil {
		return nil, err
	}
	if err := g.elements.add(KindVertex, id); err != nil {
		return nil, fmt.Errorf("failed to add vertex %d: %w", id, err)
	}
	return &Vertex{g: g, id: id}, nil
}

// GetVertex returns the vertex with the given id, or nil when there is none.
// Strings and other values are parsed as decimal ids; unparsable ids are treated as
// absent. A nil id returns ErrInvalidArgument.
func (g *Graph) GetVertex(id any) (*Vertex, error) {
	vid, ok, err := parseID(id)
	if err != nil || !ok {
		return nil, err
	}
	live, err := g.elements.contains(KindVertex, vid)
	if err != nil || !live {
		return nil, err
	}
	return &Vertex{g: g, id: vid}, nil
}

// RemoveVertex removes v, its properties, the named index entries referencing it,
// and every incident edge. It returns ErrIllegalState if v is not in the graph.
//
// The vertex record and membership are removed before incident edges, so an
// interrupted removal leaves orphaned edges rather than a half-removed vertex.
func (g *Graph) RemoveVertex(v *Vertex) error {
	if v == nil {
		return fmt.Errorf("%w: nil vertex", ErrInvalidArgument)
	}
	live, err := g.elements.contains(KindVertex, v.id)
	if err != nil {
		return err
	}
	if !live {
		return fmt.Errorf("%w: vertex %d does not exist", ErrIllegalState, v.id)
	}

	if err := g.clearProperties(KindVertex, v.id); err != nil {
		return err
	}
	if err := g.named.removeElement(KindVertex, v.id); err != nil {
		return fmt.Errorf("failed to clear index entries of vertex %d: %w", v.id, err)
	}
	if err := g.ids.release(v.id); err != nil {
		return fmt.Errorf("failed to delete vertex record %d: %w", v.id, err)
	}
	if err := g.elements.remove(KindVertex, v.id); err != nil {
		return err
	}

	// Materialize before removing: removal mutates the adjacency range being read.
	// A self-loop is removed with the Out edges and no longer listed for In.
	for _, dir := range []Direction{DirectionOut, DirectionIn} {
		ids, err := collectIDs(g.adjacency.query(v.id, dir, nil))
		if err != nil {
			return err
		}
		for _, id := range ids {
			e, err := g.GetEdge(id)
			if err != nil {
				return err
			}
			if e == nil {
				continue
			}
			if err := g.RemoveEdge(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// Vertices lists every vertex in id order.
func (g *Graph) Vertices() *Iterator[*Vertex] {
	return resolve(g.elements.ids(KindVertex), func(id ID) (*Vertex, bool, error) {
		return &Vertex{g: g, id: id}, true, nil
	})
}

// VerticesByValue lists the vertices whose property key equals v. Indexed keys are
// answered from the value index; other keys by scanning every vertex property.
func (g *Graph) VerticesByValue(key string, v any) *Iterator[*Vertex] {
	if v == nil {
		return errIterator[*Vertex](fmt.Errorf("%w: lookup value can not be nil", ErrInvalidArgument))
	}
	return resolve(g.keys.lookup(KindVertex, key, v), g.vertexResolver)
}

func (g *Graph) vertexResolver(id ID) (*Vertex, bool, error) {
	live, err := g.elements.contains(KindVertex, id)
	if err != nil || !live {
		return nil, false, err
	}
	return &Vertex{g: g, id: id}, true, nil
}

// ============================================================================
// Edges
// ============================================================================

// AddEdge creates an edge from out to in. The label must be non-empty and both
// vertices must be in the graph.
func (g *Graph) AddEdge(out, in *Vertex, label string) (*Edge, error) {
	if label == "" {
		return nil, fmt.Errorf("%w: edge label can not be empty", ErrInvalidArgument)
	}
	if out == nil || in == nil {
		return nil, fmt.Errorf("%w: edge endpoints can not be nil", ErrInvalidArgument)
	}
	for _, v := range []*Vertex{out, in} {
		live, err := g.elements.contains(KindVertex, v.id)
		if err != nil {
			return nil, err
		}
		if !live {
			return nil, fmt.Errorf("%w: vertex %d does not exist", ErrInvalidArgument, v.id)
		}
	}

	// Edge ids are fixed width, so a zero id sizes the real adjacency keys.
	if err := checkKeySize("edge label", adjacencyKey(out.id, true, label, 0), adjacencyKey(in.id, false, label, 0)); err != nil {
		return nil, err
	}

	id, err := g.ids.reserve()
	if err != nil {
		return nil, err
	}
	if err := g.ids.finalize(id, encodeEdgeRecord(id, out.id, in.id, label)); err != nil {
		return nil, err
	}
	if err := g.elements.add(KindEdge, id); err != nil {
		return nil, fmt.Errorf("failed to add edge %d: %w", id, err)
	}
	if err := g.adjacency.addEdgeEntries(out.id, in.id, label, id); err != nil {
		return nil, fmt.Errorf("failed to index edge %d: %w", id, err)
	}
	return &Edge{g: g, id: id, out: out.id, in: in.id, label: label}, nil
}

// GetEdge returns the edge with the given id, or nil when there is none.
// Id parsing follows GetVertex.
func (g *Graph) GetEdge(id any) (*Edge, error) {
	eid, ok, err := parseID(id)
	if err != nil || !ok {
		return nil, err
	}
	e, _, err := g.edgeResolver(eid)
	return e, err
}

func (g *Graph) edgeResolver(id ID) (*Edge, bool, error) {
	live, err := g.elements.contains(KindEdge, id)
	if err != nil || !live {
		return nil, false, err
	}
	data, err := g.store.GetRecord(uint64(id))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load edge %d: %w", id, err)
	}
	rec, err := decodeEdgeRecord(data)
	if err != nil {
		return nil, false, fmt.Errorf("edge %d: %w", id, err)
	}
	return &Edge{g: g, id: id, out: rec.out, in: rec.in, label: rec.label}, true, nil
}

// elementResolver returns a resolver producing Elements of kind.
func (g *Graph) elementResolver(kind Kind) func(ID) (Element, bool, error) {
	if kind == KindEdge {
		return func(id ID) (Element, bool, error) {
			e, ok, err := g.edgeResolver(id)
			if !ok {
				return nil, false, err
			}
			return e, true, nil
		}
	}
	return func(id ID) (Element, bool, error) {
		v, ok, err := g.vertexResolver(id)
		if !ok {
			return nil, false, err
		}
		return v, true, nil
	}
}

// RemoveEdge removes e, its properties, the named index entries referencing it and
// both adjacency entries. It returns ErrIllegalState if e is not in the graph.
func (g *Graph) RemoveEdge(e *Edge) error {
	if e == nil {
		return fmt.Errorf("%w: nil edge", ErrInvalidArgument)
	}
	stored, live, err := g.edgeResolver(e.id)
	if err != nil {
		return err
	}
	if !live {
		return fmt.Errorf("%w: edge %d does not exist", ErrIllegalState, e.id)
	}

	if err := g.clearProperties(KindEdge, e.id); err != nil {
		return err
	}
	if err := g.named.removeElement(KindEdge, e.id); err != nil {
		return fmt.Errorf("failed to clear index entries of edge %d: %w", e.id, err)
	}
	if err := g.ids.release(e.id); err != nil {
		return fmt.Errorf("failed to delete edge record %d: %w", e.id, err)
	}
	if err := g.elements.remove(KindEdge, e.id); err != nil {
		return err
	}
	return g.adjacency.removeEdgeEntries(stored.out, stored.in, stored.label, e.id)
}

// Edges lists every edge in id order.
func (g *Graph) Edges() *Iterator[*Edge] {
	return resolve(g.elements.ids(KindEdge), g.edgeResolver)
}

// EdgesByValue lists the edges whose property key equals v.
func (g *Graph) EdgesByValue(key string, v any) *Iterator[*Edge] {
	if v == nil {
		return errIterator[*Edge](fmt.Errorf("%w: lookup value can not be nil", ErrInvalidArgument))
	}
	return resolve(g.keys.lookup(KindEdge, key, v), g.edgeResolver)
}

// ============================================================================
// Properties
// ============================================================================

func (g *Graph) getProperty(kind Kind, id ID, key string) (any, error) {
	v, _, err := g.props.get(kind, id, key)
	return v, err
}

func (g *Graph) setProperty(kind Kind, id ID, key string, v any) error {
	n, err := validateProperty(key, v)
	if err != nil {
		return err
	}
	if err := g.ensureLive(kind, id); err != nil {
		return err
	}
	if err := checkKeySize(fmt.Sprintf("property %q", key), propKey(kind, id, key)); err != nil {
		return err
	}
	if err := g.keys.checkFits(kind, id, key, n); err != nil {
		return err
	}
	prev, existed, err := g.props.put(kind, id, key, n)
	if err != nil {
		return err
	}
	if err := g.keys.onPut(kind, id, key, prev, existed, n); err != nil {
		return fmt.Errorf("failed to update key index %q: %w", key, err)
	}
	return nil
}

func (g *Graph) removeProperty(kind Kind, id ID, key string) (any, error) {
	if err := g.ensureLive(kind, id); err != nil {
		return nil, err
	}
	prev, existed, err := g.props.remove(kind, id, key)
	if err != nil || !existed {
		return nil, err
	}
	if err := g.keys.onRemove(kind, id, key, prev); err != nil {
		return nil, fmt.Errorf("failed to update key index %q: %w", key, err)
	}
	return prev, nil
}

func (g *Graph) propertyKeys(kind Kind, id ID) ([]string, error) {
	return g.props.keysOf(kind, id)
}

// clearProperties removes every property of an element and the value index tuples
// of its indexed keys.
func (g *Graph) clearProperties(kind Kind, id ID) error {
	removed, err := g.props.clearAll(kind, id)
	if err != nil {
		return err
	}
	for _, p := range removed {
		if err := g.keys.onRemove(kind, id, p.key, p.value); err != nil {
			return fmt.Errorf("failed to update key index %q: %w", p.key, err)
		}
	}
	return nil
}

func (g *Graph) ensureLive(kind Kind, id ID) error {
	live, err := g.elements.contains(kind, id)
	if err != nil {
		return err
	}
	if !live {
		return fmt.Errorf("%w: %s %d does not exist", ErrIllegalState, kind, id)
	}
	return nil
}

// ============================================================================
// Key indexes
// ============================================================================

// CreateKeyIndex starts maintaining a value index for key on elements of kind and
// backfills it from the existing properties. Creating an existing key index is a
// no-op.
func (g *Graph) CreateKeyIndex(key string, kind Kind) error {
	if key == "" {
		return fmt.Errorf("%w: index key can not be empty", ErrInvalidArgument)
	}
	if !kind.valid() {
		return fmt.Errorf("%w: unknown element kind %d", ErrInvalidArgument, kind)
	}
	if err := checkKeySize("index key", indexedKeyKey(kind, key)); err != nil {
		return err
	}
	indexed, err := g.keys.isIndexed(kind, key)
	if err != nil || indexed {
		return err
	}
	_, err = g.keys.markIndexed(context.Background(), kind, key)
	return err
}

// DropKeyIndex stops maintaining the value index for key and deletes its entries.
func (g *Graph) DropKeyIndex(key string, kind Kind) error {
	if !kind.valid() {
		return fmt.Errorf("%w: unknown element kind %d", ErrInvalidArgument, kind)
	}
	return g.keys.unmarkIndexed(kind, key)
}

// IndexedKeys lists the keys with a value index for kind.
func (g *Graph) IndexedKeys(kind Kind) ([]string, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: unknown element kind %d", ErrInvalidArgument, kind)
	}
	return g.keys.indexedKeys(kind)
}

// ============================================================================
// Named indexes
// ============================================================================

// CreateIndex registers a named index for elements of kind. Index names share one
// namespace across kinds: a name registered for either kind is rejected with
// ErrInvalidArgument.
func (g *Graph) CreateIndex(name string, kind Kind) (*Index, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: index name can not be empty", ErrInvalidArgument)
	}
	if !kind.valid() {
		return nil, fmt.Errorf("%w: unknown element kind %d", ErrInvalidArgument, kind)
	}
	for _, k := range []Kind{KindVertex, KindEdge} {
		exists, err := g.named.registered(k, name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: index %q already exists", ErrInvalidArgument, name)
		}
	}
	if err := g.named.register(kind, name); err != nil {
		return nil, err
	}
	logging.Infof("[kvgraph] created %s index %q", kind, name)
	return &Index{g: g, name: name, kind: kind}, nil
}

// GetIndex returns the named index for kind, or nil when none is registered.
func (g *Graph) GetIndex(name string, kind Kind) (*Index, error) {
	exists, err := g.named.registered(kind, name)
	if err != nil || !exists {
		return nil, err
	}
	return &Index{g: g, name: name, kind: kind}, nil
}

// Indices lists every named index, vertex indexes first.
func (g *Graph) Indices() ([]*Index, error) {
	var out []*Index
	for _, kind := range []Kind{KindVertex, KindEdge} {
		names, err := g.named.names(kind)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			out = append(out, &Index{g: g, name: name, kind: kind})
		}
	}
	return out, nil
}

// DropIndex unregisters the named index from both kinds and deletes its entries.
// Dropping an unknown name is a no-op.
func (g *Graph) DropIndex(name string) error {
	for _, kind := range []Kind{KindVertex, KindEdge} {
		if err := g.named.drop(kind, name); err != nil {
			return fmt.Errorf("failed to drop index %q: %w", name, err)
		}
	}
	return nil
}

func collectIDs(src idSource) ([]ID, error) {
	var ids []ID
	for {
		id, ok, err := src()
		if err != nil {
			return nil, err
		}
		if !ok {
			return ids, nil
		}
		ids = append(ids, id)
	}
}
