package graph

import (
	"fmt"

	"github.com/orneryd/kvgraph/pkg/storage"
	"github.com/orneryd/kvgraph/pkg/tuple"
)

// Index is a named, caller-managed index mapping (key, value) pairs to elements of
// one kind.
//
// Entries are never derived from or pruned on property changes: putting a new value
// for an element does not remove the tuple for its previous value. Keeping the index
// in step with the data is the caller's job. Entries referencing an element are
// removed when the element itself is removed.
//
// Example:
//
//	idx, _ := g.CreateIndex("byName", graph.KindVertex)
//	idx.Put("name", "alice", v)
//	it := idx.Get("name", "alice")
type Index struct {
	g    *Graph
	name string
	kind Kind
}

// Name returns the index name.
func (ix *Index) Name() string { return ix.name }

// Kind returns the element kind the index holds.
func (ix *Index) Kind() Kind { return ix.kind }

func (ix *Index) String() string {
	return fmt.Sprintf("index[%s:%s]", ix.name, ix.kind)
}

func (ix *Index) checkElement(elem Element) error {
	if elem == nil {
		return fmt.Errorf("%w: nil element", ErrInvalidArgument)
	}
	if elem.Kind() != ix.kind {
		return fmt.Errorf("%w: index %q holds %s elements, got %s", ErrInvalidArgument, ix.name, ix.kind, elem.Kind())
	}
	return nil
}

func (ix *Index) ensureRegistered() error {
	ok, err := ix.g.store.Has(registryKey(ix.kind, ix.name))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: index %q has been dropped", ErrIllegalState, ix.name)
	}
	return nil
}

// Put adds the tuple (key, v, elem) to the index. elem must be in the graph.
func (ix *Index) Put(key string, v any, elem Element) error {
	if err := ix.checkElement(elem); err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("%w: index value can not be nil", ErrInvalidArgument)
	}
	if err := ix.ensureRegistered(); err != nil {
		return err
	}
	fwd, err := namedKey(ix.kind, ix.name, key, v, elem.ID())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	rev, err := namedByElemKey(ix.kind, elem.ID(), ix.name, key, v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := checkKeySize(fmt.Sprintf("index %q entry", ix.name), fwd, rev); err != nil {
		return err
	}
	if err := ix.g.ensureLive(ix.kind, elem.ID()); err != nil {
		return err
	}
	if err := ix.g.store.Set(fwd, nil); err != nil {
		return err
	}
	return ix.g.store.Set(rev, nil)
}

// Get lists the live elements indexed under (key, v).
func (ix *Index) Get(key string, v any) *Iterator[Element] {
	prefix, err := namedPrefix(ix.kind, ix.name, key, v)
	if err != nil {
		return errIterator[Element](fmt.Errorf("%w: %v", ErrInvalidArgument, err))
	}
	lo, hi := prefix.Range()
	return resolve(cursorIDs(ix.g.store.ScanKeys(lo, hi)), ix.g.elementResolver(ix.kind))
}

// Count returns the number of live elements indexed under (key, v).
func (ix *Index) Count(key string, v any) (int64, error) {
	return ix.Get(key, v).Count()
}

// Query is not supported: the index only answers exact (key, value) lookups.
func (ix *Index) Query(key string, query any) (*Iterator[Element], error) {
	return nil, fmt.Errorf("%w: index %q does not support queries", ErrUnsupported, ix.name)
}

// Remove deletes exactly the tuple (key, v, elem).
func (ix *Index) Remove(key string, v any, elem Element) error {
	if err := ix.checkElement(elem); err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("%w: index value can not be nil", ErrInvalidArgument)
	}
	fwd, err := namedKey(ix.kind, ix.name, key, v, elem.ID())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	rev, err := namedByElemKey(ix.kind, elem.ID(), ix.name, key, v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := ix.g.store.Delete(fwd); err != nil {
		return err
	}
	return ix.g.store.Delete(rev)
}

// ============================================================================
// Registry
// ============================================================================

// namedIndexes manages the per-kind index registries and the reverse
// (element-first) entries used to clean up after element removal.
type namedIndexes struct {
	store *storage.Store
}

func (n namedIndexes) registered(kind Kind, name string) (bool, error) {
	return n.store.Has(registryKey(kind, name))
}

func (n namedIndexes) register(kind Kind, name string) error {
	return n.store.Set(registryKey(kind, name), nil)
}

func (n namedIndexes) names(kind Kind) ([]string, error) {
	lo, hi := tuple.New(prefixesFor(kind).registry).Range()
	c := n.store.ScanKeys(lo, hi)
	var names []string
	for c.Next() {
		r := tuple.NewReader(c.Key())
		name := r.String()
		if err := r.Err(); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// drop unregisters name for kind and clears its entries in both directions.
func (n namedIndexes) drop(kind Kind, name string) error {
	if err := n.store.Delete(registryKey(kind, name)); err != nil {
		return err
	}

	lo, hi := tuple.New(prefixesFor(kind).named).String(name).Range()
	c := n.store.ScanKeys(lo, hi)
	for c.Next() {
		r := tuple.NewReader(c.Key())
		_ = r.String()
		key := r.String()
		v := r.Value()
		id := ID(r.Uint64())
		if err := r.Err(); err != nil {
			return fmt.Errorf("corrupt named index key: %w", err)
		}
		rev, err := namedByElemKey(kind, id, name, key, v)
		if err != nil {
			return err
		}
		if err := n.store.Delete(rev); err != nil {
			return err
		}
	}
	if err := c.Err(); err != nil {
		return err
	}
	_, err := n.store.DeleteRange(lo, hi)
	return err
}

// removeElement deletes every named index tuple referencing id.
func (n namedIndexes) removeElement(kind Kind, id ID) error {
	lo, hi := tuple.New(prefixesFor(kind).namedByElem).Uint64(uint64(id)).Range()
	c := n.store.ScanKeys(lo, hi)
	for c.Next() {
		r := tuple.NewReader(c.Key())
		r.Uint64()
		name := r.String()
		key := r.String()
		v := r.Value()
		if err := r.Err(); err != nil {
			return fmt.Errorf("corrupt named index key: %w", err)
		}
		fwd, err := namedKey(kind, name, key, v, id)
		if err != nil {
			return err
		}
		if err := n.store.Delete(fwd); err != nil {
			return err
		}
	}
	if err := c.Err(); err != nil {
		return err
	}
	_, err := n.store.DeleteRange(lo, hi)
	return err
}
