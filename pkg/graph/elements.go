package graph

import (
	"github.com/orneryd/kvgraph/pkg/storage"
	"github.com/orneryd/kvgraph/pkg/tuple"
)

// elementStore is the membership oracle: one ordered id set per kind. An id is
// added only after its record has been finalized.
type elementStore struct {
	store *storage.Store
}

func (s elementStore) contains(kind Kind, id ID) (bool, error) {
	return s.store.Has(memberKey(kind, id))
}

func (s elementStore) add(kind Kind, id ID) error {
	return s.store.Set(memberKey(kind, id), nil)
}

func (s elementStore) remove(kind Kind, id ID) error {
	return s.store.Delete(memberKey(kind, id))
}

func (s elementStore) count(kind Kind) (int64, error) {
	lo, hi := tuple.New(prefixesFor(kind).members).Range()
	return s.store.Count(lo, hi)
}

// ids lazily lists the live ids of kind in ascending order.
func (s elementStore) ids(kind Kind) idSource {
	lo, hi := tuple.New(prefixesFor(kind).members).Range()
	return cursorIDs(s.store.ScanKeys(lo, hi))
}
