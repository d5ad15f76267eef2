package graph

import (
	"github.com/orneryd/kvgraph/pkg/storage"
	"github.com/orneryd/kvgraph/pkg/tuple"
)

// adjacencyIndex keeps two entries per live edge: (out, true, label, edge) and
// (in, false, label, edge). Entries are derived from the edge record and are
// removed by rebuilding the exact keys, never by scanning.
type adjacencyIndex struct {
	store *storage.Store
}

func (a adjacencyIndex) addEdgeEntries(out, in ID, label string, edge ID) error {
	if err := a.store.Set(adjacencyKey(out, true, label, edge), nil); err != nil {
		return err
	}
	return a.store.Set(adjacencyKey(in, false, label, edge), nil)
}

func (a adjacencyIndex) removeEdgeEntries(out, in ID, label string, edge ID) error {
	if err := a.store.Delete(adjacencyKey(out, true, label, edge)); err != nil {
		return err
	}
	return a.store.Delete(adjacencyKey(in, false, label, edge))
}

func (a adjacencyIndex) hasEntry(vertex ID, out bool, label string, edge ID) (bool, error) {
	return a.store.Has(adjacencyKey(vertex, out, label, edge))
}

// query lists incident edge ids. With no labels the whole vertex+direction prefix
// is scanned; otherwise each label is scanned in turn. Both yields the Out scan
// followed by the In scan, so a self-loop appears twice.
func (a adjacencyIndex) query(vertex ID, dir Direction, labels []string) idSource {
	switch dir {
	case DirectionOut:
		return concatIDs(a.scans(vertex, true, labels)...)
	case DirectionIn:
		return concatIDs(a.scans(vertex, false, labels)...)
	case DirectionBoth:
		return concatIDs(append(a.scans(vertex, true, labels), a.scans(vertex, false, labels)...)...)
	}
	return emptyIDs
}

func (a adjacencyIndex) scans(vertex ID, out bool, labels []string) []func() idSource {
	base := tuple.New(prefixAdjacency).Uint64(uint64(vertex)).Bool(out)
	if len(labels) == 0 {
		return []func() idSource{a.scan(base)}
	}
	scans := make([]func() idSource, 0, len(labels))
	for _, label := range labels {
		scans = append(scans, a.scan(base.String(label)))
	}
	return scans
}

func (a adjacencyIndex) scan(prefix tuple.Key) func() idSource {
	return func() idSource {
		lo, hi := prefix.Range()
		return cursorIDs(a.store.ScanKeys(lo, hi))
	}
}
