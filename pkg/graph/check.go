package graph

import (
	"context"
	"fmt"

	"github.com/orneryd/kvgraph/pkg/logging"
	"github.com/orneryd/kvgraph/pkg/tuple"
	"github.com/orneryd/kvgraph/pkg/value"
)

// maxReportedProblems caps CheckReport.Problems; the counters keep counting.
const maxReportedProblems = 100

// CheckReport lists inconsistencies between element records and derived structures.
type CheckReport struct {
	OrphanProperties   int // properties of elements not in the graph
	MissingAdjacency   int // live edges lacking one of their two adjacency entries
	DanglingAdjacency  int // adjacency entries not matching a live edge
	MissingValueTuples int // indexed properties without a value index tuple
	StaleValueTuples   int // value index tuples not matching a property
	Problems           []string
}

// OK reports whether no inconsistency was found.
func (r *CheckReport) OK() bool {
	return r.OrphanProperties+r.MissingAdjacency+r.DanglingAdjacency+r.MissingValueTuples+r.StaleValueTuples == 0
}

func (r *CheckReport) add(counter *int, format string, args ...any) {
	*counter++
	if len(r.Problems) < maxReportedProblems {
		r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
	}
}

// Check scans the graph for damage left by interrupted multi-step updates. It reads
// only; repairing is left to the caller.
func (g *Graph) Check(ctx context.Context) (*CheckReport, error) {
	report := &CheckReport{}
	for _, kind := range []Kind{KindVertex, KindEdge} {
		if err := g.checkProperties(ctx, kind, report); err != nil {
			return nil, err
		}
		if err := g.checkValueIndex(ctx, kind, report); err != nil {
			return nil, err
		}
	}
	if err := g.checkAdjacency(ctx, report); err != nil {
		return nil, err
	}
	if !report.OK() {
		logging.Warningf("[kvgraph] consistency check found %d problem(s)", len(report.Problems))
	}
	return report, nil
}

// checkProperties finds orphaned properties and indexed properties with no value
// index tuple.
func (g *Graph) checkProperties(ctx context.Context, kind Kind, report *CheckReport) error {
	indexed, err := g.keys.indexedKeys(kind)
	if err != nil {
		return err
	}
	isIndexed := make(map[string]bool, len(indexed))
	for _, k := range indexed {
		isIndexed[k] = true
	}

	return g.props.scan(ctx, kind, func(p property) error {
		live, err := g.elements.contains(kind, p.id)
		if err != nil {
			return err
		}
		if !live {
			report.add(&report.OrphanProperties, "%s %d: property %q of missing element", kind, p.id, p.key)
			return nil
		}
		if !isIndexed[p.key] {
			return nil
		}
		ok, err := g.keys.has(kind, p.key, p.value, p.id)
		if err != nil {
			return err
		}
		if !ok {
			report.add(&report.MissingValueTuples, "%s %d: indexed property %q has no value index entry", kind, p.id, p.key)
		}
		return nil
	})
}

// checkValueIndex finds value index tuples that no longer match a property.
func (g *Graph) checkValueIndex(ctx context.Context, kind Kind, report *CheckReport) error {
	lo, hi := tuple.New(prefixesFor(kind).values).Range()
	return g.store.Stream(ctx, lo, hi, func(key, _ []byte) error {
		r := tuple.NewReader(key)
		name := r.String()
		v := r.Value()
		id := ID(r.Uint64())
		if err := r.Err(); err != nil {
			return fmt.Errorf("corrupt value index key: %w", err)
		}
		current, ok, err := g.props.get(kind, id, name)
		if err != nil {
			return err
		}
		if !ok {
			report.add(&report.StaleValueTuples, "%s %d: value index entry for %q without property", kind, id, name)
			return nil
		}
		if !value.Equal(current, v) {
			report.add(&report.StaleValueTuples, "%s %d: value index entry for %q holds an old value", kind, id, name)
		}
		return nil
	})
}

// checkAdjacency verifies both adjacency entries of every live edge and that every
// adjacency entry belongs to a live edge with matching endpoints and label.
func (g *Graph) checkAdjacency(ctx context.Context, report *CheckReport) error {
	edges := g.Edges()
	for edges.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := edges.Item()
		for _, side := range []struct {
			vertex ID
			out    bool
		}{{e.out, true}, {e.in, false}} {
			ok, err := g.adjacency.hasEntry(side.vertex, side.out, e.label, e.id)
			if err != nil {
				return err
			}
			if !ok {
				report.add(&report.MissingAdjacency, "edge %d: missing adjacency entry at vertex %d", e.id, side.vertex)
			}
		}
	}
	if err := edges.Err(); err != nil {
		return err
	}

	lo, hi := tuple.New(prefixAdjacency).Range()
	return g.store.Stream(ctx, lo, hi, func(key, _ []byte) error {
		r := tuple.NewReader(key)
		vertex := ID(r.Uint64())
		out := r.Bool()
		label := r.String()
		id := ID(r.Uint64())
		if err := r.Err(); err != nil {
			return fmt.Errorf("corrupt adjacency key: %w", err)
		}
		e, ok, err := g.edgeResolver(id)
		if err != nil {
			return err
		}
		endpoint := ID(0)
		if ok {
			endpoint = e.in
			if out {
				endpoint = e.out
			}
		}
		if !ok || endpoint != vertex || e.label != label {
			report.add(&report.DanglingAdjacency, "adjacency entry (%d, %t, %q, %d) has no matching edge", vertex, out, label, id)
		}
		return nil
	})
}
