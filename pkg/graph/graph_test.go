package graph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/orneryd/kvgraph/pkg/logging"
	"github.com/orneryd/kvgraph/pkg/storage"
	"github.com/orneryd/kvgraph/pkg/tuple"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helpers
// ============================================================================

// createTestGraph creates a Graph over an in-memory store.
func createTestGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		g.Shutdown()
	})
	return g
}

func mustVertex(t *testing.T, g *Graph) *Vertex {
	t.Helper()
	v, err := g.AddVertex()
	require.NoError(t, err)
	return v
}

func mustEdge(t *testing.T, g *Graph, out, in *Vertex, label string) *Edge {
	t.Helper()
	e, err := g.AddEdge(out, in, label)
	require.NoError(t, err)
	return e
}

func edgeIDs(t *testing.T, it *Iterator[*Edge]) []ID {
	t.Helper()
	edges, err := it.Collect()
	require.NoError(t, err)
	ids := []ID{}
	for _, e := range edges {
		ids = append(ids, e.ID())
	}
	return ids
}

func vertexIDs(t *testing.T, it *Iterator[*Vertex]) []ID {
	t.Helper()
	vertices, err := it.Collect()
	require.NoError(t, err)
	ids := []ID{}
	for _, v := range vertices {
		ids = append(ids, v.ID())
	}
	return ids
}

func sortIDs(ids []ID) []ID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// valueTuples returns the element ids of every value index tuple under key.
func valueTuples(t *testing.T, g *Graph, kind Kind, key string) []ID {
	t.Helper()
	lo, hi := tuple.New(prefixesFor(kind).values).String(key).Range()
	ids, err := collectIDs(cursorIDs(g.store.ScanKeys(lo, hi)))
	require.NoError(t, err)
	return ids
}

// ============================================================================
// Vertices and edges
// ============================================================================

func TestAddAndRemoveScenario(t *testing.T) {
	g := createTestGraph(t)

	v1 := mustVertex(t, g)
	v2 := mustVertex(t, g)
	e := mustEdge(t, g, v1, v2, "knows")

	assert.Equal(t, ID(1), v1.ID())
	assert.Equal(t, ID(2), v2.ID())
	assert.Equal(t, ID(3), e.ID())

	assert.Equal(t, []ID{3}, edgeIDs(t, v1.Edges(DirectionOut)))
	assert.Equal(t, []ID{3}, edgeIDs(t, v2.Edges(DirectionIn)))

	require.NoError(t, g.RemoveVertex(v1))

	got, err := g.GetEdge(ID(3))
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, edgeIDs(t, v2.Edges(DirectionIn)))
}

func TestGetVertex(t *testing.T) {
	g := createTestGraph(t)
	v := mustVertex(t, g)

	tests := []struct {
		name  string
		id    any
		found bool
	}{
		{"ID", v.ID(), true},
		{"uint64", uint64(v.ID()), true},
		{"int", int(v.ID()), true},
		{"string", v.ID().String(), true},
		{"padded string", " " + v.ID().String() + " ", true},
		{"non numeric string", "alice", false},
		{"negative int", -1, false},
		{"unknown id", ID(999), false},
		{"float formatting", 1.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.GetVertex(tt.id)
			require.NoError(t, err)
			if tt.found {
				require.NotNil(t, got)
				assert.Equal(t, v.ID(), got.ID())
			} else {
				assert.Nil(t, got)
			}
		})
	}

	t.Run("nil id is invalid", func(t *testing.T) {
		_, err := g.GetVertex(nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		_, err = g.GetEdge(nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("edge id is not a vertex", func(t *testing.T) {
		e := mustEdge(t, g, v, v, "self")
		got, err := g.GetVertex(e.ID())
		require.NoError(t, err)
		assert.Nil(t, got)

		gotEdge, err := g.GetEdge(e.ID().String())
		require.NoError(t, err)
		require.NotNil(t, gotEdge)
		assert.Equal(t, "self", gotEdge.Label())
		assert.Equal(t, v.ID(), gotEdge.OutID())
		assert.Equal(t, v.ID(), gotEdge.InID())
	})
}

func TestAddEdgeValidation(t *testing.T) {
	g := createTestGraph(t)
	v1 := mustVertex(t, g)
	v2 := mustVertex(t, g)

	_, err := g.AddEdge(v1, v2, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = g.AddEdge(nil, v2, "knows")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, v2.Remove())
	_, err = g.AddEdge(v1, v2, "knows")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	n, err := g.Edges().Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRemoveEdgeLeavesOtherAdjacency(t *testing.T) {
	g := createTestGraph(t)
	a := mustVertex(t, g)
	b := mustVertex(t, g)
	c := mustVertex(t, g)

	ab := mustEdge(t, g, a, b, "knows")
	ac := mustEdge(t, g, a, c, "knows")
	ba := mustEdge(t, g, b, a, "likes")

	require.NoError(t, g.RemoveEdge(ab))

	assert.Equal(t, []ID{ac.ID()}, edgeIDs(t, a.Edges(DirectionOut)))
	assert.Equal(t, []ID{ba.ID()}, edgeIDs(t, a.Edges(DirectionIn)))
	assert.Equal(t, []ID{ba.ID()}, edgeIDs(t, b.Edges(DirectionOut)))
	assert.Empty(t, edgeIDs(t, b.Edges(DirectionIn)))
	assert.Equal(t, []ID{ac.ID()}, edgeIDs(t, c.Edges(DirectionIn)))

	err := g.RemoveEdge(ab)
	assert.ErrorIs(t, err, ErrIllegalState)
}

func TestRemoveVertexCascades(t *testing.T) {
	g := createTestGraph(t)
	require.NoError(t, g.CreateKeyIndex("since", KindEdge))
	require.NoError(t, g.CreateKeyIndex("name", KindVertex))

	hub := mustVertex(t, g)
	other := mustVertex(t, g)
	require.NoError(t, hub.SetProperty("name", "hub"))
	require.NoError(t, hub.SetProperty("age", 3))

	out := mustEdge(t, g, hub, other, "knows")
	in := mustEdge(t, g, other, hub, "knows")
	loop := mustEdge(t, g, hub, hub, "self")
	require.NoError(t, out.SetProperty("since", 2020))
	require.NoError(t, in.SetProperty("since", 2021))

	keep := mustEdge(t, g, other, other, "self")

	require.NoError(t, g.RemoveVertex(hub))

	got, err := g.GetVertex(hub.ID())
	require.NoError(t, err)
	assert.Nil(t, got)

	keys, err := hub.PropertyKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	for _, e := range []*Edge{out, in, loop} {
		got, err := g.GetEdge(e.ID())
		require.NoError(t, err)
		assert.Nil(t, got, "edge %d should be removed", e.ID())

		keys, err := e.PropertyKeys()
		require.NoError(t, err)
		assert.Empty(t, keys)
	}

	assert.Empty(t, valueTuples(t, g, KindVertex, "name"))
	assert.Empty(t, valueTuples(t, g, KindEdge, "since"))

	assert.Equal(t, []ID{keep.ID()}, edgeIDs(t, other.Edges(DirectionOut)))
	assert.Equal(t, []ID{keep.ID()}, edgeIDs(t, other.Edges(DirectionIn)))

	assert.ErrorIs(t, g.RemoveVertex(hub), ErrIllegalState)

	report, err := g.Check(t.Context())
	require.NoError(t, err)
	assert.True(t, report.OK(), report.Problems)
}

func TestVertexEdgesQuery(t *testing.T) {
	g := createTestGraph(t)
	v := mustVertex(t, g)
	w := mustVertex(t, g)

	knows := mustEdge(t, g, v, w, "knows")
	likes := mustEdge(t, g, v, w, "likes")
	hates := mustEdge(t, g, v, w, "hates")
	loop := mustEdge(t, g, v, v, "self")
	back := mustEdge(t, g, w, v, "knows")

	t.Run("wildcard scans labels in key order", func(t *testing.T) {
		assert.Equal(t, []ID{hates.ID(), knows.ID(), likes.ID(), loop.ID()}, edgeIDs(t, v.Edges(DirectionOut)))
	})

	t.Run("labels are scanned in the order given", func(t *testing.T) {
		assert.Equal(t, []ID{likes.ID(), knows.ID()}, edgeIDs(t, v.Edges(DirectionOut, "likes", "knows")))
		assert.Empty(t, edgeIDs(t, v.Edges(DirectionOut, "unknown")))
	})

	t.Run("both lists out then in and repeats self loops", func(t *testing.T) {
		ids := edgeIDs(t, v.Edges(DirectionBoth, "self", "knows"))
		assert.Equal(t, []ID{loop.ID(), knows.ID(), loop.ID(), back.ID()}, ids)
	})

	t.Run("adjacent vertices", func(t *testing.T) {
		assert.Equal(t, []ID{w.ID(), w.ID()}, vertexIDs(t, v.Vertices(DirectionOut, "knows", "likes")))
		// In edges sort by label: back ("knows") before loop ("self").
		assert.Equal(t, []ID{w.ID(), v.ID()}, vertexIDs(t, v.Vertices(DirectionIn)))
	})

	t.Run("edge endpoints", func(t *testing.T) {
		tail, err := knows.Vertex(DirectionOut)
		require.NoError(t, err)
		assert.Equal(t, v.ID(), tail.ID())

		head, err := knows.Vertex(DirectionIn)
		require.NoError(t, err)
		assert.Equal(t, w.ID(), head.ID())

		_, err = knows.Vertex(DirectionBoth)
		assert.ErrorIs(t, err, ErrUnsupported)
	})
}

func TestVertexAddEdge(t *testing.T) {
	g := createTestGraph(t)
	v := mustVertex(t, g)
	w := mustVertex(t, g)

	e, err := v.AddEdge("knows", w)
	require.NoError(t, err)
	assert.Equal(t, v.ID(), e.OutID())
	assert.Equal(t, w.ID(), e.InID())
	assert.Equal(t, fmt.Sprintf("e[%d][%d-knows->%d]", e.ID(), v.ID(), w.ID()), e.String())
}

func TestAllVerticesAndEdges(t *testing.T) {
	g, err := Open(Options{Storage: storage.Options{InMemory: true, ScanPageSize: 2}})
	require.NoError(t, err)
	t.Cleanup(func() { g.Shutdown() })

	var want []ID
	var prev *Vertex
	var wantEdges []ID
	for i := 0; i < 7; i++ {
		v := mustVertex(t, g)
		want = append(want, v.ID())
		if prev != nil {
			wantEdges = append(wantEdges, mustEdge(t, g, prev, v, "next").ID())
		}
		prev = v
	}

	assert.Equal(t, want, vertexIDs(t, g.Vertices()))
	assert.Equal(t, wantEdges, edgeIDs(t, g.Edges()))
	assert.Contains(t, g.String(), "vertices:7 edges:6")
}

// ============================================================================
// Properties
// ============================================================================

func TestProperties(t *testing.T) {
	g := createTestGraph(t)
	v := mustVertex(t, g)

	t.Run("set get remove", func(t *testing.T) {
		require.NoError(t, v.SetProperty("name", "alice"))
		got, err := v.Property("name")
		require.NoError(t, err)
		assert.Equal(t, "alice", got)

		prev, err := v.RemoveProperty("name")
		require.NoError(t, err)
		assert.Equal(t, "alice", prev)

		got, err = v.Property("name")
		require.NoError(t, err)
		assert.Nil(t, got)

		prev, err = v.RemoveProperty("name")
		require.NoError(t, err)
		assert.Nil(t, prev)
	})

	t.Run("values are normalized", func(t *testing.T) {
		born := time.Date(1990, 5, 17, 8, 0, 0, 0, time.FixedZone("X", 3600))
		require.NoError(t, v.SetProperty("age", int32(30)))
		require.NoError(t, v.SetProperty("scores", []int{1, 2}))
		require.NoError(t, v.SetProperty("born", born))
		require.NoError(t, v.SetProperty("address", map[string]any{"city": "Oslo", "zip": uint8(1)}))

		age, err := v.Property("age")
		require.NoError(t, err)
		assert.Equal(t, int64(30), age)

		scores, err := v.Property("scores")
		require.NoError(t, err)
		assert.Equal(t, []any{int64(1), int64(2)}, scores)

		got, err := v.Property("born")
		require.NoError(t, err)
		assert.True(t, born.Equal(got.(time.Time)))

		addr, err := v.Property("address")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"city": "Oslo", "zip": int64(1)}, addr)
	})

	t.Run("large values round trip", func(t *testing.T) {
		big := strings.Repeat("lorem ipsum ", 1000)
		require.NoError(t, v.SetProperty("bio", big))
		got, err := v.Property("bio")
		require.NoError(t, err)
		assert.Equal(t, big, got)
	})

	t.Run("keys are sorted", func(t *testing.T) {
		w := mustVertex(t, g)
		for _, k := range []string{"b", "a", "c"} {
			require.NoError(t, w.SetProperty(k, true))
		}
		keys, err := w.PropertyKeys()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, keys)
	})

	t.Run("rejects reserved keys and bad values", func(t *testing.T) {
		for _, key := range []string{"", "id", "label"} {
			assert.ErrorIs(t, v.SetProperty(key, "x"), ErrInvalidArgument, "key %q", key)
		}
		assert.ErrorIs(t, v.SetProperty("k", nil), ErrInvalidArgument)
		assert.ErrorIs(t, v.SetProperty("k", struct{}{}), ErrInvalidArgument)
		assert.ErrorIs(t, v.SetProperty("k", []any{"a", nil}), ErrInvalidArgument)
	})

	t.Run("removed elements read empty and reject writes", func(t *testing.T) {
		w := mustVertex(t, g)
		require.NoError(t, w.SetProperty("name", "gone"))
		require.NoError(t, w.Remove())

		got, err := w.Property("name")
		require.NoError(t, err)
		assert.Nil(t, got)

		assert.ErrorIs(t, w.SetProperty("name", "back"), ErrIllegalState)
		_, err = w.RemoveProperty("name")
		assert.ErrorIs(t, err, ErrIllegalState)
	})

	t.Run("edge properties", func(t *testing.T) {
		e := mustEdge(t, g, v, v, "self")
		require.NoError(t, e.SetProperty("weight", 0.5))
		got, err := e.Property("weight")
		require.NoError(t, err)
		assert.Equal(t, 0.5, got)
		assert.ErrorIs(t, e.SetProperty("label", "x"), ErrInvalidArgument)
	})
}

// ============================================================================
// Key indexes
// ============================================================================

func TestKeyIndexKeepsOneTuplePerElement(t *testing.T) {
	g := createTestGraph(t)
	require.NoError(t, g.CreateKeyIndex("name", KindVertex))

	v := mustVertex(t, g)
	require.NoError(t, v.SetProperty("name", "alice"))
	require.NoError(t, v.SetProperty("name", "bob"))

	assert.Equal(t, []ID{v.ID()}, valueTuples(t, g, KindVertex, "name"))
	assert.Empty(t, vertexIDs(t, g.VerticesByValue("name", "alice")))
	assert.Equal(t, []ID{v.ID()}, vertexIDs(t, g.VerticesByValue("name", "bob")))

	_, err := v.RemoveProperty("name")
	require.NoError(t, err)
	assert.Empty(t, valueTuples(t, g, KindVertex, "name"))
}

func TestCreateKeyIndexMatchesLinearScan(t *testing.T) {
	g := createTestGraph(t)

	values := []any{"alice", "bob", "alice", int64(1), 1.0, "alice"}
	for _, val := range values {
		v := mustVertex(t, g)
		require.NoError(t, v.SetProperty("name", val))
		require.NoError(t, v.SetProperty("other", "alice"))
	}
	mustVertex(t, g)

	lookups := []any{"alice", "bob", int64(1), 1.0, "nobody"}
	before := map[any][]ID{}
	for _, val := range lookups {
		before[val] = sortIDs(vertexIDs(t, g.VerticesByValue("name", val)))
	}
	assert.Len(t, before["alice"], 3)
	assert.Len(t, before[int64(1)], 1, "ints and floats are distinct values")

	require.NoError(t, g.CreateKeyIndex("name", KindVertex))
	keys, err := g.IndexedKeys(KindVertex)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, keys)

	for _, val := range lookups {
		assert.Equal(t, before[val], sortIDs(vertexIDs(t, g.VerticesByValue("name", val))), "lookup %v", val)
	}

	require.NoError(t, g.DropKeyIndex("name", KindVertex))
	assert.Empty(t, valueTuples(t, g, KindVertex, "name"))
	keys, err = g.IndexedKeys(KindVertex)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, before["alice"], sortIDs(vertexIDs(t, g.VerticesByValue("name", "alice"))))
}

func TestScenarioIndexAfterWrite(t *testing.T) {
	g := createTestGraph(t)
	v1 := mustVertex(t, g)
	require.NoError(t, v1.SetProperty("name", "alice"))
	require.NoError(t, g.CreateKeyIndex("name", KindVertex))
	assert.Contains(t, vertexIDs(t, g.VerticesByValue("name", "alice")), v1.ID())
}

func TestEdgeKeyIndex(t *testing.T) {
	g := createTestGraph(t)
	v := mustVertex(t, g)
	w := mustVertex(t, g)
	e1 := mustEdge(t, g, v, w, "knows")
	e2 := mustEdge(t, g, w, v, "knows")
	require.NoError(t, e1.SetProperty("since", 2020))

	assert.Equal(t, []ID{e1.ID()}, edgeIDs(t, g.EdgesByValue("since", 2020)))

	require.NoError(t, g.CreateKeyIndex("since", KindEdge))
	require.NoError(t, e2.SetProperty("since", 2020))
	assert.Equal(t, []ID{e1.ID(), e2.ID()}, edgeIDs(t, g.EdgesByValue("since", 2020)))

	// Vertex and edge key indexes are independent.
	keys, err := g.IndexedKeys(KindVertex)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, e1.Remove())
	assert.Equal(t, []ID{e2.ID()}, valueTuples(t, g, KindEdge, "since"))
}

func TestKeyIndexValidation(t *testing.T) {
	g := createTestGraph(t)
	assert.ErrorIs(t, g.CreateKeyIndex("", KindVertex), ErrInvalidArgument)
	assert.ErrorIs(t, g.CreateKeyIndex("name", Kind(7)), ErrInvalidArgument)
	_, err := g.IndexedKeys(Kind(7))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = g.VerticesByValue("name", nil).Collect()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = g.EdgesByValue("name", struct{}{}).Collect()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, g.CreateKeyIndex("name", KindVertex))
	require.NoError(t, g.CreateKeyIndex("name", KindVertex))
	_, err = g.VerticesByValue("name", struct{}{}).Collect()
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func requireConsistent(t *testing.T, g *Graph) {
	t.Helper()
	report, err := g.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK(), "problems: %v", report.Problems)
}

func TestOversizedIndexedValueIsRejected(t *testing.T) {
	big := strings.Repeat("x", 70000)

	t.Run("set on indexed key", func(t *testing.T) {
		g := createTestGraph(t)
		require.NoError(t, g.CreateKeyIndex("bio", KindVertex))
		v := mustVertex(t, g)

		assert.ErrorIs(t, v.SetProperty("bio", big), ErrInvalidArgument)
		got, err := v.Property("bio")
		require.NoError(t, err)
		assert.Nil(t, got)
		requireConsistent(t, g)

		require.NoError(t, v.SetProperty("bio", "short"))
		assert.Equal(t, []ID{v.ID()}, valueTuples(t, g, KindVertex, "bio"))
	})

	t.Run("oversized value replaces indexed one", func(t *testing.T) {
		g := createTestGraph(t)
		require.NoError(t, g.CreateKeyIndex("bio", KindVertex))
		v := mustVertex(t, g)
		require.NoError(t, v.SetProperty("bio", "short"))

		assert.ErrorIs(t, v.SetProperty("bio", big), ErrInvalidArgument)
		got, err := v.Property("bio")
		require.NoError(t, err)
		assert.Equal(t, "short", got)
		requireConsistent(t, g)
	})

	t.Run("index over existing oversized value", func(t *testing.T) {
		g := createTestGraph(t)
		v := mustVertex(t, g)
		require.NoError(t, v.SetProperty("bio", big))

		assert.ErrorIs(t, g.CreateKeyIndex("bio", KindVertex), ErrInvalidArgument)
		keys, err := g.IndexedKeys(KindVertex)
		require.NoError(t, err)
		assert.Empty(t, keys)
		requireConsistent(t, g)

		assert.Equal(t, []ID{v.ID()}, vertexIDs(t, g.VerticesByValue("bio", big)))
	})

	t.Run("oversized property key", func(t *testing.T) {
		g := createTestGraph(t)
		v := mustVertex(t, g)
		assert.ErrorIs(t, v.SetProperty(big, "x"), ErrInvalidArgument)
		assert.ErrorIs(t, g.CreateKeyIndex(big, KindVertex), ErrInvalidArgument)
		requireConsistent(t, g)
	})
}

func TestAddEdgeOversizedLabel(t *testing.T) {
	g, err := Open(Options{Storage: storage.Options{DataDir: t.TempDir()}})
	require.NoError(t, err)
	defer g.Shutdown()

	a := mustVertex(t, g)
	b := mustVertex(t, g)

	_, err = g.AddEdge(a, b, strings.Repeat("l", 70000))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	n, err := g.Edges().Count()
	require.NoError(t, err)
	assert.Zero(t, n)
	requireConsistent(t, g)

	e := mustEdge(t, g, a, b, "knows")
	assert.Equal(t, []ID{e.ID()}, edgeIDs(t, a.Edges(DirectionOut)))
}

func TestBackfillLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	prevOut, prevFlags, prevLevel := log.Writer(), log.Flags(), logging.GetLevel()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
		logging.SetLevel(prevLevel)
	})

	g := createTestGraph(t)
	v := mustVertex(t, g)
	require.NoError(t, v.SetProperty("name", "alice"))
	require.NoError(t, v.SetProperty("age", 30))

	logging.SetLevel(logging.LevelInfo)
	require.NoError(t, g.CreateKeyIndex("name", KindVertex))
	assert.NotContains(t, buf.String(), "backfilled")

	logging.SetLevel(logging.LevelDebug)
	require.NoError(t, g.CreateKeyIndex("age", KindVertex))
	assert.Contains(t, buf.String(), "DEBUG [kvgraph] backfilled 1 entries")
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestShutdownIsIdempotent(t *testing.T) {
	g, err := OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, g.Shutdown())
	require.NoError(t, g.Shutdown())

	_, err = g.AddVertex()
	assert.True(t, errors.Is(err, storage.ErrStorageClosed))
	assert.Contains(t, g.String(), "CLOSED")
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Storage: storage.Options{DataDir: dir}}

	var lastID ID
	for round := 0; round < 3; round++ {
		g, err := Open(opts)
		require.NoError(t, err)

		if round == 0 {
			require.NoError(t, g.CreateKeyIndex("name", KindVertex))
			_, err := g.CreateIndex("byName", KindVertex)
			require.NoError(t, err)
		}

		v := mustVertex(t, g)
		assert.Greater(t, v.ID(), lastID, "ids are never reused")
		lastID = v.ID()
		require.NoError(t, v.SetProperty("name", fmt.Sprintf("v%d", round)))

		idx, err := g.GetIndex("byName", KindVertex)
		require.NoError(t, err)
		require.NotNil(t, idx)
		require.NoError(t, idx.Put("name", "same", v))

		n, err := g.Vertices().Count()
		require.NoError(t, err)
		assert.Equal(t, int64(round+1), n)

		count, err := idx.Count("name", "same")
		require.NoError(t, err)
		assert.Equal(t, int64(round+1), count)

		assert.Len(t, vertexIDs(t, g.VerticesByValue("name", "v0")), 1)
		require.NoError(t, g.Shutdown())
	}
}
