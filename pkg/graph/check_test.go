package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCheckGraph(t *testing.T) (*Graph, *Vertex, *Vertex, *Edge) {
	t.Helper()
	g := createTestGraph(t)
	require.NoError(t, g.CreateKeyIndex("name", KindVertex))
	v := mustVertex(t, g)
	w := mustVertex(t, g)
	e := mustEdge(t, g, v, w, "knows")
	require.NoError(t, v.SetProperty("name", "alice"))
	require.NoError(t, w.SetProperty("name", "bob"))
	return g, v, w, e
}

func TestCheckHealthyGraph(t *testing.T) {
	g, _, _, _ := buildCheckGraph(t)
	report, err := g.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK(), report.Problems)
	assert.Empty(t, report.Problems)
}

func TestCheckFindsDamage(t *testing.T) {
	t.Run("orphan property", func(t *testing.T) {
		g, v, _, _ := buildCheckGraph(t)
		require.NoError(t, g.elements.remove(KindVertex, v.ID()))

		report, err := g.Check(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.OrphanProperties)
		assert.False(t, report.OK())
	})

	t.Run("missing adjacency", func(t *testing.T) {
		g, v, _, e := buildCheckGraph(t)
		require.NoError(t, g.store.Delete(adjacencyKey(v.ID(), true, "knows", e.ID())))

		report, err := g.Check(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.MissingAdjacency)
		assert.Zero(t, report.DanglingAdjacency)
	})

	t.Run("dangling adjacency", func(t *testing.T) {
		g, v, w, e := buildCheckGraph(t)
		require.NoError(t, g.elements.remove(KindEdge, e.ID()))
		require.NoError(t, g.store.Set(adjacencyKey(w.ID(), true, "made-up", v.ID()), nil))

		report, err := g.Check(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, report.DanglingAdjacency)
	})

	t.Run("stale and missing value tuples", func(t *testing.T) {
		g, v, w, _ := buildCheckGraph(t)
		require.NoError(t, g.keys.insert(KindVertex, "name", "carol", v.ID()))
		require.NoError(t, g.keys.delete(KindVertex, "name", "bob", w.ID()))

		report, err := g.Check(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.StaleValueTuples)
		assert.Equal(t, 1, report.MissingValueTuples)
		assert.Len(t, report.Problems, 2)
	})

	t.Run("cancelled context", func(t *testing.T) {
		g, _, _, _ := buildCheckGraph(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := g.Check(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStats(t *testing.T) {
	g, _, _, _ := buildCheckGraph(t)
	_, err := g.CreateIndex("people", KindVertex)
	require.NoError(t, err)

	st, err := g.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Vertices)
	assert.Equal(t, int64(1), st.Edges)
	assert.Equal(t, []string{"name"}, st.VertexKeyIndexes)
	assert.Empty(t, st.EdgeKeyIndexes)
	assert.Equal(t, []string{"index[people:vertex]"}, st.Indexes)
}
