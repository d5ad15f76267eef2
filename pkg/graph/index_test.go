package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func elementIDs(t *testing.T, it *Iterator[Element]) []ID {
	t.Helper()
	elems, err := it.Collect()
	require.NoError(t, err)
	ids := []ID{}
	for _, e := range elems {
		ids = append(ids, e.ID())
	}
	return ids
}

func TestNamedIndexScenario(t *testing.T) {
	g := createTestGraph(t)
	v1 := mustVertex(t, g)

	idx, err := g.CreateIndex("byName", KindVertex)
	require.NoError(t, err)
	assert.Equal(t, "byName", idx.Name())
	assert.Equal(t, KindVertex, idx.Kind())

	require.NoError(t, idx.Put("name", "alice", v1))
	assert.Contains(t, elementIDs(t, idx.Get("name", "alice")), v1.ID())

	require.NoError(t, idx.Remove("name", "alice", v1))
	assert.Empty(t, elementIDs(t, idx.Get("name", "alice")))

	require.NoError(t, g.DropIndex("byName"))
	got, err := g.GetIndex("byName", KindVertex)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNamedIndexNamespaceIsShared(t *testing.T) {
	g := createTestGraph(t)

	_, err := g.CreateIndex("things", KindVertex)
	require.NoError(t, err)

	_, err = g.CreateIndex("things", KindVertex)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = g.CreateIndex("things", KindEdge)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = g.CreateIndex("", KindEdge)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	edgeIdx, err := g.CreateIndex("links", KindEdge)
	require.NoError(t, err)

	got, err := g.GetIndex("links", KindVertex)
	require.NoError(t, err)
	assert.Nil(t, got, "lookup is per kind")

	indices, err := g.Indices()
	require.NoError(t, err)
	require.Len(t, indices, 2)
	assert.Equal(t, "things", indices[0].Name())
	assert.Equal(t, KindVertex, indices[0].Kind())
	assert.Equal(t, edgeIdx.String(), indices[1].String())

	require.NoError(t, g.DropIndex("things"))
	require.NoError(t, g.DropIndex("never-created"))
	_, err = g.CreateIndex("things", KindEdge)
	require.NoError(t, err)
}

func TestNamedIndexEntriesAreCallerManaged(t *testing.T) {
	g := createTestGraph(t)
	v := mustVertex(t, g)
	w := mustVertex(t, g)
	idx, err := g.CreateIndex("byName", KindVertex)
	require.NoError(t, err)

	require.NoError(t, v.SetProperty("name", "alice"))
	require.NoError(t, idx.Put("name", "alice", v))
	require.NoError(t, idx.Put("name", "alice", w))

	// Neither a new put nor a property change prunes the old tuple.
	require.NoError(t, v.SetProperty("name", "bob"))
	require.NoError(t, idx.Put("name", "bob", v))
	assert.Equal(t, []ID{v.ID(), w.ID()}, elementIDs(t, idx.Get("name", "alice")))
	assert.Equal(t, []ID{v.ID()}, elementIDs(t, idx.Get("name", "bob")))

	n, err := idx.Count("name", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Putting the same tuple twice stores it once.
	require.NoError(t, idx.Put("name", "bob", v))
	n, err = idx.Count("name", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNamedIndexCleanupOnElementRemoval(t *testing.T) {
	g := createTestGraph(t)
	v := mustVertex(t, g)
	w := mustVertex(t, g)
	e := mustEdge(t, g, v, w, "knows")

	vidx, err := g.CreateIndex("people", KindVertex)
	require.NoError(t, err)
	eidx, err := g.CreateIndex("links", KindEdge)
	require.NoError(t, err)

	require.NoError(t, vidx.Put("name", "alice", v))
	require.NoError(t, vidx.Put("tag", []string{"a", "b"}, v))
	require.NoError(t, vidx.Put("name", "walt", w))
	require.NoError(t, eidx.Put("kind", "friend", e))

	require.NoError(t, v.Remove())

	assert.Empty(t, elementIDs(t, vidx.Get("name", "alice")))
	assert.Empty(t, elementIDs(t, vidx.Get("tag", []string{"a", "b"})))
	assert.Empty(t, elementIDs(t, eidx.Get("kind", "friend")))
	assert.Equal(t, []ID{w.ID()}, elementIDs(t, vidx.Get("name", "walt")))

	// No forward or reverse entries remain for the removed elements.
	for _, prefix := range []byte{prefixVertexNamedByElem, prefixEdgeNamedByElem} {
		n, err := g.store.Count([]byte{prefix}, []byte{prefix + 1})
		require.NoError(t, err)
		if prefix == prefixVertexNamedByElem {
			assert.Equal(t, int64(1), n)
		} else {
			assert.Zero(t, n)
		}
	}
	n, err := g.store.Count([]byte{prefixVertexNamed}, []byte{prefixVertexNamed + 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNamedIndexValidation(t *testing.T) {
	g := createTestGraph(t)
	v := mustVertex(t, g)
	e := mustEdge(t, g, v, v, "self")

	idx, err := g.CreateIndex("people", KindVertex)
	require.NoError(t, err)

	assert.ErrorIs(t, idx.Put("name", "x", e), ErrInvalidArgument)
	assert.ErrorIs(t, idx.Put("name", nil, v), ErrInvalidArgument)
	assert.ErrorIs(t, idx.Put("name", struct{}{}, v), ErrInvalidArgument)
	assert.ErrorIs(t, idx.Put("name", "x", nil), ErrInvalidArgument)
	assert.ErrorIs(t, idx.Remove("name", "x", e), ErrInvalidArgument)

	_, err = idx.Query("name", "a*")
	assert.ErrorIs(t, err, ErrUnsupported)

	require.NoError(t, g.DropIndex("people"))
	assert.ErrorIs(t, idx.Put("name", "x", v), ErrIllegalState)
}

func TestNamedIndexPutRequiresLiveElement(t *testing.T) {
	g := createTestGraph(t)
	v := mustVertex(t, g)

	idx, err := g.CreateIndex("people", KindVertex)
	require.NoError(t, err)
	require.NoError(t, v.Remove())

	assert.ErrorIs(t, idx.Put("name", "x", v), ErrIllegalState)
	count, err := idx.Count("name", "x")
	require.NoError(t, err)
	assert.Zero(t, count)
	requireConsistent(t, g)
}

func TestDropIndexClearsEntries(t *testing.T) {
	g := createTestGraph(t)
	v := mustVertex(t, g)

	idx, err := g.CreateIndex("people", KindVertex)
	require.NoError(t, err)
	require.NoError(t, idx.Put("name", "alice", v))

	require.NoError(t, g.DropIndex("people"))

	for _, prefix := range []byte{prefixVertexNamed, prefixVertexNamedByElem} {
		n, err := g.store.Count([]byte{prefix}, []byte{prefix + 1})
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	idx, err = g.CreateIndex("people", KindVertex)
	require.NoError(t, err)
	assert.Empty(t, elementIDs(t, idx.Get("name", "alice")))
}
