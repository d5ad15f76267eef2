package graph

// Stats summarizes the contents of a graph.
type Stats struct {
	Vertices         int64
	Edges            int64
	VertexKeyIndexes []string
	EdgeKeyIndexes   []string
	Indexes          []string
	LSMBytes         int64
	VlogBytes        int64
}

// Stats counts elements and lists the configured indexes.
func (g *Graph) Stats() (Stats, error) {
	var st Stats
	var err error
	if st.Vertices, err = g.elements.count(KindVertex); err != nil {
		return Stats{}, err
	}
	if st.Edges, err = g.elements.count(KindEdge); err != nil {
		return Stats{}, err
	}
	if st.VertexKeyIndexes, err = g.keys.indexedKeys(KindVertex); err != nil {
		return Stats{}, err
	}
	if st.EdgeKeyIndexes, err = g.keys.indexedKeys(KindEdge); err != nil {
		return Stats{}, err
	}
	indexes, err := g.Indices()
	if err != nil {
		return Stats{}, err
	}
	for _, ix := range indexes {
		st.Indexes = append(st.Indexes, ix.String())
	}
	st.LSMBytes, st.VlogBytes = g.store.Size()
	return st, nil
}
