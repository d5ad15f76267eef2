package graph

import (
	"fmt"

	"github.com/orneryd/kvgraph/pkg/storage"
	"github.com/orneryd/kvgraph/pkg/tuple"
)

// Key prefixes for graph structures. 0x01, 0xF0 and 0xF1 are owned by the storage
// layer (records, metadata, record sequence).
const (
	prefixVertexSet         = byte(0x02) // vertex:id -> empty
	prefixEdgeSet           = byte(0x03) // edge:id -> empty
	prefixVertexProps       = byte(0x04) // vprop:id:key -> value
	prefixEdgeProps         = byte(0x05) // eprop:id:key -> value
	prefixAdjacency         = byte(0x06) // adj:vertex:out:label:edge -> empty
	prefixVertexValues      = byte(0x07) // vval:key:value:id -> empty
	prefixEdgeValues        = byte(0x08) // eval:key:value:id -> empty
	prefixVertexNamed       = byte(0x09) // vnamed:name:key:value:id -> empty
	prefixEdgeNamed         = byte(0x0A) // enamed:name:key:value:id -> empty
	prefixVertexIndexedKeys = byte(0x0B) // vkeys:key -> empty
	prefixEdgeIndexedKeys   = byte(0x0C) // ekeys:key -> empty
	prefixVertexRegistry    = byte(0x0D) // vindex:name -> empty
	prefixEdgeRegistry      = byte(0x0E) // eindex:name -> empty
	prefixVertexNamedByElem = byte(0x0F) // vnamedby:id:name:key:value -> empty
	prefixEdgeNamedByElem   = byte(0x10) // enamedby:id:name:key:value -> empty
)

// Record tags (first byte of a finalized record).
const (
	recordVertex = byte('V')
	recordEdge   = byte('E')
)

// kindPrefixes groups the per-kind structure prefixes.
type kindPrefixes struct {
	members     byte
	props       byte
	values      byte
	named       byte
	indexedKeys byte
	registry    byte
	namedByElem byte
}

var (
	vertexPrefixes = kindPrefixes{
		members:     prefixVertexSet,
		props:       prefixVertexProps,
		values:      prefixVertexValues,
		named:       prefixVertexNamed,
		indexedKeys: prefixVertexIndexedKeys,
		registry:    prefixVertexRegistry,
		namedByElem: prefixVertexNamedByElem,
	}
	edgePrefixes = kindPrefixes{
		members:     prefixEdgeSet,
		props:       prefixEdgeProps,
		values:      prefixEdgeValues,
		named:       prefixEdgeNamed,
		indexedKeys: prefixEdgeIndexedKeys,
		registry:    prefixEdgeRegistry,
		namedByElem: prefixEdgeNamedByElem,
	}
)

func prefixesFor(kind Kind) kindPrefixes {
	if kind == KindEdge {
		return edgePrefixes
	}
	return vertexPrefixes
}

// ============================================================================
// Records
// ============================================================================

func encodeVertexRecord(id ID) []byte {
	return tuple.New(recordVertex).Uint64(uint64(id))
}

func encodeEdgeRecord(id, out, in ID, label string) []byte {
	return tuple.New(recordEdge).Uint64(uint64(id)).Uint64(uint64(out)).Uint64(uint64(in)).String(label)
}

type edgeRecord struct {
	id, out, in ID
	label       string
}

func decodeEdgeRecord(data []byte) (edgeRecord, error) {
	if tuple.Prefix(data) != recordEdge {
		return edgeRecord{}, fmt.Errorf("not an edge record (tag 0x%02x)", tuple.Prefix(data))
	}
	r := tuple.NewReader(data)
	rec := edgeRecord{
		id:    ID(r.Uint64()),
		out:   ID(r.Uint64()),
		in:    ID(r.Uint64()),
		label: r.String(),
	}
	if err := r.Err(); err != nil {
		return edgeRecord{}, fmt.Errorf("corrupt edge record: %w", err)
	}
	return rec, nil
}

// ============================================================================
// Key builders
// ============================================================================

func memberKey(kind Kind, id ID) tuple.Key {
	return tuple.New(prefixesFor(kind).members).Uint64(uint64(id))
}

func propKey(kind Kind, id ID, key string) tuple.Key {
	return tuple.New(prefixesFor(kind).props).Uint64(uint64(id)).String(key)
}

func propPrefix(kind Kind, id ID) tuple.Key {
	return tuple.New(prefixesFor(kind).props).Uint64(uint64(id))
}

func adjacencyKey(vertex ID, out bool, label string, edge ID) tuple.Key {
	return tuple.New(prefixAdjacency).Uint64(uint64(vertex)).Bool(out).String(label).Uint64(uint64(edge))
}

func valueKey(kind Kind, key string, v any, id ID) (tuple.Key, error) {
	k, err := tuple.New(prefixesFor(kind).values).String(key).Value(v)
	if err != nil {
		return nil, err
	}
	return k.Uint64(uint64(id)), nil
}

func valuePrefix(kind Kind, key string, v any) (tuple.Key, error) {
	return tuple.New(prefixesFor(kind).values).String(key).Value(v)
}

func namedKey(kind Kind, name, key string, v any, id ID) (tuple.Key, error) {
	k, err := namedPrefix(kind, name, key, v)
	if err != nil {
		return nil, err
	}
	return k.Uint64(uint64(id)), nil
}

func namedPrefix(kind Kind, name, key string, v any) (tuple.Key, error) {
	return tuple.New(prefixesFor(kind).named).String(name).String(key).Value(v)
}

func namedByElemKey(kind Kind, id ID, name, key string, v any) (tuple.Key, error) {
	return tuple.New(prefixesFor(kind).namedByElem).Uint64(uint64(id)).String(name).String(key).Value(v)
}

func indexedKeyKey(kind Kind, key string) tuple.Key {
	return tuple.New(prefixesFor(kind).indexedKeys).String(key)
}

func registryKey(kind Kind, name string) tuple.Key {
	return tuple.New(prefixesFor(kind).registry).String(name)
}

// checkKeySize rejects keys the store would refuse, so a multi-step update can
// fail before its first write.
func checkKeySize(what string, keys ...tuple.Key) error {
	for _, k := range keys {
		if len(k) > storage.MaxKeySize {
			return fmt.Errorf("%w: %s too large to index (%d byte key, max %d)", ErrInvalidArgument, what, len(k), storage.MaxKeySize)
		}
	}
	return nil
}

func idFromKey(key []byte) (ID, error) {
	n, err := tuple.TrailingUint64(key)
	return ID(n), err
}
