package graph

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/orneryd/kvgraph/pkg/storage"
	"github.com/orneryd/kvgraph/pkg/tuple"
	"github.com/orneryd/kvgraph/pkg/value"
)

// property is one decoded PropertyStore entry.
type property struct {
	id    ID
	key   string
	value any
}

// propertyStore maps (element id, property key) to an encoded value. Entries of one
// element are contiguous, so keysOf and clearAll are bounded range operations.
type propertyStore struct {
	store *storage.Store
	codec value.Codec
}

// validateProperty rejects reserved keys and values outside the supported set and
// returns the normalized value.
func validateProperty(key string, v any) (any, error) {
	switch key {
	case "":
		return nil, fmt.Errorf("%w: property key can not be empty", ErrInvalidArgument)
	case "id", "label":
		return nil, fmt.Errorf("%w: property key %q is reserved", ErrInvalidArgument, key)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: property value can not be nil", ErrInvalidArgument)
	}
	n, err := value.Normalize(v)
	if err != nil {
		return nil, fmt.Errorf("%w: property %q: %v", ErrInvalidArgument, key, err)
	}
	return n, nil
}

func (p propertyStore) decode(data []byte) (any, error) {
	v, err := p.codec.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode property value: %w", err)
	}
	return v, nil
}

func (p propertyStore) get(kind Kind, id ID, key string) (any, bool, error) {
	data, err := p.store.Get(propKey(kind, id, key))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := p.decode(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// put stores a normalized value and returns the previous one.
func (p propertyStore) put(kind Kind, id ID, key string, v any) (prev any, existed bool, err error) {
	data, err := p.codec.Marshal(v)
	if err != nil {
		return nil, false, fmt.Errorf("%w: property %q: %v", ErrInvalidArgument, key, err)
	}
	old, existed, err := p.store.Swap(propKey(kind, id, key), data)
	if err != nil || !existed {
		return nil, false, err
	}
	prev, err = p.decode(old)
	if err != nil {
		return nil, false, err
	}
	return prev, true, nil
}

func (p propertyStore) remove(kind Kind, id ID, key string) (prev any, existed bool, err error) {
	old, existed, err := p.store.Remove(propKey(kind, id, key))
	if err != nil || !existed {
		return nil, false, err
	}
	prev, err = p.decode(old)
	if err != nil {
		return nil, false, err
	}
	return prev, true, nil
}

func (p propertyStore) keysOf(kind Kind, id ID) ([]string, error) {
	lo, hi := propPrefix(kind, id).Range()
	c := p.store.ScanKeys(lo, hi)
	keys := []string{}
	for c.Next() {
		_, key, err := decodePropKey(c.Key())
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, c.Err()
}

// clearAll deletes every property of an element and returns the removed entries
// so the caller can unwind derived index tuples.
func (p propertyStore) clearAll(kind Kind, id ID) ([]property, error) {
	lo, hi := propPrefix(kind, id).Range()
	c := p.store.Scan(lo, hi)
	var removed []property
	for c.Next() {
		prop, err := p.decodeEntry(c.Key(), c.Value())
		if err != nil {
			return nil, err
		}
		removed = append(removed, prop)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	if _, err := p.store.DeleteRange(lo, hi); err != nil {
		return nil, fmt.Errorf("failed to clear properties of %s %d: %w", kind, id, err)
	}
	return removed, nil
}

func decodePropKey(key []byte) (ID, string, error) {
	r := tuple.NewReader(key)
	id, name := ID(r.Uint64()), r.String()
	if err := r.Err(); err != nil {
		return 0, "", fmt.Errorf("corrupt property key: %w", err)
	}
	return id, name, nil
}

func (p propertyStore) decodeEntry(key, data []byte) (property, error) {
	id, name, err := decodePropKey(key)
	if err != nil {
		return property{}, err
	}
	v, err := p.decode(data)
	if err != nil {
		return property{}, err
	}
	return property{id: id, key: name, value: v}, nil
}

// scan calls fn for every property of kind in (id, key) order.
func (p propertyStore) scan(ctx context.Context, kind Kind, fn func(property) error) error {
	lo, hi := tuple.New(prefixesFor(kind).props).Range()
	return p.store.Stream(ctx, lo, hi, func(key, val []byte) error {
		prop, err := p.decodeEntry(key, val)
		if err != nil {
			return err
		}
		return fn(prop)
	})
}

// matching lazily lists the ids of elements holding key == v by scanning every
// property of kind.
func (p propertyStore) matching(kind Kind, key string, v any) idSource {
	target, err := value.Encode(v)
	if err != nil {
		return func() (ID, bool, error) {
			return 0, false, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}
	lo, hi := tuple.New(prefixesFor(kind).props).Range()
	c := p.store.Scan(lo, hi)
	return func() (ID, bool, error) {
		for c.Next() {
			id, name, err := decodePropKey(c.Key())
			if err != nil {
				return 0, false, err
			}
			if name != key {
				continue
			}
			v, err := p.decode(c.Value())
			if err != nil {
				return 0, false, err
			}
			if enc, err := value.Encode(v); err == nil && bytes.Equal(enc, target) {
				return id, true, nil
			}
		}
		return 0, false, c.Err()
	}
}
