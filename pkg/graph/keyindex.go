package graph

import (
	"context"
	"fmt"

	"github.com/orneryd/kvgraph/pkg/logging"
	"github.com/orneryd/kvgraph/pkg/storage"
	"github.com/orneryd/kvgraph/pkg/tuple"
)

// keyIndex maintains the indexed-keys sets and the automatic ValueIndex.
//
// For every indexed key k and element e holding v, the tuple (k, v, e) exists.
// Writes to an indexed key delete the tuple for the previous value before inserting
// the new one, so no stale (k, v_old, e) survives.
type keyIndex struct {
	store *storage.Store
	props propertyStore
}

func (x keyIndex) isIndexed(kind Kind, key string) (bool, error) {
	return x.store.Has(indexedKeyKey(kind, key))
}

func (x keyIndex) indexedKeys(kind Kind) ([]string, error) {
	lo, hi := tuple.New(prefixesFor(kind).indexedKeys).Range()
	c := x.store.ScanKeys(lo, hi)
	keys := []string{}
	for c.Next() {
		r := tuple.NewReader(c.Key())
		key := r.String()
		if err := r.Err(); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// markIndexed adds key to the indexed set, then backfills the ValueIndex from a full
// scan of the kind's properties. It returns the number of tuples written. If the
// backfill fails the key is unmarked again, so lookups never answer from a partial
// index.
func (x keyIndex) markIndexed(ctx context.Context, kind Kind, key string) (int, error) {
	if err := x.store.Set(indexedKeyKey(kind, key), nil); err != nil {
		return 0, err
	}
	n, err := x.backfill(ctx, kind, key)
	if err != nil {
		if uerr := x.unmarkIndexed(kind, key); uerr != nil {
			logging.Errorf("[kvgraph] %s key index %q left marked after failed backfill: %v", kind, key, uerr)
			return 0, fmt.Errorf("%w (unmarking %s key index %q also failed: %v)", err, kind, key, uerr)
		}
		return 0, err
	}
	if n > 0 {
		logging.Debugf("[kvgraph] backfilled %d entries for %s key index %q", n, kind, key)
	}
	return n, nil
}

func (x keyIndex) backfill(ctx context.Context, kind Kind, key string) (int, error) {
	// Collect first: the scan holds a read transaction open.
	var matches []property
	err := x.props.scan(ctx, kind, func(p property) error {
		if p.key == key {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to backfill %s key index %q: %w", kind, key, err)
	}

	// Build every tuple before writing any.
	tuples := make([]tuple.Key, 0, len(matches))
	for _, p := range matches {
		k, err := valueKey(kind, key, p.value, p.id)
		if err != nil {
			return 0, err
		}
		if err := checkKeySize(fmt.Sprintf("%s %d property %q", kind, p.id, key), k); err != nil {
			return 0, err
		}
		tuples = append(tuples, k)
	}
	for _, k := range tuples {
		if err := x.store.Set(k, nil); err != nil {
			return 0, fmt.Errorf("failed to backfill %s key index %q: %w", kind, key, err)
		}
	}
	return len(tuples), nil
}

// checkFits reports whether writing key = v on element id would produce a value
// index tuple the store refuses. Unindexed keys always fit.
func (x keyIndex) checkFits(kind Kind, id ID, key string, v any) error {
	indexed, err := x.isIndexed(kind, key)
	if err != nil || !indexed {
		return err
	}
	k, err := valueKey(kind, key, v, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return checkKeySize(fmt.Sprintf("property %q", key), k)
}

// unmarkIndexed removes key from the indexed set and clears its whole ValueIndex range.
func (x keyIndex) unmarkIndexed(kind Kind, key string) error {
	if err := x.store.Delete(indexedKeyKey(kind, key)); err != nil {
		return err
	}
	lo, hi := tuple.New(prefixesFor(kind).values).String(key).Range()
	if _, err := x.store.DeleteRange(lo, hi); err != nil {
		return fmt.Errorf("failed to clear %s key index %q: %w", kind, key, err)
	}
	return nil
}

func (x keyIndex) insert(kind Kind, key string, v any, id ID) error {
	k, err := valueKey(kind, key, v, id)
	if err != nil {
		return err
	}
	return x.store.Set(k, nil)
}

func (x keyIndex) delete(kind Kind, key string, v any, id ID) error {
	k, err := valueKey(kind, key, v, id)
	if err != nil {
		return err
	}
	return x.store.Delete(k)
}

func (x keyIndex) has(kind Kind, key string, v any, id ID) (bool, error) {
	k, err := valueKey(kind, key, v, id)
	if err != nil {
		return false, err
	}
	return x.store.Has(k)
}

// onPut keeps the ValueIndex in step with a property write.
func (x keyIndex) onPut(kind Kind, id ID, key string, prev any, existed bool, v any) error {
	indexed, err := x.isIndexed(kind, key)
	if err != nil || !indexed {
		return err
	}
	if existed {
		if err := x.delete(kind, key, prev, id); err != nil {
			return err
		}
	}
	return x.insert(kind, key, v, id)
}

// onRemove keeps the ValueIndex in step with a property removal.
func (x keyIndex) onRemove(kind Kind, id ID, key string, prev any) error {
	indexed, err := x.isIndexed(kind, key)
	if err != nil || !indexed {
		return err
	}
	return x.delete(kind, key, prev, id)
}

// lookup lists the ids of elements holding key == v: a range scan of the ValueIndex
// when key is indexed, otherwise a linear scan of every property.
func (x keyIndex) lookup(kind Kind, key string, v any) idSource {
	indexed, err := x.isIndexed(kind, key)
	if err != nil {
		return func() (ID, bool, error) { return 0, false, err }
	}
	if !indexed {
		return x.props.matching(kind, key, v)
	}
	prefix, err := valuePrefix(kind, key, v)
	if err != nil {
		return func() (ID, bool, error) { return 0, false, fmt.Errorf("%w: %v", ErrInvalidArgument, err) }
	}
	lo, hi := prefix.Range()
	return cursorIDs(x.store.ScanKeys(lo, hi))
}
