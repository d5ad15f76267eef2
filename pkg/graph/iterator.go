package graph

import (
	"github.com/orneryd/kvgraph/pkg/storage"
)

// Iterator is a lazy, finite, forward-only sequence. It reads from the store as it
// advances and cannot be restarted.
//
// Removing elements while an iterator over the same structure is still being
// consumed may skip or repeat entries; collect the results first when mutating.
//
// Example:
//
//	it := v.Edges(graph.DirectionOut, "knows")
//	for it.Next() {
//		fmt.Println(it.Item().ID())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
type Iterator[T any] struct {
	next func() (T, bool, error)
	cur  T
	err  error
	done bool
}

func newIterator[T any](next func() (T, bool, error)) *Iterator[T] {
	return &Iterator[T]{next: next}
}

func errIterator[T any](err error) *Iterator[T] {
	return &Iterator[T]{err: err, done: true}
}

// Next advances to the next item and reports whether there is one.
func (it *Iterator[T]) Next() bool {
	if it.done {
		return false
	}
	item, ok, err := it.next()
	if err != nil {
		it.err = err
		it.done = true
		return false
	}
	if !ok {
		it.done = true
		return false
	}
	it.cur = item
	return true
}

// Item returns the current item.
func (it *Iterator[T]) Item() T {
	return it.cur
}

// Err returns the error that ended iteration, if any.
func (it *Iterator[T]) Err() error {
	return it.err
}

// Close stops the iterator; further calls to Next return false.
func (it *Iterator[T]) Close() {
	it.done = true
}

// Collect drains the iterator into a slice.
func (it *Iterator[T]) Collect() ([]T, error) {
	var out []T
	for it.Next() {
		out = append(out, it.Item())
	}
	if it.err != nil {
		return nil, it.err
	}
	return out, nil
}

// Count drains the iterator and returns the number of items.
func (it *Iterator[T]) Count() (int64, error) {
	var n int64
	for it.Next() {
		n++
	}
	return n, it.err
}

// idSource produces ids until ok is false.
type idSource func() (id ID, ok bool, err error)

// cursorIDs reads the trailing id of every key a cursor yields.
func cursorIDs(c *storage.Cursor) idSource {
	return func() (ID, bool, error) {
		if !c.Next() {
			return 0, false, c.Err()
		}
		id, err := idFromKey(c.Key())
		if err != nil {
			return 0, false, err
		}
		return id, true, nil
	}
}

// concatIDs drains each source in turn. Sources are created lazily, so a range
// scan does not start before the previous one is exhausted.
func concatIDs(sources ...func() idSource) idSource {
	var cur idSource
	return func() (ID, bool, error) {
		for {
			if cur == nil {
				if len(sources) == 0 {
					return 0, false, nil
				}
				cur = sources[0]()
				sources = sources[1:]
			}
			id, ok, err := cur()
			if err != nil {
				return 0, false, err
			}
			if ok {
				return id, true, nil
			}
			cur = nil
		}
	}
}

func emptyIDs() (ID, bool, error) {
	return 0, false, nil
}

// resolve maps ids to items, skipping ids for which fn reports ok == false.
func resolve[T any](src idSource, fn func(ID) (T, bool, error)) *Iterator[T] {
	return newIterator(func() (T, bool, error) {
		var zero T
		for {
			id, ok, err := src()
			if err != nil || !ok {
				return zero, false, err
			}
			item, ok, err := fn(id)
			if err != nil {
				return zero, false, err
			}
			if ok {
				return item, true, nil
			}
		}
	})
}
