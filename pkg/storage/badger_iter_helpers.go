package storage

import (
	"bytes"

	"github.com/dgraph-io/badger/v4"
)

func badgerIterOptsKeyOnly(prefix []byte) badger.IteratorOptions {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	return opts
}

func badgerIterOptsPrefetchValues(prefix []byte, prefetchSize int) badger.IteratorOptions {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	if prefetchSize > 0 {
		opts.PrefetchSize = prefetchSize
	}
	opts.Prefix = prefix
	return opts
}

// rangeIterOpts returns iterator options for [lo, hi), restricting the badger
// iterator to the longest common prefix of the bounds.
func rangeIterOpts(lo, hi []byte, withValues bool, prefetchSize int) badger.IteratorOptions {
	prefix := commonPrefix(lo, hi)
	if withValues {
		return badgerIterOptsPrefetchValues(prefix, prefetchSize)
	}
	return badgerIterOptsKeyOnly(prefix)
}

func commonPrefix(lo, hi []byte) []byte {
	if hi == nil {
		return nil
	}
	n := 0
	for n < len(lo) && n < len(hi) && lo[n] == hi[n] {
		n++
	}
	return lo[:n:n]
}

// inRange reports whether key is below the exclusive upper bound hi (nil = unbounded).
func inRange(key, hi []byte) bool {
	return hi == nil || bytes.Compare(key, hi) < 0
}

// successor returns the smallest key strictly greater than key.
func successor(key []byte) []byte {
	out := make([]byte, len(key)+1)
	copy(out, key)
	return out
}
