package storage

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// Count returns the number of keys in [lo, hi) using a key-only scan.
func (s *Store) Count(lo, hi []byte) (int64, error) {
	var count int64
	err := s.withView(func(txn *badger.Txn) error {
		it := txn.NewIterator(rangeIterOpts(lo, hi, false, 0))
		defer it.Close()

		for it.Seek(lo); it.Valid(); it.Next() {
			if !inRange(it.Item().Key(), hi) {
				break
			}
			count++
		}
		return nil
	})
	return count, err
}

// Stream calls fn for every entry in [lo, hi) inside a single read transaction.
// The key and value slices are only valid for the duration of the call.
// Returning ErrIterationStopped from fn ends the stream without error.
func (s *Store) Stream(ctx context.Context, lo, hi []byte, fn func(key, val []byte) error) error {
	return s.withView(func(txn *badger.Txn) error {
		it := txn.NewIterator(rangeIterOpts(lo, hi, true, 100))
		defer it.Close()

		for it.Seek(lo); it.Valid(); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			if !inRange(item.Key(), hi) {
				return nil
			}
			err := item.Value(func(val []byte) error {
				return fn(item.Key(), val)
			})
			if err != nil {
				if errors.Is(err, ErrIterationStopped) {
					return nil
				}
				return err
			}
		}
		return nil
	})
}

// RunGC runs garbage collection on the BadgerDB value log.
// Should be called periodically for long-running applications. Having nothing to
// collect is not an error.
func (s *Store) RunGC() error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if s.inMemory {
		return nil
	}
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
		return nil
	}
	return err
}

// Size returns the approximate size of the database in bytes.
func (s *Store) Size() (lsm, vlog int64) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return 0, 0
	}
	s.mu.RUnlock()

	return s.db.Size()
}
