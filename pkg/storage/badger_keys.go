package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Set writes key -> val, replacing any existing value.
func (s *Store) Set(key, val []byte) error {
	return s.withUpdate(func(txn *badger.Txn) error {
		return txn.Set(copyBytes(key), copyBytes(val))
	})
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.withView(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Has reports whether key exists.
func (s *Store) Has(key []byte) (bool, error) {
	found := false
	err := s.withView(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *Store) Delete(key []byte) error {
	return s.withUpdate(func(txn *badger.Txn) error {
		return txn.Delete(copyBytes(key))
	})
}

// Swap writes key -> val and returns the previous value, if any.
func (s *Store) Swap(key, val []byte) (prev []byte, existed bool, err error) {
	err = s.withUpdate(func(txn *badger.Txn) error {
		prev, existed, err = getInTxn(txn, key)
		if err != nil {
			return err
		}
		return txn.Set(copyBytes(key), copyBytes(val))
	})
	if err != nil {
		return nil, false, err
	}
	return prev, existed, nil
}

// Remove deletes key and returns the value it held, if any.
func (s *Store) Remove(key []byte) (prev []byte, existed bool, err error) {
	err = s.withUpdate(func(txn *badger.Txn) error {
		prev, existed, err = getInTxn(txn, key)
		if err != nil || !existed {
			return err
		}
		return txn.Delete(copyBytes(key))
	})
	if err != nil {
		return nil, false, err
	}
	return prev, existed, nil
}

func getInTxn(txn *badger.Txn, key []byte) ([]byte, bool, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// DeleteRange removes every key in [lo, hi) and returns how many were removed.
// A nil hi means "to the end of the keyspace". Keys are collected page by page and
// deleted with a write batch, so the removal is not atomic.
func (s *Store) DeleteRange(lo, hi []byte) (int, error) {
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}

	removed := 0
	next := lo
	for {
		keys, more, err := s.readPage(next, hi, false)
		if err != nil {
			return removed, err
		}
		if len(keys) == 0 {
			return removed, nil
		}

		wb := s.db.NewWriteBatch()
		for _, kv := range keys {
			if err := wb.Delete(kv.Key); err != nil {
				wb.Cancel()
				return removed, fmt.Errorf("failed to delete range: %w", err)
			}
		}
		if err := wb.Flush(); err != nil {
			return removed, fmt.Errorf("failed to delete range: %w", err)
		}
		removed += len(keys)

		if !more {
			return removed, nil
		}
		next = successor(keys[len(keys)-1].Key)
	}
}

// GetMeta returns store metadata stored under name, or ErrNotFound.
func (s *Store) GetMeta(name string) ([]byte, error) {
	return s.Get(metaKey(name))
}

// SetMeta stores metadata under name.
func (s *Store) SetMeta(name string, val []byte) error {
	return s.Set(metaKey(name), val)
}
