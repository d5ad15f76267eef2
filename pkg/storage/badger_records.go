package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// PutRecord stores data under a freshly allocated handle and returns the handle.
// Handles come from a persistent sequence: they are never reused and the first
// handle of a new store is 1.
func (s *Store) PutRecord(data []byte) (uint64, error) {
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}

	id, err := s.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate record handle: %w", err)
	}
	// 0 is never handed out so a zero id can mean "no record".
	if id == 0 {
		if id, err = s.seq.Next(); err != nil {
			return 0, fmt.Errorf("failed to allocate record handle: %w", err)
		}
	}

	err = s.withUpdate(func(txn *badger.Txn) error {
		return txn.Set(recordKey(id), copyBytes(data))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to write record %d: %w", id, err)
	}
	return id, nil
}

// GetRecord returns the data stored under handle id, or ErrNotFound.
func (s *Store) GetRecord(id uint64) ([]byte, error) {
	var data []byte
	err := s.withView(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// UpdateRecord replaces the data of an existing record.
// Returns ErrNotFound if the handle was never allocated or has been deleted.
func (s *Store) UpdateRecord(id uint64, data []byte) error {
	return s.withUpdate(func(txn *badger.Txn) error {
		key := recordKey(id)
		if _, err := txn.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}
		return txn.Set(key, copyBytes(data))
	})
}

// DeleteRecord removes the record under handle id. Deleting a missing record is a no-op.
func (s *Store) DeleteRecord(id uint64) error {
	return s.withUpdate(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(id))
	})
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return append([]byte{}, b...)
}
