package storage

import "github.com/dgraph-io/badger/v4"

func (s *Store) ensureOpen() error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrStorageClosed
	}
	return nil
}

func (s *Store) withView(fn func(txn *badger.Txn) error) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.db.View(fn)
}

func (s *Store) withUpdate(fn func(txn *badger.Txn) error) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.db.Update(fn)
}
