package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Backup streams a full, consistent snapshot of the store to w using BadgerDB's
// backup format. It returns the version the snapshot was taken at.
func (s *Store) Backup(w io.Writer) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStorageClosed
	}

	// since=0 means full backup
	version, err := s.db.Backup(w, 0)
	if err != nil {
		return 0, fmt.Errorf("backup failed: %w", err)
	}
	return version, nil
}

// BackupToFile writes a full backup to path and syncs it to disk.
func (s *Store) BackupToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	buf := bufio.NewWriterSize(f, 4*1024*1024)
	if _, err := s.Backup(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush backup: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync backup: %w", err)
	}
	return nil
}

// Restore loads a backup produced by Backup into the store. The store should be
// empty and idle; existing keys with the same names are overwritten.
//
// After loading, the record handle lease is renewed from the restored sequence so
// handles used by restored records are never allocated again.
func (s *Store) Restore(r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStorageClosed
	}
	if err := s.db.Load(r, 256); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	return s.renewSequence()
}

func (s *Store) renewSequence() error {
	key := []byte{prefixSequence}

	var restored uint64
	err := s.db.View(func(txn *badger.Txn) error {
		v, ok, err := getInTxn(txn, key)
		if err != nil || !ok || len(v) != 8 {
			return err
		}
		restored = binary.BigEndian.Uint64(v)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read restored sequence: %w", err)
	}

	// Release drops the current lease; the next allocation re-reads the key.
	if err := s.seq.Release(); err != nil {
		return fmt.Errorf("failed to release record sequence: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		v, ok, err := getInTxn(txn, key)
		if err != nil {
			return err
		}
		if ok && len(v) == 8 && binary.BigEndian.Uint64(v) >= restored {
			return nil
		}
		return txn.Set(key, binary.BigEndian.AppendUint64(nil, restored))
	})
}
