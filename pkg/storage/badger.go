// Package storage provides the ordered key-value engine kvgraph is built on.
//
// Store wraps BadgerDB and exposes the primitive operations the graph layer needs:
// handle-addressed records allocated from a monotonic sequence, point operations on
// ordered keys, paged range cursors and range deletes. Keys sort byte-wise, so
// composite keys built by package tuple can be range-scanned by prefix.
//
// Reserved key prefixes:
//   - 0x01: records (handle u64 -> record bytes)
//   - 0xF0: store metadata
//   - 0xF1: record handle sequence
//
// All other prefixes belong to the caller.
package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Reserved key prefixes for storage-owned data.
const (
	prefixRecord   = byte(0x01) // records:handle -> record bytes
	prefixMeta     = byte(0xF0) // meta:name -> bytes
	prefixSequence = byte(0xF1) // badger sequence lease for record handles
)

// MaxKeySize is the largest key BadgerDB accepts. Writes with longer keys fail.
const MaxKeySize = 65000

// Defaults applied when Options leaves a field zero.
const (
	DefaultSequenceBandwidth = 1000
	DefaultScanPageSize      = 256
)

// Store provides persistent ordered key-value storage using BadgerDB.
//
// Features:
//   - Record handles allocated from a persistent badger sequence (never reused)
//   - Point reads and writes on arbitrary ordered keys
//   - Lazy range cursors that page through the keyspace in short read transactions
//   - Range deletes using write batches
//
// Every method is safe for concurrent use. A single logical update spanning several
// calls is not atomic; callers that need atomicity must serialize writers themselves.
//
// Example:
//
//	store, err := storage.Open(storage.Options{DataDir: "./data/graph"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	id, _ := store.PutRecord([]byte("payload"))
//	data, _ := store.GetRecord(id)
type Store struct {
	db       *badger.DB
	seq      *badger.Sequence
	mu       sync.RWMutex
	closed   bool
	inMemory bool
	dataDir  string
	pageSize int
}

// Options configures the BadgerDB engine.
type Options struct {
	// DataDir is the directory for storing data files.
	// Required unless InMemory is set. Created if it doesn't exist.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	// Useful for testing. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	SyncWrites bool

	// Logger for BadgerDB internal logging.
	// If nil, BadgerDB logging is disabled.
	Logger badger.Logger

	// LowMemory enables memory-constrained settings.
	LowMemory bool

	// HighPerformance enables aggressive caching and larger buffers.
	HighPerformance bool

	// EncryptionKey is the 16, 24, or 32 byte key for AES encryption.
	// Leave empty to disable encryption.
	EncryptionKey []byte

	// SequenceBandwidth is how many record handles are leased from disk at once.
	// Leased handles that were never used are skipped after a restart.
	SequenceBandwidth uint64

	// ScanPageSize is the number of entries a cursor reads per transaction.
	ScanPageSize int
}

// Open opens (or creates) a Store with the given options.
//
// Example 1 - On-disk store:
//
//	store, err := storage.Open(storage.Options{DataDir: "./data/graph"})
//
// Example 2 - Encrypted store:
//
//	store, err := storage.Open(storage.Options{
//		DataDir:       "./data/graph",
//		EncryptionKey: key, // 32 bytes for AES-256
//	})
func Open(opts Options) (*Store, error) {
	if !opts.InMemory {
		if opts.DataDir == "" {
			return nil, fmt.Errorf("data directory is required for on-disk storage")
		}
		if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	badgerOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}

	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	// A nil logger silences badger.
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	if len(opts.EncryptionKey) > 0 {
		keyLen := len(opts.EncryptionKey)
		if keyLen != 16 && keyLen != 24 && keyLen != 32 {
			return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes (got %d bytes)", keyLen)
		}
		badgerOpts = badgerOpts.WithEncryptionKey(opts.EncryptionKey)
	}

	if opts.HighPerformance {
		badgerOpts = badgerOpts.
			WithMemTableSize(128 << 20).
			WithValueLogFileSize(256 << 20).
			WithNumMemtables(5).
			WithNumLevelZeroTables(10).
			WithNumLevelZeroTablesStall(20).
			WithValueThreshold(1 << 20).
			WithBlockCacheSize(256 << 20).
			WithIndexCacheSize(128 << 20).
			WithNumCompactors(4).
			WithCompactL0OnClose(false)
	} else if opts.LowMemory {
		badgerOpts = badgerOpts.
			WithMemTableSize(8 << 20).
			WithValueLogFileSize(32 << 20).
			WithNumMemtables(1).
			WithNumLevelZeroTables(1).
			WithNumLevelZeroTablesStall(2).
			WithValueThreshold(512).
			WithBlockCacheSize(8 << 20).
			WithIndexCacheSize(4 << 20)
	} else {
		badgerOpts = badgerOpts.
			WithMemTableSize(64 << 20).
			WithValueLogFileSize(128 << 20).
			WithNumMemtables(3).
			WithNumLevelZeroTables(5).
			WithNumLevelZeroTablesStall(10).
			WithValueThreshold(64 << 10).
			WithBlockCacheSize(64 << 20).
			WithIndexCacheSize(32 << 20)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	bandwidth := opts.SequenceBandwidth
	if bandwidth == 0 {
		bandwidth = DefaultSequenceBandwidth
	}
	seq, err := db.GetSequence([]byte{prefixSequence}, bandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to acquire record sequence: %w", err)
	}

	pageSize := opts.ScanPageSize
	if pageSize <= 0 {
		pageSize = DefaultScanPageSize
	}

	return &Store{
		db:       db,
		seq:      seq,
		inMemory: opts.InMemory,
		dataDir:  opts.DataDir,
		pageSize: pageSize,
	}, nil
}

// OpenInMemory creates an in-memory Store for testing.
// Data is not persisted and is lost when the store is closed.
func OpenInMemory() (*Store, error) {
	return Open(Options{InMemory: true})
}

// IsInMemory returns true if the store is running in memory-only mode.
func (s *Store) IsInMemory() bool {
	return s.inMemory
}

// DataDir returns the directory the store was opened in ("" for in-memory stores).
func (s *Store) DataDir() string {
	return s.dataDir
}

func recordKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte{prefixRecord}, id)
}

func metaKey(name string) []byte {
	return append([]byte{prefixMeta}, name...)
}

// Commit forces a sync of all data to disk.
func (s *Store) Commit() error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if s.inMemory {
		return nil
	}
	return s.db.Sync()
}

// Close releases the record sequence and closes the database.
// Calling Close more than once is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var seqErr error
	if s.seq != nil {
		seqErr = s.seq.Release()
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	if seqErr != nil {
		return fmt.Errorf("failed to release record sequence: %w", seqErr)
	}
	return nil
}
