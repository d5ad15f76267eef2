// Package kvgraph opens a property graph from a kvgraph configuration.
//
// It ties together the pieces a process needs around package graph: building the
// badger options from config.Config, deriving the at-rest encryption key, routing
// badger's logs, and stamping each store with a stable identifier.
//
// Example Usage:
//
//	cfg, err := config.LoadFromFile(config.FindConfigFile())
//	if err != nil {
//		log.Fatal(err)
//	}
//	db, err := kvgraph.Open(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	g := db.Graph()
//	alice, _ := g.AddVertex()
//	alice.SetProperty("name", "alice")
package kvgraph

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/orneryd/kvgraph/pkg/config"
	"github.com/orneryd/kvgraph/pkg/encryption"
	"github.com/orneryd/kvgraph/pkg/graph"
	"github.com/orneryd/kvgraph/pkg/logging"
	"github.com/orneryd/kvgraph/pkg/storage"
)

// Errors returned by DB operations.
var (
	ErrClosed     = errors.New("database is closed")
	ErrEncryption = errors.New("failed to open encrypted database")
)

const metaStoreID = "store_id"

// DB is an opened kvgraph database.
type DB struct {
	graph     *graph.Graph
	id        string
	encrypted bool

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the database described by cfg.
func Open(cfg *config.Config) (*DB, error) {
	if cfg == nil {
		cfg = config.LoadDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dbc := cfg.Database
	opts := graph.Options{
		Storage: storage.Options{
			DataDir:           dbc.DataDir,
			InMemory:          dbc.InMemory,
			SyncWrites:        dbc.SyncWrites,
			LowMemory:         dbc.LowMemory,
			HighPerformance:   dbc.HighPerformance,
			SequenceBandwidth: dbc.SequenceBandwidth,
			ScanPageSize:      dbc.ScanPageSize,
			Logger:            logging.Badger(),
		},
		CompressionThreshold: dbc.CompressionThreshold,
	}
	if dbc.InMemory {
		opts.Storage.DataDir = ""
	}

	if dbc.EncryptionEnabled {
		salt, created, err := encryption.LoadOrCreateSalt(dbc.DataDir)
		if err != nil {
			return nil, err
		}
		if created {
			logging.Infof("[kvgraph] generated new encryption salt in %s", dbc.DataDir)
		}
		opts.Storage.EncryptionKey = encryption.DeriveKey([]byte(dbc.EncryptionPassword), salt, encryption.DefaultIterations)
	}

	g, err := graph.Open(opts)
	if err != nil {
		if isEncryptionError(err) {
			// Badger fails before touching data files, so nothing was modified.
			if dbc.EncryptionEnabled {
				return nil, fmt.Errorf("%w: the encryption password appears to be incorrect: %v", ErrEncryption, err)
			}
			return nil, fmt.Errorf("%w: database appears to be encrypted but no password was provided: %v", ErrEncryption, err)
		}
		return nil, fmt.Errorf("failed to open graph: %w", err)
	}

	db := &DB{graph: g, encrypted: dbc.EncryptionEnabled}
	if db.id, err = loadOrCreateID(g.Store()); err != nil {
		g.Shutdown()
		return nil, err
	}

	logging.Infof("[kvgraph] opened %s (id %s, encrypted %v)", g, db.id, db.encrypted)
	return db, nil
}

// OpenInMemory opens a throwaway in-memory database.
func OpenInMemory() (*DB, error) {
	cfg := config.LoadDefaults()
	cfg.Database.InMemory = true
	return Open(cfg)
}

func isEncryptionError(err error) bool {
	if errors.Is(err, badger.ErrEncryptionKeyMismatch) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"encryption", "decrypt", "cipher", "invalid checksum", "manifest"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func loadOrCreateID(store *storage.Store) (string, error) {
	raw, err := store.GetMeta(metaStoreID)
	if err == nil {
		return string(raw), nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to read store id: %w", err)
	}
	id := uuid.New().String()
	if err := store.SetMeta(metaStoreID, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to write store id: %w", err)
	}
	return id, nil
}

// Graph returns the underlying graph.
func (db *DB) Graph() *graph.Graph {
	return db.graph
}

// ID returns the identifier assigned to the store when it was created.
func (db *DB) ID() string {
	return db.id
}

// Encrypted reports whether the store is encrypted at rest.
func (db *DB) Encrypted() bool {
	return db.encrypted
}

func (db *DB) ensureOpen() error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return ErrClosed
	}
	return nil
}

// Stats returns element counts, indexes and on-disk sizes.
func (db *DB) Stats() (graph.Stats, error) {
	if err := db.ensureOpen(); err != nil {
		return graph.Stats{}, err
	}
	return db.graph.Stats()
}

// Check verifies the consistency of the derived structures.
func (db *DB) Check(ctx context.Context) (*graph.CheckReport, error) {
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	return db.graph.Check(ctx)
}

// BackupToFile writes a full backup of the store to path.
func (db *DB) BackupToFile(path string) error {
	if err := db.ensureOpen(); err != nil {
		return err
	}
	return db.graph.Store().BackupToFile(path)
}

// RestoreFromFile loads a backup written by BackupToFile. The graph must be empty
// and should be freshly created: keys deleted in the target before the restore can
// shadow restored entries.
func (db *DB) RestoreFromFile(path string) error {
	if err := db.ensureOpen(); err != nil {
		return err
	}
	st, err := db.graph.Stats()
	if err != nil {
		return err
	}
	if st.Vertices > 0 || st.Edges > 0 {
		return fmt.Errorf("%w: restore target holds %d vertices and %d edges", graph.ErrIllegalState, st.Vertices, st.Edges)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	if err := db.graph.Store().Restore(bufio.NewReaderSize(f, 4*1024*1024)); err != nil {
		return err
	}
	// The backup carries the source store's id; the target keeps its own.
	if err := db.graph.Store().SetMeta(metaStoreID, []byte(db.id)); err != nil {
		return fmt.Errorf("failed to write store id: %w", err)
	}
	logging.Infof("[kvgraph] restored %s from %s", db.graph, path)
	return nil
}

// RunGC reclaims value log space.
func (db *DB) RunGC() error {
	if err := db.ensureOpen(); err != nil {
		return err
	}
	return db.graph.Store().RunGC()
}

// Close shuts the graph down. Calling Close more than once is a no-op.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true
	return db.graph.Shutdown()
}
