package graph

import (
	"fmt"

	"github.com/orneryd/kvgraph/pkg/storage"
)

// idAllocator hands out element ids in two phases. reserve writes an empty sentinel
// record and returns its handle as the id; finalize overwrites the sentinel once the
// record (which embeds the id) can be built. Handles come from the store's sequence
// and are never reused.
type idAllocator struct {
	store *storage.Store
}

func (a idAllocator) reserve() (ID, error) {
	h, err := a.store.PutRecord(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve id: %w", err)
	}
	return ID(h), nil
}

func (a idAllocator) finalize(id ID, content []byte) error {
	if err := a.store.UpdateRecord(uint64(id), content); err != nil {
		return fmt.Errorf("failed to finalize record %d: %w", id, err)
	}
	return nil
}

func (a idAllocator) release(id ID) error {
	return a.store.DeleteRecord(uint64(id))
}
