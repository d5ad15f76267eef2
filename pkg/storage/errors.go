package storage

import "errors"

var (
	// ErrNotFound is returned when a record or key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorageClosed is returned for operations on a closed store.
	ErrStorageClosed = errors.New("storage closed")

	// ErrIterationStopped may be returned by a Stream callback to end the stream early
	// without reporting an error.
	ErrIterationStopped = errors.New("iteration stopped")
)
