// Package store defines the clipboard history persistence interfaces, the
// record model they exchange, and the error taxonomy shared by all
// implementations.
package store

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable means the database or blob directory could not
	// be opened or created.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrWriteFailed wraps engine failures on mutating operations.
	ErrWriteFailed = errors.New("write failed")

	// ErrQueryFailed wraps engine failures on read operations.
	ErrQueryFailed = errors.New("query failed")

	// ErrInvalidRecord is returned when an insert payload does not match
	// its declared kind.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrNotOpen is returned by operations on a store that is not open.
	ErrNotOpen = errors.New("store is not open")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}

// Reader is the read-only query interface consumed by listing and export.
// Lookups of ids that do not exist return empty results, not errors.
type Reader interface {
	// Get returns a record by id, or nil if it does not exist.
	Get(id int64) (*Record, error)

	// FetchPage returns a window of records in the given order.
	// A limit <= 0 means no limit. An offset past the end yields no records.
	FetchPage(limit, offset int, order Order) ([]*Record, error)

	// FetchFiltered returns a window of records matching the filter,
	// pinned first then newest first.
	FetchFiltered(filter Filter, limit, offset int) ([]*Record, error)

	// Search returns text records containing term, pinned first then
	// newest first. The full-text index is used when available.
	Search(term string, limit, offset int) ([]*Record, error)

	// FetchForExport returns records matching the export filter, newest first.
	FetchForExport(filter ExportFilter) ([]*Record, error)

	// Count returns the total number of records.
	Count() (int, error)

	// CountUnpinned returns the number of records subject to eviction.
	CountUnpinned() (int, error)

	// SourceApps returns the distinct non-empty source apps, sorted.
	SourceApps() ([]string, error)

	// BlobPath returns the absolute path of an image blob.
	BlobPath(ref string) string

	// ReadBlob returns the bytes of an image blob.
	ReadBlob(ref string) ([]byte, error)
}

// RecordStore owns the history database and blob directory. All operations
// are serialized: at most one runs against the backing engine at a time.
type RecordStore interface {
	Reader

	// Open prepares the store for use. Calling Open on an open store is a no-op.
	Open() error

	// Close releases the engine handle. Calling Close on a closed store is a no-op.
	Close() error

	// Insert stores a new record and returns its id. Image data is written
	// to the blob directory before the row is inserted.
	Insert(rec *NewRecord) (int64, error)

	// Exists reports whether a record with the content hash is stored.
	Exists(contentHash string) (bool, error)

	// Delete removes a record and, best-effort, its blob.
	Delete(id int64) error

	SetPinned(id int64, pinned bool) error
	TogglePinned(id int64) error
	SetProtected(id int64, protected bool) error

	// Evict removes the oldest unpinned records until at most limit
	// unpinned records remain, and returns how many were removed.
	Evict(limit int) (int, error)

	// ClearAll removes every record, or only unpinned ones if keepPinned,
	// and returns how many were removed.
	ClearAll(keepPinned bool) (int, error)

	// DatabaseSizeBytes, BlobStoreSizeBytes and FullTextAvailable are
	// best-effort diagnostics.
	DatabaseSizeBytes() int64
	BlobStoreSizeBytes() int64
	FullTextAvailable() bool
}
