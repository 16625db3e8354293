// Package repository persists the file catalog: a queryable mirror of the
// storage engine's metadata enriched with content hashes and MIME types.
// The engine remains the source of truth; the catalog trails it.
package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for a name.
var ErrNotFound = errors.New("catalog record not found")

// CatalogRecord represents a persisted catalog entry.
type CatalogRecord struct {
	Name       string
	FileType   string
	Size       int64
	Version    uint64
	Hash       string
	MimeType   string
	Tags       []string
	Encrypted  bool
	UploadedAt time.Time
	ModifiedAt time.Time
	Metadata   map[string]interface{} // Flexible JSON storage
}

// Repository is a small, focused interface for catalog persistence.
// Implementations must honour the supplied context for cancellation and timeouts.
type Repository interface {
	// Upsert inserts or replaces the record for rec.Name.
	Upsert(ctx context.Context, rec *CatalogRecord) error

	// UpdateTags replaces the tag set and modification time of a record.
	UpdateTags(ctx context.Context, name string, tags []string, modifiedAt time.Time) error

	// Delete removes the record for name. Deleting a missing record is not an error.
	Delete(ctx context.Context, name string) error

	// GetByName retrieves a record by file name.
	GetByName(ctx context.Context, name string) (*CatalogRecord, error)

	// ListAll retrieves all records (for dashboard display).
	ListAll(ctx context.Context) ([]*CatalogRecord, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}
