package vault

import (
	"context"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=archive.go -destination=mocks/archive.go -package=mocks

// ArchiveMeta identifies an archive: who owns it and which facade composition
// it was set up for.
type ArchiveMeta struct {
	Owner   uuid.UUID
	Tag     string
	Created time.Time
}

// Archive is the consumed storage capability: path-addressed entries with
// attribute queries, soft delete and atomic single-entry writes. Reads are
// point-in-time consistent per call; nothing is guaranteed across calls. The
// on-disk byte format is the backend's business.
type Archive interface {
	// Init stamps a fresh archive with its metadata.
	Init(ctx context.Context, meta ArchiveMeta) error
	// Meta returns the archive's metadata.
	Meta(ctx context.Context) (ArchiveMeta, error)
	// Mkdir creates a directory. Creating an existing directory is a no-op.
	Mkdir(ctx context.Context, path string) error
	// Put creates an entry with its payload. A missing parent directory
	// reports sentinel.ErrPathNotFound, an occupied path sentinel.ErrConflict.
	Put(ctx context.Context, e Entry, payload []byte) error
	// Refresh replaces an existing entry's payload and modified timestamp,
	// preserving identifier and creation time.
	Refresh(ctx context.Context, path string, payload []byte, modified time.Time) error
	// Get returns the entry and payload at path, tombstoned or not.
	Get(ctx context.Context, path string) (Entry, []byte, error)
	// Remove tombstones the entry at path.
	Remove(ctx context.Context, path string) error
	// Link creates an alias entry pointing at target.
	Link(ctx context.Context, path, target string) error
	// List returns every entry matching the glob pattern ordered by path,
	// links and tombstones included. A pattern under a nonexistent prefix
	// yields an empty result, never an error.
	List(ctx context.Context, pattern string) ([]Entry, error)
}
