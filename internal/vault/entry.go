package vault

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntryKind distinguishes stored files from alias links.
type EntryKind string

const (
	EntryFile EntryKind = "file"
	EntryLink EntryKind = "link"
)

// Entry is the metadata of one stored object. Entries never physically
// disappear on delete; the tombstone flag excludes them from default queries.
type Entry struct {
	ID       uuid.UUID `json:"id"`
	Path     string    `json:"path"`
	Owner    uuid.UUID `json:"owner"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Kind     EntryKind `json:"kind"`
	Target   string    `json:"target,omitempty"` // link target path
	Deleted  bool      `json:"deleted"`
}

// Query composes the search predicates. All set predicates combine with
// logical AND.
type Query struct {
	// Pattern is a hierarchical path glob: "*" matches one path segment,
	// a trailing "**" matches any remainder.
	Pattern string
	// Owner restricts to entries owned by the given entity when non-zero.
	Owner uuid.UUID
	// CreatedAfter / ModifiedAfter restrict on timestamps when non-zero.
	CreatedAfter  time.Time
	ModifiedAfter time.Time
	// Links resolves link entries to their target's entry before projection.
	Links bool
	// Limit caps the result count; zero means unlimited.
	Limit int
	// Deleted includes tombstoned entries when non-nil and true. The default
	// excludes them.
	Deleted *bool
}

// Projection maps a matched (path, entry) pair to the caller's result shape.
type Projection func(path string, e Entry) any

// matchPath implements the hierarchical glob. Both pattern and path are
// segment-wise compared; "*" consumes exactly one segment, "**" the rest.
func matchPath(pattern, p string) bool {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	ts := strings.Split(strings.Trim(p, "/"), "/")
	for i, seg := range ps {
		if seg == "**" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if seg != "*" && seg != ts[i] {
			return false
		}
	}
	return len(ps) == len(ts)
}

// parentDir returns the directory part of a path, "/" for top-level entries.
func parentDir(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}
