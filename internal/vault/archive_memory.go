package vault

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"arx/pkg/platform/sentinel"
)

// MemoryArchive is the in-process archive backend used by client facades and
// tests. It favors clarity over performance.
type MemoryArchive struct {
	mu      sync.RWMutex
	meta    ArchiveMeta
	hasMeta bool
	dirs    map[string]bool
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	entry   Entry
	payload []byte
}

// NewMemoryArchive constructs an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		dirs:    map[string]bool{"/": true},
		entries: make(map[string]*memoryEntry),
	}
}

func (a *MemoryArchive) Init(_ context.Context, meta ArchiveMeta) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hasMeta {
		return fmt.Errorf("init archive: %w", sentinel.ErrConflict)
	}
	a.meta = meta
	a.hasMeta = true
	return nil
}

func (a *MemoryArchive) Meta(_ context.Context) (ArchiveMeta, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.hasMeta {
		return ArchiveMeta{}, fmt.Errorf("archive meta: %w", sentinel.ErrNotFound)
	}
	return a.meta, nil
}

func (a *MemoryArchive) Mkdir(_ context.Context, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dirs[normalize(path)] = true
	return nil
}

func (a *MemoryArchive) Put(_ context.Context, e Entry, payload []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	e.Path = normalize(e.Path)
	if !a.dirs[parentDir(e.Path)] {
		return fmt.Errorf("put %s: %w", e.Path, sentinel.ErrPathNotFound)
	}
	if existing, ok := a.entries[e.Path]; ok && !existing.entry.Deleted {
		return fmt.Errorf("put %s: %w", e.Path, sentinel.ErrConflict)
	}
	a.entries[e.Path] = &memoryEntry{entry: e, payload: clone(payload)}
	return nil
}

func (a *MemoryArchive) Refresh(_ context.Context, path string, payload []byte, modified time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	path = normalize(path)
	if !a.dirs[parentDir(path)] {
		return fmt.Errorf("refresh %s: %w", path, sentinel.ErrPathNotFound)
	}
	me, ok := a.entries[path]
	if !ok || me.entry.Deleted {
		return fmt.Errorf("refresh %s: %w", path, sentinel.ErrNotFound)
	}
	me.payload = clone(payload)
	me.entry.Modified = modified
	return nil
}

func (a *MemoryArchive) Get(_ context.Context, path string) (Entry, []byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	me, ok := a.entries[normalize(path)]
	if !ok {
		return Entry{}, nil, fmt.Errorf("get %s: %w", path, sentinel.ErrNotFound)
	}
	return me.entry, clone(me.payload), nil
}

func (a *MemoryArchive) Remove(_ context.Context, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	me, ok := a.entries[normalize(path)]
	if !ok {
		return fmt.Errorf("remove %s: %w", path, sentinel.ErrNotFound)
	}
	me.entry.Deleted = true
	return nil
}

func (a *MemoryArchive) Link(_ context.Context, path, target string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	path = normalize(path)
	if !a.dirs[parentDir(path)] {
		return fmt.Errorf("link %s: %w", path, sentinel.ErrPathNotFound)
	}
	if existing, ok := a.entries[path]; ok && !existing.entry.Deleted {
		return fmt.Errorf("link %s: %w", path, sentinel.ErrConflict)
	}
	target = normalize(target)
	targetEntry, ok := a.entries[target]
	if !ok {
		return fmt.Errorf("link %s -> %s: %w", path, target, sentinel.ErrNotFound)
	}
	now := time.Now().UTC()
	a.entries[path] = &memoryEntry{entry: Entry{
		ID:       uuid.New(),
		Path:     path,
		Owner:    targetEntry.entry.Owner,
		Created:  now,
		Modified: now,
		Kind:     EntryLink,
		Target:   target,
	}}
	return nil
}

func (a *MemoryArchive) List(_ context.Context, pattern string) ([]Entry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []Entry
	for path, me := range a.entries {
		if matchPath(pattern, path) {
			out = append(out, me.entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
