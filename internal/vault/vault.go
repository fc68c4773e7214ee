// Package vault persists and queries portfolios through the archive
// capability. Documents live as sealed files under a deterministic path per
// type and id; supersession saves a new document under the same id.
package vault

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"arx/internal/document"
	"arx/pkg/platform/sentinel"
)

// Hierarchy is the fixed directory layout initialized at setup.
var Hierarchy = []string{
	"/",
	"/cache",
	"/contacts",
	"/entities",
	"/issued",
	"/keys",
	"/networks",
	"/portfolios",
	"/settings",
}

const tracerName = "arx/internal/vault"

// Vault is the searchable document store of one facade session.
type Vault struct {
	archive Archive
	cipher  *cipher
}

// New wraps an opened archive with the session secret.
func New(archive Archive, secret []byte) *Vault {
	return &Vault{archive: archive, cipher: newCipher(secret)}
}

// Setup initializes a fresh archive: metadata, hierarchy, nothing else.
func Setup(ctx context.Context, archive Archive, secret []byte, meta ArchiveMeta) (*Vault, error) {
	if err := archive.Init(ctx, meta); err != nil {
		return nil, fmt.Errorf("setup vault: %w", err)
	}
	for _, dir := range Hierarchy {
		if err := archive.Mkdir(ctx, dir); err != nil {
			return nil, fmt.Errorf("setup vault hierarchy: %w", err)
		}
	}
	return New(archive, secret), nil
}

// Meta exposes the underlying archive metadata.
func (v *Vault) Meta(ctx context.Context) (ArchiveMeta, error) {
	return v.archive.Meta(ctx)
}

// Mkdir creates a directory in the archive.
func (v *Vault) Mkdir(ctx context.Context, path string) error {
	return v.archive.Mkdir(ctx, path)
}

// DocPath is the deterministic location of a document: grouped per portfolio
// by its issuer, named by its own id.
func DocPath(doc document.Document) string {
	h := doc.Head()
	return fmt.Sprintf("/portfolios/%s/%s", h.Issuer, h.ID)
}

// entryOwner follows the original layout: statements are filed under the
// entity they are about, everything else under its issuer.
func entryOwner(doc document.Document) uuid.UUID {
	if s, ok := doc.(*document.Statement); ok {
		return s.Owner
	}
	return doc.Head().Issuer
}

// Save serializes and persists a document at path. The entry identifier is
// pinned to the document's own id unless fresh is set.
func (v *Vault) Save(ctx context.Context, path string, doc document.Document, fresh bool) error {
	data, err := document.Marshal(doc)
	if err != nil {
		return err
	}
	sealed, err := v.cipher.seal(data)
	if err != nil {
		return err
	}

	h := doc.Head()
	id := h.ID
	if fresh {
		id = uuid.New()
	}
	return v.archive.Put(ctx, Entry{
		ID:       id,
		Path:     path,
		Owner:    entryOwner(doc),
		Created:  h.Created,
		Modified: time.Now().UTC(),
		Kind:     EntryFile,
	}, sealed)
}

// Update rewrites the payload at path, preserving the entry identifier and
// refreshing only the modified timestamp.
func (v *Vault) Update(ctx context.Context, path string, doc document.Document) error {
	data, err := document.Marshal(doc)
	if err != nil {
		return err
	}
	sealed, err := v.cipher.seal(data)
	if err != nil {
		return err
	}
	return v.archive.Refresh(ctx, path, sealed, time.Now().UTC())
}

// Load reads and decodes the document at path. Tombstoned entries read like
// missing ones.
func (v *Vault) Load(ctx context.Context, path string) (document.Document, error) {
	entry, sealed, err := v.archive.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if entry.Deleted {
		return nil, fmt.Errorf("load %s: %w", path, sentinel.ErrNotFound)
	}
	if entry.Kind == EntryLink {
		return v.Load(ctx, entry.Target)
	}
	data, err := v.cipher.open(sealed)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return document.Unmarshal(data)
}

// Delete tombstones the entry at path.
func (v *Vault) Delete(ctx context.Context, path string) error {
	return v.archive.Remove(ctx, path)
}

// Link creates an alias entry at path pointing at target.
func (v *Vault) Link(ctx context.Context, path, target string) error {
	return v.archive.Link(ctx, path, target)
}

// Search runs the composed query and projects every hit. Results map entry
// identifier to the projection; when the query resolves links, the target's
// entry is projected under the link's path.
func (v *Vault) Search(ctx context.Context, q Query, project Projection) (map[uuid.UUID]any, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "vault.search")
	defer span.End()
	start := time.Now()
	defer func() { observeSearch(time.Since(start)) }()

	entries, err := v.archive.List(ctx, q.Pattern)
	if err != nil {
		return nil, err
	}

	if project == nil {
		project = func(_ string, e Entry) any { return e }
	}

	out := make(map[uuid.UUID]any)
	for _, e := range entries {
		if !q.matches(e) {
			continue
		}
		projected := e
		if e.Kind == EntryLink && q.Links {
			target, _, err := v.archive.Get(ctx, e.Target)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					continue
				}
				return nil, err
			}
			projected = target
		}
		out[projected.ID] = project(e.Path, projected)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// matches applies every predicate of the query with logical AND.
func (q Query) matches(e Entry) bool {
	if e.Deleted && (q.Deleted == nil || !*q.Deleted) {
		return false
	}
	if e.Kind == EntryLink && !q.Links {
		return false
	}
	if q.Owner != uuid.Nil && e.Owner != q.Owner {
		return false
	}
	if !q.CreatedAfter.IsZero() && e.Created.Before(q.CreatedAfter) {
		return false
	}
	if !q.ModifiedAfter.IsZero() && e.Modified.Before(q.ModifiedAfter) {
		return false
	}
	return true
}

// SearchDocs returns decoded document payloads matching the pattern, newest
// first, capped at limit (zero meaning unlimited). Issuer restricts to
// documents issued by the given entity when non-zero.
func (v *Vault) SearchDocs(ctx context.Context, issuer uuid.UUID, pattern string, limit int) ([]document.Document, error) {
	entries, err := v.archive.List(ctx, pattern)
	if err != nil {
		return nil, err
	}

	var docs []document.Document
	for _, e := range entries {
		if e.Deleted || e.Kind == EntryLink {
			continue
		}
		doc, err := v.Load(ctx, e.Path)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if issuer != uuid.Nil && doc.Head().Issuer != issuer {
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Head().Created.After(docs[j].Head().Created)
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}
