// Package portfolio holds the in-memory aggregate of one entity's documents.
// A collection is an immutable snapshot; mutation builds a new collection and
// swaps it in, so derived views can never go stale against the underlying set.
package portfolio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"arx/internal/document"
)

// ErrEntityMissing is reported when a collection does not hold exactly one
// live entity document.
var ErrEntityMissing = errors.New("portfolio requires exactly one entity document")

// Collection is an immutable document set keyed by identifier. All set algebra
// returns a fresh collection.
type Collection struct {
	docs map[uuid.UUID]document.Document
}

// NewCollection builds a collection from the given documents. Duplicate
// identifiers are rejected; the one-entity invariant is checked by Portfolio,
// not here, so partial sets can be assembled during load.
func NewCollection(docs ...document.Document) (*Collection, error) {
	c := &Collection{docs: make(map[uuid.UUID]document.Document, len(docs))}
	for _, doc := range docs {
		id := doc.Head().ID
		if _, dup := c.docs[id]; dup {
			return nil, fmt.Errorf("duplicate document id %s", id)
		}
		c.docs[id] = doc
	}
	return c, nil
}

// Documents returns the member documents in unspecified order.
func (c *Collection) Documents() []document.Document {
	out := make([]document.Document, 0, len(c.docs))
	for _, doc := range c.docs {
		out = append(out, doc)
	}
	return out
}

// Len reports the number of documents in the set.
func (c *Collection) Len() int { return len(c.docs) }

// GetID returns the document with the given identifier, or nil.
func (c *Collection) GetID(id uuid.UUID) document.Document {
	return c.docs[id]
}

// Filter returns a new collection with the given documents excluded. Absent
// members are ignored, which makes removal idempotent.
func (c *Collection) Filter(remove ...document.Document) *Collection {
	out := &Collection{docs: make(map[uuid.UUID]document.Document, len(c.docs))}
	for id, doc := range c.docs {
		out.docs[id] = doc
	}
	for _, doc := range remove {
		delete(out.docs, doc.Head().ID)
	}
	return out
}

// Union returns a new collection extended with the given documents. A document
// carrying an existing id supersedes the stored one.
func (c *Collection) Union(add ...document.Document) *Collection {
	out := &Collection{docs: make(map[uuid.UUID]document.Document, len(c.docs)+len(add))}
	for id, doc := range c.docs {
		out.docs[id] = doc
	}
	for _, doc := range add {
		out.docs[doc.Head().ID] = doc
	}
	return out
}

// Entity returns the single entity document rooting this collection.
func (c *Collection) Entity() (document.Entity, error) {
	var found document.Entity
	for _, doc := range c.docs {
		ent, ok := doc.(document.Entity)
		if !ok {
			continue
		}
		if found != nil {
			return nil, ErrEntityMissing
		}
		found = ent
	}
	if found == nil {
		return nil, ErrEntityMissing
	}
	return found, nil
}

// Keys returns the key documents newest first, so index zero is the current
// usable key set.
func (c *Collection) Keys() []*document.Keys {
	var keys []*document.Keys
	for _, doc := range c.docs {
		if k, ok := doc.(*document.Keys); ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Created.After(keys[j].Created)
	})
	return keys
}

// statements filters by statement kind and direction. Direction is decided by
// whether the collection's entity issued the statement or is its subject.
func (c *Collection) statements(kind document.Kind, issuedBy bool, entity uuid.UUID) []*document.Statement {
	var out []*document.Statement
	for _, doc := range c.docs {
		s, ok := doc.(*document.Statement)
		if !ok || s.Kind != kind {
			continue
		}
		if issuedBy && s.Issuer == entity {
			out = append(out, s)
		}
		if !issuedBy && s.Owner == entity {
			out = append(out, s)
		}
	}
	return out
}

// Revocations returns the revocation statements issued by the given entity.
func (c *Collection) Revocations(entity uuid.UUID) []*document.Revoked {
	var out []*document.Revoked
	for _, doc := range c.docs {
		if r, ok := doc.(*document.Revoked); ok && r.Issuer == entity {
			out = append(out, r)
		}
	}
	return out
}

// Networks returns the network documents in the collection.
func (c *Collection) Networks() []*document.Network {
	var out []*document.Network
	for _, doc := range c.docs {
		if n, ok := doc.(*document.Network); ok {
			out = append(out, n)
		}
	}
	return out
}
