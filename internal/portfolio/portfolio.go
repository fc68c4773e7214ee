package portfolio

import (
	"sync"

	"github.com/google/uuid"

	"arx/internal/document"
)

// Portfolio owns the current collection for one entity and serializes swaps.
// Policy operations build a candidate collection off the snapshot and replace
// it atomically only on full success, so a cancelled or failed operation can
// never leave the set half-mutated.
type Portfolio struct {
	// opMu serializes whole mutation scopes; mu guards the snapshot pointer.
	opMu    sync.Mutex
	mu      sync.RWMutex
	current *Collection
}

// New wraps a collection holding exactly one entity document.
func New(c *Collection) (*Portfolio, error) {
	if _, err := c.Entity(); err != nil {
		return nil, err
	}
	return &Portfolio{current: c}, nil
}

// Snapshot returns the current immutable collection.
func (p *Portfolio) Snapshot() *Collection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Replace swaps in a rebuilt collection. The candidate must still satisfy the
// one-entity invariant.
func (p *Portfolio) Replace(c *Collection) error {
	if _, err := c.Entity(); err != nil {
		return err
	}
	p.mu.Lock()
	p.current = c
	p.mu.Unlock()
	return nil
}

// Update runs fn under the portfolio's exclusive mutation scope. fn receives
// the current snapshot and returns the rebuilt candidate; a nil candidate
// leaves the portfolio untouched. Concurrent updates against the same
// portfolio execute in submission order.
func (p *Portfolio) Update(fn func(c *Collection) (*Collection, error)) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	candidate, err := fn(p.Snapshot())
	if err != nil {
		return err
	}
	if candidate == nil {
		return nil
	}
	return p.Replace(candidate)
}

// Entity returns the rooting entity document.
func (p *Portfolio) Entity() document.Entity {
	ent, err := p.Snapshot().Entity()
	if err != nil {
		// New and Replace guard the invariant; reaching this is a bug.
		panic(err)
	}
	return ent
}

// ID is the entity identifier this portfolio belongs to.
func (p *Portfolio) ID() uuid.UUID {
	return p.Entity().Head().ID
}

// Keys returns the key documents newest first.
func (p *Portfolio) Keys() []*document.Keys {
	return p.Snapshot().Keys()
}

// IssuerTrusted returns the trust statements this entity issued about others.
func (p *Portfolio) IssuerTrusted() []*document.Statement {
	return p.Snapshot().statements(document.KindTrusted, true, p.ID())
}

// IssuerVerified returns the verification statements this entity issued.
func (p *Portfolio) IssuerVerified() []*document.Statement {
	return p.Snapshot().statements(document.KindVerified, true, p.ID())
}

// IssuerRevoked returns the revocations this entity issued.
func (p *Portfolio) IssuerRevoked() []*document.Revoked {
	return p.Snapshot().Revocations(p.ID())
}

// OwnerTrusted returns the trust statements others issued about this entity.
func (p *Portfolio) OwnerTrusted() []*document.Statement {
	return p.Snapshot().statements(document.KindTrusted, false, p.ID())
}

// OwnerVerified returns the verification statements others issued about this
// entity.
func (p *Portfolio) OwnerVerified() []*document.Statement {
	return p.Snapshot().statements(document.KindVerified, false, p.ID())
}

// PrivatePortfolio additionally holds the entity's private key material. It is
// the signing-capable session portfolio and is never transmitted to peers.
type PrivatePortfolio struct {
	Portfolio
}

// NewPrivate wraps a collection that includes a PrivateKeys document.
func NewPrivate(c *Collection) (*PrivatePortfolio, error) {
	if _, err := c.Entity(); err != nil {
		return nil, err
	}
	p := &PrivatePortfolio{Portfolio{current: c}}
	return p, nil
}

// PrivateKeys returns the newest private key document, or nil when the
// portfolio holds none.
func (p *PrivatePortfolio) PrivateKeys() *document.PrivateKeys {
	var newest *document.PrivateKeys
	for _, doc := range p.Snapshot().docs {
		pk, ok := doc.(*document.PrivateKeys)
		if !ok {
			continue
		}
		if newest == nil || pk.Created.After(newest.Created) {
			newest = pk
		}
	}
	return newest
}

// Public derives the transmittable portfolio: every document except private
// key material.
func (p *PrivatePortfolio) Public() (*Portfolio, error) {
	snap := p.Snapshot()
	var private []document.Document
	for _, doc := range snap.Documents() {
		if _, ok := doc.(*document.PrivateKeys); ok {
			private = append(private, doc)
		}
	}
	return New(snap.Filter(private...))
}
