package document

import "github.com/google/uuid"

// Statement is a signed assertion from an issuer entity about an owner entity.
// Trusted and Verified share the shape and differ only in the kind tag.
type Statement struct {
	Header
	Owner uuid.UUID `json:"owner"`
}

// NewTrusted issues a trust assertion issuer -> owner.
func NewTrusted(issuer, owner uuid.UUID) *Statement {
	return &Statement{
		Header: newHeader(KindTrusted, issuer, ExpiryStatement),
		Owner:  owner,
	}
}

// NewVerified issues an identity verification assertion issuer -> owner.
func NewVerified(issuer, owner uuid.UUID) *Statement {
	return &Statement{
		Header: newHeader(KindVerified, issuer, ExpiryStatement),
		Owner:  owner,
	}
}

func (s *Statement) Export() map[string]string {
	m := make(map[string]string)
	s.exportInto(m)
	m["owner"] = s.Owner.String()
	return m
}

func (s *Statement) ApplyRules() error {
	c := &ruleCollector{kind: s.Kind}
	s.baseRules(c, ExpiryStatement)
	if s.Kind != KindTrusted && s.Kind != KindVerified {
		c.fail("kind-mismatch")
	}
	if s.Owner == uuid.Nil {
		c.fail("owner-required")
	}
	if s.Owner == s.Issuer {
		c.fail("self-statement")
	}
	return c.err()
}

// Revocable reports whether a statement kind can be targeted by a revocation.
func Revocable(kind Kind) bool {
	return kind == KindTrusted || kind == KindVerified
}

// Revoked withdraws a prior Trusted or Verified statement. The issuance field
// references the original statement's id; the revoker must be the original
// issuer.
type Revoked struct {
	Header
	Issuance uuid.UUID `json:"issuance"`
}

// NewRevoked issues a revocation of the given issuance.
func NewRevoked(issuer, issuance uuid.UUID) *Revoked {
	return &Revoked{
		Header:   newHeader(KindRevoked, issuer, ExpiryStatement),
		Issuance: issuance,
	}
}

func (r *Revoked) Export() map[string]string {
	m := make(map[string]string)
	r.exportInto(m)
	m["issuance"] = r.Issuance.String()
	return m
}

func (r *Revoked) ApplyRules() error {
	c := &ruleCollector{kind: KindRevoked}
	r.baseRules(c, ExpiryStatement)
	r.checkKind(c, KindRevoked)
	if r.Issuance == uuid.Nil {
		c.fail("issuance-required")
	}
	return c.err()
}
