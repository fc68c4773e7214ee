package document

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// Keys publishes the verification key material for an entity. A portfolio holds
// an ordered sequence of Keys documents; rotation issues a new one and the
// newest usable document wins.
type Keys struct {
	Header
	Verify string `json:"verify"` // base64 ed25519 public signing key
	Public string `json:"public"` // base64 exchange key
}

// NewKeys wraps freshly generated public key material for the given entity.
func NewKeys(entity uuid.UUID, verify, public []byte) *Keys {
	return &Keys{
		Header: newHeader(KindKeys, entity, ExpiryEntity),
		Verify: base64.StdEncoding.EncodeToString(verify),
		Public: base64.StdEncoding.EncodeToString(public),
	}
}

// VerifyKey decodes the ed25519 verification key.
func (k *Keys) VerifyKey() ([]byte, error) {
	return base64.StdEncoding.DecodeString(k.Verify)
}

func (k *Keys) Export() map[string]string {
	m := make(map[string]string)
	k.exportInto(m)
	m["verify"] = k.Verify
	m["public"] = k.Public
	return m
}

func (k *Keys) ApplyRules() error {
	c := &ruleCollector{kind: KindKeys}
	k.baseRules(c, ExpiryEntity)
	k.checkKind(c, KindKeys)
	if k.Verify == "" {
		c.fail("verify-key-required")
	} else if _, err := base64.StdEncoding.DecodeString(k.Verify); err != nil {
		c.fail("verify-key-encoding")
	}
	if k.Public == "" {
		c.fail("public-key-required")
	}
	return c.err()
}

// PrivateKeys holds the secret half of a key set. It lives only in the owning
// entity's private portfolio and is never transmitted to peers.
type PrivateKeys struct {
	Header
	Seed   string `json:"seed"`   // base64 ed25519 seed
	Secret string `json:"secret"` // base64 exchange secret
}

// NewPrivateKeys wraps freshly generated secret key material.
func NewPrivateKeys(entity uuid.UUID, seed, secret []byte) *PrivateKeys {
	return &PrivateKeys{
		Header: newHeader(KindPrivateKeys, entity, ExpiryEntity),
		Seed:   base64.StdEncoding.EncodeToString(seed),
		Secret: base64.StdEncoding.EncodeToString(secret),
	}
}

// SeedKey decodes the ed25519 signing seed.
func (p *PrivateKeys) SeedKey() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.Seed)
}

func (p *PrivateKeys) Export() map[string]string {
	m := make(map[string]string)
	p.exportInto(m)
	m["seed"] = p.Seed
	m["secret"] = p.Secret
	return m
}

func (p *PrivateKeys) ApplyRules() error {
	c := &ruleCollector{kind: KindPrivateKeys}
	p.baseRules(c, ExpiryEntity)
	p.checkKind(c, KindPrivateKeys)
	if p.Seed == "" {
		c.fail("seed-required")
	} else if _, err := base64.StdEncoding.DecodeString(p.Seed); err != nil {
		c.fail("seed-encoding")
	}
	return c.err()
}
