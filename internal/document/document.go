package document

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the type tag carried by every document. The tag namespaces follow the
// archive layout: entity documents root a portfolio, cert documents carry key
// material, stat documents assert trust between entities.
type Kind string

const (
	KindPerson      Kind = "entity.person"
	KindMinistry    Kind = "entity.ministry"
	KindChurch      Kind = "entity.church"
	KindKeys        Kind = "cert.keys"
	KindPrivateKeys Kind = "cert.privkeys"
	KindTrusted     Kind = "stat.trusted"
	KindVerified    Kind = "stat.verified"
	KindRevoked     Kind = "stat.revoked"
	KindNetwork     Kind = "net.network"
)

// Expiry windows. Entities, keys and networks are renewed yearly with a one
// month grace period; statements live three years.
const (
	ExpiryEntity    = 13 * 30 * 24 * time.Hour
	ExpiryStatement = 3 * 365 * 24 * time.Hour
)

// Header is the common part of every document. A document is immutable once
// signed: mutation happens by issuing a replacement with the same ID.
type Header struct {
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	Issuer     uuid.UUID `json:"issuer"`
	Created    time.Time `json:"created"`
	Expires    time.Time `json:"expires"`
	Signatures []string  `json:"signatures,omitempty"`
}

// Document is implemented by every concrete document kind. Head exposes the
// common header; Export returns a stable string form of every field for
// canonical serialization; ApplyRules runs the kind-specific structural checks
// and reports every failed rule. The accessor is named Head because the
// embedded Header field would shadow a method of the same name.
type Document interface {
	Head() *Header
	Export() map[string]string
	ApplyRules() error
}

func (h *Header) Head() *Header { return h }

var (
	_ Document = (*Person)(nil)
	_ Document = (*Ministry)(nil)
	_ Document = (*Church)(nil)
	_ Document = (*Keys)(nil)
	_ Document = (*PrivateKeys)(nil)
	_ Document = (*Statement)(nil)
	_ Document = (*Revoked)(nil)
	_ Document = (*Network)(nil)
)

// Expired reports whether the document is past its expiry date.
func (h *Header) Expired(now time.Time) bool {
	return now.After(h.Expires)
}

func (h *Header) exportInto(m map[string]string) {
	m["id"] = h.ID.String()
	m["kind"] = string(h.Kind)
	m["issuer"] = h.Issuer.String()
	m["created"] = h.Created.UTC().Format(time.RFC3339)
	m["expires"] = h.Expires.UTC().Format(time.RFC3339)
	for i, sig := range h.Signatures {
		m["signatures."+strconv.Itoa(i)] = sig
	}
}

// newHeader stamps the common fields for a freshly issued document.
func newHeader(kind Kind, issuer uuid.UUID, expiry time.Duration) Header {
	now := time.Now().UTC().Truncate(time.Second)
	return Header{
		ID:      uuid.New(),
		Kind:    kind,
		Issuer:  issuer,
		Created: now,
		Expires: now.Add(expiry),
	}
}

// Canonical computes the byte stream a signature covers: the issuer id bytes
// followed by every exported field in lexical order, excluding the issuer and
// the signatures themselves. Signing and verification must agree on this form,
// so it is the only place the layout is defined.
func Canonical(doc Document) []byte {
	h := doc.Head()
	export := doc.Export()

	keys := make([]string, 0, len(export))
	for k := range export {
		if k == "issuer" || strings.HasPrefix(k, "signatures") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(h.Issuer[:])
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteByte(0)
		buf.WriteString(export[k])
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// baseRules checks the header invariants shared by every kind. Violations are
// appended to the given rule collector.
func (h *Header) baseRules(c *ruleCollector, window time.Duration) {
	if h.ID == uuid.Nil {
		c.fail("id-required")
	}
	if h.Issuer == uuid.Nil {
		c.fail("issuer-required")
	}
	if h.Created.IsZero() {
		c.fail("created-required")
	}
	if h.Expires.IsZero() {
		c.fail("expires-required")
	} else if !h.Created.IsZero() && h.Expires.Sub(h.Created) > window {
		c.fail("expiry-window-exceeded")
	}
	if !h.Expires.IsZero() && !h.Created.IsZero() && h.Expires.Before(h.Created) {
		c.fail("expires-before-created")
	}
}

func (h *Header) checkKind(c *ruleCollector, want Kind) {
	if h.Kind != want {
		c.fail("kind-mismatch")
	}
}
