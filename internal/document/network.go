package document

import "github.com/google/uuid"

// Network describes a remote routing domain anchored at its issuing entity.
// Stored networks drive the trust graph indexer: a network is usable only while
// the local entity and the network issuer trust each other bilaterally.
type Network struct {
	Header
	Hostname string `json:"hostname"`
	Domain   string `json:"domain,omitempty"`
}

// NewNetwork issues a routing domain description for the given entity.
func NewNetwork(issuer uuid.UUID, hostname, domain string) *Network {
	return &Network{
		Header:   newHeader(KindNetwork, issuer, ExpiryEntity),
		Hostname: hostname,
		Domain:   domain,
	}
}

func (n *Network) Export() map[string]string {
	m := make(map[string]string)
	n.exportInto(m)
	m["hostname"] = n.Hostname
	m["domain"] = n.Domain
	return m
}

func (n *Network) ApplyRules() error {
	c := &ruleCollector{kind: KindNetwork}
	n.baseRules(c, ExpiryEntity)
	n.checkKind(c, KindNetwork)
	if n.Hostname == "" {
		c.fail("hostname-required")
	}
	return c.err()
}
