package policy

import (
	"context"

	"arx/internal/crypto"
	"arx/internal/document"
	"arx/internal/portfolio"
)

// CreateNetwork issues a routing domain description for the portfolio's entity
// and merges it in. Networks are what the trust graph indexer later evaluates.
func (s *Service) CreateNetwork(ctx context.Context, issuer *portfolio.PrivatePortfolio, hostname, domain string) (*document.Network, error) {
	const op = "network:create"
	sc := &scope{op: op}
	var network *document.Network

	err := sc.run(func() error {
		return issuer.Update(func(c *portfolio.Collection) (*portfolio.Collection, error) {
			network = document.NewNetwork(issuer.ID(), hostname, domain)
			if err := crypto.SignDocument(network, issuer, false); err != nil {
				return nil, reject(op, ReasonSignature, err)
			}
			if err := network.ApplyRules(); err != nil {
				return nil, reject(op, ReasonStructure, err)
			}
			return c.Union(network), nil
		})
	}, nil)

	s.audit(ctx, sc, err, "issuer", issuer.ID())
	if err != nil {
		return nil, err
	}
	return network, nil
}
