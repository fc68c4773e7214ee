package policy

import (
	"context"

	"arx/internal/document"
	"arx/internal/portfolio"
)

// RemoveRevoked applies a revocation to the portfolio it targets: the revoked
// original is dropped and only the revocation remains as the trust record. A
// missing original is tolerated, which makes the operation idempotent.
func (s *Service) RemoveRevoked(ctx context.Context, p *portfolio.Portfolio, revoked *document.Revoked) error {
	const op = "revoked:remove"
	sc := &scope{op: op}

	err := sc.run(func() error {
		return p.Update(func(c *portfolio.Collection) (*portfolio.Collection, error) {
			if revoked.Issuer != p.ID() {
				return nil, reject(op, ReasonWrongIssuer, nil)
			}

			original := c.GetID(revoked.Issuance)
			if original == nil {
				// Already removed, or never replicated here. Keep the
				// revocation on record.
				return c.Union(revoked), nil
			}
			stmt, ok := original.(*document.Statement)
			if !ok || !document.Revocable(stmt.Kind) {
				return nil, reject(op, ReasonWrongType, nil)
			}
			return c.Filter(original, revoked).Union(revoked), nil
		})
	}, nil)

	s.audit(ctx, sc, err, "issuer", revoked.Issuer, "issuance", revoked.Issuance)
	return err
}
