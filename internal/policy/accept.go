package policy

import (
	"context"

	"arx/internal/document"
	"arx/internal/portfolio"
)

// AcceptStatement validates an inbound statement from a peer against the
// issuer's locally held portfolio and, on success, adds it there. All four
// checks are required; the first failing one names the rejection reason.
func (s *Service) AcceptStatement(ctx context.Context, issuer *portfolio.Portfolio, stmt document.Document) error {
	const op = "statement:accept"
	sc := &scope{op: op}

	err := sc.run(func() error {
		switch stmt.(type) {
		case *document.Statement, *document.Revoked:
		default:
			return reject(op, ReasonWrongType, nil)
		}

		return issuer.Update(func(c *portfolio.Collection) (*portfolio.Collection, error) {
			if stmt.Head().Issuer != issuer.ID() {
				return nil, reject(op, ReasonWrongIssuer, nil)
			}
			if !notExpired(stmt) {
				return nil, reject(op, ReasonExpired, nil)
			}
			if err := stmt.ApplyRules(); err != nil {
				return nil, reject(op, ReasonStructure, err)
			}
			if !verified(stmt, issuer) {
				return nil, reject(op, ReasonSignature, nil)
			}
			return c.Union(stmt), nil
		})
	}, nil)

	s.audit(ctx, sc, err, "issuer", stmt.Head().Issuer, "document", stmt.Head().ID)
	return err
}
