package policy

import (
	"context"

	"github.com/google/uuid"

	"arx/internal/crypto"
	"arx/internal/document"
	"arx/internal/portfolio"
)

// CreateTrusted issues a Trusted statement from the issuer about the owner and
// merges it into the issuer's portfolio.
func (s *Service) CreateTrusted(ctx context.Context, issuer *portfolio.PrivatePortfolio, owner *portfolio.Portfolio) (*document.Statement, error) {
	return s.createStatement(ctx, "trusted:create", issuer, owner, document.NewTrusted)
}

// CreateVerified issues a Verified statement from the issuer about the owner
// and merges it into the issuer's portfolio.
func (s *Service) CreateVerified(ctx context.Context, issuer *portfolio.PrivatePortfolio, owner *portfolio.Portfolio) (*document.Statement, error) {
	return s.createStatement(ctx, "verified:create", issuer, owner, document.NewVerified)
}

func (s *Service) createStatement(
	ctx context.Context,
	op string,
	issuer *portfolio.PrivatePortfolio,
	owner *portfolio.Portfolio,
	construct func(issuer, owner uuid.UUID) *document.Statement,
) (*document.Statement, error) {
	sc := &scope{op: op}
	var stmt *document.Statement

	err := sc.run(func() error {
		return issuer.Update(func(c *portfolio.Collection) (*portfolio.Collection, error) {
			ownerEntity, err := owner.Snapshot().Entity()
			if err != nil {
				return nil, reject(op, ReasonEntityNotInOwner, err)
			}

			stmt = construct(issuer.ID(), ownerEntity.Head().ID)
			if err := crypto.SignDocument(stmt, issuer, false); err != nil {
				return nil, reject(op, ReasonSignature, err)
			}
			if err := stmt.ApplyRules(); err != nil {
				return nil, reject(op, ReasonStructure, err)
			}
			return c.Union(stmt), nil
		})
	}, func() { /* no references retained across invocations */ })

	s.audit(ctx, sc, err, "issuer", issuer.ID())
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

// CreateRevoked withdraws a prior statement. The revocation must come from the
// statement's original issuer.
func (s *Service) CreateRevoked(ctx context.Context, issuer *portfolio.PrivatePortfolio, issuance *document.Statement) (*document.Revoked, error) {
	const op = "revoked:create"
	sc := &scope{op: op}
	var revoked *document.Revoked

	err := sc.run(func() error {
		return issuer.Update(func(c *portfolio.Collection) (*portfolio.Collection, error) {
			if issuance.Issuer != issuer.ID() {
				return nil, reject(op, ReasonWrongIssuer, nil)
			}

			revoked = document.NewRevoked(issuer.ID(), issuance.ID)
			if err := crypto.SignDocument(revoked, issuer, false); err != nil {
				return nil, reject(op, ReasonSignature, err)
			}
			if err := revoked.ApplyRules(); err != nil {
				return nil, reject(op, ReasonStructure, err)
			}
			return c.Union(revoked), nil
		})
	}, nil)

	s.audit(ctx, sc, err, "issuer", issuer.ID())
	if err != nil {
		return nil, err
	}
	return revoked, nil
}
