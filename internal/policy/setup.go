package policy

import (
	"context"
	"fmt"

	"arx/internal/crypto"
	"arx/internal/document"
	"arx/internal/portfolio"
)

// SetupPerson mints a fresh self-signed person portfolio: the entity document,
// its first key set and the matching private keys.
func (s *Service) SetupPerson(ctx context.Context, data document.PersonData) (*portfolio.PrivatePortfolio, error) {
	return s.setupPortfolio(ctx, "person:setup", document.NewPerson(data))
}

// SetupMinistry mints a fresh self-signed ministry portfolio.
func (s *Service) SetupMinistry(ctx context.Context, data document.MinistryData) (*portfolio.PrivatePortfolio, error) {
	return s.setupPortfolio(ctx, "ministry:setup", document.NewMinistry(data))
}

// SetupChurch mints a fresh self-signed church portfolio.
func (s *Service) SetupChurch(ctx context.Context, data document.ChurchData) (*portfolio.PrivatePortfolio, error) {
	return s.setupPortfolio(ctx, "church:setup", document.NewChurch(data))
}

func (s *Service) setupPortfolio(ctx context.Context, op string, entity document.Entity) (*portfolio.PrivatePortfolio, error) {
	sc := &scope{op: op}
	var priv *portfolio.PrivatePortfolio

	err := sc.run(func() error {
		pair, err := crypto.GenerateKeyPair()
		if err != nil {
			return reject(op, ReasonStructure, err)
		}
		exchPub, exchSec, err := crypto.GenerateExchangePair()
		if err != nil {
			return reject(op, ReasonStructure, err)
		}

		id := entity.Head().ID
		keys := document.NewKeys(id, pair.Verify, exchPub)
		private := document.NewPrivateKeys(id, pair.Seed, exchSec)

		c, err := portfolio.NewCollection(entity, keys, private)
		if err != nil {
			return reject(op, ReasonStructure, err)
		}
		priv, err = portfolio.NewPrivate(c)
		if err != nil {
			return reject(op, ReasonStructure, err)
		}

		for _, doc := range []document.Document{entity, keys, private} {
			if err := crypto.SignDocument(doc, priv, false); err != nil {
				return reject(op, ReasonSignature, err)
			}
			if err := doc.ApplyRules(); err != nil {
				return reject(op, ReasonStructure, err)
			}
		}
		return nil
	}, nil)

	s.audit(ctx, sc, err, "entity", entity.Head().ID)
	if err != nil {
		return nil, fmt.Errorf("setup portfolio: %w", err)
	}
	return priv, nil
}
