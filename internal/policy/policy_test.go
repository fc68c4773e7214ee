package policy

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"arx/internal/crypto"
	"arx/internal/document"
	"arx/internal/portfolio"
)

type PolicySuite struct {
	suite.Suite
	ctx     context.Context
	service *Service
	alice   *portfolio.PrivatePortfolio
	bob     *portfolio.PrivatePortfolio
}

func (s *PolicySuite) SetupTest() {
	s.ctx = context.Background()
	s.service = New()

	var err error
	s.alice, err = s.service.SetupPerson(s.ctx, document.PersonData{GivenName: "Alice", FamilyName: "Andersson"})
	s.Require().NoError(err)
	s.bob, err = s.service.SetupPerson(s.ctx, document.PersonData{GivenName: "Bob", FamilyName: "Berg"})
	s.Require().NoError(err)
}

func (s *PolicySuite) public(p *portfolio.PrivatePortfolio) *portfolio.Portfolio {
	pub, err := p.Public()
	s.Require().NoError(err)
	return pub
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

// ====== Setup ======

func (s *PolicySuite) TestSetup() {
	s.Run("mints a complete self-signed portfolio", func() {
		s.Equal(3, s.alice.Snapshot().Len())

		for _, doc := range s.alice.Snapshot().Documents() {
			s.Require().NoError(doc.ApplyRules())
			s.Len(doc.Head().Signatures, 1)
		}
		s.True(crypto.VerifyDocument(s.alice.Entity(), s.public(s.alice)))
	})

	s.Run("church and ministry portfolios set up the same way", func() {
		church, err := s.service.SetupChurch(s.ctx, document.ChurchData{City: "Uppsala"})
		s.Require().NoError(err)
		s.Equal(document.EntityChurch, church.Entity().EntityKind())

		ministry, err := s.service.SetupMinistry(s.ctx, document.MinistryData{Ministry: "outreach"})
		s.Require().NoError(err)
		s.Equal(document.EntityMinistry, ministry.Entity().EntityKind())
	})
}

// ====== Statement creation ======

func (s *PolicySuite) TestCreateStatements() {
	s.Run("trusted statement lands in the issuer portfolio, signed", func() {
		stmt, err := s.service.CreateTrusted(s.ctx, s.alice, s.public(s.bob))
		s.Require().NoError(err)

		s.Equal(s.alice.ID(), stmt.Issuer)
		s.Equal(s.bob.ID(), stmt.Owner)
		s.True(crypto.VerifyDocument(stmt, s.public(s.alice)))
		s.NotNil(s.alice.Snapshot().GetID(stmt.ID))
	})

	s.Run("verified statement works the same way", func() {
		stmt, err := s.service.CreateVerified(s.ctx, s.alice, s.public(s.bob))
		s.Require().NoError(err)
		s.Equal(document.KindVerified, stmt.Kind)
		s.NotNil(s.alice.Snapshot().GetID(stmt.ID))
	})
}

func (s *PolicySuite) TestCreateRevoked() {
	s.Run("revokes an own statement", func() {
		stmt, err := s.service.CreateTrusted(s.ctx, s.alice, s.public(s.bob))
		s.Require().NoError(err)

		revoked, err := s.service.CreateRevoked(s.ctx, s.alice, stmt)
		s.Require().NoError(err)
		s.Equal(stmt.ID, revoked.Issuance)
		s.True(crypto.VerifyDocument(revoked, s.public(s.alice)))
	})

	s.Run("rejects revoking someone else's statement", func() {
		stmt, err := s.service.CreateTrusted(s.ctx, s.bob, s.public(s.alice))
		s.Require().NoError(err)

		before := s.alice.Snapshot().Len()
		_, err = s.service.CreateRevoked(s.ctx, s.alice, stmt)
		s.Require().ErrorIs(err, &Error{Reason: ReasonWrongIssuer})
		s.Equal(before, s.alice.Snapshot().Len())
	})
}

// ====== Acceptance ======

func (s *PolicySuite) TestAcceptStatement() {
	s.Run("accepts a valid foreign statement", func() {
		stmt, err := s.service.CreateTrusted(s.ctx, s.bob, s.public(s.alice))
		s.Require().NoError(err)

		// Replica of bob's portfolio as alice's node would hold it.
		replica := s.public(s.bob)
		s.Require().NoError(s.service.AcceptStatement(s.ctx, replica, stmt))
		s.NotNil(replica.Snapshot().GetID(stmt.ID))
	})

	s.Run("rejects a non-statement document", func() {
		err := s.service.AcceptStatement(s.ctx, s.public(s.bob), s.bob.Entity())
		s.Require().ErrorIs(err, &Error{Reason: ReasonWrongType})
	})

	s.Run("rejects an issuer mismatch", func() {
		stmt, err := s.service.CreateTrusted(s.ctx, s.alice, s.public(s.bob))
		s.Require().NoError(err)

		err = s.service.AcceptStatement(s.ctx, s.public(s.bob), stmt)
		s.Require().ErrorIs(err, &Error{Reason: ReasonWrongIssuer})
	})

	s.Run("rejects an expired statement", func() {
		stmt, err := s.service.CreateTrusted(s.ctx, s.bob, s.public(s.alice))
		s.Require().NoError(err)
		stmt.Expires = time.Now().Add(-time.Hour)

		err = s.service.AcceptStatement(s.ctx, s.public(s.bob), stmt)
		s.Require().ErrorIs(err, &Error{Reason: ReasonExpired})
	})

	s.Run("rejects a tampered statement and leaves the portfolio unchanged", func() {
		stmt, err := s.service.CreateTrusted(s.ctx, s.bob, s.public(s.alice))
		s.Require().NoError(err)
		stmt.Owner = uuid.New()

		replica := s.public(s.bob)
		before := replica.Snapshot().Len()
		err = s.service.AcceptStatement(s.ctx, replica, stmt)
		s.Require().ErrorIs(err, &Error{Reason: ReasonSignature})
		s.Equal(before, replica.Snapshot().Len())
	})
}

// ====== Revocation removal ======

func (s *PolicySuite) TestRemoveRevoked() {
	s.Run("replaces the original with its revocation", func() {
		stmt, err := s.service.CreateTrusted(s.ctx, s.alice, s.public(s.bob))
		s.Require().NoError(err)
		revoked, err := s.service.CreateRevoked(s.ctx, s.alice, stmt)
		s.Require().NoError(err)

		s.Require().NoError(s.service.RemoveRevoked(s.ctx, &s.alice.Portfolio, revoked))
		snap := s.alice.Snapshot()
		s.Nil(snap.GetID(stmt.ID))
		s.NotNil(snap.GetID(revoked.ID))
	})

	s.Run("is idempotent when the original is already gone", func() {
		stmt, err := s.service.CreateTrusted(s.ctx, s.alice, s.public(s.bob))
		s.Require().NoError(err)
		revoked, err := s.service.CreateRevoked(s.ctx, s.alice, stmt)
		s.Require().NoError(err)

		s.Require().NoError(s.service.RemoveRevoked(s.ctx, &s.alice.Portfolio, revoked))
		s.Require().NoError(s.service.RemoveRevoked(s.ctx, &s.alice.Portfolio, revoked))
		s.NotNil(s.alice.Snapshot().GetID(revoked.ID))
	})

	s.Run("rejects a revocation from the wrong issuer", func() {
		stmt, err := s.service.CreateTrusted(s.ctx, s.bob, s.public(s.alice))
		s.Require().NoError(err)
		revoked, err := s.service.CreateRevoked(s.ctx, s.bob, stmt)
		s.Require().NoError(err)

		err = s.service.RemoveRevoked(s.ctx, &s.alice.Portfolio, revoked)
		s.Require().ErrorIs(err, &Error{Reason: ReasonWrongIssuer})
	})
}

// ====== Networks ======

func (s *PolicySuite) TestCreateNetwork() {
	s.Run("declares a signed network document", func() {
		network, err := s.service.CreateNetwork(s.ctx, s.alice, "relay.example.org", "example.org")
		s.Require().NoError(err)
		s.True(crypto.VerifyDocument(network, s.public(s.alice)))
		s.NotNil(s.alice.Snapshot().GetID(network.ID))
	})

	s.Run("rejects a hostname-less network", func() {
		_, err := s.service.CreateNetwork(s.ctx, s.alice, "", "")
		s.Require().ErrorIs(err, &Error{Reason: ReasonStructure})
	})
}
