package crypto

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"arx/internal/document"
	"arx/internal/portfolio"
)

type CryptoSuite struct {
	suite.Suite
	priv   *portfolio.PrivatePortfolio
	public *portfolio.Portfolio
}

func (s *CryptoSuite) SetupTest() {
	s.priv = s.newPortfolio("Ada", "Lovelace")
	pub, err := s.priv.Public()
	s.Require().NoError(err)
	s.public = pub
}

func (s *CryptoSuite) newPortfolio(given, family string) *portfolio.PrivatePortfolio {
	entity := document.NewPerson(document.PersonData{GivenName: given, FamilyName: family})

	pair, err := GenerateKeyPair()
	s.Require().NoError(err)
	exchPub, exchSec, err := GenerateExchangePair()
	s.Require().NoError(err)

	keys := document.NewKeys(entity.ID, pair.Verify, exchPub)
	private := document.NewPrivateKeys(entity.ID, pair.Seed, exchSec)

	c, err := portfolio.NewCollection(entity, keys, private)
	s.Require().NoError(err)
	p, err := portfolio.NewPrivate(c)
	s.Require().NoError(err)
	return p
}

func TestCryptoSuite(t *testing.T) {
	suite.Run(t, new(CryptoSuite))
}

// ====== Signing ======

func (s *CryptoSuite) TestSignDocument() {
	s.Run("signs with the portfolio key and verifies against it", func() {
		stmt := document.NewTrusted(s.priv.ID(), s.newPortfolio("Grace", "Hopper").ID())
		s.Require().NoError(SignDocument(stmt, s.priv, false))
		s.Len(stmt.Signatures, 1)
		s.True(VerifyDocument(stmt, s.public))
	})

	s.Run("refuses a second signature unless asked for multiple", func() {
		stmt := document.NewTrusted(s.priv.ID(), s.newPortfolio("Grace", "Hopper").ID())
		s.Require().NoError(SignDocument(stmt, s.priv, false))

		err := SignDocument(stmt, s.priv, false)
		s.Require().ErrorIs(err, ErrSigning)

		s.Require().NoError(SignDocument(stmt, s.priv, true))
		s.Len(stmt.Signatures, 2)
	})
}

// ====== Verification ======

func (s *CryptoSuite) TestVerifyDocument() {
	s.Run("unsigned document never verifies", func() {
		stmt := document.NewTrusted(s.priv.ID(), s.newPortfolio("Grace", "Hopper").ID())
		s.False(VerifyDocument(stmt, s.public))
	})

	s.Run("wrong issuer portfolio reports false, not an error", func() {
		other := s.newPortfolio("Grace", "Hopper")
		stmt := document.NewTrusted(s.priv.ID(), other.ID())
		s.Require().NoError(SignDocument(stmt, s.priv, false))

		otherPublic, err := other.Public()
		s.Require().NoError(err)
		s.False(VerifyDocument(stmt, otherPublic))
	})

	s.Run("tampered content breaks the signature", func() {
		stmt := document.NewTrusted(s.priv.ID(), s.newPortfolio("Grace", "Hopper").ID())
		s.Require().NoError(SignDocument(stmt, s.priv, false))

		stmt.Owner = s.newPortfolio("Margaret", "Hamilton").ID()
		s.False(VerifyDocument(stmt, s.public))
	})

	s.Run("garbage signature material reports false", func() {
		stmt := document.NewTrusted(s.priv.ID(), s.newPortfolio("Grace", "Hopper").ID())
		stmt.Signatures = []string{"!!! not base64 !!!", "c2hvcnQ="}
		s.False(VerifyDocument(stmt, s.public))
	})
}

func (s *CryptoSuite) TestVerifyRaw() {
	s.Run("size-guards untrusted input", func() {
		s.False(Verify([]byte("data"), []byte("short"), []byte("also short")))
	})
}
