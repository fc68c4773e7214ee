package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"arx/internal/document"
	"arx/internal/policy"
	"arx/internal/portfolio"
	"arx/internal/vault"
)

type IndexSuite struct {
	suite.Suite
	ctx    context.Context
	policy *policy.Service
	vault  *vault.Vault
	local  *portfolio.PrivatePortfolio
	index  *Service
}

func (s *IndexSuite) SetupTest() {
	s.ctx = context.Background()
	s.policy = policy.New()

	var err error
	s.local, err = s.policy.SetupPerson(s.ctx, document.PersonData{GivenName: "Ada", FamilyName: "Lind"})
	s.Require().NoError(err)

	s.vault, err = vault.Setup(s.ctx, vault.NewMemoryArchive(), []byte("index-test"), vault.ArchiveMeta{
		Owner:   s.local.ID(),
		Tag:     "person.client",
		Created: time.Now().UTC(),
	})
	s.Require().NoError(err)
	s.Require().NoError(s.vault.SavePrivatePortfolio(s.ctx, s.local))

	s.index = New(s.vault, WithWorkers(2))
}

// remote provisions a church entity with a network document filed in the
// vault, returning its private portfolio and the network id.
func (s *IndexSuite) remote(hostname string) (*portfolio.PrivatePortfolio, *document.Network) {
	priv, err := s.policy.SetupChurch(s.ctx, document.ChurchData{City: "Uppsala"})
	s.Require().NoError(err)
	public, err := priv.Public()
	s.Require().NoError(err)
	s.Require().NoError(s.vault.AddPortfolio(s.ctx, public))

	network, err := s.policy.CreateNetwork(s.ctx, priv, hostname, "")
	s.Require().NoError(err)
	s.Require().NoError(s.vault.SaveDocument(s.ctx, network))
	return priv, network
}

func (s *IndexSuite) trust(issuer *portfolio.PrivatePortfolio, owner *portfolio.PrivatePortfolio) *document.Statement {
	public, err := owner.Public()
	s.Require().NoError(err)
	stmt, err := s.policy.CreateTrusted(s.ctx, issuer, public)
	s.Require().NoError(err)
	s.Require().NoError(s.vault.SaveDocument(s.ctx, stmt))
	return stmt
}

func (s *IndexSuite) rows() [][]string {
	rows, err := s.vault.LoadSettings(s.ctx, SettingsTable)
	s.Require().NoError(err)
	return rows
}

func TestIndexSuite(t *testing.T) {
	suite.Run(t, new(IndexSuite))
}

// ====== Verdicts ======

func (s *IndexSuite) TestMutualTrust() {
	remote, network := s.remote("mail.example.org")
	s.trust(s.local, remote)
	s.trust(remote, s.local)

	s.Require().NoError(s.index.Run(s.ctx))
	s.Equal([][]string{{network.ID.String(), "mail.example.org", "1"}}, s.rows())
}

func (s *IndexSuite) TestOneSidedTrustIsNotEnough() {
	remote, network := s.remote("mail.example.org")
	s.trust(s.local, remote)

	s.Require().NoError(s.index.Run(s.ctx))
	s.Equal([][]string{{network.ID.String(), "mail.example.org", "0"}}, s.rows())
}

func (s *IndexSuite) TestNoStatementsMeansUntrusted() {
	_, network := s.remote("mail.example.org")

	s.Require().NoError(s.index.Run(s.ctx))
	s.Equal([][]string{{network.ID.String(), "mail.example.org", "0"}}, s.rows())
}

func (s *IndexSuite) TestRevocationBreaksTrust() {
	remote, network := s.remote("mail.example.org")
	s.trust(s.local, remote)
	issuance := s.trust(remote, s.local)

	revoked, err := s.policy.CreateRevoked(s.ctx, remote, issuance)
	s.Require().NoError(err)
	s.Require().NoError(s.vault.SaveDocument(s.ctx, revoked))

	s.Require().NoError(s.index.Run(s.ctx))
	s.Equal([][]string{{network.ID.String(), "mail.example.org", "0"}}, s.rows())
}

func (s *IndexSuite) TestUnloadableHostStaysUntrusted() {
	// A network document without the issuing entity's portfolio alongside it
	// cannot be evaluated, but the run must still record the row.
	priv, err := s.policy.SetupChurch(s.ctx, document.ChurchData{City: "Uppsala"})
	s.Require().NoError(err)
	network, err := s.policy.CreateNetwork(s.ctx, priv, "dark.example.org", "")
	s.Require().NoError(err)
	s.Require().NoError(s.vault.SaveDocument(s.ctx, network))

	s.Require().NoError(s.index.Run(s.ctx))
	s.Equal([][]string{{network.ID.String(), "dark.example.org", "0"}}, s.rows())
}

// ====== Table maintenance ======

func (s *IndexSuite) TestRowsSortedByNetworkID() {
	_, a := s.remote("a.example.org")
	_, b := s.remote("b.example.org")
	_, c := s.remote("c.example.org")

	s.Require().NoError(s.index.Run(s.ctx))

	rows := s.rows()
	s.Require().Len(rows, 3)
	want := []string{a.ID.String(), b.ID.String(), c.ID.String()}
	var got []string
	for _, row := range rows {
		got = append(got, row[0])
	}
	s.ElementsMatch(want, got)
	s.IsNonDecreasing(got)
}

func (s *IndexSuite) TestRunReplacesTheTable() {
	remote, network := s.remote("mail.example.org")
	s.trust(s.local, remote)
	issuance := s.trust(remote, s.local)

	s.Require().NoError(s.index.Run(s.ctx))
	s.Equal([][]string{{network.ID.String(), "mail.example.org", "1"}}, s.rows())

	revoked, err := s.policy.CreateRevoked(s.ctx, remote, issuance)
	s.Require().NoError(err)
	s.Require().NoError(s.vault.SaveDocument(s.ctx, revoked))

	s.Require().NoError(s.index.Run(s.ctx))
	s.Equal([][]string{{network.ID.String(), "mail.example.org", "0"}}, s.rows())
}

func (s *IndexSuite) TestNoNetworks() {
	s.Require().NoError(s.index.Run(s.ctx))
	s.Empty(s.rows())
}
