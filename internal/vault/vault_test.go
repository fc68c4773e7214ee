package vault

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"arx/internal/crypto"
	"arx/internal/document"
	"arx/internal/policy"
	"arx/internal/portfolio"
	"arx/pkg/platform/sentinel"
)

var testSecret = []byte("vault-test-secret")

type VaultSuite struct {
	suite.Suite
	ctx     context.Context
	archive *MemoryArchive
	vault   *Vault
	priv    *portfolio.PrivatePortfolio
}

func (s *VaultSuite) SetupTest() {
	s.ctx = context.Background()
	s.archive = NewMemoryArchive()

	var err error
	s.priv, err = policy.New().SetupPerson(s.ctx, document.PersonData{
		GivenName:  "Ada",
		FamilyName: "Lind",
	})
	s.Require().NoError(err)

	s.vault, err = Setup(s.ctx, s.archive, testSecret, ArchiveMeta{
		Owner:   s.priv.ID(),
		Tag:     "person.client",
		Created: time.Now().UTC(),
	})
	s.Require().NoError(err)
}

func (s *VaultSuite) public() *portfolio.Portfolio {
	p, err := s.priv.Public()
	s.Require().NoError(err)
	return p
}

// statement issues and signs a trusted statement about a fresh owner id.
func (s *VaultSuite) statement(owner uuid.UUID) *document.Statement {
	stmt := document.NewTrusted(s.priv.ID(), owner)
	s.Require().NoError(crypto.SignDocument(stmt, s.priv, false))
	return stmt
}

func TestVaultSuite(t *testing.T) {
	suite.Run(t, new(VaultSuite))
}

// ====== Setup ======

func (s *VaultSuite) TestSetup() {
	s.Run("stamps archive metadata", func() {
		meta, err := s.vault.Meta(s.ctx)
		s.Require().NoError(err)
		s.Equal(s.priv.ID(), meta.Owner)
		s.Equal("person.client", meta.Tag)
	})

	s.Run("creates the full hierarchy", func() {
		for _, dir := range Hierarchy {
			s.True(s.archive.dirs[dir], dir)
		}
	})

	s.Run("refuses an already initialized archive", func() {
		_, err := Setup(s.ctx, s.archive, testSecret, ArchiveMeta{Owner: uuid.New()})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

// ====== Documents ======

func (s *VaultSuite) TestSaveLoad() {
	stmt := s.statement(uuid.New())
	path := DocPath(stmt)
	s.Require().NoError(s.archive.Mkdir(s.ctx, parentDir(path)))

	s.Run("payload at rest is sealed", func() {
		s.Require().NoError(s.vault.Save(s.ctx, path, stmt, false))

		plain, err := document.Marshal(stmt)
		s.Require().NoError(err)
		entry, sealed, err := s.archive.Get(s.ctx, path)
		s.Require().NoError(err)
		s.NotEqual(plain, sealed)
		s.Equal(stmt.ID, entry.ID)
		s.Equal(stmt.Owner, entry.Owner)
	})

	s.Run("load decodes the stored document", func() {
		doc, err := s.vault.Load(s.ctx, path)
		s.Require().NoError(err)
		got, ok := doc.(*document.Statement)
		s.Require().True(ok)
		s.Equal(stmt.ID, got.ID)
		s.Equal(stmt.Owner, got.Owner)
	})

	s.Run("wrong secret cannot open", func() {
		other := New(s.archive, []byte("not-the-secret"))
		_, err := other.Load(s.ctx, path)
		s.Require().Error(err)
	})

	s.Run("tombstoned documents read as missing", func() {
		s.Require().NoError(s.vault.Delete(s.ctx, path))
		_, err := s.vault.Load(s.ctx, path)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *VaultSuite) TestLoadFollowsLinks() {
	stmt := s.statement(uuid.New())
	path := DocPath(stmt)
	s.Require().NoError(s.archive.Mkdir(s.ctx, parentDir(path)))
	s.Require().NoError(s.vault.Save(s.ctx, path, stmt, false))
	s.Require().NoError(s.vault.Link(s.ctx, "/cache/alias", path))

	doc, err := s.vault.Load(s.ctx, "/cache/alias")
	s.Require().NoError(err)
	s.Equal(stmt.ID, doc.Head().ID)
}

func (s *VaultSuite) TestSaveDocument() {
	s.Run("supersedes a live entry of the same id in place", func() {
		stmt := s.statement(uuid.New())
		s.Require().NoError(s.vault.SaveDocument(s.ctx, stmt))
		s.Require().NoError(s.vault.SaveDocument(s.ctx, stmt))

		entry, _, err := s.archive.Get(s.ctx, DocPath(stmt))
		s.Require().NoError(err)
		s.Equal(stmt.ID, entry.ID)
	})

	s.Run("network documents get a link index entry", func() {
		net := document.NewNetwork(s.priv.ID(), "mail.example.org", "example.org")
		s.Require().NoError(crypto.SignDocument(net, s.priv, false))
		s.Require().NoError(s.vault.SaveDocument(s.ctx, net))

		doc, err := s.vault.Load(s.ctx, "/networks/"+net.ID.String())
		s.Require().NoError(err)
		s.Equal(net.ID, doc.Head().ID)
	})

	s.Run("private keys are refused", func() {
		s.Require().Error(s.vault.SaveDocument(s.ctx, s.priv.PrivateKeys()))
	})
}

// ====== Search ======

func (s *VaultSuite) TestSearch() {
	owner := uuid.New()
	stmt := s.statement(owner)
	other := s.statement(uuid.New())
	s.Require().NoError(s.vault.SaveDocument(s.ctx, stmt))
	s.Require().NoError(s.vault.SaveDocument(s.ctx, other))
	pattern := portfolioDir(s.priv.ID()) + "/*"

	s.Run("default projection returns entries", func() {
		out, err := s.vault.Search(s.ctx, Query{Pattern: pattern}, nil)
		s.Require().NoError(err)
		s.Len(out, 2)
		_, ok := out[stmt.ID].(Entry)
		s.True(ok)
	})

	s.Run("owner predicate narrows the result", func() {
		out, err := s.vault.Search(s.ctx, Query{Pattern: pattern, Owner: owner}, nil)
		s.Require().NoError(err)
		s.Len(out, 1)
		s.Contains(out, stmt.ID)
	})

	s.Run("limit caps the result", func() {
		out, err := s.vault.Search(s.ctx, Query{Pattern: pattern, Limit: 1}, nil)
		s.Require().NoError(err)
		s.Len(out, 1)
	})

	s.Run("custom projection receives path and entry", func() {
		out, err := s.vault.Search(s.ctx, Query{Pattern: pattern, Owner: owner},
			func(path string, _ Entry) any { return path })
		s.Require().NoError(err)
		s.Equal(DocPath(stmt), out[stmt.ID])
	})

	s.Run("deleted entries surface only on request", func() {
		s.Require().NoError(s.vault.Delete(s.ctx, DocPath(other)))

		out, err := s.vault.Search(s.ctx, Query{Pattern: pattern}, nil)
		s.Require().NoError(err)
		s.Len(out, 1)

		deleted := true
		out, err = s.vault.Search(s.ctx, Query{Pattern: pattern, Deleted: &deleted}, nil)
		s.Require().NoError(err)
		s.Len(out, 2)
	})
}

func (s *VaultSuite) TestSearchResolvesLinks() {
	net := document.NewNetwork(s.priv.ID(), "mail.example.org", "")
	s.Require().NoError(crypto.SignDocument(net, s.priv, false))
	s.Require().NoError(s.vault.SaveDocument(s.ctx, net))

	s.Run("links are invisible by default", func() {
		out, err := s.vault.Search(s.ctx, Query{Pattern: "/networks/*"}, nil)
		s.Require().NoError(err)
		s.Empty(out)
	})

	s.Run("link resolution projects the target entry", func() {
		out, err := s.vault.Search(s.ctx, Query{Pattern: "/networks/*", Links: true}, nil)
		s.Require().NoError(err)
		s.Require().Len(out, 1)
		entry, ok := out[net.ID].(Entry)
		s.Require().True(ok)
		s.Equal(DocPath(net), entry.Path)
	})

	s.Run("dangling links are skipped", func() {
		s.Require().NoError(s.vault.Link(s.ctx, "/cache/dead", DocPath(net)))
		s.archive.mu.Lock()
		delete(s.archive.entries, DocPath(net))
		s.archive.mu.Unlock()

		out, err := s.vault.Search(s.ctx, Query{Pattern: "/cache/*", Links: true}, nil)
		s.Require().NoError(err)
		s.Empty(out)
	})
}

func (s *VaultSuite) TestSearchDocs() {
	older := s.statement(uuid.New())
	newer := s.statement(uuid.New())
	newer.Created = older.Created.Add(time.Hour)
	s.Require().NoError(s.vault.SaveDocument(s.ctx, older))
	s.Require().NoError(s.vault.SaveDocument(s.ctx, newer))
	pattern := portfolioDir(s.priv.ID()) + "/*"

	s.Run("newest first", func() {
		docs, err := s.vault.SearchDocs(s.ctx, uuid.Nil, pattern, 0)
		s.Require().NoError(err)
		s.Require().Len(docs, 2)
		s.Equal(newer.ID, docs[0].Head().ID)
	})

	s.Run("limit truncates after ordering", func() {
		docs, err := s.vault.SearchDocs(s.ctx, uuid.Nil, pattern, 1)
		s.Require().NoError(err)
		s.Require().Len(docs, 1)
		s.Equal(newer.ID, docs[0].Head().ID)
	})

	s.Run("issuer restriction excludes foreign documents", func() {
		docs, err := s.vault.SearchDocs(s.ctx, uuid.New(), pattern, 0)
		s.Require().NoError(err)
		s.Empty(docs)
	})
}

// ====== Portfolios ======

func (s *VaultSuite) TestPortfolioRoundTrip() {
	s.Run("add then load a foreign portfolio", func() {
		s.Require().NoError(s.vault.AddPortfolio(s.ctx, s.public()))

		got, err := s.vault.LoadPortfolio(s.ctx, s.priv.ID())
		s.Require().NoError(err)
		s.Equal(s.priv.ID(), got.ID())
		s.Len(got.Snapshot().Documents(), 2)
	})

	s.Run("unknown entity is missing", func() {
		_, err := s.vault.LoadPortfolio(s.ctx, uuid.New())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *VaultSuite) TestPrivatePortfolioRoundTrip() {
	s.Require().NoError(s.vault.SavePrivatePortfolio(s.ctx, s.priv))

	got, err := s.vault.LoadPrivatePortfolio(s.ctx)
	s.Require().NoError(err)
	s.Equal(s.priv.ID(), got.ID())
	s.Require().NotNil(got.PrivateKeys())
	s.Equal(s.priv.PrivateKeys().ID, got.PrivateKeys().ID)

	s.Run("saving again supersedes in place", func() {
		s.Require().NoError(s.vault.SavePrivatePortfolio(s.ctx, s.priv))
		again, err := s.vault.LoadPrivatePortfolio(s.ctx)
		s.Require().NoError(err)
		s.Equal(s.priv.ID(), again.ID())
	})
}

// ====== Settings ======

func (s *VaultSuite) TestSettings() {
	s.Run("a missing table reads as empty", func() {
		rows, err := s.vault.LoadSettings(s.ctx, "networks.csv")
		s.Require().NoError(err)
		s.Nil(rows)
	})

	s.Run("save then load", func() {
		in := [][]string{{"a", "example.org", "1"}, {"b", "other.org", "0"}}
		s.Require().NoError(s.vault.SaveSettings(s.ctx, "networks.csv", in))

		rows, err := s.vault.LoadSettings(s.ctx, "networks.csv")
		s.Require().NoError(err)
		s.Equal(in, rows)
	})

	s.Run("every save replaces the whole table", func() {
		first := [][]string{{"a", "example.org", "1"}}
		second := [][]string{{"b", "other.org", "0"}}
		s.Require().NoError(s.vault.SaveSettings(s.ctx, "networks.csv", first))
		s.Require().NoError(s.vault.SaveSettings(s.ctx, "networks.csv", second))

		rows, err := s.vault.LoadSettings(s.ctx, "networks.csv")
		s.Require().NoError(err)
		s.Equal(second, rows)
	})
}
