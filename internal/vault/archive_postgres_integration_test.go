//go:build integration

package vault_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"arx/internal/document"
	"arx/internal/policy"
	"arx/internal/vault"
	"arx/pkg/platform/sentinel"
	"arx/pkg/testutil/containers"
)

type PostgresArchiveSuite struct {
	suite.Suite
	ctx context.Context
	pg  *containers.PostgresContainer
}

func (s *PostgresArchiveSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
}

// archive returns a freshly initialized archive under a unique table prefix,
// so tests never see each other's rows.
func (s *PostgresArchiveSuite) archive() *vault.PostgresArchive {
	prefix := "t" + uuid.NewString()[:8]
	a := vault.NewPostgresArchive(s.pg.DB, prefix)
	s.Require().NoError(a.EnsureSchema(s.ctx))
	return a
}

func TestPostgresArchiveSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresArchiveSuite))
}

func (s *PostgresArchiveSuite) TestInitMeta() {
	a := s.archive()
	meta := vault.ArchiveMeta{Owner: uuid.New(), Tag: "church.server", Created: time.Now().UTC().Truncate(time.Microsecond)}
	s.Require().NoError(a.Init(s.ctx, meta))

	got, err := a.Meta(s.ctx)
	s.Require().NoError(err)
	s.Equal(meta.Owner, got.Owner)
	s.Equal(meta.Tag, got.Tag)

	s.Require().ErrorIs(a.Init(s.ctx, meta), sentinel.ErrConflict)
}

func (s *PostgresArchiveSuite) TestEntryLifecycle() {
	a := s.archive()
	s.Require().NoError(a.Mkdir(s.ctx, "/docs"))

	e := vault.Entry{
		ID:       uuid.New(),
		Path:     "/docs/a",
		Owner:    uuid.New(),
		Created:  time.Now().UTC().Truncate(time.Microsecond),
		Modified: time.Now().UTC().Truncate(time.Microsecond),
		Kind:     vault.EntryFile,
	}

	s.Run("put requires the parent directory", func() {
		bad := e
		bad.Path = "/nowhere/a"
		s.Require().ErrorIs(a.Put(s.ctx, bad, []byte("x")), sentinel.ErrPathNotFound)
	})

	s.Run("put then get round-trips entry and payload", func() {
		s.Require().NoError(a.Put(s.ctx, e, []byte("sealed")))

		got, payload, err := a.Get(s.ctx, "/docs/a")
		s.Require().NoError(err)
		s.Equal(e.ID, got.ID)
		s.Equal(e.Owner, got.Owner)
		s.Equal([]byte("sealed"), payload)
	})

	s.Run("double put conflicts", func() {
		s.Require().ErrorIs(a.Put(s.ctx, e, []byte("again")), sentinel.ErrConflict)
	})

	s.Run("refresh replaces the payload in place", func() {
		later := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
		s.Require().NoError(a.Refresh(s.ctx, "/docs/a", []byte("resealed"), later))

		got, payload, err := a.Get(s.ctx, "/docs/a")
		s.Require().NoError(err)
		s.Equal(e.ID, got.ID)
		s.Equal([]byte("resealed"), payload)
	})

	s.Run("remove tombstones", func() {
		s.Require().NoError(a.Remove(s.ctx, "/docs/a"))
		got, _, err := a.Get(s.ctx, "/docs/a")
		s.Require().NoError(err)
		s.True(got.Deleted)
	})
}

func (s *PostgresArchiveSuite) TestLinkAndList() {
	a := s.archive()
	s.Require().NoError(a.Mkdir(s.ctx, "/docs"))
	s.Require().NoError(a.Mkdir(s.ctx, "/aliases"))

	one := vault.Entry{ID: uuid.New(), Path: "/docs/a", Owner: uuid.New(), Created: time.Now().UTC(), Modified: time.Now().UTC(), Kind: vault.EntryFile}
	two := vault.Entry{ID: uuid.New(), Path: "/docs/b", Owner: uuid.New(), Created: time.Now().UTC(), Modified: time.Now().UTC(), Kind: vault.EntryFile}
	s.Require().NoError(a.Put(s.ctx, one, []byte("1")))
	s.Require().NoError(a.Put(s.ctx, two, []byte("2")))
	s.Require().NoError(a.Link(s.ctx, "/aliases/a", "/docs/a"))

	s.Run("link inherits the target owner", func() {
		got, _, err := a.Get(s.ctx, "/aliases/a")
		s.Require().NoError(err)
		s.Equal(vault.EntryLink, got.Kind)
		s.Equal("/docs/a", got.Target)
		s.Equal(one.Owner, got.Owner)
	})

	s.Run("a live occupant is a conflict, not overwritten", func() {
		s.Require().ErrorIs(a.Link(s.ctx, "/docs/b", "/docs/a"), sentinel.ErrConflict)

		got, payload, err := a.Get(s.ctx, "/docs/b")
		s.Require().NoError(err)
		s.Equal(vault.EntryFile, got.Kind)
		s.Equal([]byte("2"), payload)
	})

	s.Run("a tombstoned occupant is reusable", func() {
		s.Require().NoError(a.Remove(s.ctx, "/docs/b"))
		s.Require().NoError(a.Link(s.ctx, "/docs/b", "/docs/a"))

		got, _, err := a.Get(s.ctx, "/docs/b")
		s.Require().NoError(err)
		s.Equal(vault.EntryLink, got.Kind)
		s.False(got.Deleted)
	})

	s.Run("list glob matches one directory level", func() {
		entries, err := a.List(s.ctx, "/docs/*")
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal("/docs/a", entries[0].Path)
		s.Equal("/docs/b", entries[1].Path)
	})
}

// Runs the vault end to end over the PostgreSQL backend.
func (s *PostgresArchiveSuite) TestVaultOverPostgres() {
	priv, err := policy.New().SetupPerson(s.ctx, document.PersonData{GivenName: "Ada", FamilyName: "Lind"})
	s.Require().NoError(err)

	v, err := vault.Setup(s.ctx, s.archive(), []byte("integration-secret"), vault.ArchiveMeta{
		Owner:   priv.ID(),
		Tag:     "person.client",
		Created: time.Now().UTC(),
	})
	s.Require().NoError(err)

	s.Require().NoError(v.SavePrivatePortfolio(s.ctx, priv))

	got, err := v.LoadPrivatePortfolio(s.ctx)
	s.Require().NoError(err)
	s.Equal(priv.ID(), got.ID())
	s.NotNil(got.PrivateKeys())
}
