package vault_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"arx/internal/vault"
	"arx/internal/vault/mocks"
)

var errBackend = errors.New("backend unavailable")

// Backend failures must surface to the caller instead of being swallowed or
// turned into empty results.
func TestVaultBackendFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("setup aborts when init fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		archive := mocks.NewMockArchive(ctrl)
		archive.EXPECT().Init(gomock.Any(), gomock.Any()).Return(errBackend)

		_, err := vault.Setup(ctx, archive, []byte("secret"), vault.ArchiveMeta{})
		require.ErrorIs(t, err, errBackend)
	})

	t.Run("setup aborts when a hierarchy dir fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		archive := mocks.NewMockArchive(ctrl)
		archive.EXPECT().Init(gomock.Any(), gomock.Any()).Return(nil)
		archive.EXPECT().Mkdir(gomock.Any(), "/").Return(errBackend)

		_, err := vault.Setup(ctx, archive, []byte("secret"), vault.ArchiveMeta{})
		require.ErrorIs(t, err, errBackend)
	})

	t.Run("search propagates a list failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		archive := mocks.NewMockArchive(ctrl)
		archive.EXPECT().List(gomock.Any(), "/portfolios/**").Return(nil, errBackend)

		v := vault.New(archive, []byte("secret"))
		_, err := v.Search(ctx, vault.Query{Pattern: "/portfolios/**"}, nil)
		require.ErrorIs(t, err, errBackend)
	})

	t.Run("search propagates a link target failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		archive := mocks.NewMockArchive(ctrl)
		link := vault.Entry{Path: "/networks/a", Kind: vault.EntryLink, Target: "/portfolios/x/a"}
		archive.EXPECT().List(gomock.Any(), "/networks/*").Return([]vault.Entry{link}, nil)
		archive.EXPECT().Get(gomock.Any(), "/portfolios/x/a").Return(vault.Entry{}, nil, errBackend)

		v := vault.New(archive, []byte("secret"))
		_, err := v.Search(ctx, vault.Query{Pattern: "/networks/*", Links: true}, nil)
		require.ErrorIs(t, err, errBackend)
	})

	t.Run("load propagates a get failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		archive := mocks.NewMockArchive(ctrl)
		archive.EXPECT().Get(gomock.Any(), "/portfolios/x/a").Return(vault.Entry{}, nil, errBackend)

		v := vault.New(archive, []byte("secret"))
		_, err := v.Load(ctx, "/portfolios/x/a")
		require.ErrorIs(t, err, errBackend)
	})

	t.Run("settings save propagates a put failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		archive := mocks.NewMockArchive(ctrl)
		archive.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(errBackend)

		v := vault.New(archive, []byte("secret"))
		err := v.SaveSettings(ctx, "networks.csv", [][]string{{"a"}})
		require.ErrorIs(t, err, errBackend)
	})

	t.Run("sealed payload corruption is rejected on load", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		archive := mocks.NewMockArchive(ctrl)
		entry := vault.Entry{Path: "/portfolios/x/a", Kind: vault.EntryFile, Modified: time.Now()}
		archive.EXPECT().Get(gomock.Any(), "/portfolios/x/a").Return(entry, []byte("not sealed"), nil)

		v := vault.New(archive, []byte("secret"))
		_, err := v.Load(ctx, "/portfolios/x/a")
		require.Error(t, err)
	})
}
