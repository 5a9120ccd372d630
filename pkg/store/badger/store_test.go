package badger_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fileverse/omnifs/pkg/store"
	badgerstore "github.com/fileverse/omnifs/pkg/store/badger"
	storetesting "github.com/fileverse/omnifs/pkg/store/testing"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := badgerstore.Open(badgerstore.Config{
		InMemory:      true,
		TotalSize:     1 << 20,
		BcryptCost:    bcrypt.MinCost,
		AdminUsername: storetesting.AdminUsername,
		AdminPassword: storetesting.AdminPassword,
	})
	if err != nil {
		t.Fatalf("open badger store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore_Conformance(t *testing.T) {
	suite := &storetesting.StoreTestSuite{NewStore: newTestStore}
	suite.Run(t)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := badgerstore.Config{
		Dir:           dir,
		TotalSize:     1 << 20,
		BcryptCost:    bcrypt.MinCost,
		AdminUsername: storetesting.AdminUsername,
		AdminPassword: storetesting.AdminPassword,
	}

	s, err := badgerstore.Open(cfg)
	require.NoError(t, err)

	ctx := t.Context()
	require.NoError(t, s.CreateDirectory(ctx, "/docs", "admin"))
	require.NoError(t, s.CreateFile(ctx, "/docs/a.txt", []byte("persisted"), "admin"))
	require.NoError(t, s.Close())

	s, err = badgerstore.Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.ReadFile(ctx, "/docs/a.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), got)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(len("persisted")), stats.UsedSpace)
}
