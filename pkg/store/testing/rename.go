package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileverse/omnifs/pkg/store"
)

func (suite *StoreTestSuite) RunRenameTests(test *testing.T) {
	test.Run("File", suite.TestRename_File)
	test.Run("File_AcrossDirectories", suite.TestRename_FileAcrossDirectories)
	test.Run("Directory_RekeysSubtree", suite.TestRename_DirectoryRekeysSubtree)
	test.Run("SourceNotFound", suite.TestRename_SourceNotFound)
	test.Run("DestinationExists", suite.TestRename_DestinationExists)
	test.Run("IntoItself", suite.TestRename_IntoItself)
	test.Run("Root", suite.TestRename_Root)
	test.Run("SamePath", suite.TestRename_SamePath)
}

func (suite *StoreTestSuite) TestRename_File(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/old.txt", []byte("content"), "alice"))
	require.NoError(test, s.Rename(ctx, "/old.txt", "/new.txt"))

	_, err := s.GetMetadata(ctx, "/old.txt")
	AssertErrorCode(test, store.ErrNotFound, err)

	got, err := s.ReadFile(ctx, "/new.txt")
	require.NoError(test, err)
	assert.Equal(test, []byte("content"), got)

	entry, err := s.GetMetadata(ctx, "/new.txt")
	require.NoError(test, err)
	assert.Equal(test, "new.txt", entry.Name)
}

func (suite *StoreTestSuite) TestRename_FileAcrossDirectories(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateDirectory(ctx, "/src", "alice"))
	require.NoError(test, s.CreateDirectory(ctx, "/dst", "alice"))
	require.NoError(test, s.CreateFile(ctx, "/src/a.txt", []byte("a"), "alice"))

	require.NoError(test, s.Rename(ctx, "/src/a.txt", "/dst/b.txt"))

	srcEntries, err := s.ListDirectory(ctx, "/src")
	require.NoError(test, err)
	assert.Empty(test, srcEntries)

	dstEntries, err := s.ListDirectory(ctx, "/dst")
	require.NoError(test, err)
	require.Len(test, dstEntries, 1)
	assert.Equal(test, "b.txt", dstEntries[0].Name)
}

func (suite *StoreTestSuite) TestRename_DirectoryRekeysSubtree(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateDirectory(ctx, "/projects", "alice"))
	require.NoError(test, s.CreateDirectory(ctx, "/projects/go", "alice"))
	require.NoError(test, s.CreateFile(ctx, "/projects/go/main.txt", []byte("x"), "alice"))

	require.NoError(test, s.Rename(ctx, "/projects", "/archive"))

	// Old paths are gone down the whole subtree.
	_, err := s.GetMetadata(ctx, "/projects/go/main.txt")
	AssertErrorCode(test, store.ErrNotFound, err)

	// New paths resolve and content followed.
	got, err := s.ReadFile(ctx, "/archive/go/main.txt")
	require.NoError(test, err)
	assert.Equal(test, []byte("x"), got)

	entries, err := s.ListDirectory(ctx, "/archive/go")
	require.NoError(test, err)
	require.Len(test, entries, 1)
	assert.Equal(test, "main.txt", entries[0].Name)
}

func (suite *StoreTestSuite) TestRename_SourceNotFound(test *testing.T) {
	s := suite.NewStore(test)

	err := s.Rename(context.Background(), "/missing.txt", "/other.txt")
	AssertErrorCode(test, store.ErrNotFound, err)
}

func (suite *StoreTestSuite) TestRename_DestinationExists(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/a.txt", nil, "alice"))
	require.NoError(test, s.CreateFile(ctx, "/b.txt", nil, "alice"))

	err := s.Rename(ctx, "/a.txt", "/b.txt")
	AssertErrorCode(test, store.ErrAlreadyExists, err)
}

func (suite *StoreTestSuite) TestRename_IntoItself(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateDirectory(ctx, "/docs", "alice"))
	err := s.Rename(ctx, "/docs", "/docs/sub")
	AssertErrorCode(test, store.ErrInvalidArgument, err)
}

func (suite *StoreTestSuite) TestRename_Root(test *testing.T) {
	s := suite.NewStore(test)

	err := s.Rename(context.Background(), "/", "/anything")
	AssertErrorCode(test, store.ErrInvalidArgument, err)
}

func (suite *StoreTestSuite) TestRename_SamePath(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/a.txt", []byte("x"), "alice"))
	require.NoError(test, s.Rename(ctx, "/a.txt", "/a.txt"))

	got, err := s.ReadFile(ctx, "/a.txt")
	require.NoError(test, err)
	assert.Equal(test, []byte("x"), got)
}
