package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileverse/omnifs/pkg/store"
)

func (suite *StoreTestSuite) RunDirectoryTests(test *testing.T) {
	test.Run("Create_Success", suite.TestCreateDirectory_Success)
	test.Run("Create_AlreadyExists", suite.TestCreateDirectory_AlreadyExists)
	test.Run("Create_ParentNotFound", suite.TestCreateDirectory_ParentNotFound)
	test.Run("Create_ParentIsFile", suite.TestCreateDirectory_ParentIsFile)
	test.Run("List_Sorted", suite.TestListDirectory_Sorted)
	test.Run("List_Empty", suite.TestListDirectory_Empty)
	test.Run("List_NotFound", suite.TestListDirectory_NotFound)
	test.Run("List_OnFile", suite.TestListDirectory_OnFile)
	test.Run("List_NormalizesPath", suite.TestListDirectory_NormalizesPath)
	test.Run("Delete_Success", suite.TestDeleteDirectory_Success)
	test.Run("Delete_NotEmpty", suite.TestDeleteDirectory_NotEmpty)
	test.Run("Delete_Root", suite.TestDeleteDirectory_Root)
	test.Run("Delete_OnFile", suite.TestDeleteDirectory_OnFile)
}

func (suite *StoreTestSuite) TestCreateDirectory_Success(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	err := s.CreateDirectory(ctx, "/docs", "alice")
	require.NoError(test, err)

	entry, err := s.GetMetadata(ctx, "/docs")
	require.NoError(test, err)
	assert.Equal(test, "docs", entry.Name)
	assert.Equal(test, store.TypeDirectory, entry.Type)
	assert.Equal(test, "alice", entry.Owner)
	assert.Equal(test, uint32(store.DefaultDirectoryPermissions), entry.Permissions)
}

func (suite *StoreTestSuite) TestCreateDirectory_AlreadyExists(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateDirectory(ctx, "/docs", "alice"))
	err := s.CreateDirectory(ctx, "/docs", "alice")
	AssertErrorCode(test, store.ErrAlreadyExists, err)
}

func (suite *StoreTestSuite) TestCreateDirectory_ParentNotFound(test *testing.T) {
	s := suite.NewStore(test)

	err := s.CreateDirectory(context.Background(), "/missing/docs", "alice")
	AssertErrorCode(test, store.ErrNotFound, err)
}

func (suite *StoreTestSuite) TestCreateDirectory_ParentIsFile(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/notes.txt", []byte("x"), "alice"))
	err := s.CreateDirectory(ctx, "/notes.txt/sub", "alice")
	AssertErrorCode(test, store.ErrNotDirectory, err)
}

func (suite *StoreTestSuite) TestListDirectory_Sorted(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/zebra.txt", nil, "alice"))
	require.NoError(test, s.CreateDirectory(ctx, "/alpha", "alice"))
	require.NoError(test, s.CreateFile(ctx, "/mango.txt", nil, "alice"))

	entries, err := s.ListDirectory(ctx, "/")
	require.NoError(test, err)
	require.Len(test, entries, 3)
	assert.Equal(test, "alpha", entries[0].Name)
	assert.Equal(test, "mango.txt", entries[1].Name)
	assert.Equal(test, "zebra.txt", entries[2].Name)
}

func (suite *StoreTestSuite) TestListDirectory_Empty(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateDirectory(ctx, "/empty", "alice"))
	entries, err := s.ListDirectory(ctx, "/empty")
	require.NoError(test, err)
	assert.Empty(test, entries)
}

func (suite *StoreTestSuite) TestListDirectory_NotFound(test *testing.T) {
	s := suite.NewStore(test)

	_, err := s.ListDirectory(context.Background(), "/missing")
	AssertErrorCode(test, store.ErrNotFound, err)
}

func (suite *StoreTestSuite) TestListDirectory_OnFile(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/file.txt", nil, "alice"))
	_, err := s.ListDirectory(ctx, "/file.txt")
	AssertErrorCode(test, store.ErrNotDirectory, err)
}

func (suite *StoreTestSuite) TestListDirectory_NormalizesPath(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateDirectory(ctx, "/docs", "alice"))
	require.NoError(test, s.CreateFile(ctx, "/docs/a.txt", nil, "alice"))

	entries, err := s.ListDirectory(ctx, "//docs/")
	require.NoError(test, err)
	require.Len(test, entries, 1)
	assert.Equal(test, "a.txt", entries[0].Name)
}

func (suite *StoreTestSuite) TestDeleteDirectory_Success(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateDirectory(ctx, "/docs", "alice"))
	require.NoError(test, s.DeleteDirectory(ctx, "/docs"))

	_, err := s.GetMetadata(ctx, "/docs")
	AssertErrorCode(test, store.ErrNotFound, err)
}

func (suite *StoreTestSuite) TestDeleteDirectory_NotEmpty(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateDirectory(ctx, "/docs", "alice"))
	require.NoError(test, s.CreateFile(ctx, "/docs/a.txt", nil, "alice"))

	err := s.DeleteDirectory(ctx, "/docs")
	AssertErrorCode(test, store.ErrNotEmpty, err)

	// Still listable after the refused delete.
	entries, err := s.ListDirectory(ctx, "/docs")
	require.NoError(test, err)
	assert.Len(test, entries, 1)
}

func (suite *StoreTestSuite) TestDeleteDirectory_Root(test *testing.T) {
	s := suite.NewStore(test)

	err := s.DeleteDirectory(context.Background(), "/")
	AssertErrorCode(test, store.ErrInvalidArgument, err)
}

func (suite *StoreTestSuite) TestDeleteDirectory_OnFile(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/file.txt", nil, "alice"))
	err := s.DeleteDirectory(ctx, "/file.txt")
	AssertErrorCode(test, store.ErrNotDirectory, err)
}
