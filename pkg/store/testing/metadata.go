package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileverse/omnifs/pkg/store"
)

func (suite *StoreTestSuite) RunMetadataTests(test *testing.T) {
	test.Run("Get_Root", suite.TestGetMetadata_Root)
	test.Run("Get_NotFound", suite.TestGetMetadata_NotFound)
	test.Run("Get_Timestamps", suite.TestGetMetadata_Timestamps)
	test.Run("SetPermissions", suite.TestSetPermissions)
	test.Run("SetPermissions_NotFound", suite.TestSetPermissions_NotFound)
	test.Run("InvalidPath", suite.TestMetadata_InvalidPath)
}

func (suite *StoreTestSuite) TestGetMetadata_Root(test *testing.T) {
	s := suite.NewStore(test)

	entry, err := s.GetMetadata(context.Background(), "/")
	require.NoError(test, err)
	assert.Equal(test, store.TypeDirectory, entry.Type)
}

func (suite *StoreTestSuite) TestGetMetadata_NotFound(test *testing.T) {
	s := suite.NewStore(test)

	_, err := s.GetMetadata(context.Background(), "/missing")
	AssertErrorCode(test, store.ErrNotFound, err)
}

func (suite *StoreTestSuite) TestGetMetadata_Timestamps(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/a.txt", nil, "alice"))
	entry, err := s.GetMetadata(ctx, "/a.txt")
	require.NoError(test, err)
	assert.False(test, entry.CreatedAt.IsZero())
	assert.False(test, entry.ModifiedAt.IsZero())
	assert.False(test, entry.ModifiedAt.Before(entry.CreatedAt))
}

func (suite *StoreTestSuite) TestSetPermissions(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/a.txt", nil, "alice"))
	require.NoError(test, s.SetPermissions(ctx, "/a.txt", 0o600))

	entry, err := s.GetMetadata(ctx, "/a.txt")
	require.NoError(test, err)
	assert.Equal(test, uint32(0o600), entry.Permissions)
}

func (suite *StoreTestSuite) TestSetPermissions_NotFound(test *testing.T) {
	s := suite.NewStore(test)

	err := s.SetPermissions(context.Background(), "/missing", 0o600)
	AssertErrorCode(test, store.ErrNotFound, err)
}

func (suite *StoreTestSuite) TestMetadata_InvalidPath(test *testing.T) {
	s := suite.NewStore(test)

	_, err := s.GetMetadata(context.Background(), "relative/path")
	AssertErrorCode(test, store.ErrInvalidArgument, err)
}
