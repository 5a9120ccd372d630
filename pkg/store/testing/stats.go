package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *StoreTestSuite) RunStatsTests(test *testing.T) {
	test.Run("Pristine", suite.TestStats_Pristine)
	test.Run("TracksUsage", suite.TestStats_TracksUsage)
	test.Run("Format", suite.TestStats_Format)
}

func (suite *StoreTestSuite) TestStats_Pristine(test *testing.T) {
	s := suite.NewStore(test)

	stats, err := s.Stats(context.Background())
	require.NoError(test, err)
	assert.Equal(test, uint64(0), stats.UsedSpace)
	assert.Equal(test, stats.TotalSize, stats.FreeSpace)
	assert.Equal(test, uint64(0), stats.TotalFiles)
	// Root counts as a directory.
	assert.Equal(test, uint64(1), stats.TotalDirectories)
}

func (suite *StoreTestSuite) TestStats_TracksUsage(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateDirectory(ctx, "/docs", "alice"))
	require.NoError(test, s.CreateFile(ctx, "/docs/a.txt", []byte("12345"), "alice"))

	stats, err := s.Stats(ctx)
	require.NoError(test, err)
	assert.Equal(test, uint64(5), stats.UsedSpace)
	assert.Equal(test, stats.TotalSize-5, stats.FreeSpace)
	assert.Equal(test, uint64(1), stats.TotalFiles)
	assert.Equal(test, uint64(2), stats.TotalDirectories)

	require.NoError(test, s.DeleteFile(ctx, "/docs/a.txt"))

	stats, err = s.Stats(ctx)
	require.NoError(test, err)
	assert.Equal(test, uint64(0), stats.UsedSpace)
	assert.Equal(test, uint64(0), stats.TotalFiles)
}

func (suite *StoreTestSuite) TestStats_Format(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateDirectory(ctx, "/docs", "alice"))
	require.NoError(test, s.CreateFile(ctx, "/docs/a.txt", []byte("data"), "alice"))
	require.NoError(test, s.Format(ctx))

	stats, err := s.Stats(ctx)
	require.NoError(test, err)
	assert.Equal(test, uint64(0), stats.UsedSpace)
	assert.Equal(test, uint64(0), stats.TotalFiles)
	assert.Equal(test, uint64(1), stats.TotalDirectories)

	// Admin survives a format.
	_, err = s.Authenticate(ctx, AdminUsername, AdminPassword)
	require.NoError(test, err)
}
