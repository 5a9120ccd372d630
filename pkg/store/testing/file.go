package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileverse/omnifs/pkg/store"
)

func (suite *StoreTestSuite) RunFileTests(test *testing.T) {
	test.Run("Create_Success", suite.TestCreateFile_Success)
	test.Run("Create_WithContent", suite.TestCreateFile_WithContent)
	test.Run("Create_AlreadyExists", suite.TestCreateFile_AlreadyExists)
	test.Run("Read_NotFound", suite.TestReadFile_NotFound)
	test.Run("Read_Directory", suite.TestReadFile_Directory)
	test.Run("Read_BinaryContent", suite.TestReadFile_BinaryContent)
	test.Run("Edit_Append", suite.TestEditFile_Append)
	test.Run("Edit_Overwrite", suite.TestEditFile_Overwrite)
	test.Run("Edit_OffsetBeyondEnd", suite.TestEditFile_OffsetBeyondEnd)
	test.Run("Truncate", suite.TestTruncateFile)
	test.Run("Delete_Success", suite.TestDeleteFile_Success)
	test.Run("Delete_NotFound", suite.TestDeleteFile_NotFound)
	test.Run("Delete_Directory", suite.TestDeleteFile_Directory)
	test.Run("Quota_Enforced", suite.TestFileQuota_Enforced)
}

func (suite *StoreTestSuite) TestCreateFile_Success(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/notes.txt", nil, "alice"))

	entry, err := s.GetMetadata(ctx, "/notes.txt")
	require.NoError(test, err)
	assert.Equal(test, store.TypeFile, entry.Type)
	assert.Equal(test, uint64(0), entry.Size)
	assert.Equal(test, uint32(store.DefaultFilePermissions), entry.Permissions)
	assert.Equal(test, "alice", entry.Owner)
}

func (suite *StoreTestSuite) TestCreateFile_WithContent(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	content := []byte("hello world")
	require.NoError(test, s.CreateFile(ctx, "/notes.txt", content, "alice"))

	got, err := s.ReadFile(ctx, "/notes.txt")
	require.NoError(test, err)
	assert.Equal(test, content, got)

	entry, err := s.GetMetadata(ctx, "/notes.txt")
	require.NoError(test, err)
	assert.Equal(test, uint64(len(content)), entry.Size)
}

func (suite *StoreTestSuite) TestCreateFile_AlreadyExists(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/notes.txt", nil, "alice"))
	err := s.CreateFile(ctx, "/notes.txt", nil, "alice")
	AssertErrorCode(test, store.ErrAlreadyExists, err)
}

func (suite *StoreTestSuite) TestReadFile_NotFound(test *testing.T) {
	s := suite.NewStore(test)

	_, err := s.ReadFile(context.Background(), "/missing.txt")
	AssertErrorCode(test, store.ErrNotFound, err)
}

func (suite *StoreTestSuite) TestReadFile_Directory(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateDirectory(ctx, "/docs", "alice"))
	_, err := s.ReadFile(ctx, "/docs")
	AssertErrorCode(test, store.ErrIsDirectory, err)
}

func (suite *StoreTestSuite) TestReadFile_BinaryContent(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	content := []byte{0x00, 0x01, 0xff, '\n', '\t', 0x7f}
	require.NoError(test, s.CreateFile(ctx, "/blob", content, "alice"))

	got, err := s.ReadFile(ctx, "/blob")
	require.NoError(test, err)
	assert.Equal(test, content, got)
}

func (suite *StoreTestSuite) TestEditFile_Append(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/log.txt", []byte("hello"), "alice"))
	require.NoError(test, s.EditFile(ctx, "/log.txt", []byte(" world"), 5))

	got, err := s.ReadFile(ctx, "/log.txt")
	require.NoError(test, err)
	assert.Equal(test, []byte("hello world"), got)
}

func (suite *StoreTestSuite) TestEditFile_Overwrite(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/log.txt", []byte("hello world"), "alice"))
	require.NoError(test, s.EditFile(ctx, "/log.txt", []byte("HELLO"), 0))

	got, err := s.ReadFile(ctx, "/log.txt")
	require.NoError(test, err)
	assert.Equal(test, []byte("HELLO world"), got)

	entry, err := s.GetMetadata(ctx, "/log.txt")
	require.NoError(test, err)
	assert.Equal(test, uint64(11), entry.Size)
}

func (suite *StoreTestSuite) TestEditFile_OffsetBeyondEnd(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/log.txt", []byte("abc"), "alice"))
	err := s.EditFile(ctx, "/log.txt", []byte("x"), 4)
	AssertErrorCode(test, store.ErrInvalidArgument, err)
}

func (suite *StoreTestSuite) TestTruncateFile(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/log.txt", []byte("hello"), "alice"))
	require.NoError(test, s.TruncateFile(ctx, "/log.txt"))

	got, err := s.ReadFile(ctx, "/log.txt")
	require.NoError(test, err)
	assert.Empty(test, got)

	entry, err := s.GetMetadata(ctx, "/log.txt")
	require.NoError(test, err)
	assert.Equal(test, uint64(0), entry.Size)
}

func (suite *StoreTestSuite) TestDeleteFile_Success(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateFile(ctx, "/notes.txt", []byte("x"), "alice"))
	require.NoError(test, s.DeleteFile(ctx, "/notes.txt"))

	_, err := s.GetMetadata(ctx, "/notes.txt")
	AssertErrorCode(test, store.ErrNotFound, err)

	// Name is reusable after deletion.
	require.NoError(test, s.CreateFile(ctx, "/notes.txt", nil, "alice"))
}

func (suite *StoreTestSuite) TestDeleteFile_NotFound(test *testing.T) {
	s := suite.NewStore(test)

	err := s.DeleteFile(context.Background(), "/missing.txt")
	AssertErrorCode(test, store.ErrNotFound, err)
}

func (suite *StoreTestSuite) TestDeleteFile_Directory(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateDirectory(ctx, "/docs", "alice"))
	err := s.DeleteFile(ctx, "/docs")
	AssertErrorCode(test, store.ErrIsDirectory, err)
}

func (suite *StoreTestSuite) TestFileQuota_Enforced(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	stats, err := s.Stats(ctx)
	require.NoError(test, err)

	oversized := make([]byte, stats.TotalSize+1)
	err = s.CreateFile(ctx, "/huge.bin", oversized, "alice")
	AssertErrorCode(test, store.ErrNoSpace, err)

	// The failed write must not leak usage.
	after, err := s.Stats(ctx)
	require.NoError(test, err)
	assert.Equal(test, stats.UsedSpace, after.UsedSpace)
}
