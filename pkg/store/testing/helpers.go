package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileverse/omnifs/pkg/store"
)

// AdminUsername and AdminPassword are the credentials every factory must
// seed so authentication tests have a known account.
const (
	AdminUsername = "admin"
	AdminPassword = "admin-secret"
)

// AssertErrorCode fails the test unless err is a *store.Error carrying the
// expected code.
func AssertErrorCode(test *testing.T, expected store.ErrorCode, err error, msgAndArgs ...any) {
	test.Helper()
	require.Error(test, err, msgAndArgs...)
	se, ok := store.AsError(err)
	require.True(test, ok, "expected a *store.Error, got %T: %v", err, err)
	assert.Equal(test, expected, se.Code, msgAndArgs...)
}
