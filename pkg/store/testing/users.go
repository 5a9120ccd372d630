package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileverse/omnifs/pkg/store"
)

func (suite *StoreTestSuite) RunUserTests(test *testing.T) {
	test.Run("Authenticate_Admin", suite.TestAuthenticate_Admin)
	test.Run("Authenticate_WrongPassword", suite.TestAuthenticate_WrongPassword)
	test.Run("Authenticate_UnknownUser", suite.TestAuthenticate_UnknownUser)
	test.Run("Create_And_Authenticate", suite.TestCreateUser_AndAuthenticate)
	test.Run("Create_Duplicate", suite.TestCreateUser_Duplicate)
	test.Run("Create_EmptyUsername", suite.TestCreateUser_EmptyUsername)
	test.Run("Delete_Success", suite.TestDeleteUser_Success)
	test.Run("Delete_NotFound", suite.TestDeleteUser_NotFound)
	test.Run("List_Sorted", suite.TestListUsers_Sorted)
}

func (suite *StoreTestSuite) TestAuthenticate_Admin(test *testing.T) {
	s := suite.NewStore(test)

	user, err := s.Authenticate(context.Background(), AdminUsername, AdminPassword)
	require.NoError(test, err)
	assert.Equal(test, AdminUsername, user.Username)
	assert.Equal(test, store.RoleAdmin, user.Role)
	assert.True(test, user.IsActive)
}

func (suite *StoreTestSuite) TestAuthenticate_WrongPassword(test *testing.T) {
	s := suite.NewStore(test)

	_, err := s.Authenticate(context.Background(), AdminUsername, "wrong")
	AssertErrorCode(test, store.ErrInvalidCredentials, err)
}

func (suite *StoreTestSuite) TestAuthenticate_UnknownUser(test *testing.T) {
	s := suite.NewStore(test)

	// Unknown user and wrong password are indistinguishable.
	_, err := s.Authenticate(context.Background(), "nobody", "whatever")
	AssertErrorCode(test, store.ErrInvalidCredentials, err)
}

func (suite *StoreTestSuite) TestCreateUser_AndAuthenticate(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateUser(ctx, "bob", "bob-pass", store.RoleNormal))

	user, err := s.Authenticate(ctx, "bob", "bob-pass")
	require.NoError(test, err)
	assert.Equal(test, store.RoleNormal, user.Role)

	// The stored hash never equals the plaintext.
	assert.NotEqual(test, []byte("bob-pass"), user.PasswordHash)
}

func (suite *StoreTestSuite) TestCreateUser_Duplicate(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateUser(ctx, "bob", "x", store.RoleNormal))
	err := s.CreateUser(ctx, "bob", "y", store.RoleNormal)
	AssertErrorCode(test, store.ErrAlreadyExists, err)
}

func (suite *StoreTestSuite) TestCreateUser_EmptyUsername(test *testing.T) {
	s := suite.NewStore(test)

	err := s.CreateUser(context.Background(), "", "x", store.RoleNormal)
	AssertErrorCode(test, store.ErrInvalidArgument, err)
}

func (suite *StoreTestSuite) TestDeleteUser_Success(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateUser(ctx, "bob", "x", store.RoleNormal))
	require.NoError(test, s.DeleteUser(ctx, "bob"))

	_, err := s.Authenticate(ctx, "bob", "x")
	AssertErrorCode(test, store.ErrInvalidCredentials, err)
}

func (suite *StoreTestSuite) TestDeleteUser_NotFound(test *testing.T) {
	s := suite.NewStore(test)

	err := s.DeleteUser(context.Background(), "nobody")
	AssertErrorCode(test, store.ErrNotFound, err)
}

func (suite *StoreTestSuite) TestListUsers_Sorted(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, s.CreateUser(ctx, "zoe", "x", store.RoleNormal))
	require.NoError(test, s.CreateUser(ctx, "bob", "x", store.RoleNormal))

	users, err := s.ListUsers(ctx)
	require.NoError(test, err)
	require.Len(test, users, 3)
	assert.Equal(test, AdminUsername, users[0].Username)
	assert.Equal(test, "bob", users[1].Username)
	assert.Equal(test, "zoe", users[2].Username)
}
