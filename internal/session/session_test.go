package session

import (
	"context"
	"errors"
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deskline/ticket-sync/internal/client"
	"github.com/deskline/ticket-sync/internal/domain"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Login(ctx context.Context, username, password string) (client.LoginResult, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(client.LoginResult), args.Error(1)
}

func signed(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject}).SignedString([]byte("any"))
	require.NoError(t, err)
	return token
}

func TestAnonymousSessionHasNoUser(t *testing.T) {
	s := New(nil)
	_, ok := s.CurrentUserID()
	assert.False(t, ok)
	assert.Empty(t, s.Token())
}

func TestCurrentUserIDFromTokenSubject(t *testing.T) {
	s := New(nil)

	s.SetToken(signed(t, "42"))
	id, ok := s.CurrentUserID()
	require.True(t, ok)
	assert.Equal(t, int64(42), id)

	s.SetToken(signed(t, "not-a-number"))
	_, ok = s.CurrentUserID()
	assert.False(t, ok)

	s.SetToken("garbage")
	_, ok = s.CurrentUserID()
	assert.False(t, ok)
}

func TestLoginStoresTokenAndUser(t *testing.T) {
	auth := &mockAuthenticator{}
	auth.On("Login", mock.Anything, "agent", "pw").Return(client.LoginResult{
		AccessToken: signed(t, "9"),
		TokenType:   "bearer",
		User:        domain.User{ID: 3, Username: "agent", Role: domain.UserRoleUser, IsActive: true},
	}, nil)
	s := New(nil)

	user, err := s.Login(context.Background(), auth, "agent", "pw")

	require.NoError(t, err)
	assert.Equal(t, "agent", user.Username)
	id, ok := s.CurrentUserID()
	require.True(t, ok)
	assert.Equal(t, int64(3), id, "the user record wins over the token subject")
	assert.NotEmpty(t, s.Token())
	auth.AssertExpectations(t)

	s.Clear()
	_, ok = s.User()
	assert.False(t, ok)
}

func TestLoginFailureKeepsPreviousToken(t *testing.T) {
	auth := &mockAuthenticator{}
	auth.On("Login", mock.Anything, "agent", "wrong").Return(client.LoginResult{}, errors.New("Incorrect username or password"))
	s := New(nil)
	s.SetToken("previous")

	_, err := s.Login(context.Background(), auth, "agent", "wrong")

	require.Error(t, err)
	assert.Equal(t, "previous", s.Token())
}
