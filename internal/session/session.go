package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/client"
	"github.com/deskline/ticket-sync/internal/domain"
)

// Authenticator exchanges credentials for an access token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (client.LoginResult, error)
}

// Session holds the access token of the signed-in user. It is the TokenSource of the HTTP
// client and tells the ticket store who "me" is.
type Session struct {
	mu     sync.RWMutex
	token  string
	user   *domain.User
	logger *zap.Logger
}

// New returns an anonymous session.
func New(logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{logger: logger}
}

// Token returns the bearer token, empty when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken installs a token obtained elsewhere. The user record is unknown until the next
// login, so the current user id comes from the token's subject claim.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = nil
}

// Clear signs out.
func (s *Session) Clear() {
	s.SetToken("")
}

// User returns the signed-in user when it was established by Login.
func (s *Session) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// Login authenticates and stores the returned token and user.
func (s *Session) Login(ctx context.Context, auth Authenticator, username, password string) (domain.User, error) {
	result, err := auth.Login(ctx, username, password)
	if err != nil {
		return domain.User{}, fmt.Errorf("login: %w", err)
	}
	user := result.User

	s.mu.Lock()
	s.token = result.AccessToken
	s.user = &user
	s.mu.Unlock()

	s.logger.Info("signed in", zap.String("username", user.Username), zap.Int64("user_id", user.ID))
	return user, nil
}

// CurrentUserID reports the signed-in user's id. The token is decoded without verification;
// the server remains the authority on its validity.
func (s *Session) CurrentUserID() (int64, bool) {
	s.mu.RLock()
	token, user := s.token, s.user
	s.mu.RUnlock()

	if user != nil {
		return user.ID, true
	}
	if token == "" {
		return 0, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		s.logger.Debug("unreadable access token", zap.Error(err))
		return 0, false
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
