package sessions

import (
	"errors"
	"sync"

	"github.com/jrsteele09/synco-portal/users"
)

// ErrNoUser is returned when marking a session authenticated without a user
var ErrNoUser = errors.New("an authenticated session requires a user")

// SessionData is a point-in-time copy of the client session.
// The live state is held by Store; a SessionData is never shared with it.
type SessionData struct {
	User            *users.User // Identity of the signed-in member, nil when signed out
	IsAuthenticated bool        // Result of the last successful verification
	AccessToken     string      // Short-lived bearer credential ("" when absent)
	RefreshToken    string      // Long-lived credential used to mint access tokens ("" when absent)
	JustLoggedOut   bool        // Suppresses automatic re-authentication for one startup cycle
}

// Store is the single source of truth for the client session.
// It performs no network or storage I/O; callers write durable copies
// alongside every mutation.
type Store struct {
	mu   sync.RWMutex
	data SessionData
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a copy of the current session
func (s *Store) Snapshot() SessionData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.data
	c.User = s.data.User.Clone()
	return c
}

func (s *Store) User() *users.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.User.Clone()
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.IsAuthenticated
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.RefreshToken
}

func (s *Store) JustLoggedOut() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.JustLoggedOut
}

// SetUser replaces the user. Clearing the user also clears IsAuthenticated.
func (s *Store) SetUser(user *users.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.User = user.Clone()
	if user == nil {
		s.data.IsAuthenticated = false
	}
}

// SetAuthenticated records a successful verification for user
func (s *Store) SetAuthenticated(user *users.User) error {
	if user == nil {
		return ErrNoUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.User = user.Clone()
	s.data.IsAuthenticated = true
	return nil
}

// SetTokens replaces both tokens; an empty refresh token keeps the previous one
func (s *Store) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.AccessToken = accessToken
	if refreshToken != "" {
		s.data.RefreshToken = refreshToken
	}
}

func (s *Store) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.AccessToken = token
}

func (s *Store) SetRefreshToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.RefreshToken = token
}

func (s *Store) SetJustLoggedOut(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.JustLoggedOut = v
}

// ClearAuth drops the user and the authenticated flag but keeps the tokens
func (s *Store) ClearAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.User = nil
	s.data.IsAuthenticated = false
}

// Clear resets the session to empty. JustLoggedOut is left as it was.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = SessionData{JustLoggedOut: s.data.JustLoggedOut}
}
