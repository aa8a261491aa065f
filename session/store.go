// Package session owns the JWT token pair and the user model. The Store is
// the single writer of the token keys; every other component reads tokens
// through it and never touches storage directly.
package session

import "github.com/secure-command-center/go-client/platform"

// Storage keys for the token pair. Tab-scoped, so every tab holds its own
// copy of the pair.
const (
	accessTokenKey  = "accessToken"
	refreshTokenKey = "refreshToken"
)

// TokenPair is an access/refresh token pair. Tokens are opaque strings; the
// pair is either both present or both absent after a completed login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Store persists the token pair in tab-scoped storage. It performs no
// network I/O and no validation of token contents.
type Store struct {
	storage platform.Storage
}

func NewStore(storage platform.Storage) *Store {
	return &Store{storage: storage}
}

// StoreTokens writes both tokens. Callers running synchronously never
// observe a state where only one of the two is set.
func (s *Store) StoreTokens(pair TokenPair) {
	s.storage.Set(accessTokenKey, pair.Access)
	s.storage.Set(refreshTokenKey, pair.Refresh)
}

// ClearTokens removes both tokens.
func (s *Store) ClearTokens() {
	s.storage.Delete(accessTokenKey)
	s.storage.Delete(refreshTokenKey)
}

// AccessToken returns the stored access token, if any. An empty value
// counts as absent.
func (s *Store) AccessToken() (string, bool) {
	return s.read(accessTokenKey)
}

// RefreshToken returns the stored refresh token, if any. An empty value
// counts as absent.
func (s *Store) RefreshToken() (string, bool) {
	return s.read(refreshTokenKey)
}

func (s *Store) read(key string) (string, bool) {
	v, ok := s.storage.Get(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
