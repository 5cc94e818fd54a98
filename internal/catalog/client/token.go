package client

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// defaultTokenLifetime is how long a catalog token is used before it is re-signed.
const defaultTokenLifetime = 10 * time.Minute

// refreshMargin re-signs a token this long before it would expire.
const refreshMargin = 30 * time.Second

// Claims are the claims of a ZGW service token.
type Claims struct {
	ClientID           string `json:"client_id"`
	UserID             string `json:"user_id"`
	UserRepresentation string `json:"user_representation"`
	jwt.RegisteredClaims
}

// TokenSession signs and caches the bearer token used towards the catalog.
// Each client owns its session; the token is refreshed under the session's lock.
type TokenSession struct {
	clientID   string
	signingKey []byte
	lifetime   time.Duration
	now        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenSession creates a session for clientID signing with secret.
func NewTokenSession(clientID, secret string, lifetime time.Duration) *TokenSession {
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	return &TokenSession{
		clientID:   clientID,
		signingKey: []byte(secret),
		lifetime:   lifetime,
		now:        time.Now,
	}
}

// Token returns a valid token, signing a new one when the cached token is
// missing or about to expire.
func (s *TokenSession) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(refreshMargin).Before(s.expiresAt) {
		return s.token, nil
	}

	expiresAt := now.Add(s.lifetime)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ClientID:           s.clientID,
		UserID:             s.clientID,
		UserRepresentation: s.clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}).SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	s.token = signed
	s.expiresAt = expiresAt
	return signed, nil
}

// Invalidate drops the cached token so the next call re-signs.
func (s *TokenSession) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
}
