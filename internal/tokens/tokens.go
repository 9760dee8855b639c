// Package tokens persists the access/refresh token pair of a client
// session and inspects token expiry.
package tokens

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Storage keys of the two persisted tokens.
const (
	AccessKey  = "access_token"
	RefreshKey = "refresh_token"
)

// Pair is the persisted token pair. A zero Pair means "signed out".
type Pair struct {
	Access  string `json:"access_token" yaml:"access_token"`
	Refresh string `json:"refresh_token" yaml:"refresh_token"`
}

// IsZero reports whether neither token is present.
func (p Pair) IsZero() bool {
	return p.Access == "" && p.Refresh == ""
}

// Store is durable client storage for a token pair. Loading an empty
// store returns a zero Pair and no error.
type Store interface {
	Load(ctx context.Context) (Pair, error)
	Save(ctx context.Context, p Pair) error
	Clear(ctx context.Context) error
}

// ErrNoExpiry is returned when a token carries no readable exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// ExpiresAt reads the exp claim of a JWT without verifying its signature;
// the client never holds the signing key.
func ExpiresAt(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// Expired reports whether token expires within leeway from now. Tokens
// whose expiry cannot be read are never considered expired; the server
// decides for them.
func Expired(token string, leeway time.Duration) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return false
	}
	return !time.Now().Add(leeway).Before(exp)
}

// MemoryStore keeps the pair in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	pair Pair
}

// NewMemoryStore returns a store seeded with p.
func NewMemoryStore(p Pair) *MemoryStore {
	return &MemoryStore{pair: p}
}

func (s *MemoryStore) Load(ctx context.Context) (Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

func (s *MemoryStore) Save(ctx context.Context, p Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = p
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = Pair{}
	return nil
}
