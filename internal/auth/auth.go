package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey int

const ClaimsKey ctxKey = 1

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// Claims carried by a session token. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (c Claims) IsAdmin() bool { return c.Role == RoleAdmin }

// Keys signs and verifies session tokens and remembers revoked token ids
// until they would have expired anyway.
type Keys struct {
	secret []byte
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewKeys(secret []byte) (*Keys, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret is empty")
	}
	return &Keys{secret: secret, now: time.Now, revoked: make(map[string]time.Time)}, nil
}

func (k *Keys) GenerateToken(userID, username, role string, ttl time.Duration) (string, Claims, error) {
	now := k.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    "storefront",
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: username,
		Role:     role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("signing token: %w", err)
	}
	return token, claims, nil
}

func (k *Keys) ValidateToken(tokenStr string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return k.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("storefront"),
		jwt.WithTimeFunc(k.now),
	)
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || (claims.Role != RoleUser && claims.Role != RoleAdmin) {
		return Claims{}, ErrInvalidToken
	}
	if k.isRevoked(claims.ID) {
		return Claims{}, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke blocks a token id until its expiry.
func (k *Keys) Revoke(claims Claims) {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.now()
	for id, exp := range k.revoked {
		if now.After(exp) {
			delete(k.revoked, id)
		}
	}
	exp := now
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	k.revoked[claims.ID] = exp
}

func (k *Keys) isRevoked(id string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.revoked[id]
	return ok
}
