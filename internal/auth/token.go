package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/product-api/internal/model"
)

const minKeyLen = 32

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the JWT payload. Registered claims carry sub, jti, iss, aud, iat
// and exp; Email and Name describe the user.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Identity is what the access gate hands to downstream handlers.
type Identity struct {
	UserID   uint64
	Email    string
	Username string
	TokenID  string
}

// Token is a signed JWT and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenIssuer signs and validates HS256 tokens for a single issuer/audience
// pair. It keeps no record of issued tokens.
type TokenIssuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenIssuer fails when any parameter would allow an unsigned, weakly
// signed or never-expiring token.
func NewTokenIssuer(key, issuer, audience string, ttl time.Duration) (*TokenIssuer, error) {
	switch {
	case len(key) < minKeyLen:
		return nil, fmt.Errorf("signing key must be at least %d bytes", minKeyLen)
	case issuer == "":
		return nil, errors.New("issuer is required")
	case audience == "":
		return nil, errors.New("audience is required")
	case ttl <= 0:
		return nil, errors.New("token lifetime must be positive")
	}
	return &TokenIssuer{
		key:      []byte(key),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Issue builds and signs a token for a persisted user.
func (t *TokenIssuer) Issue(u model.User) (Token, error) {
	if u.ID == 0 {
		return Token{}, errors.New("cannot issue token for unsaved user")
	}
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := Claims{
		Email: u.Email,
		Name:  u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(u.ID, 10),
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Parse validates signature, algorithm, issuer, audience and expiry, and
// requires every identity claim to be present.
func (t *TokenIssuer) Parse(raw string) (Identity, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return t.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return Identity{}, ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 || claims.ID == "" || claims.Email == "" || claims.Name == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: id, Email: claims.Email, Username: claims.Name, TokenID: claims.ID}, nil
}
