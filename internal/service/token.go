package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Refresh tokens are variable-length URL-safe strings; the minimum alone
// carries 400 bits of entropy.
const (
	minRefreshTokenBytes = 50
	maxRefreshTokenBytes = 100
)

// BearerClaims is the wire payload of a bearer token: the refresh token it
// wraps, the owner it belongs to, and the usual registered claims.
type BearerClaims struct {
	RefreshToken string `json:"refresh_token"`
	OwnerID      string `json:"owner_id"`
	jwt.RegisteredClaims
}

// TokenIssuer mints opaque refresh tokens and signs short-lived bearer
// tokens wrapping them. The signing method is pinned to HS256; tokens
// carrying any other method fail verification.
type TokenIssuer struct {
	secret []byte
	clock  Clock
}

func NewTokenIssuer(secret []byte, clock Clock) *TokenIssuer {
	if clock == nil {
		clock = SystemClock()
	}
	return &TokenIssuer{secret: secret, clock: clock}
}

func (ti *TokenIssuer) IssueRefreshToken() (string, error) {
	var lengthByte [1]byte
	if _, err := rand.Read(lengthByte[:]); err != nil {
		return "", fmt.Errorf("read random length: %w", err)
	}
	length := minRefreshTokenBytes + int(lengthByte[0])%(maxRefreshTokenBytes-minRefreshTokenBytes+1)

	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (ti *TokenIssuer) IssueBearerToken(refreshToken, ownerID string, ttl time.Duration) (string, error) {
	now := ti.clock.Now()
	claims := &BearerClaims{
		RefreshToken: refreshToken,
		OwnerID:      ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign bearer token: %w", err)
	}

	return signedToken, nil
}

// Decode verifies the signature and, only when verifyExpiration is set, the
// exp claim. The rotation path needs the claims of an expired-but-authentic
// bearer token, which is why the two checks are separable; the signature
// check itself is never optional.
func (ti *TokenIssuer) Decode(bearerToken string, verifyExpiration bool) (*BearerClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.clock.Now),
	}
	if verifyExpiration {
		opts = append(opts, jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	parsedToken, err := jwt.ParseWithClaims(
		bearerToken,
		&BearerClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, ErrInvalidSignature
			}
			return ti.secret, nil
		},
		opts...,
	)
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) && errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrBearerExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	claims, ok := parsedToken.Claims.(*BearerClaims)
	if !ok || claims.RefreshToken == "" {
		return nil, ErrInvalidSignature
	}

	return claims, nil
}
