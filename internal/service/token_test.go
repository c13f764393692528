package service_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/signinable/signind/internal/service"
)

func TestIssueRefreshToken(t *testing.T) {
	issuer := service.NewTokenIssuer(testSecret, newFakeClock())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := issuer.IssueRefreshToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err, "token must be URL-safe base64")
		require.GreaterOrEqual(t, len(raw), 50, "at least 400 bits of entropy")
		require.LessOrEqual(t, len(raw), 100)

		require.False(t, seen[token], "tokens must not repeat")
		seen[token] = true
	}
}

func TestBearerTokenRoundTrip(t *testing.T) {
	clock := newFakeClock()
	issuer := service.NewTokenIssuer(testSecret, clock)

	bearer, err := issuer.IssueBearerToken("refresh-123", "owner-42", time.Minute)
	require.NoError(t, err)

	claims, err := issuer.Decode(bearer, true)
	require.NoError(t, err)
	require.Equal(t, "refresh-123", claims.RefreshToken)
	require.Equal(t, "owner-42", claims.OwnerID)
	require.Equal(t, clock.Now().Add(time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestDecodeExpiredBearer(t *testing.T) {
	clock := newFakeClock()
	issuer := service.NewTokenIssuer(testSecret, clock)

	bearer, err := issuer.IssueBearerToken("refresh-123", "owner-42", time.Minute)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, err = issuer.Decode(bearer, true)
	require.ErrorIs(t, err, service.ErrBearerExpired)

	// The rotation path still needs the claims of an authentic expired token.
	claims, err := issuer.Decode(bearer, false)
	require.NoError(t, err)
	require.Equal(t, "refresh-123", claims.RefreshToken)
}

func TestDecodeRejectsWrongKey(t *testing.T) {
	clock := newFakeClock()
	forged, err := service.NewTokenIssuer([]byte("other"), clock).IssueBearerToken("refresh-123", "owner-42", time.Minute)
	require.NoError(t, err)

	issuer := service.NewTokenIssuer(testSecret, clock)
	for _, verifyExpiration := range []bool{true, false} {
		_, err := issuer.Decode(forged, verifyExpiration)
		require.ErrorIs(t, err, service.ErrInvalidSignature)
	}
}

func TestDecodeRejectsTampering(t *testing.T) {
	issuer := service.NewTokenIssuer(testSecret, newFakeClock())

	bearer, err := issuer.IssueBearerToken("refresh-123", "owner-42", time.Minute)
	require.NoError(t, err)

	tampered := bearer[:len(bearer)-2] + "xx"
	_, err = issuer.Decode(tampered, false)
	require.ErrorIs(t, err, service.ErrInvalidSignature)
}

func TestDecodeRejectsForeignSigningMethods(t *testing.T) {
	issuer := service.NewTokenIssuer(testSecret, newFakeClock())

	// An unsigned token must never be consulted, even with a "none" header.
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"refresh_token": "refresh-123",
		"owner_id":      "owner-42",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Decode(unsigned, false)
	require.ErrorIs(t, err, service.ErrInvalidSignature)

	// Same secret, different HMAC variant: still rejected.
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"refresh_token": "refresh-123",
		"owner_id":      "owner-42",
	}).SignedString(testSecret)
	require.NoError(t, err)

	_, err = issuer.Decode(hs512, false)
	require.ErrorIs(t, err, service.ErrInvalidSignature)
}
