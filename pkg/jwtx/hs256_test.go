package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/biblenation/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestHS256_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	require.Equal(t, "HS256", signer.Alg())

	verifier, err := jwtx.NewVerifierHS256(testSecret, jwtx.WithIssuer("biblenation"), jwtx.WithClock(clock))
	require.NoError(t, err)

	token, err := signer.Sign(jwtx.NewSessionClaims("acct-1", "sess-1", "admin", "biblenation", time.Hour, now))
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "acct-1", claims.Subject)
	require.Equal(t, "sess-1", claims.SID)
	require.Equal(t, "admin", claims.Role)

	t.Run("expired", func(t *testing.T) {
		later, err := jwtx.NewVerifierHS256(testSecret, jwtx.WithClock(func() time.Time { return now.Add(2 * time.Hour) }))
		require.NoError(t, err)
		_, err = later.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := jwtx.NewVerifierHS256(testSecret, jwtx.WithIssuer("elsewhere"), jwtx.WithClock(clock))
		require.NoError(t, err)
		_, err = other.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := jwtx.NewVerifierHS256([]byte(strings.Repeat("z", 32)), jwtx.WithClock(clock))
		require.NoError(t, err)
		_, err = other.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := verifier.Verify("not-a-jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestHS256_RejectsOtherAlgorithms(t *testing.T) {
	now := time.Now()
	claims := jwtx.NewSessionClaims("acct-1", "sess-1", "user", "", time.Hour, now)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	verifier, err := jwtx.NewVerifierHS256(testSecret)
	require.NoError(t, err)

	_, err = verifier.Verify(unsigned)
	require.Error(t, err)
}

func TestHS256_RequiresSessionClaims(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	_, err = signer.Sign(jwtx.Claims{})
	require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
}

func TestHS256_WeakSecret(t *testing.T) {
	_, err := jwtx.NewSignerHS256([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)

	_, err = jwtx.NewVerifierHS256(nil)
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}
