package security

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return DefaultOptions([]byte("test-secret"))
}

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := testOptions()
	token, exp, err := Generate(opts, "user-1")
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))

	claims, err := Verify(opts, token)
	require.NoError(t, err)
	require.Equal(t, "user-1", UserID(claims))
	require.Empty(t, Nonce(claims))
}

func TestRepeatedMintsAllVerify(t *testing.T) {
	opts := testOptions()
	first, _, err := Generate(opts, "user-1")
	require.NoError(t, err)
	second, _, err := Generate(opts, "user-1")
	require.NoError(t, err)

	for _, token := range []string{first, second} {
		claims, err := Verify(opts, token)
		require.NoError(t, err)
		require.Equal(t, "user-1", UserID(claims))
	}
}

func TestRepeatedPairingMintsDecodeToSameID(t *testing.T) {
	opts := testOptions()
	first, err := GeneratePairing(opts, "user-1", "nonce-a", time.Minute)
	require.NoError(t, err)
	second, err := GeneratePairing(opts, "user-1", "nonce-b", time.Minute)
	require.NoError(t, err)

	for _, token := range []string{first, second} {
		claims, err := Verify(opts, token)
		require.NoError(t, err)
		require.Equal(t, "user-1", UserID(claims))
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := Generate(testOptions(), "user-1")
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("other-secret")), token)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	opts := testOptions()
	claims := jwtlib.MapClaims{
		"id":  "user-1",
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(opts.Secret)
	require.NoError(t, err)

	_, err = Verify(opts, token)
	require.Error(t, err)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	claims := jwtlib.MapClaims{"id": "user-1"}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims).
		SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = Verify(testOptions(), token)
	require.Error(t, err)
}

func TestGeneratePairingCarriesNonce(t *testing.T) {
	opts := testOptions()
	token, err := GeneratePairing(opts, "user-1", "nonce-abc", time.Minute)
	require.NoError(t, err)

	claims, err := Verify(opts, token)
	require.NoError(t, err)
	require.Equal(t, "user-1", UserID(claims))
	require.Equal(t, "nonce-abc", Nonce(claims))

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Minute), exp.Time, 5*time.Second)
}

func TestSigningMethodSelection(t *testing.T) {
	for _, alg := range []string{"", "HS256", "hs384", "HS512"} {
		opts := testOptions()
		opts.Alg = alg
		token, _, err := Generate(opts, "user-1")
		require.NoError(t, err, "alg %q", alg)
		_, err = Verify(opts, token)
		require.NoError(t, err, "alg %q", alg)
	}

	opts := testOptions()
	opts.Alg = "RS256"
	_, _, err := Generate(opts, "user-1")
	require.Error(t, err)
}
