package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewJWTVerifier("secret", "https://auth.example.com", "autowatering")

	token, err := v.SignForTest(Identity{
		UID:           "u1",
		Email:         "ana@example.com",
		EmailVerified: true,
		Premium:       true,
		Admin:         false,
	}, time.Hour)
	require.NoError(t, err)

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UID)
	assert.Equal(t, "ana@example.com", identity.Email)
	assert.True(t, identity.EmailVerified)
	assert.True(t, identity.Premium)
	assert.False(t, identity.Admin)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewJWTVerifier("secret-a", "", "")
	verifier := NewJWTVerifier("secret-b", "", "")

	token, err := issuer.SignForTest(Identity{UID: "u1"}, time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewJWTVerifier("secret", "", "")

	token, err := v.SignForTest(Identity{UID: "u1"}, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.Error(t, err)
}

func TestVerifyIssuerMismatch(t *testing.T) {
	issuer := NewJWTVerifier("secret", "https://other.example.com", "autowatering")
	verifier := NewJWTVerifier("secret", "https://auth.example.com", "autowatering")

	token, err := issuer.SignForTest(Identity{UID: "u1"}, time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerifyAudienceMismatch(t *testing.T) {
	issuer := NewJWTVerifier("secret", "https://auth.example.com", "other-app")
	verifier := NewJWTVerifier("secret", "https://auth.example.com", "autowatering")

	token, err := issuer.SignForTest(Identity{UID: "u1"}, time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerifyMissingSubject(t *testing.T) {
	v := NewJWTVerifier("secret", "", "")

	token, err := v.SignForTest(Identity{}, time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject")
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	v := NewJWTVerifier("secret", "", "")

	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Verify(unsigned)
	assert.Error(t, err)
}

func TestTruthyClaim(t *testing.T) {
	assert.True(t, truthyClaim(true))
	assert.True(t, truthyClaim(float64(1)))
	assert.True(t, truthyClaim("true"))
	assert.True(t, truthyClaim("1"))
	assert.False(t, truthyClaim(false))
	assert.False(t, truthyClaim(float64(0)))
	assert.False(t, truthyClaim("false"))
	assert.False(t, truthyClaim("0"))
	assert.False(t, truthyClaim(""))
	assert.False(t, truthyClaim(nil))
	assert.False(t, truthyClaim([]string{"true"}))
}
