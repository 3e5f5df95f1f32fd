package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	tok, err := Generate("s3cret", "msp-api", 5, "u-1", "tech", "")
	require.NoError(t, err)

	claims, err := Parse("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "tech", claims.Role)
	assert.Equal(t, "msp-api", claims.Issuer)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := Generate("s3cret", "msp-api", 5, "u-1", "admin", "")
	require.NoError(t, err)

	_, err = Parse("otro", tok)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := Generate("s3cret", "msp-api", -1, "u-1", "admin", "")
	require.NoError(t, err)

	_, err = Parse("s3cret", tok)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := Generate("", "i", 5, "u", "admin", "")
	assert.ErrorIs(t, err, errEmptySecret)
	_, err = Parse("", "x")
	assert.ErrorIs(t, err, errEmptySecret)
}
