package security

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func TestCreateServiceToken(t *testing.T) {
	signed, err := CreateServiceToken(DefaultServiceIdentity(), testSecret, time.Hour)
	require.NoError(t, err)

	var claims IdentityClaims
	token, err := jwt.ParseWithClaims(signed, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("0123456789abcdef0123456789abcdef"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "assists-sync", claims.UniqueName)
	assert.Equal(t, "service", claims.Provider)
	assert.Equal(t, "axiapac", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"biometrics"}, claims.Audience)
}

func TestCreateServiceTokenInvalidSecret(t *testing.T) {
	_, err := CreateServiceToken(DefaultServiceIdentity(), "%%%not-base64", time.Hour)
	assert.Error(t, err)
}

func TestServiceTokenProviderCaches(t *testing.T) {
	provider := ServiceTokenProvider(DefaultServiceIdentity(), testSecret, time.Hour)

	first, err := provider()
	require.NoError(t, err)
	second, err := provider()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
