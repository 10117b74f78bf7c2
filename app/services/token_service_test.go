package services

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService() (TokenService, error) {
	return NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false, // useRSAKeys
		"",    // privateKeyPEM
		"",    // publicKeyPEM
		"test-secret-key-for-jwt-signing-32-chars", // secretKey
	)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		privateKey  string
		publicKey   string
		secretKey   string
		expectError bool
	}{
		{
			name:        "valid symmetric key configuration",
			secretKey:   "test-secret-key-for-jwt-signing-32-chars",
			expectError: false,
		},
		{
			name:        "missing secret key",
			secretKey:   "",
			expectError: true,
		},
		{
			name:        "rsa without keys",
			useRSAKeys:  true,
			expectError: true,
		},
		{
			name:        "rsa with garbage keys",
			useRSAKeys:  true,
			privateKey:  "not a pem",
			publicKey:   "not a pem",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(15*time.Minute, time.Hour, "iss", "aud",
				tt.useRSAKeys, tt.privateKey, tt.publicKey, tt.secretKey)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestGenerateAdminTokens(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateAdminTokens(42)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)
	assert.NotEqual(t, accessToken, refreshToken)

	// JWT header always starts with eyJ
	assert.True(t, strings.HasPrefix(accessToken, "eyJ"))
	assert.Len(t, strings.Split(accessToken, "."), 3)
}

func TestValidateAdminToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateAdminTokens(7)
	require.NoError(t, err)

	t.Run("AccessToken", func(t *testing.T) {
		claims, err := service.ValidateAdminToken(accessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.AdminID)
		assert.Equal(t, "access", claims.TokenType)
		assert.NotEmpty(t, claims.TokenID)
		assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
	})

	t.Run("RefreshToken", func(t *testing.T) {
		claims, err := service.ValidateAdminToken(refreshToken)
		require.NoError(t, err)
		assert.Equal(t, "refresh", claims.TokenType)
	})

	t.Run("Garbage", func(t *testing.T) {
		for _, tok := range []string{"", "invalid.token.format", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"} {
			_, err := service.ValidateAdminToken(tok)
			assert.ErrorIs(t, err, ErrTokenInvalid, "token %q", tok)
		}
	})

	t.Run("ForeignSecret", func(t *testing.T) {
		other, err := NewTokenService(15*time.Minute, time.Hour, "iss", "aud", false, "", "", "another-secret-key-for-jwt-signing")
		require.NoError(t, err)
		foreign, _, err := other.GenerateAdminTokens(7)
		require.NoError(t, err)

		_, err = service.ValidateAdminToken(foreign)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("ForeignIssuer", func(t *testing.T) {
		other, err := NewTokenService(15*time.Minute, time.Hour, "other-issuer", "test-audience", false, "", "", "test-secret-key-for-jwt-signing-32-chars")
		require.NoError(t, err)
		foreign, _, err := other.GenerateAdminTokens(7)
		require.NoError(t, err)

		_, err = service.ValidateAdminToken(foreign)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestAdminTokenExpiration(t *testing.T) {
	service, err := NewTokenService(-time.Hour, -time.Hour, "iss", "aud", false, "", "", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)

	accessToken, _, err := service.GenerateAdminTokens(1)
	require.NoError(t, err)

	_, err = service.ValidateAdminToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshAdminToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateAdminTokens(9)
	require.NoError(t, err)

	t.Run("AccessTokenRejected", func(t *testing.T) {
		_, _, err := service.RefreshAdminToken(accessToken)
		assert.Error(t, err)
	})

	t.Run("RotatesAndRevokesOldRefresh", func(t *testing.T) {
		newAccess, newRefresh, err := service.RefreshAdminToken(refreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, refreshToken, newRefresh)

		claims, err := service.ValidateAdminToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(9), claims.AdminID)

		_, _, err = service.RefreshAdminToken(refreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})
}

func TestRevokeToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, _, err := service.GenerateAdminTokens(3)
	require.NoError(t, err)
	assert.False(t, service.IsTokenRevoked(accessToken))

	require.NoError(t, service.RevokeToken(accessToken))
	assert.True(t, service.IsTokenRevoked(accessToken))

	_, err = service.ValidateAdminToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// revoking twice is fine
	assert.NoError(t, service.RevokeToken(accessToken))

	assert.Error(t, service.RevokeToken("garbage"))
	assert.True(t, service.IsTokenRevoked("garbage"))
}

func TestConcurrentAdminTokenGeneration(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	tokens := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _, errs[i] = service.GenerateAdminTokens(uint(i + 1))
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[tokens[i]], "duplicate token")
		seen[tokens[i]] = true
	}
}
