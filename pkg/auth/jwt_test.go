package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	// Test roundtrip: generate token -> validate token works
	secret := "test-secret-key-12345"
	issuer := "test-issuer"
	orgID := uuid.New()
	userID := uuid.New()
	role := "admin"
	expiryHours := 24

	tokenString, err := GenerateToken(secret, issuer, orgID, userID, role, expiryHours)

	require.NoError(t, err, "Should not error when generating token")
	assert.NotEmpty(t, tokenString, "Token should not be empty")

	claims, err := ValidateToken(tokenString, secret)

	require.NoError(t, err, "Should not error when validating token")
	assert.NotNil(t, claims)

	// Verify claims match what was provided
	assert.Equal(t, orgID, claims.OrgID, "Org ID should match")
	assert.Equal(t, userID, claims.UserID, "User ID should match")
	assert.Equal(t, role, claims.Role, "Role should match")
	assert.Equal(t, issuer, claims.Issuer, "Issuer should match")
	assert.Equal(t, userID.String(), claims.Subject, "Subject should be user ID")

	// Verify standard claims are set
	assert.NotNil(t, claims.ExpiresAt, "ExpiresAt should be set")
	assert.NotNil(t, claims.IssuedAt, "IssuedAt should be set")
	assert.NotNil(t, claims.NotBefore, "NotBefore should be set")
	assert.NotEmpty(t, claims.ID, "Token ID should be set")
}

func TestGenerateToken_MultipleCallsCreateDifferentIDs(t *testing.T) {
	// Test that multiple token generations create unique token IDs
	secret := "test-secret-key-12345"
	issuer := "test-issuer"
	orgID := uuid.New()
	userID := uuid.New()

	token1, err := GenerateToken(secret, issuer, orgID, userID, "analyst", 24)
	require.NoError(t, err)

	token2, err := GenerateToken(secret, issuer, orgID, userID, "analyst", 24)
	require.NoError(t, err)

	claims1, _ := ValidateToken(token1, secret)
	claims2, _ := ValidateToken(token2, secret)

	assert.NotEqual(t, claims1.ID, claims2.ID, "Each token should have a unique ID")
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	// Test that expired token returns error
	secret := "test-secret-key-12345"
	expiryHours := -1 // Expires in the past

	tokenString, err := GenerateToken(secret, "test-issuer", uuid.New(), uuid.New(), "viewer", expiryHours)
	require.NoError(t, err, "Should generate token even with past expiry")

	claims, err := ValidateToken(tokenString, secret)

	assert.Error(t, err, "Should error when validating expired token")
	assert.Nil(t, claims, "Claims should be nil for expired token")
	assert.Contains(t, err.Error(), "token")
}

func TestValidateToken_WrongSecret(t *testing.T) {
	// Test that wrong secret returns error
	secret := "test-secret-key-12345"
	wrongSecret := "wrong-secret-key-67890"

	tokenString, err := GenerateToken(secret, "test-issuer", uuid.New(), uuid.New(), "viewer", 24)
	require.NoError(t, err, "Should generate token")

	claims, err := ValidateToken(tokenString, wrongSecret)

	assert.Error(t, err, "Should error when validating with wrong secret")
	assert.Nil(t, claims, "Claims should be nil with wrong secret")
}

func TestValidateToken_InvalidTokenString(t *testing.T) {
	claims, err := ValidateToken("not.a.valid.token.string", "test-secret-key-12345")

	assert.Error(t, err, "Should error with invalid token")
	assert.Nil(t, claims)
}

func TestValidateToken_TamperedToken(t *testing.T) {
	// Test that tampered token (modified claims) returns error
	secret := "test-secret-key-12345"

	tokenString, err := GenerateToken(secret, "test-issuer", uuid.New(), uuid.New(), "viewer", 24)
	require.NoError(t, err)

	tamperedToken := tokenString[:len(tokenString)-10] + "tampered!!"

	claims, err := ValidateToken(tamperedToken, secret)

	assert.Error(t, err, "Should error when token is tampered")
	assert.Nil(t, claims)
}

func TestGenerateToken_DifferentRoles(t *testing.T) {
	secret := "test-secret-key-12345"
	orgID := uuid.New()
	userID := uuid.New()

	roles := []string{"admin", "analyst", "viewer"}

	for _, role := range roles {
		tokenString, err := GenerateToken(secret, "test-issuer", orgID, userID, role, 24)
		require.NoError(t, err, "Should generate token for role: %s", role)

		claims, err := ValidateToken(tokenString, secret)
		require.NoError(t, err)
		assert.Equal(t, role, claims.Role, "Role should be %s", role)
	}
}

func TestGenerateToken_DifferentExpiries(t *testing.T) {
	secret := "test-secret-key-12345"
	orgID := uuid.New()
	userID := uuid.New()

	testCases := []struct {
		expiryHours int
		name        string
	}{
		{1, "short-lived token"},
		{24, "one day token"},
		{168, "one week token"},
	}

	for _, tc := range testCases {
		tokenString, err := GenerateToken(secret, "test-issuer", orgID, userID, "viewer", tc.expiryHours)
		require.NoError(t, err, "Should generate %s", tc.name)

		claims, err := ValidateToken(tokenString, secret)
		require.NoError(t, err)

		expectedExpiry := time.Now().Add(time.Duration(tc.expiryHours) * time.Hour)

		// Allow 5 second window for test execution time
		assert.WithinDuration(t, expectedExpiry, claims.ExpiresAt.Time, 5*time.Second,
			"Expiry should be approximately %d hours from now for %s", tc.expiryHours, tc.name)
	}
}

func TestValidateToken_MissingCustomClaims(t *testing.T) {
	// A token carrying only registered claims parses, but the org and user
	// IDs come back zero. Callers must treat uuid.Nil as unauthenticated.
	secret := "test-secret-key-12345"

	standardClaims := jwt.RegisteredClaims{
		Issuer:    "test-issuer",
		Subject:   "test-subject",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, standardClaims)
	tokenString, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	claims, err := ValidateToken(tokenString, secret)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, claims.OrgID)
	assert.Equal(t, uuid.Nil, claims.UserID)
	assert.Empty(t, claims.Role)
}

func TestGenerateToken_UUIDOrgAndUserPreserved(t *testing.T) {
	secret := "test-secret-key-12345"
	orgID := uuid.New()
	userID := uuid.New()

	tokenString, err := GenerateToken(secret, "test-issuer", orgID, userID, "viewer", 24)
	require.NoError(t, err)

	claims, err := ValidateToken(tokenString, secret)
	require.NoError(t, err)

	assert.Equal(t, orgID.String(), claims.OrgID.String())
	assert.Equal(t, userID.String(), claims.UserID.String())
	assert.NotEqual(t, uuid.Nil, claims.OrgID)
	assert.NotEqual(t, uuid.Nil, claims.UserID)
}
