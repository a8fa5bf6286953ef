package auth

import (
	"testing"
	"time"

	"flowfin/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withKey(t *testing.T) {
	t.Helper()
	prevKey, prevApp := config.JwtKey, config.App
	config.JwtKey = []byte("test-secret")
	config.App = config.Defaults()
	t.Cleanup(func() {
		config.JwtKey, config.App = prevKey, prevApp
	})
}

func TestIssueAndParseToken(t *testing.T) {
	withKey(t)

	tok, err := IssueToken(7, 3)
	require.NoError(t, err)

	claims, err := ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: 7, OrgID: 3}, claims)
}

func TestParseTokenRejectsForeignKey(t *testing.T) {
	withKey(t)

	tok, err := IssueToken(7, 0)
	require.NoError(t, err)

	config.JwtKey = []byte("another-secret")
	_, err = ParseToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	withKey(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	s, err := expired.SignedString(config.JwtKey)
	require.NoError(t, err)

	_, err = ParseToken(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRequiresUser(t *testing.T) {
	withKey(t)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"org_id": 4})
	s, err := tok.SignedString(config.JwtKey)
	require.NoError(t, err)

	_, err = ParseToken(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
