package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	t.Parallel()

	svc := NewService("paperledger", []byte("secret"), time.Hour)
	tok, err := svc.IssueToken("acc-1")
	require.NoError(t, err)

	got, err := svc.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got)
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	svc := NewService("paperledger", []byte("secret"), time.Hour)
	good, err := svc.IssueToken("acc-1")
	require.NoError(t, err)

	otherKey, err := NewService("paperledger", []byte("other"), time.Hour).IssueToken("acc-1")
	require.NoError(t, err)
	otherIssuer, err := NewService("someone-else", []byte("secret"), time.Hour).IssueToken("acc-1")
	require.NoError(t, err)

	expired := NewService("paperledger", []byte("secret"), time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.IssueToken("acc-1")
	require.NoError(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "paperledger",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":      "not-a-token",
		"wrong key":    otherKey,
		"wrong issuer": otherIssuer,
		"expired":      stale,
		"no subject":   noSub,
		"truncated":    good[:len(good)-4],
	} {
		_, err := svc.ParseToken(tok)
		assert.Error(t, err, name)
	}
}

func TestIssueRequiresAccount(t *testing.T) {
	t.Parallel()

	_, err := NewService("paperledger", []byte("secret"), time.Hour).IssueToken("")
	assert.Error(t, err)
}
