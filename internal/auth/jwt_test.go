package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueParse(t *testing.T) {
	tk := NewTokens("s3cret", time.Hour)
	raw, err := tk.Issue(Identity{UserID: "u1", Email: "u1@example.com", Admin: true})
	require.NoError(t, err)

	id, err := tk.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", Email: "u1@example.com", Admin: true}, id)
}

func TestParse_Rejects(t *testing.T) {
	tk := NewTokens("s3cret", time.Hour)

	other, err := NewTokens("other", time.Hour).Issue(Identity{UserID: "u1"})
	require.NoError(t, err)

	expired, err := NewTokens("s3cret", time.Hour).sign(claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	require.NoError(t, err)

	noSubject, err := tk.sign(claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": other,
		"expired":      expired,
		"no subject":   noSubject,
		"alg none":     none,
		"garbage":      "abc.def",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tk.Parse(raw)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func (t *Tokens) sign(c claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}
