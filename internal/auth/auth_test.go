package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	return New("secret", string(hash), time.Hour)
}

func TestLogin(t *testing.T) {
	a := newTestAuth(t)

	tok, exp, err := a.Login("letmein")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := a.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, claims.Role)

	_, _, err = a.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerify_Table(t *testing.T) {
	a := newTestAuth(t)
	valid, _, err := a.issue()
	require.NoError(t, err)

	other := New("other-secret", "", time.Hour)
	foreign, _, err := other.issue()
	require.NoError(t, err)

	past := newTestAuth(t)
	past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := past.issue()
	require.NoError(t, err)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, &TokenClaims{
		Role:      RoleModerator,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	refreshStr, err := refresh.SignedString([]byte("secret"))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &TokenClaims{Role: RoleModerator, TokenType: "access"})
	noneStr, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		ok    bool
	}{
		{"valid", valid, true},
		{"wrong secret", foreign, false},
		{"expired", expired, false},
		{"wrong type", refreshStr, false},
		{"alg none", noneStr, false},
		{"garbage", "not-a-token", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Verify(tt.token)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidToken)
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = BearerToken("bearer  abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc", "abc"} {
		_, ok := BearerToken(h)
		assert.False(t, ok, h)
	}
}
