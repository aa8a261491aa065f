package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/secure-command-center/go-client/token"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()

	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestExpiryOf(t *testing.T) {
	expiry := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	raw := signedToken(t, jwtlib.MapClaims{"sub": "1", "exp": expiry.Unix()})

	got, err := token.ExpiryOf(raw)
	require.NoError(t, err)
	require.True(t, got.Equal(expiry))
}

func TestExpiryOf_OpaqueToken(t *testing.T) {
	_, err := token.ExpiryOf("not-a-jwt")
	require.Error(t, err)
}

func TestExpiryOf_MissingExpClaim(t *testing.T) {
	raw := signedToken(t, jwtlib.MapClaims{"sub": "1"})

	_, err := token.ExpiryOf(raw)
	require.ErrorIs(t, err, token.ErrNoExpiry)
}

func TestExpiresWithin(t *testing.T) {
	now := time.Now()
	token.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { token.NowTimeFunc = time.Now })

	tests := []struct {
		name string
		exp  time.Time
		skew time.Duration
		want bool
	}{
		{name: "expires long after skew", exp: now.Add(time.Hour), skew: time.Minute, want: false},
		{name: "expires inside skew", exp: now.Add(30 * time.Second), skew: time.Minute, want: true},
		{name: "already expired", exp: now.Add(-time.Minute), skew: 0, want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := signedToken(t, jwtlib.MapClaims{"exp": tc.exp.Unix()})
			require.Equal(t, tc.want, token.ExpiresWithin(raw, tc.skew))
		})
	}
}

func TestExpiresWithin_OpaqueTokenNeverExpires(t *testing.T) {
	require.False(t, token.ExpiresWithin("opaque-session-token", time.Hour))
}
