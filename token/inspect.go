// Package token provides verification-free inspection of the JWTs the
// backend issues. The client never validates signatures; it only reads the
// exp claim to decide whether a refresh is worth attempting before a request
// goes out. Tokens that do not parse as JWTs are treated as opaque and
// never considered expiring.
package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ExpiryOf extracts the exp claim of rawToken without verifying its
// signature. It returns a zero time and an error if the token is not a JWT
// or carries no expiry.
func ExpiryOf(rawToken string) (time.Time, error) {
	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// ExpiresWithin reports whether rawToken expires within skew from now.
// Opaque (non-JWT) tokens and tokens without an exp claim report false.
func ExpiresWithin(rawToken string, skew time.Duration) bool {
	expiry, err := ExpiryOf(rawToken)
	if err != nil {
		return false
	}
	return !NowTimeFunc().Add(skew).Before(expiry)
}
