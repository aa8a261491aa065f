package token

import "errors"

var (
	ErrNoExpiry = errors.New("token has no exp claim")
)
