package session

import "errors"

var (
	ErrInvalidProfile = errors.New("invalid user profile payload")
)
