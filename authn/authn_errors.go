package authn

import "errors"

var (
	ErrTooManyRedirects = errors.New("too many login redirect attempts")
)
