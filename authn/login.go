package authn

import "strconv"

// Provider is an OAuth login provider offered by the backend.
type Provider string

const (
	ProviderAzureAD Provider = "azuread-oauth2"
	ProviderGoogle  Provider = "google-oauth2"
)

const (
	redirectAttemptsKey = "loginRedirectAttempts"
	maxRedirectAttempts = 3
)

// LoginURL builds the backend entry point that starts the OAuth handshake
// for the given provider.
func (s *Service) LoginURL(provider Provider) string {
	u := s.cfg.AuthBaseURL() + "/auth/login/" + string(provider) + "/"
	if provider == ProviderAzureAD {
		// Always let the user pick an account instead of silently reusing
		// the last Microsoft session.
		u += "?prompt=select_account"
	}
	return u
}

// RedirectToLogin sends the tab to the provider's login entry point. A
// bounded attempt counter guards against redirect loops: once the cap is
// exceeded the counter resets and ErrTooManyRedirects is returned instead
// of navigating, so the caller can surface a terminal message.
func (s *Service) RedirectToLogin(provider Provider) error {
	attempts := s.redirectAttempts()
	if attempts > maxRedirectAttempts {
		s.logger.Warn().Int("attempts", attempts).Msg("too many login redirect attempts, giving up")
		s.ResetRedirectAttempts()
		return ErrTooManyRedirects
	}
	s.storage.Set(redirectAttemptsKey, strconv.Itoa(attempts+1))

	s.logger.Debug().Str("provider", string(provider)).Msg("redirecting to oauth login")
	s.nav.Assign(s.LoginURL(provider))
	return nil
}

// ResetRedirectAttempts clears the redirect-loop counter. Called on
// successful login and when entering the login screen directly.
func (s *Service) ResetRedirectAttempts() {
	s.storage.Delete(redirectAttemptsKey)
}

func (s *Service) redirectAttempts() int {
	raw, ok := s.storage.Get(redirectAttemptsKey)
	if !ok {
		return 0
	}
	attempts, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return attempts
}
