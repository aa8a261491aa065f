// Package authn performs the authentication half of the session lifecycle:
// consuming redirect-delivered tokens, checking who the user is, logging
// out, and starting the OAuth provider redirect. Whether the user may use
// the application is the access package's concern.
package authn

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/secure-command-center/go-client/gateway"
	"github.com/secure-command-center/go-client/internal/config"
	"github.com/secure-command-center/go-client/platform"
	"github.com/secure-command-center/go-client/session"
)

const (
	csrfPath    = "/auth/csrf/"
	profilePath = "/auth/profile/"
	logoutPath  = "/auth/logout/"
)

// Service coordinates authentication against the backend. One instance per
// tab; all lifecycle state lives on the instance.
type Service struct {
	cfg     config.Config
	store   *session.Store
	api     *gateway.Client
	nav     platform.Navigator
	storage platform.Storage
	logger  zerolog.Logger
}

type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(
	cfg config.Config,
	store *session.Store,
	api *gateway.Client,
	nav platform.Navigator,
	storage platform.Storage,
	options ...ServiceOption,
) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("[NewService] config is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	if api == nil {
		return nil, errors.New("[NewService] gateway client is required")
	}
	if nav == nil {
		return nil, errors.New("[NewService] navigator is required")
	}
	if storage == nil {
		return nil, errors.New("[NewService] storage is required")
	}

	s := &Service{
		cfg:     cfg,
		store:   store,
		api:     api,
		nav:     nav,
		storage: storage,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// CheckAuthentication resolves the current identity. Without an access token
// it returns (nil, nil) with no network call. With one, it primes the CSRF
// cookie best-effort and fetches the profile; the gateway recovers an
// expired access token underneath. An authentication failure or a malformed
// profile payload clears the stored tokens and reports unauthenticated
// rather than an error.
func (s *Service) CheckAuthentication(ctx context.Context) (*session.User, error) {
	if _, ok := s.store.AccessToken(); !ok {
		s.logger.Debug().Msg("no access token stored, skipping authentication check")
		return nil, nil
	}

	s.primeCSRF(ctx)

	var user session.User
	if err := s.api.GetJSON(ctx, profilePath, &user); err != nil {
		var authErr *gateway.AuthError
		if errors.As(err, &authErr) || errors.Is(err, gateway.ErrRefreshFailed) || errors.Is(err, gateway.ErrNoRefreshToken) {
			s.logger.Debug().Err(err).Msg("authentication check rejected, clearing session")
			s.store.ClearTokens()
			return nil, nil
		}
		return nil, err
	}

	if err := user.Validate(); err != nil {
		// The endpoint answered with something that is not a user object
		// (e.g. an HTML redirect page). Rendering it would be worse than
		// logging in again.
		s.logger.Warn().Err(err).Msg("profile endpoint returned malformed payload")
		s.store.ClearTokens()
		return nil, err
	}

	s.ResetRedirectAttempts()
	s.logger.Debug().Str("username", user.Username).Bool("app_authorized", user.IsAppAuthorized).
		Msg("authentication check successful")
	return &user, nil
}

// Logout invalidates the refresh token server-side and always clears the
// local session. Backend failure is logged, not surfaced; the tab must end
// its session regardless.
func (s *Service) Logout(ctx context.Context) {
	refresh, _ := s.store.RefreshToken()
	if err := s.api.PostJSON(ctx, logoutPath, map[string]string{"refresh": refresh}, nil); err != nil {
		s.logger.Warn().Err(err).Msg("backend logout failed, clearing session anyway")
	}

	s.store.ClearTokens()
	if err := s.api.ResetCookies(); err != nil {
		s.logger.Warn().Err(err).Msg("cookie cleanup failed")
	}
}

// primeCSRF asks the backend to set its CSRF cookie. Best-effort: a failure
// never blocks authentication.
func (s *Service) primeCSRF(ctx context.Context) {
	if err := s.api.GetJSON(ctx, csrfPath, nil); err != nil {
		s.logger.Debug().Err(err).Msg("csrf priming failed")
	}
}
