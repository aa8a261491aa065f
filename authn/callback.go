package authn

import "github.com/secure-command-center/go-client/session"

// Query parameters the backend appends when redirecting back after a
// completed OAuth login.
const (
	accessParam  = "jwt_access"
	refreshParam = "jwt_refresh"
)

// HandleOAuthCallback consumes a token pair delivered via redirect query
// parameters. When both parameters are present it stores the pair and
// rewrites the visible URL without the query string (preserving path and
// fragment) so tokens never persist in history or survive a reload. Returns
// whether tokens were found and consumed; the URL rewrite makes a second
// call a no-op.
func (s *Service) HandleOAuthCallback() bool {
	current := s.nav.CurrentURL()
	query := current.Query()

	access := query.Get(accessParam)
	refresh := query.Get(refreshParam)
	if access == "" || refresh == "" {
		return false
	}

	s.store.StoreTokens(session.TokenPair{Access: access, Refresh: refresh})

	stripped := *current
	stripped.RawQuery = ""
	s.nav.ReplaceURL(&stripped)

	s.logger.Debug().Msg("oauth callback tokens consumed, url cleaned")
	return true
}
