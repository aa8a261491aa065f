package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/secure-command-center/go-client/session"
)

// refreshResult is what a queued request receives once the winning refresh
// settles: the new access token, or the terminal error.
type refreshResult struct {
	access string
	err    error
}

// refreshCoordinator serializes token refresh per client. At most one
// refresh HTTP call is in flight at any time; every request that observes a
// 401 while one is in flight is queued and released exactly once, in FIFO
// order, when it resolves.
type refreshCoordinator struct {
	client *Client

	mu          sync.Mutex
	inFlight    bool
	subscribers []chan refreshResult
}

func newRefreshCoordinator(c *Client) *refreshCoordinator {
	return &refreshCoordinator{client: c}
}

// refreshOrWait returns a fresh access token. The first caller while no
// refresh is in flight performs the refresh; everyone else subscribes and
// waits for that caller's result.
func (rc *refreshCoordinator) refreshOrWait(ctx context.Context) (string, error) {
	rc.mu.Lock()
	if rc.inFlight {
		sub := make(chan refreshResult, 1)
		rc.subscribers = append(rc.subscribers, sub)
		rc.mu.Unlock()

		select {
		case res := <-sub:
			return res.access, res.err
		case <-ctx.Done():
			return "", &NetworkError{Err: ctx.Err()}
		}
	}
	rc.inFlight = true
	rc.mu.Unlock()

	access, err := rc.refresh(ctx)

	rc.mu.Lock()
	rc.inFlight = false
	subscribers := rc.subscribers
	rc.subscribers = nil
	rc.mu.Unlock()

	// Drain in FIFO order; all queued requests observe the same token (or
	// the same terminal error).
	for _, sub := range subscribers {
		sub <- refreshResult{access: access, err: err}
	}
	return access, err
}

// refresh exchanges the stored refresh token for a new pair. It goes out on
// the underlying HTTP client directly, bypassing the gateway's 401 handling
// so a rejected refresh can never recurse into another refresh. Failure is
// terminal for the session: tokens are cleared and the client is sent to the
// login entry point.
func (rc *refreshCoordinator) refresh(ctx context.Context) (string, error) {
	c := rc.client

	refreshToken, ok := c.store.RefreshToken()
	if !ok {
		c.logger.Debug().Msg("no refresh token available, deauthenticating")
		c.store.ClearTokens()
		c.nav.Navigate(loginPath)
		return "", ErrNoRefreshToken
	}

	c.logger.Debug().Msg("access token expired, attempting refresh")

	var pair session.TokenPair
	err := rc.post(ctx, map[string]string{"refresh": refreshToken}, &pair)
	if err == nil && pair.Access == "" {
		err = &ValidationError{Reason: "refresh response missing access token"}
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("token refresh failed, deauthenticating")
		c.store.ClearTokens()
		c.nav.Navigate(loginPath)
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	if pair.Refresh == "" {
		// Backend may rotate only the access token; keep the old refresh.
		pair.Refresh = refreshToken
	}
	c.store.StoreTokens(pair)
	c.logger.Debug().Msg("token refresh successful")
	return pair.Access, nil
}

func (rc *refreshCoordinator) post(ctx context.Context, body, out any) error {
	c := rc.client

	req, err := c.NewRequest(ctx, http.MethodPost, refreshPath, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &AuthError{StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ValidationError{Reason: "decoding refresh response", Err: err}
	}
	return nil
}
