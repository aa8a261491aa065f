// Package gateway decorates every outbound API request with the current
// access token and recovers transparently from exactly one class of failure:
// an expired access token. A 401 triggers a single refresh per client at a
// time; requests that hit a 401 while a refresh is in flight wait for it and
// replay with the same new token. Every other failure is surfaced to the
// caller as one of the typed errors in gateway_errors.go.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/secure-command-center/go-client/platform"
	"github.com/secure-command-center/go-client/session"
	"github.com/secure-command-center/go-client/token"
)

const (
	refreshPath    = "/auth/token/refresh/"
	loginPath      = "/login"
	defaultTimeout = 30 * time.Second

	// Error bodies are truncated before being attached to an APIError.
	maxErrorBodyBytes = 4 << 10
)

// Client is the authenticated request gateway. One instance per tab; the
// refresh in-flight flag and waiter queue live on the instance, so refreshes
// are serialized per client.
type Client struct {
	baseURL    string
	store      *session.Store
	nav        platform.Navigator
	httpClient *http.Client
	logger     zerolog.Logger

	// proactiveSkew > 0 enables refreshing a JWT access token that expires
	// within the skew before sending, instead of waiting for the 401.
	proactiveSkew time.Duration

	refresher *refreshCoordinator
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (and its cookie jar).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for gateway events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithProactiveRefresh refreshes JWT access tokens that expire within skew
// before a request is sent. Disabled by default to keep the observed
// 401-then-refresh behaviour.
func WithProactiveRefresh(skew time.Duration) Option {
	return func(c *Client) {
		c.proactiveSkew = skew
	}
}

// NewClient creates a gateway for baseURL. The store supplies credentials
// and the navigator is used to send the client to the login entry point when
// the session becomes unrecoverable.
func NewClient(baseURL string, store *session.Store, nav platform.Navigator, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[NewClient] baseURL is required")
	}
	if store == nil {
		return nil, errors.New("[NewClient] session store is required")
	}
	if nav == nil {
		return nil, errors.New("[NewClient] navigator is required")
	}

	// Cookie jar keeps the CSRF cookie flowing alongside the bearer token.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("[NewClient] cookie jar: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		nav:        nav,
		httpClient: &http.Client{Timeout: defaultTimeout, Jar: jar},
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	c.refresher = newRefreshCoordinator(c)

	return c, nil
}

// NewRequest builds a request for a path relative to the base URL. A non-nil
// body is sent as JSON.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("[NewRequest] encode body: %w", err)
		}
		payload = encoded
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("[NewRequest] %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
	}
	return req, nil
}

// Do sends the request with the current access token attached and applies
// the inbound recovery contract: 401 triggers a coordinated refresh and a
// single replay, 429 passes through as a RateLimitError without retry, all
// other non-2xx statuses pass through as APIErrors.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	access, hasAccess := c.store.AccessToken()

	if hasAccess && c.proactiveSkew > 0 && token.ExpiresWithin(access, c.proactiveSkew) {
		c.logger.Debug().Str("path", req.URL.Path).Msg("access token near expiry, refreshing before send")
		if _, err := c.refresher.refreshOrWait(req.Context()); err != nil {
			return nil, err
		}
		access, hasAccess = c.store.AccessToken()
	}

	resp, err := c.send(req, access, hasAccess)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return c.finish(resp)
	}
	drainBody(resp)
	originalErr := &AuthError{StatusCode: http.StatusUnauthorized}

	// Single-retry guarantee: this request replays at most once, and only
	// after the one in-flight refresh (ours or a peer's) resolves.
	newAccess, refreshErr := c.refresher.refreshOrWait(req.Context())
	if refreshErr != nil {
		if errors.Is(refreshErr, ErrNoRefreshToken) {
			// Session was never complete; the original 401 is the answer.
			return nil, originalErr
		}
		return nil, refreshErr
	}

	replay, err := cloneRequest(req)
	if err != nil {
		return nil, fmt.Errorf("[Do] replay request: %w", err)
	}
	resp, err = c.send(replay, newAccess, true)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// Still rejected after a fresh token; do not refresh again.
		drainBody(resp)
		c.logger.Warn().Str("path", req.URL.Path).Msg("request rejected again after token refresh")
		return nil, originalErr
	}
	return c.finish(resp)
}

// GetJSON issues a GET and decodes the response body into out (out may be
// nil to discard it).
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

// PostJSON issues a POST with a JSON body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	req, err := c.NewRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

// BaseURL returns the resolved API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResetCookies drops every cookie held by the underlying client. Used as
// best-effort cleanup on logout.
func (c *Client) ResetCookies() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("[ResetCookies] %w", err)
	}
	c.httpClient.Jar = jar
	return nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ValidationError{Reason: "decoding " + req.URL.Path, Err: err}
	}
	return nil
}

// send attaches the bearer credential and performs the exchange. No network
// call happens before this point.
func (c *Client) send(req *http.Request, access string, hasAccess bool) (*http.Response, error) {
	if hasAccess {
		req.Header.Set("Authorization", "Bearer "+access)
	} else {
		req.Header.Del("Authorization")
	}
	return c.httpClient.Do(req)
}

// finish maps a settled response onto the error taxonomy. Successful
// responses pass through unchanged; the caller owns the body.
func (c *Client) finish(resp *http.Response) (*http.Response, error) {
	switch {
	case resp.StatusCode < 400:
		return resp, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		drainBody(resp)
		c.logger.Warn().Str("path", resp.Request.URL.Path).Dur("retry_after", retryAfter).Msg("rate limit exceeded")
		return nil, &RateLimitError{RetryAfter: retryAfter}
	case resp.StatusCode == http.StatusForbidden:
		drainBody(resp)
		return nil, &AuthError{StatusCode: resp.StatusCode}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		drainBody(resp)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
	resp.Body.Close()
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
