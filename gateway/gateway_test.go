package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/secure-command-center/go-client/gateway"
	"github.com/secure-command-center/go-client/platform/platformfakes"
	"github.com/secure-command-center/go-client/session"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server *httptest.Server
	store  *session.Store
	nav    *platformfakes.FakeNavigator
	client *gateway.Client
}

func newFixture(t *testing.T, handler http.Handler, options ...gateway.Option) *fixture {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := session.NewStore(platformfakes.NewFakeStorage())
	nav := platformfakes.NewFakeNavigator(server.URL + "/dashboard")

	client, err := gateway.NewClient(server.URL, store, nav, options...)
	require.NoError(t, err)

	return &fixture{server: server, store: store, nav: nav, client: client}
}

func TestNewClient_ValidatesDependencies(t *testing.T) {
	store := session.NewStore(platformfakes.NewFakeStorage())
	nav := platformfakes.NewFakeNavigator("http://localhost:3000/")

	_, err := gateway.NewClient("", store, nav)
	require.Error(t, err)

	_, err = gateway.NewClient("http://localhost:8000/api", nil, nav)
	require.Error(t, err)

	_, err = gateway.NewClient("http://localhost:8000/api", store, nil)
	require.Error(t, err)
}

func TestDo_AttachesBearerCredential(t *testing.T) {
	var gotAuth atomic.Value
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	f.store.StoreTokens(session.TokenPair{Access: "the-access-token", Refresh: "r"})

	require.NoError(t, f.client.GetJSON(context.Background(), "/data/", nil))
	require.Equal(t, "Bearer the-access-token", gotAuth.Load())
}

func TestDo_NoCredentialWhenStoreEmpty(t *testing.T) {
	var gotAuth atomic.Value
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))

	require.NoError(t, f.client.GetJSON(context.Background(), "/public/", nil))
	require.Equal(t, "", gotAuth.Load())
}

// A request that still gets a 401 after its single replay must not trigger a
// second refresh attempt.
func TestDo_SingleRetryGuarantee(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		_ = json.NewEncoder(w).Encode(session.TokenPair{Access: "new-access", Refresh: "new-refresh"})
	})
	f := newFixture(t, mux)
	f.store.StoreTokens(session.TokenPair{Access: "old-access", Refresh: "old-refresh"})

	err := f.client.GetJSON(context.Background(), "/data/", nil)

	var authErr *gateway.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	require.EqualValues(t, 1, refreshCalls.Load())
}

func TestDo_RefreshAndReplay(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(session.User{ID: 1, Username: "jdoe", Email: "jdoe@example.com"})
	})
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["refresh"] != "original-refresh" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(session.TokenPair{Access: "new-access-token", Refresh: "new-refresh-token"})
	})
	f := newFixture(t, mux)
	f.store.StoreTokens(session.TokenPair{Access: "expired-access", Refresh: "original-refresh"})

	var user session.User
	require.NoError(t, f.client.GetJSON(context.Background(), "/auth/profile/", &user))
	require.Equal(t, "jdoe@example.com", user.Email)

	require.EqualValues(t, 1, refreshCalls.Load())
	access, _ := f.store.AccessToken()
	refresh, _ := f.store.RefreshToken()
	require.Equal(t, "new-access-token", access)
	require.Equal(t, "new-refresh-token", refresh)
}

// When the refresh response carries only a new access token, the stored
// refresh token is retained.
func TestDo_RefreshRetainsOldRefreshToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer rotated-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("{}"))
	})
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "rotated-access"})
	})
	f := newFixture(t, mux)
	f.store.StoreTokens(session.TokenPair{Access: "expired", Refresh: "keep-me"})

	require.NoError(t, f.client.GetJSON(context.Background(), "/data/", nil))

	refresh, _ := f.store.RefreshToken()
	require.Equal(t, "keep-me", refresh)
}

func TestDo_MissingRefreshTokenFailsWithOriginalError(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	f := newFixture(t, mux)
	// Access token present without a refresh token: an incomplete session.
	f.store.StoreTokens(session.TokenPair{Access: "lonely-access", Refresh: ""})

	err := f.client.GetJSON(context.Background(), "/data/", nil)

	var authErr *gateway.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	require.EqualValues(t, 0, refreshCalls.Load())
	require.Equal(t, "/login", f.nav.LastVisited())
}

func TestDo_RateLimitPassesThroughWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	f.store.StoreTokens(session.TokenPair{Access: "a", Refresh: "r"})

	err := f.client.GetJSON(context.Background(), "/data/", nil)

	var rateErr *gateway.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	require.Equal(t, 30*time.Second, rateErr.RetryAfter)
	require.EqualValues(t, 1, calls.Load())
}

func TestDo_OtherStatusesPassThroughUnchanged(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	err := f.client.GetJSON(context.Background(), "/data/", nil)

	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "boom")
}

func TestDo_TransportFailureIsNetworkError(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	f.server.Close()

	err := f.client.GetJSON(context.Background(), "/data/", nil)

	var netErr *gateway.NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestDo_ProactiveRefreshBeforeExpiry(t *testing.T) {
	expiring, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(10 * time.Second).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	var staleSends atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			staleSends.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("{}"))
	})
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(session.TokenPair{Access: "fresh-access", Refresh: "fresh-refresh"})
	})
	f := newFixture(t, mux, gateway.WithProactiveRefresh(time.Minute))
	f.store.StoreTokens(session.TokenPair{Access: expiring, Refresh: "old-refresh"})

	require.NoError(t, f.client.GetJSON(context.Background(), "/data/", nil))

	// The near-expiry token was refreshed before any request went out.
	require.EqualValues(t, 0, staleSends.Load())
}
