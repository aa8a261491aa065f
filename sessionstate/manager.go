// Package sessionstate holds the per-tab session state machine. A Manager
// ties the authentication service, the permission service, and the platform
// together: it runs the authentication check, derives the authorization
// state, propagates logout across tabs, and owns the access-denied grace
// timer. The view layer observes it through State snapshots.
package sessionstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/secure-command-center/go-client/access"
	"github.com/secure-command-center/go-client/authn"
	"github.com/secure-command-center/go-client/platform"
	"github.com/secure-command-center/go-client/session"
)

const (
	logoutSignalKey = "auth_logout"
	loginPath       = "/login"

	defaultLogoutGrace = 5 * time.Second
)

// User-facing error messages. The view layer can compare against these to
// distinguish failure modes.
const (
	MsgAuthCheckFailed        = "Authentication check failed. Please try again."
	MsgInvalidProfile         = "Invalid API response format. Please try again."
	MsgPermissionsUnavailable = "Could not load your permissions. Please try again later."
)

// State is the UI-reactive session snapshot. AllowedTabs stays nil until a
// permission fetch succeeds; the view layer must treat nil as "no permitted
// views".
type State struct {
	IsAuthenticated bool
	IsAuthorized    bool
	IsLoading       bool
	User            *session.User
	AllowedTabs     []access.Tab
	AllowedViews    []access.View
	Err             string
}

// Manager drives the session lifecycle for one tab.
type Manager struct {
	auth    *authn.Service
	access  *access.Service
	store   *session.Store
	nav     platform.Navigator
	bus     platform.SignalBus
	logger  zerolog.Logger
	tabID   string
	grace   time.Duration
	nowTime func() time.Time

	mu         sync.Mutex
	state      State
	listeners  []func(State)
	graceTimer *time.Timer

	unsubscribe func()
}

type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLogoutGracePeriod overrides the delay before an unauthorized user is
// logged out automatically.
func WithLogoutGracePeriod(d time.Duration) Option {
	return func(m *Manager) {
		m.grace = d
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates the session state machine for one tab and registers
// the cross-tab logout watcher. Call Close when the tab goes away.
func NewManager(
	auth *authn.Service,
	accessSvc *access.Service,
	store *session.Store,
	nav platform.Navigator,
	bus platform.SignalBus,
	options ...Option,
) (*Manager, error) {
	if auth == nil {
		return nil, errors.New("[NewManager] authn service is required")
	}
	if accessSvc == nil {
		return nil, errors.New("[NewManager] access service is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] session store is required")
	}
	if nav == nil {
		return nil, errors.New("[NewManager] navigator is required")
	}
	if bus == nil {
		return nil, errors.New("[NewManager] signal bus is required")
	}

	m := &Manager{
		auth:    auth,
		access:  accessSvc,
		store:   store,
		nav:     nav,
		bus:     bus,
		logger:  log.Logger,
		tabID:   uuid.NewString(),
		grace:   defaultLogoutGrace,
		nowTime: time.Now,
		state:   State{IsLoading: true},
	}
	for _, opt := range options {
		opt(m)
	}

	m.unsubscribe = bus.Subscribe(m.onSignal)
	return m, nil
}

// Close unregisters the cross-tab watcher and cancels any pending
// grace-period logout.
func (m *Manager) Close() {
	m.CancelDeniedLogout()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnChange registers a listener invoked with a snapshot after every state
// transition.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// CheckAuthStatus runs one full authentication/authorization pass: consume
// any redirect-delivered tokens, resolve the identity, then derive which
// views the user may see. Permission fetch failure does not deauthorize; it
// surfaces MsgPermissionsUnavailable and leaves AllowedTabs nil.
func (m *Manager) CheckAuthStatus(ctx context.Context) {
	m.update(func(s *State) {
		s.IsLoading = true
		s.Err = ""
	})

	if m.auth.HandleOAuthCallback() {
		m.logger.Debug().Msg("oauth callback consumed during auth check")
	}

	user, err := m.auth.CheckAuthentication(ctx)
	switch {
	case errors.Is(err, session.ErrInvalidProfile):
		m.update(func(s *State) {
			*s = State{Err: MsgInvalidProfile}
		})
		m.nav.Navigate(loginPath)
		return
	case err != nil:
		m.logger.Error().Err(err).Msg("authentication check failed")
		m.update(func(s *State) {
			*s = State{Err: MsgAuthCheckFailed}
		})
		return
	case user == nil:
		m.update(func(s *State) {
			*s = State{}
		})
		return
	}

	if !user.IsAppAuthorized {
		m.logger.Warn().Str("username", user.Username).Msg("user authenticated but not authorized for the application")
		m.update(func(s *State) {
			*s = State{IsAuthenticated: true, User: user}
		})
		return
	}

	perms, err := m.access.FetchPermissions(ctx)
	if err != nil {
		// Authenticated and authorized, but the grant set is unknown.
		// Fail closed: nil AllowedTabs renders zero views.
		m.update(func(s *State) {
			*s = State{
				IsAuthenticated: true,
				IsAuthorized:    true,
				User:            user,
				Err:             MsgPermissionsUnavailable,
			}
		})
		return
	}

	m.update(func(s *State) {
		*s = State{
			IsAuthenticated: true,
			IsAuthorized:    true,
			User:            user,
			AllowedTabs:     perms.AllowedTabs,
			AllowedViews:    access.AllowedViews(perms),
		}
	})
}

// Logout ends the session in this tab and signals every other tab of the
// origin. The backend call is best-effort; local state always resets.
func (m *Manager) Logout(ctx context.Context) {
	m.CancelDeniedLogout()
	m.auth.Logout(ctx)

	m.bus.Publish(platform.Signal{
		Key:       logoutSignalKey,
		Value:     strconvUnixMilli(m.nowTime()),
		SourceTab: m.tabID,
	})

	m.update(func(s *State) {
		*s = State{}
	})
	m.nav.Navigate(loginPath)
	m.logger.Debug().Msg("logged out")
}

// update applies fn to the state under the lock and notifies listeners with
// the resulting snapshot outside it.
func (m *Manager) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	snapshot := m.state
	listeners := make([]func(State), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}
