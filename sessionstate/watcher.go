package sessionstate

import (
	"context"
	"strconv"
	"time"

	"github.com/secure-command-center/go-client/platform"
)

// onSignal handles cross-tab signals. A peer tab's logout sentinel resets
// this tab too, but only if it currently believes it is authenticated; an
// already-logged-out tab ignores the signal rather than navigating again.
func (m *Manager) onSignal(sig platform.Signal) {
	if sig.Key != logoutSignalKey || sig.SourceTab == m.tabID {
		return
	}

	m.mu.Lock()
	authenticated := m.state.IsAuthenticated
	m.mu.Unlock()
	if !authenticated {
		return
	}

	m.logger.Debug().Str("source_tab", sig.SourceTab).Msg("logout detected in another tab")
	m.CancelDeniedLogout()
	m.store.ClearTokens()
	m.update(func(s *State) {
		*s = State{}
	})
	m.nav.Navigate(loginPath)
}

// ScheduleDeniedLogout arms the access-denied grace timer: an authenticated
// but unauthorized user is logged out automatically once the grace period
// elapses. Scheduling while a timer is already armed is a no-op, so the
// logout fires at most once.
func (m *Manager) ScheduleDeniedLogout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.graceTimer != nil {
		return
	}
	m.logger.Debug().Dur("grace", m.grace).Msg("scheduling automatic logout for unauthorized user")
	m.graceTimer = time.AfterFunc(m.grace, func() {
		m.mu.Lock()
		m.graceTimer = nil
		m.mu.Unlock()

		// Fires after the initiating view is long gone; runs on its own
		// context rather than one tied to that view.
		m.Logout(context.Background())
	})
}

// CancelDeniedLogout disarms the grace timer, e.g. when the denial screen
// unmounts before the period elapses. Cancelling leaves no residual effect.
func (m *Manager) CancelDeniedLogout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.graceTimer != nil {
		m.graceTimer.Stop()
		m.graceTimer = nil
	}
}

func strconvUnixMilli(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
