package session

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// View is the read-only face of the session. None of its methods mutate
// the state or touch the expiry timer.
type View interface {
	IsSecureSession() bool
	SecureHeaders() http.Header
	Current() AuthState
	Phase() Phase
	Remaining() time.Duration
}

var _ View = (*Manager)(nil)

// IsSecureSession reports whether a complete session exists, its deadline
// is at least WarningMargin away and an anti-forgery token is present.
func (m *Manager) IsSecureSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.st.state
	if s.User == nil || s.Token == "" || s.ExpiresAt == 0 || m.csrf == "" {
		return false
	}
	return m.remainingLocked() >= m.cfg.WarningMargin
}

// SecureHeaders returns the headers for an outbound request. Absent values
// are omitted rather than sent empty.
func (m *Manager) SecureHeaders() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := make(http.Header)
	if m.st.state.Token != "" {
		h.Set(common.AuthorizationHeaderName, common.BearerPrefix+m.st.state.Token)
	}
	if m.csrf != "" {
		h.Set(common.CSRFHeaderName, m.csrf)
	}
	return h
}

// Current returns a copy of the auth state.
func (m *Manager) Current() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.get()
}

func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.st.state.Empty() {
		return LoggedOut
	}
	switch left := m.remainingLocked(); {
	case left <= 0:
		return Expired
	case left < m.cfg.WarningMargin:
		return Expiring
	default:
		return Active
	}
}

// Remaining is the time left until the deadline, zero when logged out.
func (m *Manager) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d := m.remainingLocked(); d > 0 {
		return d
	}
	return 0
}

// CSRFToken returns the anti-forgery token of this shell instance.
func (m *Manager) CSRFToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.csrf
}

// Config returns the tunables the manager was built with.
func (m *Manager) Config() Config {
	return m.cfg
}

// TimerPending reports whether an expiry timer is armed.
func (m *Manager) TimerPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.sched.pending()
}

// Tracking reports whether the activity subscription is attached.
func (m *Manager) Tracking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.tracker.attached()
}
