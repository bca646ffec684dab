package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/cryptox"
	"github.com/dmitrijs2005/sessionkeeper/internal/directory"
	"golang.org/x/time/rate"
)

// NormalizeIdentifier lower-cases and trims an email.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Authenticate checks the credentials against the directory and, on
// success, starts a new session. On failure the current state is left as
// it was. Unknown accounts and wrong passwords both yield
// ErrInvalidCredentials.
func (m *Manager) Authenticate(ctx context.Context, identifier, password string) error {
	email := NormalizeIdentifier(identifier)
	if email == "" || password == "" {
		return ErrCredentialsRequired
	}

	if err := m.allowAttempt(email); err != nil {
		m.log.Warn(ctx, "login throttled", "email", email)
		m.emit(m.failedEvent(email))
		return err
	}

	u, err := m.verify(ctx, email, []byte(password))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			m.log.Info(ctx, "login rejected", "email", email)
		} else {
			m.log.Error(ctx, "login failed", "email", email, "error", err)
		}
		m.emit(m.failedEvent(email))
		return err
	}

	token, err := m.mint.Mint(u.ID, string(u.Role))
	if err != nil {
		m.log.Error(ctx, "token mint failed", "user_id", u.ID, "error", err)
		m.emit(m.failedEvent(email))
		return fmt.Errorf("mint session token: %w", err)
	}

	m.resetAttempts(email)

	m.mu.Lock()
	out := &effects{}
	m.loadCSRFLocked(ctx)
	s := AuthState{
		User:      u,
		Token:     token,
		ExpiresAt: m.nowMillis() + m.cfg.SessionTimeout.Milliseconds(),
	}
	if due := m.st.set(ctx, s); due {
		m.expireLocked(ctx, out)
	} else {
		m.log.Info(ctx, "signed in", "user_id", u.ID, "role", string(u.Role))
		out.event(m.newEvent(KindLogin, u))
	}
	m.mu.Unlock()

	m.apply(out)
	return nil
}

// verify runs without the manager lock.
func (m *Manager) verify(ctx context.Context, email string, password []byte) (*User, error) {
	e, err := m.dir.Lookup(ctx, email)
	if errors.Is(err, directory.ErrNotFound) {
		cryptox.BurnVerify(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	ok, err := cryptox.VerifyPassword(e.PasswordHash, password)
	if err != nil {
		m.log.Warn(ctx, "directory entry has an unusable password hash", "user_id", e.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	role, err := ParseRole(e.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	return &User{
		ID:          e.ID,
		Email:       NormalizeIdentifier(e.Email),
		DisplayName: e.DisplayName,
		Role:        role,
	}, nil
}

func (m *Manager) allowAttempt(email string) error {
	if m.cfg.LoginBurst == 0 {
		return nil
	}

	now := m.clock.Now()

	m.limMu.Lock()
	defer m.limMu.Unlock()

	m.sweepLimitersLocked(now)
	lim, ok := m.limiters[email]
	if !ok {
		lim = rate.NewLimiter(rate.Every(m.cfg.LoginRefill), m.cfg.LoginBurst)
		m.limiters[email] = lim
	}

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return ThrottledError{}
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return ThrottledError{RetryAfter: d}
	}
	return nil
}

// sweepLimitersLocked forgets identifiers whose bucket has refilled, which
// is the state a fresh limiter starts in. It runs at most once per refill
// interval. The caller holds limMu.
func (m *Manager) sweepLimitersLocked(now time.Time) {
	if now.Sub(m.limSwept) < m.cfg.LoginRefill {
		return
	}
	m.limSwept = now
	for email, lim := range m.limiters {
		if lim.TokensAt(now) >= float64(lim.Burst()) {
			delete(m.limiters, email)
		}
	}
}

func (m *Manager) resetAttempts(email string) {
	m.limMu.Lock()
	delete(m.limiters, email)
	m.limMu.Unlock()
}

func (m *Manager) failedEvent(email string) Event {
	return Event{Kind: KindLoginFailed, Email: email, At: m.clock.Now()}
}

func (m *Manager) emit(ev Event) {
	m.apply(&effects{events: []Event{ev}})
}
