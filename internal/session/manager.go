package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/directory"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// TokenMinter issues the opaque bearer token of a new session.
type TokenMinter interface {
	Mint(userID, role string) (string, error)
}

// Options are the collaborators of a Manager. Directory, Tokens and
// Persister are required; the rest have usable defaults.
type Options struct {
	Config    Config
	Clock     clockwork.Clock
	Logger    logging.Logger
	Directory directory.Directory
	Tokens    TokenMinter
	Persister Persister
	CSRF      CSRFSource
	Activity  ActivitySource
	Navigator Navigator
}

// Manager is the one authoritative session of the process.
type Manager struct {
	cfg   Config
	clock clockwork.Clock
	log   logging.Logger
	dir   directory.Directory
	mint  TokenMinter
	csrfs CSRFSource
	nav   Navigator

	mu        sync.Mutex
	st        *store
	csrf      string
	listeners []Listener

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
	limSwept time.Time
}

func NewManager(opts Options) (*Manager, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Directory == nil || opts.Tokens == nil || opts.Persister == nil {
		return nil, errors.New("session: directory, token minter and persister are required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Activity == nil {
		opts.Activity = NewEventBus()
	}
	if opts.Navigator == nil {
		opts.Navigator = nopNavigator{}
	}

	m := &Manager{
		cfg:      opts.Config,
		clock:    opts.Clock,
		log:      opts.Logger.With("component", "session"),
		dir:      opts.Directory,
		mint:     opts.Tokens,
		csrfs:    opts.CSRF,
		nav:      opts.Navigator,
		limiters: make(map[string]*rate.Limiter),
	}
	if m.csrfs == nil {
		if src, ok := opts.Persister.(CSRFSource); ok {
			m.csrfs = src
		}
	}

	m.st = &store{
		persist: opts.Persister,
		log:     m.log,
		tracker: &tracker{
			source:  opts.Activity,
			types:   append([]EventType(nil), opts.Config.TrackedEvents...),
			handler: m.onActivity,
		},
		sched: &scheduler{
			clock:  opts.Clock,
			onFire: m.onTimer,
		},
	}

	return m, nil
}

// AddListener registers l for session events.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Restore loads the anti-forgery token and adopts a persisted session whose
// deadline is still in the future. Anything else stored under the auth key
// is discarded and the manager starts logged out. Call it once at startup.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	out := &effects{}
	m.loadCSRFLocked(ctx)

	s, ok, err := m.st.persist.Load(ctx)
	switch {
	case err != nil:
		m.log.Warn(ctx, "stored session unreadable, starting logged out", "error", err)
		m.discardStoredLocked(ctx)
	case !ok:
	case !s.Complete():
		m.log.Info(ctx, "stored session incomplete, starting logged out")
		m.discardStoredLocked(ctx)
	case s.ExpiresAt <= m.nowMillis():
		m.log.Info(ctx, "stored session expired, starting logged out", "expires_at", s.Deadline())
		m.discardStoredLocked(ctx)
	default:
		if due := m.st.set(ctx, s); due {
			m.expireLocked(ctx, out)
			break
		}
		m.log.Info(ctx, "session restored", "user_id", s.User.ID, "remaining", s.Deadline().Sub(m.clock.Now()))
		out.event(m.newEvent(KindRestored, s.User))
	}
	m.mu.Unlock()

	m.apply(out)
}

// Logout ends the session on the user's request. It is a no-op when nobody
// is logged in.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	out := &effects{}
	if !m.st.state.Empty() {
		u := m.st.state.User
		m.st.clear(ctx)
		m.log.Info(ctx, "signed out", "user_id", u.ID)

		out.notice(Notice{Level: NoticeInfo, Title: "Signed out", Message: "You have been signed out."})
		out.redirect(m.cfg.LoginPath)
		out.event(m.newEvent(KindLogout, u))
	}
	m.mu.Unlock()

	m.apply(out)
}

// Close detaches from activity and stops the expiry timer without touching
// the stored session, as a reload would.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.st.tracker.detach()
	m.st.sched.disarm()
}

// onActivity extends the deadline on a tracked event. An event arriving
// after the deadline does not revive the session; it expires it.
func (m *Manager) onActivity(t EventType) {
	ctx := context.Background()

	m.mu.Lock()
	out := &effects{}
	cur := m.st.state
	if !cur.Empty() {
		now := m.nowMillis()
		if cur.ExpiresAt <= now {
			m.expireLocked(ctx, out)
		} else {
			next := cur.Clone()
			if ext := now + m.cfg.SessionTimeout.Milliseconds(); ext > next.ExpiresAt {
				next.ExpiresAt = ext
				m.remintLocked(ctx, &next)
			}
			if due := m.st.set(ctx, next); due {
				m.expireLocked(ctx, out)
			} else {
				m.log.Debug(ctx, "session extended", "event", string(t), "expires_at", next.Deadline())
				out.event(m.newEvent(KindRefreshed, next.User))
			}
		}
	}
	m.mu.Unlock()

	m.apply(out)
}

// remintLocked replaces the bearer token of an extended session, so the
// token stays valid for as long as the session does. On failure the old
// token is kept.
func (m *Manager) remintLocked(ctx context.Context, s *AuthState) {
	tok, err := m.mint.Mint(s.User.ID, string(s.User.Role))
	if err != nil {
		m.log.Warn(ctx, "token re-mint failed, keeping the current token", "user_id", s.User.ID, "error", err)
		return
	}
	s.Token = tok
}

// onTimer is the expiry timer callback. A stale generation is ignored; a
// live one re-checks the deadline, which activity may have moved.
func (m *Manager) onTimer(gen uint64) {
	ctx := context.Background()

	m.mu.Lock()
	out := &effects{}
	if m.st.sched.current(gen) {
		m.st.sched.fired()

		cur := m.st.state
		switch {
		case cur.Empty():
		case cur.ExpiresAt > m.nowMillis():
			m.log.Debug(ctx, "expiry timer fired early, re-arming", "expires_at", cur.Deadline())
			if due := m.st.sched.arm(cur.Deadline()); due {
				m.expireLocked(ctx, out)
			}
		default:
			m.expireLocked(ctx, out)
		}
	}
	m.mu.Unlock()

	m.apply(out)
}

// expireLocked performs the expiry logout.
func (m *Manager) expireLocked(ctx context.Context, out *effects) {
	u := m.st.state.User
	m.st.clear(ctx)
	if u == nil {
		return
	}

	m.log.Info(ctx, "session expired", "user_id", u.ID)
	out.notice(Notice{Level: NoticeInfo, Title: "Session expired", Message: "Your session has expired. Please log in again."})
	out.redirect(m.loginRedirect())
	out.event(m.newEvent(KindExpired, u))
}

func (m *Manager) loginRedirect() string {
	if loc, ok := m.nav.(Locator); ok {
		if p := loc.CurrentPath(); p != "" && p != m.cfg.LoginPath {
			return LoginURL(m.cfg, p)
		}
	}
	return m.cfg.LoginPath
}

func (m *Manager) discardStoredLocked(ctx context.Context) {
	if err := m.st.persist.Clear(ctx); err != nil {
		m.log.Warn(ctx, "session storage clear failed", "error", err)
	}
}

func (m *Manager) loadCSRFLocked(ctx context.Context) {
	if m.csrf != "" {
		return
	}
	if m.csrfs != nil {
		tok, err := m.csrfs.CSRFToken(ctx)
		if err == nil && tok != "" {
			m.csrf = tok
			return
		}
		m.log.Warn(ctx, "csrf token not persisted, using an in-memory one", "error", err)
	}
	tok, err := common.MakeRandHexString(32)
	if err != nil {
		m.log.Error(ctx, "csrf token generation failed", "error", err)
		return
	}
	m.csrf = tok
}

func (m *Manager) nowMillis() int64 {
	return m.clock.Now().UnixMilli()
}

func (m *Manager) newEvent(k EventKind, u *User) Event {
	e := Event{Kind: k, At: m.clock.Now()}
	if u != nil {
		e.UserID = u.ID
		e.Email = u.Email
	}
	return e
}

// effects collects what a locked section wants done after unlocking.
type effects struct {
	notices []Notice
	target  string
	events  []Event
}

func (e *effects) notice(n Notice)   { e.notices = append(e.notices, n) }
func (e *effects) event(ev Event)   { e.events = append(e.events, ev) }
func (e *effects) redirect(p string) { e.target = p }

func (m *Manager) apply(e *effects) {
	if len(e.notices) == 0 && e.target == "" && len(e.events) == 0 {
		return
	}

	for _, n := range e.notices {
		m.nav.Notify(n)
	}
	if e.target != "" {
		m.nav.Redirect(e.target)
	}

	if len(e.events) == 0 {
		return
	}
	m.mu.Lock()
	ls := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, ev := range e.events {
		for _, l := range ls {
			l.OnSessionEvent(ev)
		}
	}
}

// remainingLocked is the time left before the deadline; zero when logged out.
func (m *Manager) remainingLocked() time.Duration {
	if m.st.state.Empty() {
		return 0
	}
	return time.Duration(m.st.state.ExpiresAt-m.nowMillis()) * time.Millisecond
}
