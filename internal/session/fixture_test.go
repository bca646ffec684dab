package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/storage"
	"github.com/dmitrijs2005/sessionkeeper/internal/cryptox"
	"github.com/dmitrijs2005/sessionkeeper/internal/directory"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

const (
	userEmail    = "user@example.com"
	userPassword = "correct-horse"
	adminEmail   = "admin@example.com"
)

var (
	hashOnce sync.Once
	userHash string
)

func testHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		p := cryptox.Argon2idParams{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
		h, err := cryptox.HashPassword([]byte(userPassword), p)
		if err != nil {
			panic(err)
		}
		userHash = h
	})
	return userHash
}

type recordingNavigator struct {
	mu        sync.Mutex
	notices   []Notice
	redirects []string
	path      string
}

func (n *recordingNavigator) Notify(no Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, no)
}

func (n *recordingNavigator) Redirect(p string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, p)
}

func (n *recordingNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *recordingNavigator) Redirects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.redirects...)
}

func (n *recordingNavigator) Notices() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.notices...)
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) OnSessionEvent(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) Kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Kind)
	}
	return out
}

type fixture struct {
	t       *testing.T
	cfg     Config
	clock   *clockwork.FakeClock
	bus     *EventBus
	nav     *recordingNavigator
	kv      storage.KeyValue
	persist Persister
	dir     *directory.Memory
	tokens  *auth.TokenMinter
	events  *eventLog
	m       *Manager

	// fired receives the generation of every expiry callback once it has
	// returned.
	fired chan uint64

	// managerClock, when set, replaces clock as the Manager's clock.
	managerClock clockwork.Clock
	stalled      bool
}

type fixtureOption func(*fixture)

func withConfig(fn func(*Config)) fixtureOption {
	return func(f *fixture) { fn(&f.cfg) }
}

func withKV(kv storage.KeyValue) fixtureOption {
	return func(f *fixture) { f.kv = kv }
}

func withClock(c *clockwork.FakeClock) fixtureOption {
	return func(f *fixture) { f.clock = c }
}

// withStalledTimers gives the Manager a clock whose timers never fire, so a
// deadline can pass with the session still in place.
func withStalledTimers() fixtureOption {
	return func(f *fixture) {
		if f.clock == nil {
			f.clock = clockwork.NewFakeClockAt(start)
		}
		f.managerClock = stalledClock{f.clock}
		f.stalled = true
	}
}

type stalledClock struct{ *clockwork.FakeClock }

func (stalledClock) AfterFunc(time.Duration, func()) clockwork.Timer { return stalledTimer{} }

type stalledTimer struct{}

func (stalledTimer) Chan() <-chan time.Time   { return nil }
func (stalledTimer) Reset(time.Duration) bool { return true }
func (stalledTimer) Stop() bool               { return true }

// flakyKV fails every write.
type flakyKV struct {
	storage.KeyValue
}

func (flakyKV) Set(context.Context, string, []byte) error { return errors.New("quota exceeded") }
func (flakyKV) Delete(context.Context, string) error     { return errors.New("quota exceeded") }

func newSQLiteKV(t *testing.T) storage.KeyValue {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewSQLiteRepository(db)
}

// newFixture builds a manager that has not been restored yet.
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		t:      t,
		cfg:    DefaultConfig(),
		bus:    NewEventBus(),
		nav:    &recordingNavigator{},
		events: &eventLog{},
		fired:  make(chan uint64, 16),
	}
	f.cfg.LoginBurst = 3
	for _, o := range opts {
		o(f)
	}
	if f.clock == nil {
		f.clock = clockwork.NewFakeClockAt(start)
	}
	if f.kv == nil {
		f.kv = newSQLiteKV(t)
	}
	f.persist = NewStoragePersister(f.kv)

	f.dir = directory.NewMemory(
		directory.Entry{ID: "u-1", Email: userEmail, PasswordHash: testHash(t), DisplayName: "Regular User", Role: "user"},
		directory.Entry{ID: "u-0", Email: adminEmail, PasswordHash: testHash(t), DisplayName: "Vault Admin", Role: "admin"},
	)

	tokens, err := auth.NewTokenMinter([]byte("test-secret"), "sessionkeeper", f.cfg.SessionTimeout, f.clock.Now)
	require.NoError(t, err)
	f.tokens = tokens

	var mc clockwork.Clock = f.clock
	if f.managerClock != nil {
		mc = f.managerClock
	}

	m, err := NewManager(Options{
		Config:    f.cfg,
		Clock:     mc,
		Logger:    logging.Discard(),
		Directory: f.dir,
		Tokens:    f.tokens,
		Persister: f.persist,
		Activity:  f.bus,
		Navigator: f.nav,
	})
	require.NoError(t, err)
	m.AddListener(f.events)
	onTimer := m.st.sched.onFire
	m.st.sched.onFire = func(gen uint64) {
		onTimer(gen)
		f.fired <- gen
	}
	f.m = m
	return f
}

// started is newFixture plus Restore.
func started(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := newFixture(t, opts...)
	f.m.Restore(context.Background())
	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.m.Authenticate(context.Background(), userEmail, userPassword))
}

func (f *fixture) storedAuth(t *testing.T) []byte {
	t.Helper()
	b, err := f.kv.Get(context.Background(), "auth")
	require.NoError(t, err)
	return b
}

func (f *fixture) gen() uint64 {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return f.m.st.sched.gen
}

// advance moves the clock by d. Fake timers run their callbacks on their own
// goroutine, so when the expiry timer comes due it waits for the callback to
// return.
func (f *fixture) advance(d time.Duration) {
	f.t.Helper()
	target := f.clock.Now().Add(d)
	deadline := f.deadline()
	f.clock.Advance(d)
	if f.stalled || deadline.IsZero() || deadline.After(target) {
		return
	}
	select {
	case <-f.fired:
	case <-time.After(time.Second):
		f.t.Fatalf("expiry timer due at %s did not fire", deadline)
	}
}

// advanceTo is advance up to the instant at.
func (f *fixture) advanceTo(at time.Time) {
	f.t.Helper()
	f.advance(at.Sub(f.clock.Now()))
}

// deadline is when the pending expiry timer fires, zero if none is armed.
func (f *fixture) deadline() time.Time {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return f.m.st.sched.deadline
}

// requireTimers asserts the fake clock holds exactly n timers.
func (f *fixture) requireTimers(n int) {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(f.t, f.clock.BlockUntilContext(ctx, n))

	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	require.ErrorIs(f.t, f.clock.BlockUntilContext(short, n+1), context.DeadlineExceeded, "more than %d timers pending", n)
}

func (f *fixture) limiterCount() int {
	f.m.limMu.Lock()
	defer f.m.limMu.Unlock()
	return len(f.m.limiters)
}
