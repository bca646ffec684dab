package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/health"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/storage"
	"github.com/dmitrijs2005/sessionkeeper/internal/cryptox"
	"github.com/dmitrijs2005/sessionkeeper/internal/directory"
	"github.com/dmitrijs2005/sessionkeeper/internal/session"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "user@example.com"
	testPassword = "correct horse"
)

var (
	hashOnce sync.Once
	hashed   string
)

func testHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		p := cryptox.Argon2idParams{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
		h, err := cryptox.HashPassword([]byte(testPassword), p)
		if err != nil {
			panic(err)
		}
		hashed = h
	})
	return hashed
}

type shell struct {
	app     *App
	mgr     *session.Manager
	clock   *clockwork.FakeClock
	screen  *Screen
	out     *bytes.Buffer
	expired chan session.Event
}

// expiryWatch forwards expiry events, which the manager emits after the
// notice and the redirect.
type expiryWatch chan session.Event

func (w expiryWatch) OnSessionEvent(e session.Event) {
	if e.Kind == session.KindExpired {
		w <- e
	}
}

// awaitExpiry waits for the expiry timer callback, which the fake clock runs
// on its own goroutine.
func (s *shell) awaitExpiry(t *testing.T) {
	t.Helper()
	select {
	case <-s.expired:
	case <-time.After(time.Second):
		t.Fatal("session did not expire")
	}
}

type shellOption func(*session.Options, *Options)

func withDirectory(d directory.Directory) shellOption {
	return func(o *session.Options, _ *Options) { o.Directory = d }
}

func withBurst(n int) shellOption {
	return func(o *session.Options, _ *Options) { o.Config.LoginBurst = n }
}

func withAudit(x AuditExporter) shellOption {
	return func(_ *session.Options, o *Options) { o.Audit = x }
}

func withStatus(s ModeSource) shellOption {
	return func(_ *session.Options, o *Options) { o.Status = s }
}

// newShell builds a restored manager and an App reading input.
func newShell(t *testing.T, input string, opts ...shellOption) *shell {
	t.Helper()

	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	out := &bytes.Buffer{}
	screen := NewScreen(out, "/login")
	bus := session.NewEventBus()

	cfg := session.DefaultConfig()
	tokens, err := auth.NewTokenMinter([]byte("cli-secret"), "sessionkeeper", cfg.SessionTimeout, clock.Now)
	require.NoError(t, err)

	so := session.Options{
		Config: cfg,
		Clock:  clock,
		Directory: directory.NewMemory(directory.Entry{
			ID: "u-1", Email: testEmail, PasswordHash: testHash(t), DisplayName: "Regular User", Role: "user",
		}),
		Tokens:    tokens,
		Persister: session.NewStoragePersister(storage.NewSQLiteRepository(db)),
		Activity:  bus,
		Navigator: screen,
	}
	ao := Options{Screen: screen, Activity: bus, In: strings.NewReader(input), Out: out}
	for _, o := range opts {
		o(&so, &ao)
	}

	mgr, err := session.NewManager(so)
	require.NoError(t, err)
	expired := make(expiryWatch, 4)
	mgr.AddListener(expired)
	mgr.Restore(context.Background())
	t.Cleanup(mgr.Close)

	ao.Session = mgr
	return &shell{app: NewApp(ao), mgr: mgr, clock: clock, screen: screen, out: out, expired: expired}
}

// pipedPasswords makes GetPassword read from the input stream.
func pipedPasswords(t *testing.T) {
	t.Helper()
	orig := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = orig })
}

func stubInputs(t *testing.T, email, password string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(*bufio.Reader, string, io.Writer) (string, error) { return email, nil }
	getPassword = func(*bufio.Reader, io.Writer) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

type fakeExporter struct {
	n     int
	key   string
	err   error
	calls int
}

func (f *fakeExporter) Export(context.Context) (int, string, error) {
	f.calls++
	return f.n, f.key, f.err
}

type fixedMode health.Mode

func (m fixedMode) Mode() health.Mode { return health.Mode(m) }

type brokenDirectory struct{ err error }

func (b brokenDirectory) Lookup(context.Context, string) (*directory.Entry, error) {
	return nil, b.err
}
