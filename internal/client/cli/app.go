package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/health"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/session"
)

// Session is the part of *session.Manager the shell drives.
type Session interface {
	session.View
	Authenticate(ctx context.Context, identifier, password string) error
	Logout(ctx context.Context)
	Config() session.Config
}

// Activity receives the shell's interaction events.
type Activity interface {
	Dispatch(t session.EventType)
}

// AuditExporter uploads pending audit events.
type AuditExporter interface {
	Export(ctx context.Context) (n int, key string, err error)
}

// ModeSource reports backend connectivity.
type ModeSource interface {
	Mode() health.Mode
}

// Options wires an App. Audit and Status are optional.
type Options struct {
	Session  Session
	Screen   *Screen
	Activity Activity
	Audit    AuditExporter
	Status   ModeSource
	Logger   logging.Logger
	In       io.Reader
	Out      io.Writer
}

type App struct {
	sess     Session
	guard    *session.Guard
	screen   *Screen
	activity Activity
	audit    AuditExporter
	status   ModeSource
	log      logging.Logger
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &App{
		sess:     opts.Session,
		guard:    session.NewGuard(opts.Session, opts.Session.Config()),
		screen:   opts.Screen,
		activity: opts.Activity,
		audit:    opts.Audit,
		status:   opts.Status,
		log:      opts.Logger.With("component", "cli"),
		reader:   bufio.NewReader(opts.In),
		out:      opts.Out,
	}
}

// Run prints a banner and runs the REPL until exit or end of input.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "sessionkeeper shell (type 'help' for commands)")
	if u := a.sess.Current().User; u != nil {
		fmt.Fprintf(a.out, "Welcome back, %s.\n", displayName(u))
	}
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) isLoggedIn() bool {
	return !a.sess.Current().Empty()
}

// touch reports one keypress to the session.
func (a *App) touch() {
	if a.activity != nil {
		a.activity.Dispatch(session.EventKeypress)
	}
}

func (a *App) getStatus() string {
	s := ""
	if u := a.sess.Current().User; u != nil {
		s = u.Email + " "
	}
	s += a.sess.Phase().String()
	if a.status != nil {
		s += " " + string(a.status.Mode())
	}
	return fmt.Sprintf("(%s %s) ", s, a.screen.CurrentPath())
}

func displayName(u *session.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

func roundRemaining(d time.Duration) time.Duration {
	return d.Round(time.Second)
}
