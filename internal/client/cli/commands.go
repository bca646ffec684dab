package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/session"
)

var errAuditDisabled = errors.New("audit export is not configured")

// Status prints the session phase, user, time left and backend mode.
func (a *App) Status(ctx context.Context) error {
	st := a.sess.Current()
	fmt.Fprintf(a.out, "phase:     %s\n", a.sess.Phase())
	if st.User != nil {
		fmt.Fprintf(a.out, "user:      %s (%s, %s)\n", displayName(st.User), st.User.Email, st.User.Role)
		fmt.Fprintf(a.out, "expires:   %s\n", st.Deadline().Format("15:04:05"))
		fmt.Fprintf(a.out, "remaining: %s\n", roundRemaining(a.sess.Remaining()))
	}
	fmt.Fprintf(a.out, "secure:    %t\n", a.sess.IsSecureSession())
	if a.status != nil {
		fmt.Fprintf(a.out, "backend:   %s\n", a.status.Mode())
	}
	fmt.Fprintf(a.out, "screen:    %s\n", a.screen.CurrentPath())
	return nil
}

// Headers prints the request headers the session would attach. The bearer
// token is abbreviated.
func (a *App) Headers(ctx context.Context) error {
	h := a.sess.SecureHeaders()
	if len(h) == 0 {
		fmt.Fprintln(a.out, "(no headers)")
		return nil
	}

	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, k := range names {
		fmt.Fprintf(a.out, "%s: %s\n", k, abbreviate(h.Get(k)))
	}
	return nil
}

func (a *App) Routes(ctx context.Context) error {
	for _, p := range routePaths() {
		r := routes[p]
		lock := " "
		if r.Protected {
			lock = "*"
		}
		fmt.Fprintf(a.out, "%s %-12s %s\n", lock, p, r.Title)
	}
	fmt.Fprintln(a.out, "(* requires a secure session)")
	return nil
}

// Open navigates to path. Protected routes go through the guard; a denied
// route redirects to login with path as the return target.
func (a *App) Open(ctx context.Context, path string) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	r, ok := routes[path]
	if !ok {
		fmt.Fprintf(a.out, "No such route: %s\n", path)
		return nil
	}

	if r.Protected {
		if allowed, redirect := a.guard.Check(path); !allowed {
			if a.isLoggedIn() && a.sess.Phase() == session.Expiring {
				fmt.Fprintln(a.out, "Your session is about to expire. Please sign in again.")
			}
			a.screen.Redirect(redirect)
			return nil
		}
	}

	a.screen.show(path, r.Title)
	return nil
}

// AuditExport uploads pending audit events.
func (a *App) AuditExport(ctx context.Context) error {
	if a.audit == nil {
		return errAuditDisabled
	}

	n, key, err := a.audit.Export(ctx)
	if err != nil {
		return fmt.Errorf("audit export: %w", err)
	}
	if n == 0 {
		fmt.Fprintln(a.out, "Nothing to export.")
		return nil
	}
	fmt.Fprintf(a.out, "Exported %d events to %s.\n", n, key)
	return nil
}

func abbreviate(v string) string {
	const keep = 12
	if len(v) <= 2*keep {
		return v
	}
	return v[:keep] + "..." + v[len(v)-keep:]
}
