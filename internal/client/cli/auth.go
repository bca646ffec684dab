package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/session"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and authenticates. On success the shell
// moves to the route the user was sent away from, or to the dashboard.
//
// Rejected credentials are reported to the user and are not returned as an
// error; directory outages are.
func (a *App) Login(ctx context.Context) error {
	if u := a.sess.Current().User; u != nil && a.sess.IsSecureSession() {
		fmt.Fprintf(a.out, "Already signed in as %s.\n", u.Email)
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	err = a.sess.Authenticate(ctx, email, string(password))
	var throttled session.ThrottledError
	switch {
	case err == nil:
	case errors.As(err, &throttled):
		fmt.Fprintf(a.out, "Too many attempts, try again in %s.\n", roundRemaining(throttled.RetryAfter))
		return nil
	case errors.Is(err, session.ErrCredentialsRequired), errors.Is(err, session.ErrInvalidCredentials):
		fmt.Fprintln(a.out, capitalize(err.Error())+".")
		return nil
	default:
		a.log.Error(ctx, "login failed", "error", err)
		return err
	}

	u := a.sess.Current().User
	if u == nil {
		return nil
	}
	fmt.Fprintf(a.out, "Welcome, %s.\n", displayName(u))

	target := homePath
	if p, ok := session.ReturnTarget(a.sess.Config(), a.screen.CurrentPath()); ok {
		target = p
	}
	return a.Open(ctx, target)
}

// Logout signs the user out. The session core prints the notice and moves
// the screen to the login route.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	a.sess.Logout(ctx)
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
