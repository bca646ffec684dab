package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	touches  int
	failWith error

	calls []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) touch()           { f.touches++ }
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return f.failWith
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Status(ctx context.Context) error  { f.calls = append(f.calls, "status"); return nil }
func (f *fakeExec) Headers(ctx context.Context) error { f.calls = append(f.calls, "headers"); return nil }
func (f *fakeExec) Routes(ctx context.Context) error  { f.calls = append(f.calls, "routes"); return nil }
func (f *fakeExec) Open(ctx context.Context, path string) error {
	f.calls = append(f.calls, "open "+path)
	return nil
}
func (f *fakeExec) AuditExport(ctx context.Context) error {
	f.calls = append(f.calls, "audit export")
	return nil
}

func runScript(exec execIface, lines ...string) string {
	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	runREPL(context.Background(), exec, func() string { return "status" }, in, &out)
	return out.String()
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	exec := &fakeExec{}

	out := runScript(exec,
		"help",
		"login",
		"help",
		"status",
		"headers",
		"routes",
		"open /accounts",
		"audit export",
		"logout",
		"foobar",
		"exit",
		"status",
	)

	assert.Equal(t, []string{"login", "status", "headers", "routes", "open /accounts", "audit export", "logout"}, exec.calls)
	assert.Contains(t, out, "Available commands: login, status, routes, open <route>, exit")
	assert.Contains(t, out, "Available commands: status, routes, open <route>, headers, audit export, logout, exit")
	assert.Contains(t, out, "Unknown command: foobar")
	assert.Contains(t, out, "sk status> ")
	assert.Equal(t, 11, exec.touches)
}

func TestRunREPL_EveryLineIsActivity(t *testing.T) {
	exec := &fakeExec{}

	runScript(exec, "", "   ", "status", "")

	assert.Equal(t, 3, exec.touches)
	assert.Equal(t, []string{"status"}, exec.calls)
}

func TestRunREPL_UsageAndQuit(t *testing.T) {
	exec := &fakeExec{loggedIn: true}

	out := runScript(exec, "open", "open /a /b", "audit", "audit import", "quit", "logout")

	assert.Empty(t, exec.calls)
	assert.Equal(t, 2, strings.Count(out, "Usage: open <route>"))
	assert.Equal(t, 2, strings.Count(out, "Usage: audit export"))
	assert.Contains(t, out, "Bye!")
}

func TestRunREPL_ReportsErrors(t *testing.T) {
	exec := &fakeExec{failWith: errors.New("user directory unavailable")}

	out := runScript(exec, "login", "exit")

	assert.Contains(t, out, "Error: user directory unavailable")
	assert.Equal(t, []string{"login"}, exec.calls)
}
