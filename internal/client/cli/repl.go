package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	touch()
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Headers(ctx context.Context) error
	Routes(ctx context.Context) error
	Open(ctx context.Context, path string) error
	AuditExport(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the sessionkeeper shell.
//
// Every line read, empty or not, first counts as a keypress for the session
// (touch). The first token is then the command. The loop exits on EOF or
// when the user types "exit" or "quit".
//
// Commands
//
//	Not logged in:
//	  - help           show available commands
//	  - login          authenticate
//	  - status         show session status
//	  - routes         list screens
//	  - open <route>   go to a screen (protected ones redirect to login)
//	  - exit | quit    leave the program
//
//	Logged in, additionally:
//	  - headers        show the headers sent with backend requests
//	  - audit export   upload pending audit events
//	  - logout         sign out
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader, out io.Writer) {
	for {
		fmt.Fprintf(out, "sk %s> ", statusFn())

		line, err := in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			fmt.Fprintln(out)
			return
		}
		a.touch()

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(out, "Available commands: status, routes, open <route>, headers, audit export, logout, exit")
			} else {
				fmt.Fprintln(out, "Available commands: login, status, routes, open <route>, exit")
			}

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "headers":
			cmdErr = a.Headers(ctx)

		case "routes":
			cmdErr = a.Routes(ctx)

		case "open":
			if len(args) != 1 {
				fmt.Fprintln(out, "Usage: open <route>")
				continue
			}
			cmdErr = a.Open(ctx, args[0])

		case "audit":
			if len(args) != 1 || args[0] != "export" {
				fmt.Fprintln(out, "Usage: audit export")
				continue
			}
			cmdErr = a.AuditExport(ctx)

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(out, "Error:", cmdErr)
		}
	}
}
