// Package cli provides the interactive sessionkeeper shell.
//
// The shell stands in for the browser tab of a banking client: it shows a
// handful of placeholder screens behind the session route guard, feeds each
// input line to the session as keypress activity, and prints the notices
// and redirects the session core asks for.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits or
// input ends. See runREPL for the command set.
package cli
