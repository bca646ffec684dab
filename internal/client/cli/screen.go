package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/sessionkeeper/internal/session"
)

// Screen is the shell's view port. It implements session.Navigator and
// session.Locator, so expiry redirects remember the route the user was on.
type Screen struct {
	mu   sync.Mutex
	out  io.Writer
	path string
}

var (
	_ session.Navigator = (*Screen)(nil)
	_ session.Locator   = (*Screen)(nil)
)

// NewScreen returns a screen positioned at start.
func NewScreen(out io.Writer, start string) *Screen {
	return &Screen{out: out, path: start}
}

func (s *Screen) Notify(n session.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mark := "*"
	if n.Level == session.NoticeError {
		mark = "!"
	}
	fmt.Fprintf(s.out, "%s %s: %s\n", mark, n.Title, n.Message)
}

func (s *Screen) Redirect(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.path = path
	fmt.Fprintf(s.out, "-> %s\n", path)
}

func (s *Screen) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// show renders the placeholder for an allowed route.
func (s *Screen) show(path, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.path = path
	fmt.Fprintf(s.out, "== %s (%s) ==\n", title, path)
}
