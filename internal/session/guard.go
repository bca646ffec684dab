package session

import "net/url"

// Guard gates protected routes on IsSecureSession.
type Guard struct {
	view View
	cfg  Config
}

func NewGuard(view View, cfg Config) *Guard {
	return &Guard{view: view, cfg: cfg}
}

// Check reports whether path may be shown. When it may not, redirect is the
// login path carrying path as the return parameter.
func (g *Guard) Check(path string) (allowed bool, redirect string) {
	if g.view.IsSecureSession() {
		return true, ""
	}
	return false, LoginURL(g.cfg, path)
}

// LoginURL builds the login redirect for returnTo.
func LoginURL(cfg Config, returnTo string) string {
	return cfg.LoginPath + "?" + cfg.ReturnParam + "=" + url.QueryEscape(returnTo)
}

// ReturnTarget extracts the return parameter from a login URL produced by
// Check or LoginURL. It only accepts local absolute paths.
func ReturnTarget(cfg Config, loginURL string) (string, bool) {
	u, err := url.Parse(loginURL)
	if err != nil || u.Path != cfg.LoginPath {
		return "", false
	}
	p := u.Query().Get(cfg.ReturnParam)
	if len(p) == 0 || p[0] != '/' || (len(p) > 1 && p[1] == '/') {
		return "", false
	}
	return p, true
}
