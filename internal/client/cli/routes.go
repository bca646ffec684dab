package cli

import "sort"

// route is a placeholder screen. Protected routes pass through the session
// guard.
type route struct {
	Title     string
	Protected bool
}

var routes = map[string]route{
	"/login":     {Title: "Sign in"},
	"/dashboard": {Title: "Dashboard", Protected: true},
	"/accounts":  {Title: "Accounts", Protected: true},
	"/transfers": {Title: "Transfers", Protected: true},
	"/wallet":    {Title: "Crypto wallet", Protected: true},
	"/settings":  {Title: "Settings", Protected: true},
}

// homePath is where a successful login lands without a return target.
const homePath = "/dashboard"

func routePaths() []string {
	out := make([]string, 0, len(routes))
	for p := range routes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
