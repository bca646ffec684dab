package session

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of directory roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole accepts "admin" or "user" (case-insensitive).
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleUser:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

// AuthState is the current session. The three fields are either all set or
// all empty. ExpiresAt is in milliseconds since the Unix epoch.
type AuthState struct {
	User      *User  `json:"user,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

// Empty reports whether no user is present.
func (s AuthState) Empty() bool {
	return s.User == nil
}

// Complete reports whether user, token and deadline are all present and the
// user record is usable.
func (s AuthState) Complete() bool {
	if s.User == nil || s.Token == "" || s.ExpiresAt <= 0 {
		return false
	}
	if s.User.ID == "" || s.User.Email == "" {
		return false
	}
	_, err := ParseRole(string(s.User.Role))
	return err == nil
}

// Deadline returns ExpiresAt as a time.Time; zero when unset.
func (s AuthState) Deadline() time.Time {
	if s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.ExpiresAt)
}

// Clone returns a copy that shares nothing with s.
func (s AuthState) Clone() AuthState {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Phase is the derived position in the session lifecycle.
type Phase int

const (
	LoggedOut Phase = iota
	Active
	Expiring
	Expired
)

func (p Phase) String() string {
	switch p {
	case LoggedOut:
		return "logged_out"
	case Active:
		return "active"
	case Expiring:
		return "expiring"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// NoticeLevel grades a user-facing notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a transient message for the user (a toast in a browser, a line
// in the shell).
type Notice struct {
	Level   NoticeLevel
	Title   string
	Message string
}

// Navigator surfaces notices and performs navigation on behalf of the
// session core.
type Navigator interface {
	Notify(n Notice)
	Redirect(path string)
}

// Locator is optionally implemented by a Navigator that knows the route the
// user is on. Expiry redirects then carry it as the return parameter.
type Locator interface {
	CurrentPath() string
}

type nopNavigator struct{}

func (nopNavigator) Notify(Notice)   {}
func (nopNavigator) Redirect(string) {}
