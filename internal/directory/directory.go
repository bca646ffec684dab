// Package directory is the read-only user directory the authentication gate
// checks credentials against.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Lookup when no user has the given email.
var ErrNotFound = errors.New("user not found")

// Entry is one directory record. Email is stored normalised (lower case,
// trimmed). PasswordHash is a bcrypt or argon2id encoded hash.
type Entry struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         string
}

// Directory looks up users by normalised email.
type Directory interface {
	Lookup(ctx context.Context, email string) (*Entry, error)
}
