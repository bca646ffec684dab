package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/sessionkeeper/internal/cryptox"
)

// Memory is an in-process directory, seeded from a TOML file for demos and
// tests.
type Memory struct {
	mu      sync.RWMutex
	byEmail map[string]Entry
}

func NewMemory(entries ...Entry) *Memory {
	m := &Memory{byEmail: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		m.Put(e)
	}
	return m
}

// Put adds or replaces an entry, keyed by its normalised email.
func (m *Memory) Put(e Entry) {
	e.Email = normalizeEmail(e.Email)

	m.mu.Lock()
	m.byEmail[e.Email] = e
	m.mu.Unlock()
}

func (m *Memory) Lookup(ctx context.Context, email string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	e, ok := m.byEmail[normalizeEmail(email)]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byEmail)
}

type seedFile struct {
	Users []seedUser `toml:"user"`
}

type seedUser struct {
	ID           string `toml:"id"`
	Email        string `toml:"email"`
	PasswordHash string `toml:"password_hash"`
	Password     string `toml:"password"`
	DisplayName  string `toml:"display_name"`
	Role         string `toml:"role"`
}

// LoadMemoryFile reads a seed file of the form
//
//	[[user]]
//	id = "u-1"
//	email = "alice@example.com"
//	password_hash = "$argon2id$v=19$..."
//	display_name = "Alice"
//	role = "admin"
//
// Demo seeds may give a plain `password` instead of `password_hash`; it is
// hashed with argon2id on load.
func LoadMemoryFile(path string) (*Memory, error) {
	var f seedFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode directory seed %s: %w", path, err)
	}
	return fromSeed(f)
}

// ParseMemory is LoadMemoryFile for in-memory TOML.
func ParseMemory(data string) (*Memory, error) {
	var f seedFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("decode directory seed: %w", err)
	}
	return fromSeed(f)
}

func fromSeed(f seedFile) (*Memory, error) {
	m := NewMemory()
	for i, u := range f.Users {
		if u.ID == "" || strings.TrimSpace(u.Email) == "" {
			return nil, fmt.Errorf("directory seed: user #%d needs id and email", i+1)
		}
		hash := u.PasswordHash
		if hash == "" {
			if u.Password == "" {
				return nil, fmt.Errorf("directory seed: user %q has no password", u.Email)
			}
			h, err := cryptox.HashPassword([]byte(u.Password), cryptox.DefaultArgon2idParams())
			if err != nil {
				return nil, fmt.Errorf("directory seed: hash password for %q: %w", u.Email, err)
			}
			hash = h
		}
		if _, err := m.Lookup(context.Background(), u.Email); err == nil {
			return nil, fmt.Errorf("directory seed: duplicate email %q", u.Email)
		}
		m.Put(Entry{
			ID:           u.ID,
			Email:        u.Email,
			PasswordHash: hash,
			DisplayName:  u.DisplayName,
			Role:         u.Role,
		})
	}
	return m, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
