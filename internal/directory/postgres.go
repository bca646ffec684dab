package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/directory/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Postgres is the hosted directory backed by the users table.
type Postgres struct {
	db dbx.DBTX
}

func NewPostgres(db dbx.DBTX) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres opens a pgx-backed *sql.DB and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// Migrate brings the users table up to date.
func Migrate(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (r *Postgres) Lookup(ctx context.Context, email string) (*Entry, error) {
	query :=
		`SELECT id, email, password_hash, display_name, role FROM users
		 WHERE email = $1
		 `

	e := &Entry{}
	err := r.db.QueryRowContext(ctx, query, normalizeEmail(email)).
		Scan(&e.ID, &e.Email, &e.PasswordHash, &e.DisplayName, &e.Role)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

// Create inserts e; e.ID must already be set.
func (r *Postgres) Create(ctx context.Context, e *Entry) error {
	query :=
		`INSERT INTO users (id, email, password_hash, display_name, role)
         VALUES ($1, $2, $3, $4, $5)
		 `

	_, err := r.db.ExecContext(ctx, query,
		e.ID, normalizeEmail(e.Email), e.PasswordHash, e.DisplayName, e.Role)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
