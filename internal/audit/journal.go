// Package audit records session events in the local database and ships
// them to object storage as JSON lines.
package audit

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/session"
	"github.com/oklog/ulid/v2"
)

// Record is one journaled event.
type Record struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	UserID     string    `json:"user_id,omitempty"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Journal appends session events to the audit_events table. Refresh events
// are not journaled.
type Journal struct {
	db  *sql.DB
	log logging.Logger

	// entropy makes ids minted within one millisecond sort in append order.
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewJournal(db *sql.DB, log logging.Logger) *Journal {
	return &Journal{
		db:      db,
		log:     log.With("component", "audit"),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// OnSessionEvent implements session.Listener.
func (j *Journal) OnSessionEvent(e session.Event) {
	if e.Kind == session.KindRefreshed {
		return
	}
	ctx := context.Background()
	if _, err := j.Append(ctx, e); err != nil {
		j.log.Warn(ctx, "audit append failed", "kind", string(e.Kind), "error", err)
	}
}

// Append stores e and returns its id.
func (j *Journal) Append(ctx context.Context, e session.Event) (string, error) {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	id, err := j.newID(at)
	if err != nil {
		return "", fmt.Errorf("audit id: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, kind, user_id, email, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(), string(e.Kind), e.UserID, e.Email, at.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to insert audit event: %w", err)
	}
	return id.String(), nil
}

func (j *Journal) newID(at time.Time) (ulid.ULID, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ulid.New(ulid.Timestamp(at), j.entropy)
}

// Pending returns up to limit events that have not been exported, oldest first.
func (j *Journal) Pending(ctx context.Context, limit int) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, kind, user_id, email, occurred_at FROM audit_events
		 WHERE exported = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ms int64
		if err := rows.Scan(&r.ID, &r.Kind, &r.UserID, &r.Email, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		r.OccurredAt = time.UnixMilli(ms).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}
	return out, nil
}

// MarkExported flags ids as shipped, in one transaction.
func (j *Journal) MarkExported(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	return dbx.WithTx(ctx, j.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		q := `UPDATE audit_events SET exported = 1 WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("failed to mark audit events exported: %w", err)
		}
		return nil
	})
}

// Count returns the number of journaled events, exported or not.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return n, nil
}
