package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smarttransit/busticket-web/internal/booking"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/smarttransit/busticket-web/internal/session"
)

// SessionRepository stores web sessions in a SQL table. It implements
// session.Store for postgres, mysql and sqlite.
type SessionRepository struct {
	db DB
}

var _ session.Store = (*SessionRepository)(nil)

// NewSessionRepository creates a new session repository
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{
		db: db,
	}
}

// sessionRow maps the web_sessions table
type sessionRow struct {
	ID         string         `db:"id"`
	Token      string         `db:"token"`
	CSRFToken  string         `db:"csrf_token"`
	UserData   sql.NullString `db:"user_data"`
	Resolved   bool           `db:"resolved"`
	ResolvedAt sql.NullTime   `db:"resolved_at"`
	Flash      sql.NullString `db:"flash"`
	Wizard     *booking.State `db:"wizard"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
	ExpiresAt  time.Time      `db:"expires_at"`
}

var schemas = map[string]string{
	"postgres": `
		CREATE TABLE IF NOT EXISTS web_sessions (
			id VARCHAR(64) PRIMARY KEY,
			token TEXT NOT NULL DEFAULT '',
			csrf_token VARCHAR(64) NOT NULL DEFAULT '',
			user_data TEXT,
			resolved BOOLEAN NOT NULL DEFAULT FALSE,
			resolved_at TIMESTAMPTZ,
			flash TEXT,
			wizard TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
	"mysql": `
		CREATE TABLE IF NOT EXISTS web_sessions (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			token TEXT NOT NULL,
			csrf_token VARCHAR(64) NOT NULL DEFAULT '',
			user_data TEXT,
			resolved BOOLEAN NOT NULL DEFAULT FALSE,
			resolved_at DATETIME(6) NULL,
			flash TEXT,
			wizard MEDIUMTEXT,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			expires_at DATETIME(6) NOT NULL,
			INDEX idx_web_sessions_expires_at (expires_at)
		) DEFAULT CHARSET=utf8mb4`,
	"sqlite": `
		CREATE TABLE IF NOT EXISTS web_sessions (
			id TEXT PRIMARY KEY,
			token TEXT NOT NULL DEFAULT '',
			csrf_token TEXT NOT NULL DEFAULT '',
			user_data TEXT,
			resolved BOOLEAN NOT NULL DEFAULT 0,
			resolved_at TIMESTAMP,
			flash TEXT,
			wizard TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`,
}

// EnsureSchema creates the sessions table when missing
func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	schema, ok := schemas[r.db.DriverName()]
	if !ok {
		return fmt.Errorf("no session schema for driver %s", r.db.DriverName())
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

// Get retrieves a session that has not expired
func (r *SessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	query := r.db.Rebind(`
		SELECT id, token, csrf_token, user_data, resolved, resolved_at, flash, wizard,
		       created_at, updated_at, expires_at
		FROM web_sessions
		WHERE id = ? AND expires_at > ?
	`)

	var row sessionRow
	err := r.db.GetContext(ctx, &row, query, id, time.Now().UTC())
	if err == sql.ErrNoRows {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return row.toSession()
}

// Save inserts or replaces a session
func (r *SessionRepository) Save(ctx context.Context, sess *session.Session) error {
	row, err := newSessionRow(sess)
	if err != nil {
		return err
	}

	query := r.db.Rebind(r.upsertQuery())
	_, err = r.db.ExecContext(ctx, query,
		row.ID,
		row.Token,
		row.CSRFToken,
		row.UserData,
		row.Resolved,
		row.ResolvedAt,
		row.Flash,
		row.Wizard,
		row.CreatedAt,
		row.UpdatedAt,
		row.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (r *SessionRepository) upsertQuery() string {
	const insert = `
		INSERT INTO web_sessions (
			id, token, csrf_token, user_data, resolved, resolved_at, flash, wizard,
			created_at, updated_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if r.db.DriverName() == "mysql" {
		return insert + `
		ON DUPLICATE KEY UPDATE
			token = VALUES(token), csrf_token = VALUES(csrf_token), user_data = VALUES(user_data),
			resolved = VALUES(resolved), resolved_at = VALUES(resolved_at),
			flash = VALUES(flash), wizard = VALUES(wizard),
			updated_at = VALUES(updated_at), expires_at = VALUES(expires_at)`
	}

	// postgres and sqlite share the ON CONFLICT syntax
	return insert + `
		ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token, csrf_token = EXCLUDED.csrf_token, user_data = EXCLUDED.user_data,
			resolved = EXCLUDED.resolved, resolved_at = EXCLUDED.resolved_at,
			flash = EXCLUDED.flash, wizard = EXCLUDED.wizard,
			updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at`
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM web_sessions WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before now
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := r.db.Rebind(`DELETE FROM web_sessions WHERE expires_at <= ?`)
	result, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}
	return removed, nil
}

func newSessionRow(sess *session.Session) (*sessionRow, error) {
	if sess.ID == "" {
		return nil, errors.New("session id is required")
	}

	row := &sessionRow{
		ID:        sess.ID,
		Token:     sess.Token,
		CSRFToken: sess.CSRFToken,
		Resolved:  sess.Resolved,
		Wizard:    sess.Wizard,
		CreatedAt: sess.CreatedAt.UTC(),
		UpdatedAt: sess.UpdatedAt.UTC(),
		ExpiresAt: sess.ExpiresAt.UTC(),
	}
	if !sess.ResolvedAt.IsZero() {
		row.ResolvedAt = sql.NullTime{Time: sess.ResolvedAt.UTC(), Valid: true}
	}
	if sess.User != nil {
		data, err := json.Marshal(sess.User)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal session user: %w", err)
		}
		row.UserData = sql.NullString{String: string(data), Valid: true}
	}
	if len(sess.Flash) > 0 {
		data, err := json.Marshal(sess.Flash)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal flash messages: %w", err)
		}
		row.Flash = sql.NullString{String: string(data), Valid: true}
	}
	return row, nil
}

func (row *sessionRow) toSession() (*session.Session, error) {
	sess := &session.Session{
		ID:        row.ID,
		Token:     row.Token,
		CSRFToken: row.CSRFToken,
		Resolved:  row.Resolved,
		Wizard:    row.Wizard,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		ExpiresAt: row.ExpiresAt,
	}
	if row.ResolvedAt.Valid {
		sess.ResolvedAt = row.ResolvedAt.Time
	}
	if row.UserData.Valid && row.UserData.String != "" {
		var user models.User
		if err := json.Unmarshal([]byte(row.UserData.String), &user); err != nil {
			return nil, fmt.Errorf("failed to decode session user: %w", err)
		}
		sess.User = &user
	}
	if row.Flash.Valid && row.Flash.String != "" {
		if err := json.Unmarshal([]byte(row.Flash.String), &sess.Flash); err != nil {
			return nil, fmt.Errorf("failed to decode flash messages: %w", err)
		}
	}
	return sess, nil
}
