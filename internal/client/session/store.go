// Package session persists the CLI login between runs in a local SQLite file.
package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/eventhub/internal/client/models"
	"github.com/dmitrijs2005/eventhub/internal/client/session/migrations"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
)

const (
	keyAccess  = "access_token"
	keyRefresh = "refresh_token"
	keyEmail   = "email"
)

// Store keeps the token pair and the email of the logged-in user.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the saved session. A missing session yields empty values.
func (s *Store) Load(ctx context.Context) (models.Tokens, string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session`)
	if err != nil {
		return models.Tokens{}, "", fmt.Errorf("failed to load session: %w", err)
	}
	defer rows.Close()

	var (
		t     models.Tokens
		email string
	)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return models.Tokens{}, "", fmt.Errorf("failed to scan session row: %w", err)
		}
		switch k {
		case keyAccess:
			t.AccessToken = v
		case keyRefresh:
			t.RefreshToken = v
		case keyEmail:
			email = v
		}
	}
	if err := rows.Err(); err != nil {
		return models.Tokens{}, "", fmt.Errorf("failed to load session: %w", err)
	}
	return t, email, nil
}

// Save replaces the stored session in one transaction. Empty values are
// removed rather than stored.
func (s *Store) Save(ctx context.Context, t models.Tokens, email string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, kv := range [][2]string{{keyAccess, t.AccessToken}, {keyRefresh, t.RefreshToken}, {keyEmail, email}} {
			if err := set(ctx, tx, kv[0], kv[1]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveAccessToken updates only the access token, as after a refresh.
func (s *Store) SaveAccessToken(ctx context.Context, token string) error {
	return set(ctx, s.db, keyAccess, token)
}

// Clear forgets the session.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func set(ctx context.Context, db dbx.DBTX, key, value string) error {
	var err error
	if value == "" {
		_, err = db.ExecContext(ctx, `DELETE FROM session WHERE key = ?`, key)
	} else {
		_, err = db.ExecContext(ctx, `
			INSERT INTO session (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value)
	}
	if err != nil {
		return fmt.Errorf("failed to set session[%s]: %w", key, err)
	}
	return nil
}
