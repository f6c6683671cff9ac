// Package settings persists local preferences (currency code, display name,
// display email) in SQLite. Each key is independently settable and reads
// fall back to a hardcoded default when absent. Changing the currency never
// alters stored amounts, only how they are formatted.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"splitview/internal/core"
)

const (
	KeyCurrency  = "currency"
	KeyUserName  = "user_name"
	KeyUserEmail = "user_email"
)

const (
	DefaultUserName  = "Current User"
	DefaultUserEmail = "user@example.com"
)

var defaults = map[string]string{
	KeyCurrency:  core.DefaultCurrency,
	KeyUserName:  DefaultUserName,
	KeyUserEmail: DefaultUserEmail,
}

// ErrUnknownKey reports a key outside the fixed preference set.
var ErrUnknownKey = errors.New("unknown settings key")

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the stored value for key, or its default when no row exists.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	fallback, ok := defaults[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fallback, nil
	case err != nil:
		return "", fmt.Errorf("read setting %q: %w", key, err)
	}
	return value, nil
}

// Set upserts the value for key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("write setting %q: %w", key, err)
	}
	return nil
}

// Currency returns the selected currency code, falling back to the default
// when unset or unreadable. Formatting callers treat the returned code as an
// explicit argument, never as ambient state.
func (s *Store) Currency(ctx context.Context) string {
	value, err := s.Get(ctx, KeyCurrency)
	if err != nil {
		return core.DefaultCurrency
	}
	return value
}

func (s *Store) UserName(ctx context.Context) string {
	value, err := s.Get(ctx, KeyUserName)
	if err != nil {
		return DefaultUserName
	}
	return value
}

func (s *Store) UserEmail(ctx context.Context) string {
	value, err := s.Get(ctx, KeyUserEmail)
	if err != nil {
		return DefaultUserEmail
	}
	return value
}
