package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Setting keys.
const (
	SettingAdminPasswordHash = "admin_password_hash"
	SettingDefaultLanguage   = "default_language"
)

// SetSetting upserts a key-value pair in the settings table.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// GetSetting returns the value for a key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// AdminPasswordHash returns the stored bcrypt hash, or "" when no admin
// password was configured.
func (s *Store) AdminPasswordHash(ctx context.Context) (string, error) {
	return s.GetSetting(ctx, SettingAdminPasswordHash)
}

// SetAdminPasswordHash stores a bcrypt hash of the admin password.
func (s *Store) SetAdminPasswordHash(ctx context.Context, hash string) error {
	return s.SetSetting(ctx, SettingAdminPasswordHash, hash)
}
