// Package sqlite implements the local-cache store ports over a dual-connection
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmarchetti/credpanel/internal/domain/model"
	"github.com/dmarchetti/credpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// The table mirrors the last successful sync; ReplaceAll swaps the whole
// collection in one transaction so readers never observe a partial sync.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// ReplaceAll atomically swaps the cached collection for the given one.
func (r *CredentialRepo) ReplaceAll(ctx context.Context, creds []model.Credential) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace credentials: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}

	const insert = `
		INSERT INTO credentials (
			id, priority, disabled, failure_count, is_current, raw_status,
			expires_at, auth_method, email, subscription_title, remaining,
			group_id, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, c := range creds {
		var expiresAt any
		if c.ExpiresAt != nil {
			expiresAt = c.ExpiresAt.UTC().Format(time.RFC3339Nano)
		}

		var remaining any
		if c.Remaining != nil {
			remaining = *c.Remaining
		}

		_, err := tx.ExecContext(ctx, insert,
			c.ID, c.Priority, boolToInt(c.Disabled), c.FailureCount, boolToInt(c.IsCurrent),
			string(c.RawStatus), expiresAt, c.AuthMethod, c.Email, c.SubscriptionTitle,
			remaining, c.GroupID, c.SyncedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert credential %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace credentials: %w", err)
	}
	return nil
}

// ListAll returns the cached collection ordered by priority, then id.
func (r *CredentialRepo) ListAll(ctx context.Context) ([]model.Credential, error) {
	const query = `
		SELECT id, priority, disabled, failure_count, is_current, raw_status,
		       expires_at, auth_method, email, subscription_title, remaining,
		       group_id, synced_at
		FROM credentials
		ORDER BY priority, id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// Get returns one cached credential, or nil when absent.
func (r *CredentialRepo) Get(ctx context.Context, id int64) (*model.Credential, error) {
	const query = `
		SELECT id, priority, disabled, failure_count, is_current, raw_status,
		       expires_at, auth_method, email, subscription_title, remaining,
		       group_id, synced_at
		FROM credentials
		WHERE id = ?
	`

	row := r.db.Reader.QueryRowContext(ctx, query, id)
	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(s scanner) (model.Credential, error) {
	var (
		cred      model.Credential
		disabled  int
		isCurrent int
		rawStatus string
		expiresAt sql.NullString
		remaining sql.NullFloat64
		syncedAt  string
	)

	err := s.Scan(
		&cred.ID, &cred.Priority, &disabled, &cred.FailureCount, &isCurrent,
		&rawStatus, &expiresAt, &cred.AuthMethod, &cred.Email,
		&cred.SubscriptionTitle, &remaining, &cred.GroupID, &syncedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, err
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("scan credential: %w", err)
	}

	cred.Disabled = disabled != 0
	cred.IsCurrent = isCurrent != 0
	cred.RawStatus = model.RawStatus(rawStatus)

	if expiresAt.Valid && expiresAt.String != "" {
		parsed, err := parseTime(expiresAt.String)
		if err != nil {
			return model.Credential{}, fmt.Errorf("parse expires_at for credential %d: %w", cred.ID, err)
		}
		cred.ExpiresAt = &parsed
	}
	if remaining.Valid {
		v := remaining.Float64
		cred.Remaining = &v
	}

	cred.SyncedAt, err = parseTime(syncedAt)
	if err != nil {
		return model.Credential{}, fmt.Errorf("parse synced_at for credential %d: %w", cred.ID, err)
	}

	return cred, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseTime accepts the RFC3339 variants this repo writes plus SQLite's
// CURRENT_TIMESTAMP format.
func parseTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", raw)
}
