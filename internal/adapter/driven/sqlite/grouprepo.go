package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmarchetti/credpanel/internal/domain/model"
	"github.com/dmarchetti/credpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GroupStore = (*GroupRepo)(nil)

// activeGroupKey is the sync_meta row holding the active group id.
const activeGroupKey = "active_group_id"

// GroupRepo is the SQLite implementation of the GroupStore port.
type GroupRepo struct {
	db *DB
}

// NewGroupRepo creates a new GroupRepo backed by the given DB.
func NewGroupRepo(db *DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// ReplaceAll atomically swaps the cached groups and active group id.
func (r *GroupRepo) ReplaceAll(ctx context.Context, groups []model.Group, activeGroupID string) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace groups: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM groups`); err != nil {
		return fmt.Errorf("clear groups: %w", err)
	}

	const insert = `INSERT INTO groups (id, name, credential_count) VALUES (?, ?, ?)`
	for _, g := range groups {
		if _, err := tx.ExecContext(ctx, insert, g.ID, g.Name, g.CredentialCount); err != nil {
			return fmt.Errorf("insert group %q: %w", g.ID, err)
		}
	}

	const upsertMeta = `INSERT OR REPLACE INTO sync_meta (key, value) VALUES (?, ?)`
	if _, err := tx.ExecContext(ctx, upsertMeta, activeGroupKey, activeGroupID); err != nil {
		return fmt.Errorf("store active group id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace groups: %w", err)
	}
	return nil
}

// ListAll returns the cached groups ordered by name and the active group id.
func (r *GroupRepo) ListAll(ctx context.Context) ([]model.Group, string, error) {
	const query = `SELECT id, name, credential_count FROM groups ORDER BY name, id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, "", fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CredentialCount); err != nil {
			return nil, "", fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate groups: %w", err)
	}

	var active string
	err = r.db.Reader.QueryRowContext(ctx,
		`SELECT value FROM sync_meta WHERE key = ?`, activeGroupKey,
	).Scan(&active)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("get active group id: %w", err)
	}

	return groups, active, nil
}
