package driven

import (
	"context"

	"github.com/dmarchetti/credpanel/internal/domain/model"
)

// CredentialStore persists the panel's local mirror of the credential pool.
// The mirror is replaced wholesale on each successful sync; reads serve the
// filter pipeline when the admin API is unreachable.
type CredentialStore interface {
	// ReplaceAll atomically swaps the cached collection for the given one.
	ReplaceAll(ctx context.Context, creds []model.Credential) error

	// ListAll returns the cached collection ordered by priority, then id.
	ListAll(ctx context.Context) ([]model.Credential, error)

	// Get returns one cached credential, or nil when absent.
	Get(ctx context.Context, id int64) (*model.Credential, error)
}

// GroupStore persists the panel's local mirror of the group list.
type GroupStore interface {
	// ReplaceAll atomically swaps the cached groups and active group id.
	ReplaceAll(ctx context.Context, groups []model.Group, activeGroupID string) error

	// ListAll returns the cached groups ordered by name and the active
	// group id ("" means all groups serve traffic).
	ListAll(ctx context.Context) ([]model.Group, string, error)
}
