// Package driven defines the outbound port interfaces the application layer
// depends on. Adapters under internal/adapter/driven implement them.
package driven

import (
	"context"

	"github.com/dmarchetti/credpanel/internal/domain/model"
)

// AdminClient is the port to the credential-pool proxy's admin REST API.
// Every method maps to one admin endpoint; per-call errors carry the admin
// error message when the proxy returned a structured error body.
type AdminClient interface {
	// ListCredentials fetches the live state of every credential in the pool.
	ListCredentials(ctx context.Context) ([]model.Credential, error)

	// RefreshCredential forces a token refresh for one credential.
	RefreshCredential(ctx context.Context, id int64) error

	// DeleteCredential removes one credential from the pool.
	DeleteCredential(ctx context.Context, id int64) error

	// SetDisabled enables or disables one credential.
	SetDisabled(ctx context.Context, id int64, disabled bool) error

	// SetGroup moves one credential into the given group.
	SetGroup(ctx context.Context, id int64, groupID string) error

	// SetPriority changes one credential's scheduling priority.
	SetPriority(ctx context.Context, id int64, priority int) error

	// ResetFailureCount zeroes the failure counter and re-enables the credential.
	ResetFailureCount(ctx context.Context, id int64) error

	// AddCredential registers a new credential and returns its assigned id.
	AddCredential(ctx context.Context, item model.ImportItem) (int64, error)

	// FetchBalance retrieves the usage snapshot for one credential.
	FetchBalance(ctx context.Context, id int64) (*model.Balance, error)

	// ListGroups returns all groups plus the active group id ("" means all).
	ListGroups(ctx context.Context) ([]model.Group, string, error)

	// AddGroup creates a group and returns it.
	AddGroup(ctx context.Context, name string) (*model.Group, error)

	// RenameGroup changes a group's display name.
	RenameGroup(ctx context.Context, id, name string) error

	// DeleteGroup removes a group; its credentials fall back to "default".
	DeleteGroup(ctx context.Context, id string) error

	// SetActiveGroup restricts proxy traffic to one group ("" means all).
	SetActiveGroup(ctx context.Context, groupID string) error

	// ProxyStatus reports whether the proxy listener is running and where.
	ProxyStatus(ctx context.Context) (*model.ProxyStatus, error)
}
