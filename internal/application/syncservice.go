package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmarchetti/credpanel/internal/domain/port/driven"
)

// ErrNoAdminClient is returned when a sync or batch is requested before an
// admin endpoint has been configured.
var ErrNoAdminClient = errors.New("no admin client configured")

// SyncService keeps the local mirror of the credential pool fresh. It runs a
// periodic full fetch from the admin API into the SQLite cache and accepts
// manual refresh requests; batch completion and single-item mutations both
// trigger exactly one manual refresh.
type SyncService struct {
	provider   *AdminClientProvider
	credStore  driven.CredentialStore
	groupStore driven.GroupStore
	broker     *Broker
	interval   time.Duration
	refreshCh  chan chan error
}

// NewSyncService creates a SyncService with all required dependencies.
func NewSyncService(
	provider *AdminClientProvider,
	credStore driven.CredentialStore,
	groupStore driven.GroupStore,
	broker *Broker,
	interval time.Duration,
) *SyncService {
	return &SyncService{
		provider:   provider,
		credStore:  credStore,
		groupStore: groupStore,
		broker:     broker,
		interval:   interval,
		refreshCh:  make(chan chan error),
	}
}

// Start begins the sync loop. It runs an immediate sync, then syncs on the
// configured interval, and serves manual refresh requests in between. Start
// blocks until the context is canceled.
func (s *SyncService) Start(ctx context.Context) {
	if err := s.syncAll(ctx); err != nil {
		slog.Error("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync service stopped")
			return
		case <-ticker.C:
			if err := s.syncAll(ctx); err != nil {
				slog.Error("sync cycle failed", "error", err)
			}
		case done := <-s.refreshCh:
			done <- s.syncAll(ctx)
		}
	}
}

// RefreshNow triggers a full sync bypassing the interval. It blocks until
// the sync completes or the context is canceled.
func (s *SyncService) RefreshNow(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case s.refreshCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// syncAll replaces the cached credential and group collections with the
// admin API's current state and publishes a collection-updated event.
func (s *SyncService) syncAll(ctx context.Context) error {
	client := s.provider.Get()
	if client == nil {
		slog.Debug("sync skipped, no admin client configured")
		return nil
	}

	start := time.Now()

	creds, err := client.ListCredentials(ctx)
	if err != nil {
		return err
	}
	if err := s.credStore.ReplaceAll(ctx, creds); err != nil {
		return err
	}

	groups, activeGroupID, err := client.ListGroups(ctx)
	if err != nil {
		return err
	}
	if err := s.groupStore.ReplaceAll(ctx, groups, activeGroupID); err != nil {
		return err
	}

	s.broker.Publish(Event{Kind: EventCollectionUpdated})

	slog.Info("sync complete",
		"credentials", len(creds),
		"groups", len(groups),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}
