package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmarchetti/credpanel/internal/domain/model"
)

// BatchService assembles batch jobs for each bulk action the panel offers.
// It resolves the per-item operation against the current admin client, runs
// the windowed executor, and refreshes the cached collection exactly once
// after the batch settles. Per-item outcomes never cause a refresh of their
// own.
type BatchService struct {
	provider   *AdminClientProvider
	registry   *JobRegistry
	sync       *SyncService
	broker     *Broker
	windowSize int
}

// NewBatchService creates a BatchService with all required dependencies.
// windowSize caps in-flight operations per job; values below 1 fall back to
// DefaultWindowSize.
func NewBatchService(
	provider *AdminClientProvider,
	registry *JobRegistry,
	sync *SyncService,
	broker *Broker,
	windowSize int,
) *BatchService {
	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}
	return &BatchService{
		provider:   provider,
		registry:   registry,
		sync:       sync,
		broker:     broker,
		windowSize: windowSize,
	}
}

// Registry exposes the job registry for progress polling.
func (s *BatchService) Registry() *JobRegistry {
	return s.registry
}

// RefreshCredentials runs a bulk token refresh over the target ids and
// blocks until every item has settled.
func (s *BatchService) RefreshCredentials(ctx context.Context, ids []int64, onProgress ProgressFunc) (model.BatchSummary, error) {
	client := s.provider.Get()
	if client == nil {
		return model.BatchSummary{}, ErrNoAdminClient
	}
	return s.run(ctx, model.BatchRefresh, ids, client.RefreshCredential, onProgress), nil
}

// DeleteCredentials runs a bulk delete over the target ids.
func (s *BatchService) DeleteCredentials(ctx context.Context, ids []int64, onProgress ProgressFunc) (model.BatchSummary, error) {
	client := s.provider.Get()
	if client == nil {
		return model.BatchSummary{}, ErrNoAdminClient
	}
	return s.run(ctx, model.BatchDelete, ids, client.DeleteCredential, onProgress), nil
}

// SetDisabledCredentials runs a bulk enable or disable over the target ids.
func (s *BatchService) SetDisabledCredentials(ctx context.Context, ids []int64, disabled bool, onProgress ProgressFunc) (model.BatchSummary, error) {
	client := s.provider.Get()
	if client == nil {
		return model.BatchSummary{}, ErrNoAdminClient
	}
	op := func(ctx context.Context, id int64) error {
		return client.SetDisabled(ctx, id, disabled)
	}
	return s.run(ctx, model.BatchSetDisabled, ids, op, onProgress), nil
}

// MoveCredentials runs a bulk group move over the target ids.
func (s *BatchService) MoveCredentials(ctx context.Context, ids []int64, groupID string, onProgress ProgressFunc) (model.BatchSummary, error) {
	client := s.provider.Get()
	if client == nil {
		return model.BatchSummary{}, ErrNoAdminClient
	}
	op := func(ctx context.Context, id int64) error {
		return client.SetGroup(ctx, id, groupID)
	}
	return s.run(ctx, model.BatchSetGroup, ids, op, onProgress), nil
}

// ImportCredentials registers each import item through the same windowed
// engine. Import targets have no pool ids yet, so items are addressed by
// their ordinal position in the request.
func (s *BatchService) ImportCredentials(ctx context.Context, items []model.ImportItem, onProgress ProgressFunc) (model.BatchSummary, error) {
	client := s.provider.Get()
	if client == nil {
		return model.BatchSummary{}, ErrNoAdminClient
	}

	ordinals := make([]int64, len(items))
	for i := range items {
		ordinals[i] = int64(i)
	}

	op := func(ctx context.Context, ordinal int64) error {
		if ordinal < 0 || int(ordinal) >= len(items) {
			return fmt.Errorf("import item %d out of range", ordinal)
		}
		_, err := client.AddCredential(ctx, items[int(ordinal)])
		return err
	}
	return s.run(ctx, model.BatchImport, ordinals, op, onProgress), nil
}

// StartRefresh launches a bulk refresh in the background and returns the job
// handle immediately. Detached jobs run on a fresh context: a caller that
// stops polling does not abort in-flight work.
func (s *BatchService) StartRefresh(ids []int64) (*model.BatchJob, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, ErrNoAdminClient
	}
	return s.startDetached(model.BatchRefresh, ids, client.RefreshCredential), nil
}

// StartDelete launches a bulk delete in the background.
func (s *BatchService) StartDelete(ids []int64) (*model.BatchJob, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, ErrNoAdminClient
	}
	return s.startDetached(model.BatchDelete, ids, client.DeleteCredential), nil
}

// StartSetDisabled launches a bulk enable or disable in the background.
func (s *BatchService) StartSetDisabled(ids []int64, disabled bool) (*model.BatchJob, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, ErrNoAdminClient
	}
	op := func(ctx context.Context, id int64) error {
		return client.SetDisabled(ctx, id, disabled)
	}
	return s.startDetached(model.BatchSetDisabled, ids, op), nil
}

// StartMove launches a bulk group move in the background.
func (s *BatchService) StartMove(ids []int64, groupID string) (*model.BatchJob, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, ErrNoAdminClient
	}
	op := func(ctx context.Context, id int64) error {
		return client.SetGroup(ctx, id, groupID)
	}
	return s.startDetached(model.BatchSetGroup, ids, op), nil
}

// StartImport launches a bulk import in the background. Items are addressed
// by ordinal since they have no pool ids yet.
func (s *BatchService) StartImport(items []model.ImportItem) (*model.BatchJob, error) {
	client := s.provider.Get()
	if client == nil {
		return nil, ErrNoAdminClient
	}

	ordinals := make([]int64, len(items))
	for i := range items {
		ordinals[i] = int64(i)
	}

	op := func(ctx context.Context, ordinal int64) error {
		if ordinal < 0 || int(ordinal) >= len(items) {
			return fmt.Errorf("import item %d out of range", ordinal)
		}
		_, err := client.AddCredential(ctx, items[int(ordinal)])
		return err
	}
	return s.startDetached(model.BatchImport, ordinals, op), nil
}

func (s *BatchService) run(ctx context.Context, kind model.BatchKind, ids []int64, op ItemOp, onProgress ProgressFunc) model.BatchSummary {
	job := s.registry.Create(kind, ids, s.windowSize)
	return s.runJob(ctx, job, op, onProgress)
}

func (s *BatchService) runJob(ctx context.Context, job *model.BatchJob, op ItemOp, onProgress ProgressFunc) model.BatchSummary {
	summary := RunBatch(ctx, job, op, onProgress)

	slog.Info("batch complete",
		"job_id", job.ID,
		"kind", string(job.Kind),
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)

	// One collection refresh per batch, after everything settled.
	if err := s.sync.RefreshNow(ctx); err != nil {
		slog.Error("post-batch refresh failed", "job_id", job.ID, "error", err)
	}

	s.broker.Publish(Event{Kind: EventBatchCompleted, Subject: job.ID})

	return summary
}

// startDetached registers the job, runs it on a background goroutine, and
// returns the handle for progress polling.
func (s *BatchService) startDetached(kind model.BatchKind, targets []int64, op ItemOp) *model.BatchJob {
	job := s.registry.Create(kind, targets, s.windowSize)
	go s.runJob(context.Background(), job, op, nil)
	return job
}
