// Package application contains use-case orchestration services.
package application

import (
	"context"
	"sync"

	"github.com/dmarchetti/credpanel/internal/domain/model"
)

// DefaultWindowSize caps how many item operations a batch keeps in flight at
// once. Every bulk surface in the panel uses the same cap.
const DefaultWindowSize = 10

// ItemOp performs the per-item operation of a batch. It must settle every
// call: a nil return counts the item as succeeded, a non-nil error converts
// into a failure reason. Implementations wrap one admin API call.
type ItemOp func(ctx context.Context, id int64) error

// ProgressFunc observes batch progress. It is invoked exactly once per
// settled item with the completed count (strictly increasing from 1 to total)
// and the fixed total.
type ProgressFunc func(completed, total int)

// RunBatch drives a batch job over its frozen target set: targets are split
// into consecutive windows of at most the job's window size, each window's
// operations run concurrently, and the next window is not dispatched until
// every operation in the current one has settled. Item failures are recorded
// on the job and never abort the run.
//
// The context is checked between windows: cancellation stops dispatching
// further windows, but operations already in flight always settle and are
// counted. The returned summary therefore reflects every dispatched item.
func RunBatch(ctx context.Context, job *model.BatchJob, op ItemOp, onProgress ProgressFunc) model.BatchSummary {
	job.Start()

	targets := job.Targets()
	total := len(targets)
	windowSize := job.WindowSize()
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	// Recording and the progress callback happen under one lock so completed
	// counts reach the sink strictly increasing even though items settle on
	// separate goroutines.
	var progressMu sync.Mutex
	settle := func(record func() int) {
		progressMu.Lock()
		defer progressMu.Unlock()
		completed := record()
		if onProgress != nil {
			onProgress(completed, total)
		}
	}

	for start := 0; start < total; start += windowSize {
		if ctx.Err() != nil {
			break
		}

		end := start + windowSize
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for _, id := range targets[start:end] {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if err := op(ctx, id); err != nil {
					settle(func() int { return job.RecordFailure(id, failureReason(err)) })
					return
				}
				settle(func() int { return job.RecordSuccess() })
			}(id)
		}
		wg.Wait()
	}

	return job.Complete()
}

// failureReason converts an item error into the short human-readable string
// attached to the job summary. Nested unwrapping stays with the error's
// producer; the engine only needs some string per failure.
func failureReason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
