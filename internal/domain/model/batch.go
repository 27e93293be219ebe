package model

import (
	"fmt"
	"strings"
	"sync"
)

// JobState is the lifecycle phase of a batch job. Jobs move strictly
// Created -> Running -> Completed; a started job always runs to Completed.
type JobState string

const (
	JobCreated   JobState = "created"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
)

// BatchKind names the bulk operation a job performs.
type BatchKind string

const (
	BatchRefresh     BatchKind = "refresh"
	BatchDelete      BatchKind = "delete"
	BatchSetDisabled BatchKind = "set_disabled"
	BatchSetGroup    BatchKind = "set_group"
	BatchImport      BatchKind = "import"
)

// FailedItem pairs a target id with the reason its operation failed.
type FailedItem struct {
	ID     int64
	Reason string
}

// BatchSummary is the terminal outcome of a batch job.
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Failures  []FailedItem
}

// BatchJob tracks one bulk operation over a fixed target set. The target set
// is frozen at creation; counters only ever grow. All mutators are safe for
// concurrent use since items within a window settle on separate goroutines.
type BatchJob struct {
	ID   string
	Kind BatchKind

	mu        sync.Mutex
	state     JobState
	targets   []int64
	window    int
	completed int
	succeeded int
	failed    int
	failures  []FailedItem
}

// NewBatchJob creates a job in the Created state over a copy of targetIDs.
func NewBatchJob(id string, kind BatchKind, targetIDs []int64, windowSize int) *BatchJob {
	targets := make([]int64, len(targetIDs))
	copy(targets, targetIDs)

	return &BatchJob{
		ID:      id,
		Kind:    kind,
		state:   JobCreated,
		targets: targets,
		window:  windowSize,
	}
}

// Targets returns the frozen target id sequence.
func (j *BatchJob) Targets() []int64 {
	return j.targets
}

// WindowSize returns the concurrency cap for this job.
func (j *BatchJob) WindowSize() int {
	return j.window
}

// State returns the current lifecycle phase.
func (j *BatchJob) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Start transitions Created -> Running. Starting twice is a programming error.
func (j *BatchJob) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != JobCreated {
		panic(fmt.Sprintf("batch job %s started in state %s", j.ID, j.state))
	}
	j.state = JobRunning
}

// RecordSuccess marks one target as settled successfully and returns the new
// completed count.
func (j *BatchJob) RecordSuccess() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.succeeded++
	j.completed++
	return j.completed
}

// RecordFailure marks one target as settled with a failure reason and returns
// the new completed count.
func (j *BatchJob) RecordFailure(id int64, reason string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failed++
	j.completed++
	j.failures = append(j.failures, FailedItem{ID: id, Reason: reason})
	return j.completed
}

// Complete transitions Running -> Completed and returns the final summary.
func (j *BatchJob) Complete() BatchSummary {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = JobCompleted
	return j.summaryLocked()
}

// Snapshot returns the in-flight progress and, once completed, the summary.
func (j *BatchJob) Snapshot() (state JobState, completed, total int, summary BatchSummary) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state, j.completed, len(j.targets), j.summaryLocked()
}

func (j *BatchJob) summaryLocked() BatchSummary {
	failures := make([]FailedItem, len(j.failures))
	copy(failures, j.failures)
	return BatchSummary{
		Total:     len(j.targets),
		Succeeded: j.succeeded,
		Failed:    j.failed,
		Failures:  failures,
	}
}

// maxDisplayedReasons bounds user-facing failure reporting regardless of
// batch size; the raw Failures slice keeps full detail for callers that
// want it.
const maxDisplayedReasons = 3

// DisplayReasons renders a bounded, human-readable failure list: up to three
// distinct reasons followed by a "+N more" marker when more exist.
func (s BatchSummary) DisplayReasons() string {
	if len(s.Failures) == 0 {
		return ""
	}

	seen := make(map[string]bool, len(s.Failures))
	var distinct []string
	for _, f := range s.Failures {
		if !seen[f.Reason] {
			seen[f.Reason] = true
			distinct = append(distinct, f.Reason)
		}
	}

	shown := distinct
	if len(distinct) > maxDisplayedReasons {
		shown = distinct[:maxDisplayedReasons]
	}

	out := strings.Join(shown, "; ")
	if extra := len(distinct) - len(shown); extra > 0 {
		out += fmt.Sprintf(" (+%d more)", extra)
	}
	return out
}
