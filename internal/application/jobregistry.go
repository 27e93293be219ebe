package application

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dmarchetti/credpanel/internal/domain/model"
)

// JobRegistry holds batch jobs by id so the HTTP layer can start a batch
// asynchronously and poll its progress afterwards. Jobs are kept after
// completion until evicted; the panel is single-user so the set stays small.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*model.BatchJob
}

// NewJobRegistry creates an empty registry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]*model.BatchJob)}
}

// Create registers a new job in the Created state over the given targets and
// returns it. The job id is a fresh UUID.
func (r *JobRegistry) Create(kind model.BatchKind, targetIDs []int64, windowSize int) *model.BatchJob {
	job := model.NewBatchJob(uuid.NewString(), kind, targetIDs, windowSize)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return job
}

// Get returns the job with the given id, or nil when unknown.
func (r *JobRegistry) Get(id string) *model.BatchJob {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[id]
}

// Evict removes a job from the registry. Running jobs keep running; eviction
// only forgets the handle.
func (r *JobRegistry) Evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}
