package download

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle phase of a download job.
type State string

const (
	StateDownloading State = "downloading"
	StateConverting  State = "converting"
	StateSuccess     State = "success"
	StateError       State = "error"
)

// terminal reports whether the state cannot change anymore.
func (s State) terminal() bool {
	return s == StateSuccess || s == StateError
}

// Job tracks one paper through download and conversion.
type Job struct {
	ID          string    `json:"id"`
	PaperID     string    `json:"paper_id"`
	State       State     `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
	Error       string    `json:"error,omitempty"`
}

// registry is the mutex-guarded job table, keyed by paper id. The
// check-and-create in beginOrActive is what collapses concurrent
// starts for the same paper onto one job.
type registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newRegistry() *registry {
	return &registry{jobs: make(map[string]*Job)}
}

// beginOrActive returns the in-flight job for the paper, or creates a
// fresh one when none is active. A paper whose previous job already
// finished (success or error) gets a new job, so failed downloads can
// be retried.
func (r *registry) beginOrActive(paperID string, now time.Time) (job Job, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.jobs[paperID]; ok && !existing.State.terminal() {
		return *existing, false
	}

	fresh := &Job{
		ID:        uuid.NewString(),
		PaperID:   paperID,
		State:     StateDownloading,
		StartedAt: now,
	}
	r.jobs[paperID] = fresh
	return *fresh, true
}

// get returns a copy of the paper's job.
func (r *registry) get(paperID string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[paperID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// setState moves a non-terminal job to the given state.
func (r *registry) setState(paperID string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[paperID]; ok && !job.State.terminal() {
		job.State = state
	}
}

// succeed marks the paper's job finished.
func (r *registry) succeed(paperID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[paperID]; ok && !job.State.terminal() {
		job.State = StateSuccess
		job.CompletedAt = now
	}
}

// fail marks the paper's job failed with the error text.
func (r *registry) fail(paperID string, err error, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[paperID]
	if !ok || job.State.terminal() {
		return
	}

	job.State = StateError
	job.CompletedAt = now
	if err != nil {
		job.Error = err.Error()
	}
}

// snapshot returns copies of all known jobs.
func (r *registry) snapshot() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobs := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// activeCount counts jobs that have not finished yet.
func (r *registry) activeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for _, job := range r.jobs {
		if !job.State.terminal() {
			n++
		}
	}
	return n
}
