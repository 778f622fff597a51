package mcp

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sriram-PR/specdoc/pkg/models"
	"github.com/Sriram-PR/specdoc/pkg/orchestrate"
)

// JobStatus represents the current state of a batch job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

func (s JobStatus) terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job represents a background batch structuring job
type Job struct {
	ID           string               `json:"id"`
	Target       string               `json:"target"` // Directory or source list the job runs over
	Status       JobStatus            `json:"status"`
	StartedAt    time.Time            `json:"started_at"`
	CompletedAt  time.Time            `json:"completed_at,omitempty"`
	Total        int                  `json:"total"`
	Processed    int                  `json:"processed"`
	Succeeded    int                  `json:"succeeded"`
	Skipped      int                  `json:"skipped"`
	Failed       int                  `json:"failed"`
	ErrorMessage string               `json:"error_message,omitempty"`
	Results      []orchestrate.Result `json:"results,omitempty"`

	// Internal fields
	ctx    context.Context
	cancel context.CancelFunc
}

// JobManager manages background batch jobs
type JobManager struct {
	jobs     map[string]*Job
	mu       sync.RWMutex
	byTarget map[string]string // target -> jobID for running jobs
	now      func() time.Time
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:     make(map[string]*Job),
		byTarget: make(map[string]string),
		now:      time.Now,
	}
}

// CreateJob creates a new job for target. If a job for the same target is still
// pending or running, that job is returned with existing=true.
func (m *JobManager) CreateJob(target string) (job Job, existing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existingJobID, ok := m.byTarget[target]; ok {
		if j := m.jobs[existingJobID]; j != nil && !j.Status.terminal() {
			return j.snapshot(), true
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		ID:        uuid.New().String(),
		Target:    target,
		Status:    JobStatusPending,
		StartedAt: m.now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	m.jobs[j.ID] = j
	m.byTarget[target] = j.ID
	return j.snapshot(), false
}

// snapshot copies the job so callers can read it without holding the lock
func (j *Job) snapshot() Job {
	c := *j
	c.Results = append([]orchestrate.Result(nil), j.Results...)
	return c
}

// GetJob returns a copy of the job and whether it exists
func (m *JobManager) GetJob(jobID string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return j.snapshot(), true
}

// IsRunning checks if a job is currently pending or running for target
func (m *JobManager) IsRunning(target string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if jobID, ok := m.byTarget[target]; ok {
		j := m.jobs[jobID]
		return j != nil && !j.Status.terminal()
	}
	return false
}

// UpdateStatus updates the status of a job. A cancelled job keeps its status.
func (m *JobManager) UpdateStatus(jobID string, status JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok || j.Status == JobStatusCancelled {
		return
	}
	j.Status = status
	if status.terminal() {
		j.CompletedAt = m.now()
		delete(m.byTarget, j.Target)
		j.cancel()
	}
	if errorMsg != "" {
		j.ErrorMessage = errorMsg
	}
}

// SetTotal records the number of sources the job will process
func (m *JobManager) SetTotal(jobID string, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok {
		j.Total = total
	}
}

// RecordResult updates the progress counters with one finished source
func (m *JobManager) RecordResult(jobID string, done int, result orchestrate.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return
	}
	if done > j.Processed {
		j.Processed = done
	}
	switch result.Status {
	case models.ResultStatusSuccess:
		j.Succeeded++
	case models.ResultStatusSkipped:
		j.Skipped++
	default:
		j.Failed++
	}
}

// SetResults stores the final per-source results
func (m *JobManager) SetResults(jobID string, results []orchestrate.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok {
		j.Results = results
	}
}

// CancelJob cancels a pending or running job
func (m *JobManager) CancelJob(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[jobID]; ok && !j.Status.terminal() {
		j.cancel()
		j.Status = JobStatusCancelled
		j.CompletedAt = m.now()
		delete(m.byTarget, j.Target)
		return true
	}
	return false
}

// CancelAll cancels all running jobs
func (m *JobManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, j := range m.jobs {
		if !j.Status.terminal() {
			j.cancel()
			j.Status = JobStatusCancelled
			j.CompletedAt = m.now()
		}
	}
	m.byTarget = make(map[string]string)
}

// ListJobs returns copies of all jobs, oldest first
func (m *JobManager) ListJobs() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j.snapshot())
	}
	sort.Slice(jobs, func(a, b int) bool {
		if jobs[a].StartedAt.Equal(jobs[b].StartedAt) {
			return jobs[a].ID < jobs[b].ID
		}
		return jobs[a].StartedAt.Before(jobs[b].StartedAt)
	})
	return jobs
}

// GetContext returns the context for a job (cancelled when the job is cancelled)
func (m *JobManager) GetContext(jobID string) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if j, ok := m.jobs[jobID]; ok {
		return j.ctx
	}
	return context.Background()
}
