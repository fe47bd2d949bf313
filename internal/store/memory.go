package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/resumecheck/resumecheck/internal/check"
	"github.com/resumecheck/resumecheck/internal/logger"
)

// Memory is an in-memory Store for tests and single-process local runs. It
// honors the same status guards as the Postgres implementation.
type Memory struct {
	mu      sync.Mutex
	jobs    map[string]*check.Job
	resumes map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		jobs:    make(map[string]*check.Job),
		resumes: make(map[string]string),
	}
}

func (m *Memory) CreateJob(_ context.Context, job *check.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	stored := *job
	m.jobs[job.ID] = &stored
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (*check.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *job
	copied.Qualifications = append([]check.Qualification(nil), job.Qualifications...)
	if job.Analysis != nil {
		analysis := *job.Analysis
		copied.Analysis = &analysis
	}
	return &copied, nil
}

func (m *Memory) PendingJobs(ctx context.Context, limit int) ([]*check.Job, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.jobs))
	for id, job := range m.jobs {
		if job.Status == check.StatusPending {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.jobs[ids[i]].CreatedAt.Before(m.jobs[ids[j]].CreatedAt)
	})
	m.mu.Unlock()

	if len(ids) > limit {
		ids = ids[:limit]
	}

	jobs := make([]*check.Job, 0, len(ids))
	for _, id := range ids {
		job, err := m.GetJob(ctx, id)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (m *Memory) ClaimJob(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != check.StatusPending {
		return false, nil
	}

	job.Status = check.StatusProcessing
	job.UpdatedAt = time.Now()
	return true, nil
}

func (m *Memory) SetQualifications(_ context.Context, id string, quals []check.Qualification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != check.StatusProcessing {
		return ErrNotFound
	}

	job.Qualifications = append([]check.Qualification(nil), quals...)
	job.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) CompleteJob(_ context.Context, id string, analysis *check.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != check.StatusProcessing {
		return ErrNotFound
	}

	copied := *analysis
	job.Analysis = &copied
	job.Error = ""
	job.Status = check.StatusCompleted
	job.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) FailJob(_ context.Context, id string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != check.StatusProcessing {
		return ErrNotFound
	}

	job.Error = logger.Truncate(message, maxErrorLength)
	job.Status = check.StatusFailed
	job.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) SetBaseResume(_ context.Context, profileID, resumeText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resumes[profileID] = resumeText
	return nil
}

func (m *Memory) GetBaseResume(_ context.Context, profileID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resumeText, ok := m.resumes[profileID]
	if !ok {
		return "", ErrBaseResumeNotFound
	}
	return resumeText, nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

func (m *Memory) Close() {}

// Remove deletes a job outright, bypassing the state machine. Only used in
// tests to simulate the row-gone-at-commit-time condition.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}
