// Package store provides the durable job store. Every submitted resume check
// lives as one row; workers claim rows with a compare-and-set on status so
// several pool instances can share a single database.
package store

import (
	"context"
	"errors"

	"github.com/resumecheck/resumecheck/internal/check"
)

var (
	// ErrNotFound is returned when no job with the given id exists, or when a
	// lifecycle write matched no row (row gone or already terminal).
	ErrNotFound = errors.New("job not found")

	// ErrBaseResumeNotFound is returned when a profile has no stored resume.
	ErrBaseResumeNotFound = errors.New("no base resume stored")
)

// maxErrorLength caps stored failure descriptions.
const maxErrorLength = 2000

// Store is the durable record of submitted jobs and stored base resumes.
type Store interface {
	// CreateJob persists a new job. The job must carry an id and status
	// pending; CreatedAt/UpdatedAt are set by the store.
	CreateJob(ctx context.Context, job *check.Job) error

	// GetJob returns the current state of a job or ErrNotFound.
	GetJob(ctx context.Context, id string) (*check.Job, error)

	// PendingJobs returns up to limit jobs in pending state, oldest first.
	PendingJobs(ctx context.Context, limit int) ([]*check.Job, error)

	// ClaimJob atomically transitions a job from pending to processing.
	// Returns false when the job was already claimed, finished or removed.
	ClaimJob(ctx context.Context, id string) (bool, error)

	// SetQualifications replaces the qualifications of a job currently in
	// processing state. Used to persist extraction results before scoring.
	SetQualifications(ctx context.Context, id string, quals []check.Qualification) error

	// CompleteJob transitions processing -> completed and writes the
	// analysis. Returns ErrNotFound when the row is gone or not claimed.
	CompleteJob(ctx context.Context, id string, analysis *check.Analysis) error

	// FailJob transitions processing -> failed and records the failure
	// description, truncated to a storable length.
	FailJob(ctx context.Context, id string, message string) error

	// SetBaseResume stores or replaces the base resume for a profile.
	SetBaseResume(ctx context.Context, profileID, resumeText string) error

	// GetBaseResume returns the stored base resume for a profile or
	// ErrBaseResumeNotFound.
	GetBaseResume(ctx context.Context, profileID string) (string, error)

	Ping(ctx context.Context) error
	Close()
}
