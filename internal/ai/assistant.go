package ai

import (
	"context"
	"fmt"

	"github.com/resumecheck/resumecheck/internal/check"
)

// Stage names reported by StageError.
const (
	StageSummarize = "summarize"
	StageExtract   = "extract"
	StageScore     = "score"
)

// Summarizer condenses a raw job posting down to the text that is about the
// applicant: role, requirements, skills.
type Summarizer interface {
	Summarize(ctx context.Context, jobPost string) (string, error)
}

// Extractor produces a ranked list of qualifications with integer weights
// from job posting text. Malformed entries are dropped, not surfaced as
// errors; an empty list is a valid result.
type Extractor interface {
	Extract(ctx context.Context, jobPost string) ([]check.Qualification, error)
}

// Scorer evaluates a resume against a qualifications list and produces the
// structured analysis.
type Scorer interface {
	Score(ctx context.Context, resumeText string, qualifications []check.Qualification) (*check.Analysis, error)
}

// StageError wraps a leaf-component failure with the pipeline stage it
// occurred in, so the worker can record which stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
