// Package pipeline holds the evaluation orchestrator: it decides which of the
// three strategies applies to a job and drives the leaf components in order.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/resumecheck/resumecheck/internal/ai"
	"github.com/resumecheck/resumecheck/internal/check"
)

// QualificationsSink is called as soon as qualifications have been derived by
// the summarize-then-extract or extract-directly strategy, before scoring
// runs. It lets callers persist partial progress so a later scoring failure
// does not hide a successful extraction. Sink errors are logged, not fatal.
type QualificationsSink func(ctx context.Context, quals []check.Qualification) error

// Result is the outcome of a successful evaluation.
type Result struct {
	// Qualifications used for scoring. Equal to the job's own list when the
	// caller supplied one, otherwise derived by the pipeline.
	Qualifications []check.Qualification
	// Derived is true when the qualifications were produced by extraction
	// rather than supplied by the caller.
	Derived bool
	// QualificationsPersisted reports whether the sink accepted the derived
	// list. Always true for caller-supplied qualifications.
	QualificationsPersisted bool

	Analysis *check.Analysis
}

type Pipeline struct {
	summarizer ai.Summarizer
	extractor  ai.Extractor
	scorer     ai.Scorer
	logger     *zap.Logger
}

func New(summarizer ai.Summarizer, extractor ai.Extractor, scorer ai.Scorer, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		summarizer: summarizer,
		extractor:  extractor,
		scorer:     scorer,
		logger:     logger,
	}
}

// Evaluate runs one job through the pipeline. Strategy selection, in order:
//
//  1. caller-supplied: the job already carries qualifications; summarizer and
//     extractor are never invoked.
//  2. summarize-then-extract: no qualifications and summarize_job_post=true.
//  3. extract-directly: no qualifications and summarize_job_post=false.
//
// Leaf failures are returned as *ai.StageError. An extraction that yields
// zero usable entries is not an error; scoring proceeds against the empty
// list.
func (p *Pipeline) Evaluate(ctx context.Context, job *check.Job, sink QualificationsSink) (*Result, error) {
	result := &Result{
		Qualifications:          job.Qualifications,
		QualificationsPersisted: true,
	}

	if len(job.Qualifications) == 0 {
		quals, err := p.deriveQualifications(ctx, job)
		if err != nil {
			return nil, err
		}

		result.Qualifications = quals
		result.Derived = true

		if sink != nil {
			if err := sink(ctx, quals); err != nil {
				p.logger.Warn("persisting derived qualifications failed, continuing to scoring",
					zap.String("job_id", job.ID),
					zap.Error(err),
				)
				result.QualificationsPersisted = false
			}
		}
	} else {
		p.logger.Debug("using caller-supplied qualifications",
			zap.String("job_id", job.ID),
			zap.Int("count", len(job.Qualifications)),
		)
	}

	if len(result.Qualifications) == 0 {
		p.logger.Warn("scoring against empty qualifications list",
			zap.String("job_id", job.ID),
		)
	}

	analysis, err := p.scorer.Score(ctx, job.ResumeText, result.Qualifications)
	if err != nil {
		return nil, &ai.StageError{Stage: ai.StageScore, Err: err}
	}

	result.Analysis = analysis
	return result, nil
}

func (p *Pipeline) deriveQualifications(ctx context.Context, job *check.Job) ([]check.Qualification, error) {
	text := job.JobPost

	if job.SummarizeJobPost {
		summary, err := p.summarizer.Summarize(ctx, job.JobPost)
		if err != nil {
			return nil, &ai.StageError{Stage: ai.StageSummarize, Err: err}
		}

		p.logger.Debug("job post summarized",
			zap.String("job_id", job.ID),
			zap.Int("summary_length", len(summary)),
		)
		text = summary
	}

	quals, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return nil, &ai.StageError{Stage: ai.StageExtract, Err: err}
	}

	p.logger.Info("qualifications extracted",
		zap.String("job_id", job.ID),
		zap.Int("count", len(quals)),
		zap.Bool("summarized", job.SummarizeJobPost),
	)

	return quals, nil
}
