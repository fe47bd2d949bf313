// Package worker runs the background pool that drains pending resume checks.
// Several pool instances may point at the same store; the compare-and-set
// claim keeps them from processing the same job twice.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/resumecheck/resumecheck/internal/check"
	"github.com/resumecheck/resumecheck/internal/pipeline"
	"github.com/resumecheck/resumecheck/internal/store"
)

// Evaluator runs one claimed job through the evaluation pipeline.
type Evaluator interface {
	Evaluate(ctx context.Context, job *check.Job, sink pipeline.QualificationsSink) (*pipeline.Result, error)
}

type Config struct {
	// PollInterval is the idle wait between store scans.
	PollInterval time.Duration
	// BatchSize caps how many pending jobs one scan picks up.
	BatchSize int
	// Concurrency bounds in-flight evaluations within this pool instance.
	Concurrency int
}

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 5
	defaultConcurrency  = 2
)

type Pool struct {
	store  store.Store
	eval   Evaluator
	logger *zap.Logger
	cfg    Config
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
}

func NewPool(s store.Store, eval Evaluator, logger *zap.Logger, cfg Config) *Pool {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	return &Pool{
		store:  s,
		eval:   eval,
		logger: logger,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.Concurrency)),
	}
}

// Run polls the store until ctx is cancelled, then waits for in-flight jobs.
// A single job's failure never stops the loop.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("worker pool started",
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Int("concurrency", p.cfg.Concurrency),
	)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			p.logger.Info("worker pool stopped")
			return ctx.Err()
		case <-ticker.C:
			p.scan(ctx)
		}
	}
}

func (p *Pool) scan(ctx context.Context) {
	jobs, err := p.store.PendingJobs(ctx, p.cfg.BatchSize)
	if err != nil {
		p.logger.Error("scanning pending jobs failed", zap.Error(err))
		return
	}

	for _, job := range jobs {
		claimed, err := p.store.ClaimJob(ctx, job.ID)
		if err != nil {
			p.logger.Error("claiming job failed", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		if !claimed {
			// Another worker instance got there first.
			continue
		}

		if err := p.sem.Acquire(ctx, 1); err != nil {
			p.logger.Warn("stopping scan", zap.Error(err))
			return
		}

		p.wg.Add(1)
		go p.process(ctx, job)
	}
}

func (p *Pool) process(ctx context.Context, job *check.Job) {
	log := p.logger.With(zap.String("job_id", job.ID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during evaluation", zap.Any("panic", r))
			p.commitFailure(ctx, log, job.ID, fmt.Sprintf("internal error: %v", r))
		}
		p.sem.Release(1)
		p.wg.Done()
	}()

	log.Info("picked up resume check job")

	sink := func(ctx context.Context, quals []check.Qualification) error {
		return p.store.SetQualifications(ctx, job.ID, quals)
	}

	result, err := p.eval.Evaluate(ctx, job, sink)
	if err != nil {
		log.Warn("evaluation failed", zap.Error(err))
		p.commitFailure(ctx, log, job.ID, err.Error())
		return
	}

	p.commitSuccess(ctx, log, job.ID, result)
}

func (p *Pool) commitSuccess(ctx context.Context, log *zap.Logger, jobID string, result *pipeline.Result) {
	if result.Derived && !result.QualificationsPersisted {
		if err := p.store.SetQualifications(ctx, jobID, result.Qualifications); err != nil {
			log.Warn("persisting derived qualifications at commit failed", zap.Error(err))
		}
	}

	if err := p.store.CompleteJob(ctx, jobID, result.Analysis); err != nil {
		p.logCommitError(log, err, "completed", zap.Int("score", result.Analysis.Score))
		return
	}

	log.Info("completed resume check job",
		zap.Int("score", result.Analysis.Score),
		zap.Int("qualifications", len(result.Qualifications)),
	)
}

func (p *Pool) commitFailure(ctx context.Context, log *zap.Logger, jobID string, message string) {
	if err := p.store.FailJob(ctx, jobID, message); err != nil {
		p.logCommitError(log, err, "failed", zap.String("failure", message))
		return
	}

	log.Info("marked resume check job failed")
}

// logCommitError handles the accepted data-loss path: when the row is gone or
// already terminal at commit time, the computed outcome is discarded and the
// loop continues. Surfaced only via logs.
func (p *Pool) logCommitError(log *zap.Logger, err error, outcome string, fields ...zap.Field) {
	if errors.Is(err, store.ErrNotFound) {
		log.Error("job row missing at commit, discarding computed result",
			append([]zap.Field{zap.String("outcome", outcome)}, fields...)...)
		return
	}

	log.Error("committing job outcome failed",
		append([]zap.Field{zap.String("outcome", outcome), zap.Error(err)}, fields...)...)
}
