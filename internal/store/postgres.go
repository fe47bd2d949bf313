package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/resumecheck/resumecheck/internal/check"
	"github.com/resumecheck/resumecheck/internal/logger"
)

//go:embed schema.sql
var schemaSQL string

// Postgres implements Store on top of a pgx connection pool. Qualifications
// and analysis are stored as JSONB columns, not relational sub-tables.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// OpenPostgres connects to the database, applies the schema and returns a
// ready store.
func OpenPostgres(ctx context.Context, dsn string, log *zap.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.ConnConfig.RuntimeParams["application_name"] = "resumecheck"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	log.Info("connected to postgres")

	return &Postgres{pool: pool, logger: log}, nil
}

func (p *Postgres) CreateJob(ctx context.Context, job *check.Job) error {
	qualsJSON, err := marshalQualifications(job.Qualifications)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO resume_checks (
			id, job_post, resume_text, summarize_job_post,
			qualifications, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`

	err = p.pool.QueryRow(ctx, query,
		job.ID,
		job.JobPost,
		job.ResumeText,
		job.SummarizeJobPost,
		qualsJSON,
		job.Status,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	return nil
}

const jobColumns = `
	id, job_post, resume_text, summarize_job_post,
	qualifications, status, analysis, error, created_at, updated_at
`

func (p *Postgres) GetJob(ctx context.Context, id string) (*check.Job, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM resume_checks WHERE id = $1`, id)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select job: %w", err)
	}

	return job, nil
}

func (p *Postgres) PendingJobs(ctx context.Context, limit int) ([]*check.Job, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM resume_checks
		 WHERE status = $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		check.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*check.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			p.logger.Warn("skipping unscannable job row", zap.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// ClaimJob is the one operation that needs mutual exclusion across worker
// instances: the status guard makes the update a compare-and-set.
func (p *Postgres) ClaimJob(ctx context.Context, id string) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`UPDATE resume_checks
		 SET status = $1, updated_at = now()
		 WHERE id = $2 AND status = $3`,
		check.StatusProcessing, id, check.StatusPending)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) SetQualifications(ctx context.Context, id string, quals []check.Qualification) error {
	qualsJSON, err := marshalQualifications(quals)
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE resume_checks
		 SET qualifications = $1, updated_at = now()
		 WHERE id = $2 AND status = $3`,
		qualsJSON, id, check.StatusProcessing)
	if err != nil {
		return fmt.Errorf("update qualifications: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *Postgres) CompleteJob(ctx context.Context, id string, analysis *check.Analysis) error {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE resume_checks
		 SET status = $1, analysis = $2, error = NULL, updated_at = now()
		 WHERE id = $3 AND status = $4`,
		check.StatusCompleted, analysisJSON, id, check.StatusProcessing)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *Postgres) FailJob(ctx context.Context, id string, message string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE resume_checks
		 SET status = $1, error = $2, updated_at = now()
		 WHERE id = $3 AND status = $4`,
		check.StatusFailed, logger.Truncate(message, maxErrorLength), id, check.StatusProcessing)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *Postgres) SetBaseResume(ctx context.Context, profileID, resumeText string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO base_resumes (profile_id, resume_text, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (profile_id)
		 DO UPDATE SET resume_text = EXCLUDED.resume_text, updated_at = now()`,
		profileID, resumeText)
	if err != nil {
		return fmt.Errorf("upsert base resume: %w", err)
	}

	return nil
}

func (p *Postgres) GetBaseResume(ctx context.Context, profileID string) (string, error) {
	var resumeText string
	err := p.pool.QueryRow(ctx,
		`SELECT resume_text FROM base_resumes WHERE profile_id = $1`,
		profileID).Scan(&resumeText)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrBaseResumeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select base resume: %w", err)
	}

	return resumeText, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() {
	p.pool.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*check.Job, error) {
	var (
		job          check.Job
		qualsJSON    []byte
		analysisJSON []byte
		errMsg       *string
	)

	if err := row.Scan(
		&job.ID,
		&job.JobPost,
		&job.ResumeText,
		&job.SummarizeJobPost,
		&qualsJSON,
		&job.Status,
		&analysisJSON,
		&errMsg,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(qualsJSON) > 0 {
		if err := json.Unmarshal(qualsJSON, &job.Qualifications); err != nil {
			return nil, fmt.Errorf("decode qualifications: %w", err)
		}
	}

	if len(analysisJSON) > 0 {
		job.Analysis = &check.Analysis{}
		if err := json.Unmarshal(analysisJSON, job.Analysis); err != nil {
			return nil, fmt.Errorf("decode analysis: %w", err)
		}
	}

	if errMsg != nil {
		job.Error = *errMsg
	}

	return &job, nil
}

func marshalQualifications(quals []check.Qualification) ([]byte, error) {
	if quals == nil {
		return nil, nil
	}
	data, err := json.Marshal(quals)
	if err != nil {
		return nil, fmt.Errorf("marshal qualifications: %w", err)
	}
	return data, nil
}
