package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resumecheck/resumecheck/internal/ai"
	"github.com/resumecheck/resumecheck/internal/check"
)

type stubSummarizer struct {
	summary string
	err     error
	calls   int
}

func (s *stubSummarizer) Summarize(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.summary, s.err
}

type stubExtractor struct {
	quals []check.Qualification
	err   error
	calls int
	seen  string
}

func (s *stubExtractor) Extract(_ context.Context, jobPost string) ([]check.Qualification, error) {
	s.calls++
	s.seen = jobPost
	return s.quals, s.err
}

type stubScorer struct {
	analysis *check.Analysis
	err      error
	calls    int
	seen     []check.Qualification
}

func (s *stubScorer) Score(_ context.Context, _ string, quals []check.Qualification) (*check.Analysis, error) {
	s.calls++
	s.seen = quals
	return s.analysis, s.err
}

func TestEvaluateCallerSuppliedQualifications(t *testing.T) {
	summarizer := &stubSummarizer{}
	extractor := &stubExtractor{}
	scorer := &stubScorer{analysis: &check.Analysis{Score: 70}}

	job := &check.Job{
		ID:      "job-1",
		JobPost: "posting",
		Qualifications: []check.Qualification{
			{Name: "Go", Weight: 8},
		},
		SummarizeJobPost: true,
	}

	sinkCalled := false
	sink := func(_ context.Context, _ []check.Qualification) error {
		sinkCalled = true
		return nil
	}

	p := New(summarizer, extractor, scorer, zap.NewNop())
	result, err := p.Evaluate(context.Background(), job, sink)
	require.NoError(t, err)

	assert.Equal(t, 0, summarizer.calls, "summarizer must not run for caller-supplied qualifications")
	assert.Equal(t, 0, extractor.calls, "extractor must not run for caller-supplied qualifications")
	assert.False(t, sinkCalled, "sink is only for derived qualifications")
	assert.False(t, result.Derived)
	assert.True(t, result.QualificationsPersisted)
	assert.Equal(t, job.Qualifications, result.Qualifications)
	assert.Equal(t, 70, result.Analysis.Score)
}

func TestEvaluateSummarizeThenExtract(t *testing.T) {
	summarizer := &stubSummarizer{summary: "distilled posting"}
	extractor := &stubExtractor{quals: []check.Qualification{{Name: "Go", Weight: 9}}}
	scorer := &stubScorer{analysis: &check.Analysis{Score: 90}}

	job := &check.Job{ID: "job-2", JobPost: "full posting", SummarizeJobPost: true}

	var sunk []check.Qualification
	sink := func(_ context.Context, quals []check.Qualification) error {
		sunk = quals
		return nil
	}

	p := New(summarizer, extractor, scorer, zap.NewNop())
	result, err := p.Evaluate(context.Background(), job, sink)
	require.NoError(t, err)

	assert.Equal(t, 1, summarizer.calls)
	assert.Equal(t, "distilled posting", extractor.seen, "extractor must receive the summary, not the raw posting")
	assert.Equal(t, extractor.quals, sunk, "derived qualifications must hit the sink before scoring")
	assert.True(t, result.Derived)
	assert.True(t, result.QualificationsPersisted)
	assert.Equal(t, extractor.quals, scorer.seen)
}

func TestEvaluateExtractDirectly(t *testing.T) {
	summarizer := &stubSummarizer{}
	extractor := &stubExtractor{quals: []check.Qualification{{Name: "SQL", Weight: 5}}}
	scorer := &stubScorer{analysis: &check.Analysis{Score: 50}}

	job := &check.Job{ID: "job-3", JobPost: "full posting"}

	p := New(summarizer, extractor, scorer, zap.NewNop())
	result, err := p.Evaluate(context.Background(), job, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, summarizer.calls)
	assert.Equal(t, "full posting", extractor.seen)
	assert.True(t, result.Derived)
}

func TestEvaluateSummarizeFailure(t *testing.T) {
	summarizer := &stubSummarizer{err: errors.New("model unavailable")}
	extractor := &stubExtractor{}
	scorer := &stubScorer{}

	job := &check.Job{ID: "job-4", JobPost: "posting", SummarizeJobPost: true}

	p := New(summarizer, extractor, scorer, zap.NewNop())
	_, err := p.Evaluate(context.Background(), job, nil)
	require.Error(t, err)

	var stageErr *ai.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, ai.StageSummarize, stageErr.Stage)
	assert.Equal(t, 0, extractor.calls)
	assert.Equal(t, 0, scorer.calls)
}

func TestEvaluateExtractFailure(t *testing.T) {
	extractor := &stubExtractor{err: errors.New("bad response")}
	scorer := &stubScorer{}

	job := &check.Job{ID: "job-5", JobPost: "posting"}

	p := New(&stubSummarizer{}, extractor, scorer, zap.NewNop())
	_, err := p.Evaluate(context.Background(), job, nil)

	var stageErr *ai.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, ai.StageExtract, stageErr.Stage)
	assert.Equal(t, 0, scorer.calls)
}

func TestEvaluateScoreFailureAfterSink(t *testing.T) {
	extractor := &stubExtractor{quals: []check.Qualification{{Name: "Go", Weight: 7}}}
	scorer := &stubScorer{err: errors.New("model timeout")}

	job := &check.Job{ID: "job-6", JobPost: "posting"}

	sinkCalled := false
	sink := func(_ context.Context, _ []check.Qualification) error {
		sinkCalled = true
		return nil
	}

	p := New(&stubSummarizer{}, extractor, scorer, zap.NewNop())
	_, err := p.Evaluate(context.Background(), job, sink)

	var stageErr *ai.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, ai.StageScore, stageErr.Stage)
	assert.True(t, sinkCalled, "qualifications must be persisted even when scoring fails afterwards")
}

func TestEvaluateSinkFailureIsNotFatal(t *testing.T) {
	extractor := &stubExtractor{quals: []check.Qualification{{Name: "Go", Weight: 7}}}
	scorer := &stubScorer{analysis: &check.Analysis{Score: 65}}

	job := &check.Job{ID: "job-7", JobPost: "posting"}

	sink := func(_ context.Context, _ []check.Qualification) error {
		return errors.New("connection reset")
	}

	p := New(&stubSummarizer{}, extractor, scorer, zap.NewNop())
	result, err := p.Evaluate(context.Background(), job, sink)
	require.NoError(t, err)

	assert.True(t, result.Derived)
	assert.False(t, result.QualificationsPersisted)
	assert.Equal(t, 65, result.Analysis.Score)
}

func TestEvaluateEmptyExtractionStillScores(t *testing.T) {
	extractor := &stubExtractor{quals: []check.Qualification{}}
	scorer := &stubScorer{analysis: &check.Analysis{Score: 0, Narrative: "nothing to assess"}}

	job := &check.Job{ID: "job-8", JobPost: "posting"}

	p := New(&stubSummarizer{}, extractor, scorer, zap.NewNop())
	result, err := p.Evaluate(context.Background(), job, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, scorer.calls, "empty extraction still goes to scoring")
	assert.Empty(t, scorer.seen)
	assert.Equal(t, 0, result.Analysis.Score)
}
