package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resumecheck/resumecheck/internal/check"
	"github.com/resumecheck/resumecheck/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return NewServer(mem, zap.NewNop()), mem
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSubmitCheck(t *testing.T) {
	srv, mem := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/checks", map[string]any{
		"job_post":    "we need a Go developer",
		"resume_text": "I write Go",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	reply := decode[submitResponse](t, rec)
	assert.NotEmpty(t, reply.JobID)
	assert.Equal(t, "pending", reply.Status)
	assert.Equal(t, "/api/checks/"+reply.JobID, reply.StatusURL)

	job, err := mem.GetJob(context.Background(), reply.JobID)
	require.NoError(t, err)
	assert.Equal(t, check.StatusPending, job.Status)
	assert.True(t, job.SummarizeJobPost, "summarization defaults to on")
	assert.Empty(t, job.Qualifications)
}

func TestSubmitCheckValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/checks", map[string]any{
		"job_post": "   ",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	reply := decode[errorResponse](t, rec)
	assert.Equal(t, codeValidation, reply.Code)
}

func TestSubmitCheckNoResumeAnywhere(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/checks", map[string]any{
		"job_post": "we need a Go developer",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	reply := decode[errorResponse](t, rec)
	assert.Equal(t, codeResumeUnavailable, reply.Code)
}

func TestSubmitCheckFallsBackToBaseResume(t *testing.T) {
	srv, mem := newTestServer(t)

	require.NoError(t, mem.SetBaseResume(context.Background(), DefaultProfile, "stored resume"))

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/checks", map[string]any{
		"job_post": "we need a Go developer",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	reply := decode[submitResponse](t, rec)
	job, err := mem.GetJob(context.Background(), reply.JobID)
	require.NoError(t, err)
	assert.Equal(t, "stored resume", job.ResumeText)
}

func TestSubmitCheckFiltersQualifications(t *testing.T) {
	srv, mem := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/checks", map[string]any{
		"job_post":           "posting",
		"resume_text":        "resume",
		"summarize_job_post": false,
		"qualifications": []map[string]any{
			{"qualification": "Go", "weight": 9},
			{"qualification": "SQL", "weight": "6"},
			{"qualification": "", "weight": 5},
			{"qualification": "Vibes", "weight": 99},
		},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	reply := decode[submitResponse](t, rec)
	job, err := mem.GetJob(context.Background(), reply.JobID)
	require.NoError(t, err)

	assert.False(t, job.SummarizeJobPost)
	assert.Equal(t, []check.Qualification{
		{Name: "Go", Weight: 9},
		{Name: "SQL", Weight: 6},
	}, job.Qualifications)
}

func TestSubmitCheckAllQualificationsDropped(t *testing.T) {
	srv, mem := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/checks", map[string]any{
		"job_post":    "posting",
		"resume_text": "resume",
		"qualifications": []map[string]any{
			{"qualification": "Vibes", "weight": 0},
		},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	reply := decode[submitResponse](t, rec)
	job, err := mem.GetJob(context.Background(), reply.JobID)
	require.NoError(t, err)

	// An entirely dropped list means the job falls back to extraction.
	assert.Nil(t, job.Qualifications)
}

func TestGetCheck(t *testing.T) {
	srv, mem := newTestServer(t)
	ctx := context.Background()

	job := &check.Job{
		ID:         "job-1",
		JobPost:    "posting",
		ResumeText: "resume",
		Status:     check.StatusPending,
	}
	require.NoError(t, mem.CreateJob(ctx, job))

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/checks/job-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decode[statusResponse](t, rec)
	assert.Equal(t, "job-1", reply.JobID)
	assert.Equal(t, "pending", reply.Status)
	assert.Nil(t, reply.Analysis)
}

func TestGetCheckCompleted(t *testing.T) {
	srv, mem := newTestServer(t)
	ctx := context.Background()

	job := &check.Job{ID: "job-1", JobPost: "posting", ResumeText: "resume", Status: check.StatusPending}
	require.NoError(t, mem.CreateJob(ctx, job))
	_, err := mem.ClaimJob(ctx, "job-1")
	require.NoError(t, err)
	require.NoError(t, mem.SetQualifications(ctx, "job-1", []check.Qualification{{Name: "Go", Weight: 9}}))
	require.NoError(t, mem.CompleteJob(ctx, "job-1", &check.Analysis{Score: 85, Narrative: "good fit"}))

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/checks/job-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decode[statusResponse](t, rec)
	assert.Equal(t, "completed", reply.Status)
	require.NotNil(t, reply.Analysis)
	assert.Equal(t, 85, reply.Analysis.Score)
	require.Len(t, reply.Qualifications, 1)
	assert.Equal(t, "Go", reply.Qualifications[0].Name)
}

func TestGetCheckNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/checks/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	reply := decode[errorResponse](t, rec)
	assert.Equal(t, codeNotFound, reply.Code)
}

func TestBaseResumeRoundtrip(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/profile/resume", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodPut, "/api/profile/resume", map[string]any{
		"resume_text": "my resume",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/profile/resume", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decode[map[string]string](t, rec)
	assert.Equal(t, DefaultProfile, reply["profile"])
	assert.Equal(t, "my resume", reply["resume_text"])
}

func TestBaseResumeValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPut, "/api/profile/resume", map[string]any{
		"resume_text": "  ",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBaseResumeProfiles(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPut, "/api/profile/resume", map[string]any{
		"resume_text": "backend resume",
		"profile":     "backend",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/profile/resume?profile=backend", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decode[map[string]string](t, rec)
	assert.Equal(t, "backend resume", reply["resume_text"])

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/profile/resume", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
